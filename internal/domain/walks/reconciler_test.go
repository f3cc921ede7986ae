package walks

import (
	"context"
	"testing"
)

func newTestReconciler(store *testStore, hh, mm int) *Reconciler {
	svc := newTestService(store, hh, mm)
	rc := NewReconciler(store, svc, nil, nil, 0)
	rc.now = fixedClock(hh, mm)
	return rc
}

func walkingDog(id int64, end string) Dog {
	return Dog{ID: id, Status: DogWalking, CurrentWalkEnd: &end}
}

func walkingReservation(store *testStore, dogID int64, date string) Reservation {
	store.nextResID++
	start := "08:00"
	r := Reservation{
		ID:            store.nextResID,
		DogID:         dogID,
		Date:          date,
		Time:          start,
		Status:        ReservationWalking,
		ReserverName:  "Kim Jiwoo",
		ReserverPhone: "010-1234-5678",
		WalkStartTime: &start,
	}
	store.reservations[r.ID] = r
	return r
}

func TestReconciler_AutoCompletesOverdueWalk(t *testing.T) {
	store := newTestStore(walkingDog(1, "10:00"))
	r := walkingReservation(store, 1, "2026-08-31")

	rc := newTestReconciler(store, 10, 1)
	rc.Sweep(context.Background())

	d := store.dogs[1]
	if d.Status != DogCompleted {
		t.Fatalf("expected completed, got %s", d.Status)
	}
	// lastWalkTime queda en el fin programado, no en la hora del sweep.
	if d.LastWalkTime == nil || *d.LastWalkTime != "10:00" {
		t.Fatalf("expected lastWalkTime 10:00, got %v", d.LastWalkTime)
	}
	if d.CurrentWalkEnd != nil {
		t.Fatalf("currentWalkEnd should be cleared, got %v", *d.CurrentWalkEnd)
	}

	got := store.reservations[r.ID]
	if got.Status != ReservationCompleted {
		t.Fatalf("expected reservation completed, got %s", got.Status)
	}
	if got.CompletedBy == nil || *got.CompletedBy != "auto" {
		t.Fatalf("expected completedBy auto, got %v", got.CompletedBy)
	}
	if got.WalkEndTime == nil || *got.WalkEndTime != "10:00" {
		t.Fatalf("expected walkEndTime 10:00, got %v", got.WalkEndTime)
	}
}

func TestReconciler_CompletesWalkExactlyAtEnd(t *testing.T) {
	store := newTestStore(walkingDog(1, "10:00"))
	walkingReservation(store, 1, "2026-08-31")

	rc := newTestReconciler(store, 10, 0)
	rc.Sweep(context.Background())

	if store.dogs[1].Status != DogCompleted {
		t.Fatalf("walk at its exact end time must complete, got %s", store.dogs[1].Status)
	}
}

func TestReconciler_LeavesActiveWalkAlone(t *testing.T) {
	store := newTestStore(walkingDog(1, "10:00"))
	r := walkingReservation(store, 1, "2026-08-31")

	rc := newTestReconciler(store, 9, 59)
	rc.Sweep(context.Background())

	if store.dogs[1].Status != DogWalking {
		t.Fatalf("active walk must not be touched, got %s", store.dogs[1].Status)
	}
	if store.reservations[r.ID].Status != ReservationWalking {
		t.Fatalf("reservation must stay walking")
	}
}

func TestReconciler_SkipsDogWithUnparseableEnd(t *testing.T) {
	store := newTestStore(walkingDog(1, "soon"), walkingDog(2, "10:00"))
	walkingReservation(store, 1, "2026-08-31")
	walkingReservation(store, 2, "2026-08-31")

	rc := newTestReconciler(store, 11, 0)
	rc.Sweep(context.Background())

	// El perro con dato corrupto no aborta la pasada del resto.
	if store.dogs[1].Status != DogWalking {
		t.Fatalf("unparseable dog should be skipped, got %s", store.dogs[1].Status)
	}
	if store.dogs[2].Status != DogCompleted {
		t.Fatalf("second dog should still be auto-completed, got %s", store.dogs[2].Status)
	}
}

func TestReconciler_ToleratesManualCompletionRace(t *testing.T) {
	// La última reserva ya está en terminal: CompleteWalk devuelve
	// ErrInvalidState y el sweep lo trata como benigno.
	last := "09:30"
	store := newTestStore(Dog{ID: 1, Status: DogWalking, CurrentWalkEnd: &last})
	store.nextResID++
	by := "manual"
	store.reservations[1] = Reservation{
		ID: 1, DogID: 1, Date: "2026-08-31", Time: "07:30",
		Status: ReservationCompleted, ReserverName: "Kim Jiwoo",
		ReserverPhone: "010-1234-5678", CompletedBy: &by,
	}

	rc := newTestReconciler(store, 11, 0)
	rc.Sweep(context.Background())

	if got := store.reservations[1]; *got.CompletedBy != "manual" {
		t.Fatalf("manual completion must not be overwritten, got %s", *got.CompletedBy)
	}
}

func TestReconciler_ReleasesStaleCompletedDog(t *testing.T) {
	last := "16:00"
	store := newTestStore(Dog{ID: 1, Status: DogCompleted, LastWalkTime: &last})
	store.nextResID++
	store.reservations[1] = Reservation{
		ID: 1, DogID: 1, Date: "2026-08-30", Time: "14:00",
		Status: ReservationCompleted, ReserverName: "Kim Jiwoo", ReserverPhone: "010-1234-5678",
	}

	rc := newTestReconciler(store, 0, 5)
	rc.Sweep(context.Background())

	d := store.dogs[1]
	if d.Status != DogAvailable {
		t.Fatalf("expected available after day rollover, got %s", d.Status)
	}
	if d.LastWalkTime != nil {
		t.Fatalf("lastWalkTime should be cleared, got %v", *d.LastWalkTime)
	}
	// La reserva histórica queda intacta.
	if store.reservations[1].Status != ReservationCompleted {
		t.Fatalf("historical reservation must not change")
	}
}

func TestReconciler_KeepsTodayCompletedDog(t *testing.T) {
	last := "10:00"
	store := newTestStore(Dog{ID: 1, Status: DogCompleted, LastWalkTime: &last})
	store.nextResID++
	store.reservations[1] = Reservation{
		ID: 1, DogID: 1, Date: "2026-08-31", Time: "08:00",
		Status: ReservationCompleted, ReserverName: "Kim Jiwoo", ReserverPhone: "010-1234-5678",
	}

	rc := newTestReconciler(store, 12, 0)
	rc.Sweep(context.Background())

	if store.dogs[1].Status != DogCompleted {
		t.Fatalf("same-day completed dog must stay completed, got %s", store.dogs[1].Status)
	}
}

func TestWallClockInstant(t *testing.T) {
	ref := fixedClock(12, 0)()

	got, err := wallClockInstant(ref, "09:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Hour() != 9 || got.Minute() != 30 || got.Day() != ref.Day() {
		t.Fatalf("unexpected instant: %v", got)
	}

	for _, bad := range []string{"", "930", "24:00", "09:60", "aa:bb", "-1:00"} {
		if _, err := wallClockInstant(ref, bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
