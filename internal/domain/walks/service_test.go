package walks

import (
	"context"
	"errors"
	"testing"
	"time"
)

// -------------------------
// Test store (in-memory)
// -------------------------

type testStore struct {
	dogs         map[int64]Dog
	reservations map[int64]Reservation
	nextResID    int64

	failUpdateDog bool
}

func newTestStore(dogs ...Dog) *testStore {
	s := &testStore{
		dogs:         map[int64]Dog{},
		reservations: map[int64]Reservation{},
	}
	for _, d := range dogs {
		if d.Status == "" {
			d.Status = DogAvailable
		}
		s.dogs[d.ID] = d
	}
	return s
}

func (s *testStore) GetDog(ctx context.Context, id int64) (Dog, error) {
	d, ok := s.dogs[id]
	if !ok {
		return Dog{}, ErrNotFound
	}
	return d, nil
}

func (s *testStore) ListDogs(ctx context.Context) ([]DogWithReserver, error) {
	out := make([]DogWithReserver, 0, len(s.dogs))
	for _, d := range s.dogs {
		item := DogWithReserver{Dog: d}
		if latest, ok := s.latest(d.ID); ok {
			name := latest.ReserverName
			item.ReserverName = &name
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *testStore) ListWalkingDogs(ctx context.Context) ([]Dog, error) {
	out := make([]Dog, 0)
	for _, d := range s.dogs {
		if d.Status == DogWalking {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *testStore) ListStaleCompletedDogs(ctx context.Context, today string) ([]Dog, error) {
	out := make([]Dog, 0)
	for _, d := range s.dogs {
		if d.Status != DogCompleted {
			continue
		}
		if latest, ok := s.latest(d.ID); ok && latest.Date < today {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *testStore) UpdateDog(ctx context.Context, id int64, patch DogPatch) error {
	if s.failUpdateDog {
		return errors.New("store: injected failure")
	}
	d, ok := s.dogs[id]
	if !ok {
		return ErrNotFound
	}
	s.dogs[id] = ApplyDogPatch(d, patch)
	return nil
}

func (s *testStore) UpdateDogIfStatus(ctx context.Context, id int64, expected DogStatus, patch DogPatch) (bool, error) {
	d, ok := s.dogs[id]
	if !ok {
		return false, ErrNotFound
	}
	if d.Status != expected {
		return false, nil
	}
	s.dogs[id] = ApplyDogPatch(d, patch)
	return true, nil
}

func (s *testStore) InsertReservation(ctx context.Context, r Reservation) (Reservation, error) {
	s.nextResID++
	r.ID = s.nextResID
	s.reservations[r.ID] = r
	return r, nil
}

func (s *testStore) GetReservation(ctx context.Context, id int64) (Reservation, error) {
	r, ok := s.reservations[id]
	if !ok {
		return Reservation{}, ErrNotFound
	}
	return r, nil
}

func (s *testStore) GetLatestReservation(ctx context.Context, dogID int64) (Reservation, error) {
	r, ok := s.latest(dogID)
	if !ok {
		return Reservation{}, ErrNotFound
	}
	return r, nil
}

func (s *testStore) ListReservations(ctx context.Context) ([]ReservationWithDog, error) {
	out := make([]ReservationWithDog, 0, len(s.reservations))
	for _, r := range s.reservations {
		item := ReservationWithDog{Reservation: r}
		if d, ok := s.dogs[r.DogID]; ok {
			item.DogName = d.Name
			item.DogBreed = d.Breed
			item.DogImage = d.Image
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *testStore) UpdateReservationIfStatus(ctx context.Context, id int64, expected ReservationStatus, patch ReservationPatch) (bool, error) {
	r, ok := s.reservations[id]
	if !ok {
		return false, ErrNotFound
	}
	if r.Status != expected {
		return false, nil
	}
	s.reservations[id] = ApplyReservationPatch(r, patch)
	return true, nil
}

func (s *testStore) UpdateWalkState(ctx context.Context, dogID int64, dogPatch DogPatch, reservationID int64, expected ReservationStatus, resPatch ReservationPatch) (bool, error) {
	r, ok := s.reservations[reservationID]
	if !ok {
		return false, ErrNotFound
	}
	d, ok := s.dogs[dogID]
	if !ok {
		return false, ErrNotFound
	}
	if r.Status != expected {
		return false, nil
	}
	s.reservations[reservationID] = ApplyReservationPatch(r, resPatch)
	s.dogs[dogID] = ApplyDogPatch(d, dogPatch)
	return true, nil
}

func (s *testStore) latest(dogID int64) (Reservation, bool) {
	var winner Reservation
	found := false
	for _, r := range s.reservations {
		if r.DogID != dogID {
			continue
		}
		if !found || r.ID > winner.ID {
			winner = r
			found = true
		}
	}
	return winner, found
}

// -------------------------
// Helpers
// -------------------------

func fixedClock(hh, mm int) func() time.Time {
	return func() time.Time {
		return time.Date(2026, 8, 31, hh, mm, 0, 0, time.UTC)
	}
}

func newTestService(store *testStore, hh, mm int) *Service {
	svc := NewService(store, nil, nil)
	svc.now = fixedClock(hh, mm)
	return svc
}

func reserve(t *testing.T, svc *Service, dogID int64, name, phone string) Reservation {
	t.Helper()
	r, err := svc.CreateReservation(context.Background(), CreateReservationInput{
		DogID:         dogID,
		Time:          "14:00",
		ReserverName:  name,
		ReserverPhone: phone,
	})
	if err != nil {
		t.Fatalf("CreateReservation error: %v", err)
	}
	return r
}

// checkWalkEndInvariant: currentWalkEnd presente sí y solo sí walking.
func checkWalkEndInvariant(t *testing.T, d Dog) {
	t.Helper()
	if (d.Status == DogWalking) != (d.CurrentWalkEnd != nil) {
		t.Fatalf("invariant broken: status=%s currentWalkEnd=%v", d.Status, d.CurrentWalkEnd)
	}
}

// -------------------------
// Tests
// -------------------------

func TestService_CreateReservation_SetsDogReserved(t *testing.T) {
	store := newTestStore(Dog{ID: 1, Name: "Mung"})
	svc := newTestService(store, 9, 0)

	r := reserve(t, svc, 1, "Kim Jiwoo", "010-1234-5678")

	if r.ID != 1 || r.Status != ReservationReserved {
		t.Fatalf("unexpected reservation: %+v", r)
	}
	if r.Date != "2026-08-31" {
		t.Fatalf("expected today's date, got %s", r.Date)
	}

	d := store.dogs[1]
	if d.Status != DogReserved {
		t.Fatalf("expected dog reserved, got %s", d.Status)
	}
	checkWalkEndInvariant(t, d)
}

func TestService_CreateReservation_MissingFields(t *testing.T) {
	svc := newTestService(newTestStore(Dog{ID: 1}), 9, 0)

	_, err := svc.CreateReservation(context.Background(), CreateReservationInput{
		DogID: 1, Time: "14:00", ReserverName: "Kim Jiwoo",
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestService_CreateReservation_AllowsNonAvailableDog(t *testing.T) {
	// Permisividad heredada: reservar sobre un perro reserved no falla.
	store := newTestStore(Dog{ID: 1, Status: DogReserved})
	svc := newTestService(store, 9, 0)

	reserve(t, svc, 1, "Lee Haneul", "010-9999-0000")

	if len(store.reservations) != 1 {
		t.Fatalf("expected reservation created, got %d", len(store.reservations))
	}
}

func TestService_CreateReservation_SecondaryWriteFailureReported(t *testing.T) {
	store := newTestStore(Dog{ID: 1})
	svc := newTestService(store, 9, 0)
	store.failUpdateDog = true

	_, err := svc.CreateReservation(context.Background(), CreateReservationInput{
		DogID: 1, Time: "14:00", ReserverName: "Kim Jiwoo", ReserverPhone: "010-1234-5678",
	})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	// La inserción primaria no se revierte.
	if len(store.reservations) != 1 {
		t.Fatalf("expected reservation to persist, got %d", len(store.reservations))
	}
}

func TestService_StartWalk_TransitionsToWalking(t *testing.T) {
	store := newTestStore(Dog{ID: 1})
	svc := newTestService(store, 9, 0)
	reserve(t, svc, 1, "Kim Jiwoo", "010-1234-5678")

	started, err := svc.StartWalk(context.Background(), 1, "Kim Jiwoo", "010-1234-5678")
	if err != nil {
		t.Fatalf("StartWalk error: %v", err)
	}
	if started.CurrentWalkEnd != "11:00" {
		t.Fatalf("expected end 11:00 for start 09:00, got %s", started.CurrentWalkEnd)
	}

	d := store.dogs[1]
	if d.Status != DogWalking || d.CurrentWalkEnd == nil || *d.CurrentWalkEnd != "11:00" {
		t.Fatalf("unexpected dog after start: %+v", d)
	}
	checkWalkEndInvariant(t, d)

	r := store.reservations[started.ReservationID]
	if r.Status != ReservationWalking {
		t.Fatalf("expected reservation walking, got %s", r.Status)
	}
	if r.WalkStartTime == nil || *r.WalkStartTime != "09:00" {
		t.Fatalf("expected walkStartTime 09:00, got %v", r.WalkStartTime)
	}
	if r.WalkEndTime == nil || *r.WalkEndTime != "11:00" {
		t.Fatalf("expected walkEndTime 11:00, got %v", r.WalkEndTime)
	}
}

func TestService_StartWalk_EndCrossesMidnight(t *testing.T) {
	store := newTestStore(Dog{ID: 1})
	svc := newTestService(store, 23, 30)
	reserve(t, svc, 1, "Kim Jiwoo", "010-1234-5678")

	started, err := svc.StartWalk(context.Background(), 1, "Kim Jiwoo", "010-1234-5678")
	if err != nil {
		t.Fatalf("StartWalk error: %v", err)
	}
	// Solo se persiste HH:MM: 23:30 + 2h = 01:30.
	if started.CurrentWalkEnd != "01:30" {
		t.Fatalf("expected end 01:30, got %s", started.CurrentWalkEnd)
	}
}

func TestService_StartWalk_WrongPhone_LeavesStateUntouched(t *testing.T) {
	store := newTestStore(Dog{ID: 1})
	svc := newTestService(store, 9, 0)
	r := reserve(t, svc, 1, "Kim Jiwoo", "010-1234-5678")

	_, err := svc.StartWalk(context.Background(), 1, "Kim Jiwoo", "010-0000-0000")
	if !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}

	if store.dogs[1].Status != DogReserved {
		t.Fatalf("dog changed on failed verification: %+v", store.dogs[1])
	}
	if store.reservations[r.ID].Status != ReservationReserved {
		t.Fatalf("reservation changed on failed verification")
	}
}

func TestService_StartWalk_NoReservation(t *testing.T) {
	svc := newTestService(newTestStore(Dog{ID: 1}), 9, 0)

	_, err := svc.StartWalk(context.Background(), 1, "Kim Jiwoo", "010-1234-5678")
	if !errors.Is(err, ErrNoActiveReservation) {
		t.Fatalf("expected ErrNoActiveReservation, got %v", err)
	}
}

func TestService_StartWalk_CancelledReservation(t *testing.T) {
	store := newTestStore(Dog{ID: 1})
	svc := newTestService(store, 9, 0)
	r := reserve(t, svc, 1, "Kim Jiwoo", "010-1234-5678")
	if _, err := svc.CancelReservation(context.Background(), r.ID, "Kim Jiwoo", "010-1234-5678"); err != nil {
		t.Fatalf("CancelReservation error: %v", err)
	}

	_, err := svc.StartWalk(context.Background(), 1, "Kim Jiwoo", "010-1234-5678")
	if !errors.Is(err, ErrNoActiveReservation) {
		t.Fatalf("expected ErrNoActiveReservation after cancel, got %v", err)
	}
}

func TestService_CompleteWalk_ManualWithIdentity(t *testing.T) {
	store := newTestStore(Dog{ID: 1})
	svc := newTestService(store, 9, 0)
	reserve(t, svc, 1, "Kim Jiwoo", "010-1234-5678")
	started, _ := svc.StartWalk(context.Background(), 1, "Kim Jiwoo", "010-1234-5678")

	svc.now = fixedClock(10, 15)
	completedTime, err := svc.CompleteWalk(context.Background(), CompleteWalkInput{
		DogID:         1,
		ReserverName:  "Kim Jiwoo",
		ReserverPhone: "010-1234-5678",
	})
	if err != nil {
		t.Fatalf("CompleteWalk error: %v", err)
	}
	if completedTime != "10:15" {
		t.Fatalf("expected completedTime 10:15, got %s", completedTime)
	}

	d := store.dogs[1]
	if d.Status != DogCompleted || d.LastWalkTime == nil || *d.LastWalkTime != "10:15" || d.CurrentWalkEnd != nil {
		t.Fatalf("unexpected dog after complete: %+v", d)
	}
	checkWalkEndInvariant(t, d)

	r := store.reservations[started.ReservationID]
	if r.Status != ReservationCompleted || r.CompletedBy == nil || *r.CompletedBy != "manual" {
		t.Fatalf("unexpected reservation after complete: %+v", r)
	}
}

func TestService_CompleteWalk_WithoutIdentity_IsSystem(t *testing.T) {
	store := newTestStore(Dog{ID: 1})
	svc := newTestService(store, 9, 0)
	reserve(t, svc, 1, "Kim Jiwoo", "010-1234-5678")
	started, _ := svc.StartWalk(context.Background(), 1, "Kim Jiwoo", "010-1234-5678")

	_, err := svc.CompleteWalk(context.Background(), CompleteWalkInput{DogID: 1, By: CompletedSystem})
	if err != nil {
		t.Fatalf("CompleteWalk error: %v", err)
	}

	r := store.reservations[started.ReservationID]
	if r.CompletedBy == nil || *r.CompletedBy != "system" {
		t.Fatalf("expected completedBy system, got %v", r.CompletedBy)
	}
}

func TestService_CompleteWalk_MismatchedIdentity(t *testing.T) {
	store := newTestStore(Dog{ID: 1})
	svc := newTestService(store, 9, 0)
	reserve(t, svc, 1, "Kim Jiwoo", "010-1234-5678")
	svc.StartWalk(context.Background(), 1, "Kim Jiwoo", "010-1234-5678")

	_, err := svc.CompleteWalk(context.Background(), CompleteWalkInput{
		DogID:         1,
		ReserverName:  "Kim Jiwoo",
		ReserverPhone: "010-0000-0000",
	})
	if !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
	if store.dogs[1].Status != DogWalking {
		t.Fatalf("dog changed on failed verification")
	}
}

func TestService_CompleteWalk_Twice_SecondSeesInvalidState(t *testing.T) {
	store := newTestStore(Dog{ID: 1})
	svc := newTestService(store, 9, 0)
	reserve(t, svc, 1, "Kim Jiwoo", "010-1234-5678")
	svc.StartWalk(context.Background(), 1, "Kim Jiwoo", "010-1234-5678")

	if _, err := svc.CompleteWalk(context.Background(), CompleteWalkInput{DogID: 1, By: CompletedSystem}); err != nil {
		t.Fatalf("first CompleteWalk error: %v", err)
	}
	_, err := svc.CompleteWalk(context.Background(), CompleteWalkInput{DogID: 1, By: CompletedSystem})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on double complete, got %v", err)
	}
}

func TestService_CompleteWalk_NoReservations(t *testing.T) {
	svc := newTestService(newTestStore(Dog{ID: 1}), 9, 0)

	_, err := svc.CompleteWalk(context.Background(), CompleteWalkInput{DogID: 1, By: CompletedSystem})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Con identidad provista la respuesta es indistinguible de un mismatch.
	_, err = svc.CompleteWalk(context.Background(), CompleteWalkInput{
		DogID: 1, ReserverName: "Kim Jiwoo", ReserverPhone: "010-1234-5678",
	})
	if !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
}

func TestService_CancelReservation_ReleasesDog(t *testing.T) {
	store := newTestStore(Dog{ID: 1})
	svc := newTestService(store, 9, 0)
	r := reserve(t, svc, 1, "Kim Jiwoo", "010-1234-5678")

	cancelled, err := svc.CancelReservation(context.Background(), r.ID, "Kim Jiwoo", "010-1234-5678")
	if err != nil {
		t.Fatalf("CancelReservation error: %v", err)
	}
	if cancelled.Status != ReservationCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if store.dogs[1].Status != DogAvailable {
		t.Fatalf("expected dog available after cancel, got %s", store.dogs[1].Status)
	}
}

func TestService_CancelReservation_WalkingIsInvalidState(t *testing.T) {
	store := newTestStore(Dog{ID: 1})
	svc := newTestService(store, 9, 0)
	r := reserve(t, svc, 1, "Kim Jiwoo", "010-1234-5678")
	svc.StartWalk(context.Background(), 1, "Kim Jiwoo", "010-1234-5678")

	_, err := svc.CancelReservation(context.Background(), r.ID, "Kim Jiwoo", "010-1234-5678")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if store.dogs[1].Status != DogWalking {
		t.Fatalf("dog changed on invalid cancel")
	}
	if store.reservations[r.ID].Status != ReservationWalking {
		t.Fatalf("reservation changed on invalid cancel")
	}
}

func TestService_CancelReservation_WrongIdentity(t *testing.T) {
	store := newTestStore(Dog{ID: 1})
	svc := newTestService(store, 9, 0)
	r := reserve(t, svc, 1, "Kim Jiwoo", "010-1234-5678")

	_, err := svc.CancelReservation(context.Background(), r.ID, "Someone Else", "010-1234-5678")
	if !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
}

func TestService_CancelReservation_NotFound(t *testing.T) {
	svc := newTestService(newTestStore(Dog{ID: 1}), 9, 0)

	_, err := svc.CancelReservation(context.Background(), 99, "Kim Jiwoo", "010-1234-5678")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestService_CancelLatestForDog(t *testing.T) {
	store := newTestStore(Dog{ID: 1})
	svc := newTestService(store, 9, 0)
	r := reserve(t, svc, 1, "Kim Jiwoo", "010-1234-5678")

	cancelled, err := svc.CancelLatestForDog(context.Background(), 1, "Kim Jiwoo", "010-1234-5678")
	if err != nil {
		t.Fatalf("CancelLatestForDog error: %v", err)
	}
	if cancelled.ID != r.ID {
		t.Fatalf("expected latest reservation %d, got %d", r.ID, cancelled.ID)
	}
}

func TestService_Cancel_DogGuardSkipsWhenWalkStarted(t *testing.T) {
	// Simula la carrera: la reserva sigue reserved pero el perro ya fue
	// movido a walking por otro actor. El perro no debe volver a available.
	store := newTestStore(Dog{ID: 1})
	svc := newTestService(store, 9, 0)
	r := reserve(t, svc, 1, "Kim Jiwoo", "010-1234-5678")

	d := store.dogs[1]
	d.Status = DogWalking
	end := "11:00"
	d.CurrentWalkEnd = &end
	store.dogs[1] = d

	if _, err := svc.CancelReservation(context.Background(), r.ID, "Kim Jiwoo", "010-1234-5678"); err != nil {
		t.Fatalf("CancelReservation error: %v", err)
	}
	if store.dogs[1].Status != DogWalking {
		t.Fatalf("guarded dog update should not fire, got %s", store.dogs[1].Status)
	}
	if store.reservations[r.ID].Status != ReservationCancelled {
		t.Fatalf("reservation should still be cancelled")
	}
}

func TestService_ResetDog_AdministrativeOverride(t *testing.T) {
	store := newTestStore(Dog{ID: 1})
	svc := newTestService(store, 9, 0)
	reserve(t, svc, 1, "Kim Jiwoo", "010-1234-5678")
	started, _ := svc.StartWalk(context.Background(), 1, "Kim Jiwoo", "010-1234-5678")

	if err := svc.ResetDog(context.Background(), 1); err != nil {
		t.Fatalf("ResetDog error: %v", err)
	}

	d := store.dogs[1]
	if d.Status != DogAvailable || d.CurrentWalkEnd != nil {
		t.Fatalf("unexpected dog after reset: %+v", d)
	}
	// Sin efecto sobre la reserva: queda en walking.
	if store.reservations[started.ReservationID].Status != ReservationWalking {
		t.Fatalf("reset must not touch reservations")
	}
}

func TestService_ResetDog_UnknownDog(t *testing.T) {
	svc := newTestService(newTestStore(), 9, 0)

	if err := svc.ResetDog(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestService_ListDogs_IncludesLatestReserverName(t *testing.T) {
	store := newTestStore(Dog{ID: 1, Name: "Mung"}, Dog{ID: 2, Name: "Bori"})
	svc := newTestService(store, 9, 0)
	reserve(t, svc, 1, "Kim Jiwoo", "010-1234-5678")

	dogs, err := svc.ListDogs(context.Background())
	if err != nil {
		t.Fatalf("ListDogs error: %v", err)
	}

	var withName, withoutName int
	for _, d := range dogs {
		if d.ReserverName != nil {
			if *d.ReserverName != "Kim Jiwoo" {
				t.Fatalf("unexpected reserver name %q", *d.ReserverName)
			}
			withName++
		} else {
			withoutName++
		}
	}
	if withName != 1 || withoutName != 1 {
		t.Fatalf("expected exactly one dog with reserver name, got %d/%d", withName, withoutName)
	}
}
