package memory

import (
	"context"
	"sort"
	"sync"

	"walk-with-mung/internal/domain/walks"
)

// WalksRepo es el Record Store in-memory para dev y tests. Un solo mutex
// para las dos tablas: los updates condicionales y la transición
// emparejada son atómicos por construcción.
type WalksRepo struct {
	mu           sync.RWMutex
	dogs         map[int64]walks.Dog
	reservations map[int64]walks.Reservation
	nextResID    int64
	nextDogID    int64
}

func NewWalksRepo() *WalksRepo {
	return &WalksRepo{
		dogs:         make(map[int64]walks.Dog),
		reservations: make(map[int64]walks.Reservation),
	}
}

// SeedDogs carga los perros iniciales (equivalente in-memory de la
// migración de seed de los adapters SQL).
func (r *WalksRepo) SeedDogs(dogs []walks.Dog) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range dogs {
		if d.ID == 0 {
			r.nextDogID++
			d.ID = r.nextDogID
		} else if d.ID > r.nextDogID {
			r.nextDogID = d.ID
		}
		if d.Status == "" {
			d.Status = walks.DogAvailable
		}
		r.dogs[d.ID] = d
	}
}

func (r *WalksRepo) GetDog(ctx context.Context, id int64) (walks.Dog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.dogs[id]
	if !ok {
		return walks.Dog{}, walks.ErrNotFound
	}
	return d, nil
}

func (r *WalksRepo) ListDogs(ctx context.Context) ([]walks.DogWithReserver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]walks.DogWithReserver, 0, len(r.dogs))
	for _, d := range r.dogs {
		item := walks.DogWithReserver{Dog: d}
		// Como el subquery del original: nombre de la última reserva,
		// tenga el estado que tenga.
		if latest, ok := r.latestLocked(d.ID); ok {
			name := latest.ReserverName
			item.ReserverName = &name
		}
		out = append(out, item)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *WalksRepo) ListWalkingDogs(ctx context.Context) ([]walks.Dog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]walks.Dog, 0)
	for _, d := range r.dogs {
		if d.Status == walks.DogWalking {
			out = append(out, d)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *WalksRepo) ListStaleCompletedDogs(ctx context.Context, today string) ([]walks.Dog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]walks.Dog, 0)
	for _, d := range r.dogs {
		if d.Status != walks.DogCompleted {
			continue
		}
		latest, ok := r.latestLocked(d.ID)
		if !ok {
			continue
		}
		// Fechas YYYY-MM-DD: el orden lexicográfico es el cronológico.
		if latest.Date < today {
			out = append(out, d)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *WalksRepo) UpdateDog(ctx context.Context, id int64, patch walks.DogPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.dogs[id]
	if !ok {
		return walks.ErrNotFound
	}
	r.dogs[id] = walks.ApplyDogPatch(d, patch)
	return nil
}

func (r *WalksRepo) UpdateDogIfStatus(ctx context.Context, id int64, expected walks.DogStatus, patch walks.DogPatch) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.dogs[id]
	if !ok {
		return false, walks.ErrNotFound
	}
	if d.Status != expected {
		return false, nil
	}
	r.dogs[id] = walks.ApplyDogPatch(d, patch)
	return true, nil
}

func (r *WalksRepo) InsertReservation(ctx context.Context, res walks.Reservation) (walks.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextResID++
	res.ID = r.nextResID
	r.reservations[res.ID] = res
	return res, nil
}

func (r *WalksRepo) GetReservation(ctx context.Context, id int64) (walks.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.reservations[id]
	if !ok {
		return walks.Reservation{}, walks.ErrNotFound
	}
	return res, nil
}

func (r *WalksRepo) GetLatestReservation(ctx context.Context, dogID int64) (walks.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.latestLocked(dogID)
	if !ok {
		return walks.Reservation{}, walks.ErrNotFound
	}
	return res, nil
}

func (r *WalksRepo) ListReservations(ctx context.Context) ([]walks.ReservationWithDog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]walks.ReservationWithDog, 0, len(r.reservations))
	for _, res := range r.reservations {
		item := walks.ReservationWithDog{Reservation: res}
		if d, ok := r.dogs[res.DogID]; ok {
			item.DogName = d.Name
			item.DogBreed = d.Breed
			item.DogImage = d.Image
		}
		out = append(out, item)
	}

	// Mismo orden que el JOIN del original: date, time, id.
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (r *WalksRepo) UpdateReservationIfStatus(ctx context.Context, id int64, expected walks.ReservationStatus, patch walks.ReservationPatch) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.reservations[id]
	if !ok {
		return false, walks.ErrNotFound
	}
	if res.Status != expected {
		return false, nil
	}
	r.reservations[id] = walks.ApplyReservationPatch(res, patch)
	return true, nil
}

func (r *WalksRepo) UpdateWalkState(ctx context.Context, dogID int64, dogPatch walks.DogPatch, reservationID int64, expected walks.ReservationStatus, resPatch walks.ReservationPatch) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.reservations[reservationID]
	if !ok {
		return false, walks.ErrNotFound
	}
	d, ok := r.dogs[dogID]
	if !ok {
		return false, walks.ErrNotFound
	}
	if res.Status != expected {
		return false, nil
	}

	r.reservations[reservationID] = walks.ApplyReservationPatch(res, resPatch)
	r.dogs[dogID] = walks.ApplyDogPatch(d, dogPatch)
	return true, nil
}

// latestLocked asume el lock tomado.
func (r *WalksRepo) latestLocked(dogID int64) (walks.Reservation, bool) {
	var winner walks.Reservation
	found := false
	for _, res := range r.reservations {
		if res.DogID != dogID {
			continue
		}
		if !found || res.ID > winner.ID {
			winner = res
			found = true
		}
	}
	return winner, found
}
