package walks

import "context"

// Store es el Record Store: persistencia plana de perros y reservas con
// updates condicionales. Las escrituras guardadas aplican el patch solo si
// el status almacenado sigue siendo el esperado al momento de escribir, y
// devuelven si la escritura tuvo efecto. Esa es toda la exclusión mutua
// que hay entre requests de usuario y el reconciler (ver Service).
type Store interface {
	GetDog(ctx context.Context, id int64) (Dog, error)
	ListDogs(ctx context.Context) ([]DogWithReserver, error)
	ListWalkingDogs(ctx context.Context) ([]Dog, error)

	// ListStaleCompletedDogs devuelve perros en completed cuya última
	// reserva (max id) tiene date anterior a today (YYYY-MM-DD).
	ListStaleCompletedDogs(ctx context.Context, today string) ([]Dog, error)

	// UpdateDog escribe sin guarda (reset administrativo, alta de reserva).
	UpdateDog(ctx context.Context, id int64, patch DogPatch) error

	// UpdateDogIfStatus aplica el patch solo si el perro sigue en expected.
	UpdateDogIfStatus(ctx context.Context, id int64, expected DogStatus, patch DogPatch) (bool, error)

	InsertReservation(ctx context.Context, r Reservation) (Reservation, error)
	GetReservation(ctx context.Context, id int64) (Reservation, error)

	// GetLatestReservation devuelve la reserva de mayor id del perro.
	// Única definición de "reserva vigente" en todo el repo.
	GetLatestReservation(ctx context.Context, dogID int64) (Reservation, error)

	ListReservations(ctx context.Context) ([]ReservationWithDog, error)

	// UpdateReservationIfStatus aplica el patch solo si la reserva sigue
	// en expected.
	UpdateReservationIfStatus(ctx context.Context, id int64, expected ReservationStatus, patch ReservationPatch) (bool, error)

	// UpdateWalkState es la transición emparejada perro+reserva como una
	// sola escritura atómica, guardada por el status esperado de la
	// reserva. Devuelve false si la guarda no pasó (alguien ya movió la
	// fila); en ese caso ninguna de las dos entidades cambia.
	UpdateWalkState(ctx context.Context, dogID int64, dogPatch DogPatch, reservationID int64, expected ReservationStatus, resPatch ReservationPatch) (bool, error)
}
