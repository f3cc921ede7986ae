package walks

import "errors"

var (
	// ErrInvalidInput: falta un campo requerido. Sin mutación.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound: no existe el perro o la reserva. Sin mutación.
	ErrNotFound = errors.New("not found")

	// ErrNoActiveReservation: el perro no tiene una reserva en estado
	// reserved desde la cual iniciar el paseo.
	ErrNoActiveReservation = errors.New("no reservation available to start")

	// ErrInvalidState: la operación no es válida desde el estado actual
	// (reserva ya procesada o transicionada por otro caller).
	ErrInvalidState = errors.New("reservation already processed")

	// ErrVerificationFailed: la identidad no coincide con la reserva.
	// El mensaje no dice cuál de los dos campos falló, a propósito.
	ErrVerificationFailed = errors.New("reserver details do not match")

	// ErrStoreUnavailable: timeout o fallo del storage. Reintentable.
	ErrStoreUnavailable = errors.New("store unavailable")
)
