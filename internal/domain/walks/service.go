package walks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"walk-with-mung/internal/platform/metrics"
)

// walkDuration es la ventana fija de paseo: el fin se calcula siempre como
// inicio + 2h, cruce de medianoche incluido (solo se persiste HH:MM).
const walkDuration = 2 * time.Hour

// storeTimeout acota cada llamada al Record Store; un vencimiento se
// reporta como ErrStoreUnavailable en vez de colgar al caller.
const storeTimeout = 5 * time.Second

// Service es el lifecycle engine: valida precondiciones, pasa por la
// verificación de identidad y ejecuta la transición perro+reserva como una
// unidad. No hay exclusión mutua con el reconciler: la corrección depende
// de que toda escritura vaya guardada por el status esperado en el store.
type Service struct {
	store   Store
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(store Store, logger *zap.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

type CreateReservationInput struct {
	DogID         int64
	Time          string // HH:MM del slot pedido
	ReserverName  string
	ReserverPhone string
}

// CreateReservation inserta una reserva en reserved para el día de hoy y
// marca al perro como reserved. No exige que el perro esté available
// primero: permisividad heredada del backend original, mantenida como
// decisión de producto (ver DESIGN.md).
func (s *Service) CreateReservation(ctx context.Context, in CreateReservationInput) (Reservation, error) {
	if in.DogID <= 0 || strings.TrimSpace(in.Time) == "" ||
		in.ReserverName == "" || in.ReserverPhone == "" {
		return Reservation{}, s.done("create_reservation", ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	r := Reservation{
		DogID:         in.DogID,
		Date:          dateOf(s.now()),
		Time:          in.Time,
		Status:        ReservationReserved,
		ReserverName:  in.ReserverName,
		ReserverPhone: in.ReserverPhone,
		CreatedAt:     s.now(),
	}

	created, err := s.store.InsertReservation(ctx, r)
	if err != nil {
		return Reservation{}, s.done("create_reservation", storeFailure("insert reservation", err))
	}

	// Escritura secundaria: si falla, la reserva ya existe y no se
	// revierte; se reporta y el reconciler acota la ventana inconsistente.
	if err := s.store.UpdateDog(ctx, in.DogID, DogPatch{
		Status:         DogReserved,
		CurrentWalkEnd: nil,
	}); err != nil {
		return created, s.done("create_reservation", storeFailure("update dog after insert", err))
	}

	return created, s.done("create_reservation", nil)
}

// WalkStarted es lo que devuelve StartWalk al transporte.
type WalkStarted struct {
	ReservationID  int64
	CurrentWalkEnd string // HH:MM
}

// StartWalk pasa la última reserva de reserved a walking previa
// verificación de identidad. El fin del paseo queda fijado a now + 2h.
func (s *Service) StartWalk(ctx context.Context, dogID int64, name, phone string) (WalkStarted, error) {
	if name == "" || phone == "" {
		return WalkStarted{}, s.done("start_walk", ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	latest, err := s.store.GetLatestReservation(ctx, dogID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return WalkStarted{}, s.done("start_walk", ErrNoActiveReservation)
		}
		return WalkStarted{}, s.done("start_walk", storeFailure("get latest reservation", err))
	}
	if latest.Status != ReservationReserved {
		return WalkStarted{}, s.done("start_walk", ErrNoActiveReservation)
	}
	if !Verify(latest, name, phone) {
		return WalkStarted{}, s.done("start_walk", ErrVerificationFailed)
	}

	now := s.now()
	start := clockTime(now)
	end := clockTime(now.Add(walkDuration))

	ok, err := s.store.UpdateWalkState(ctx, dogID,
		DogPatch{Status: DogWalking, CurrentWalkEnd: &end},
		latest.ID, ReservationReserved,
		ReservationPatch{
			Status:        ReservationWalking,
			WalkStartTime: SetString(start),
			WalkEndTime:   SetString(end),
		})
	if err != nil {
		return WalkStarted{}, s.done("start_walk", storeFailure("update walk state", err))
	}
	if !ok {
		// Otro caller movió la reserva entre la lectura y la escritura.
		return WalkStarted{}, s.done("start_walk", ErrNoActiveReservation)
	}

	return WalkStarted{ReservationID: latest.ID, CurrentWalkEnd: end}, s.done("start_walk", nil)
}

type CompleteWalkInput struct {
	DogID int64

	// Identidad opcional: si viene, se verifica contra la última reserva
	// y el cierre queda como manual. Si no viene, se procede sin
	// verificación con By como actor (system para el endpoint, auto para
	// el reconciler). Bypass implícito heredado; ver DESIGN.md.
	ReserverName  string
	ReserverPhone string
	By            CompletedBy

	// At fuerza la hora de cierre HH:MM; vacío usa el reloj del servicio.
	// El reconciler lo fija al currentWalkEnd vencido para que
	// lastWalkTime refleje el fin programado y no el momento del sweep.
	At string
}

// CompleteWalk cierra la reserva de mayor id del perro y el perro junto a
// ella. Siempre apunta al máximo id, así que un segundo cierre no puede
// resucitar una reserva vieja: observa ErrInvalidState por la guarda.
func (s *Service) CompleteWalk(ctx context.Context, in CompleteWalkInput) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	latest, err := s.store.GetLatestReservation(ctx, in.DogID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			if in.ReserverName != "" || in.ReserverPhone != "" {
				// Con identidad provista, "no hay reserva" responde igual
				// que un mismatch para no filtrar información.
				return "", s.done("complete_walk", ErrVerificationFailed)
			}
			return "", s.done("complete_walk", ErrNotFound)
		}
		return "", s.done("complete_walk", storeFailure("get latest reservation", err))
	}

	by := in.By
	if in.ReserverName != "" && in.ReserverPhone != "" {
		if !Verify(latest, in.ReserverName, in.ReserverPhone) {
			return "", s.done("complete_walk", ErrVerificationFailed)
		}
		by = CompletedManual
	}
	if by == "" {
		by = CompletedSystem
	}

	if latest.Status.Terminal() {
		return "", s.done("complete_walk", ErrInvalidState)
	}

	completedAt := in.At
	if completedAt == "" {
		completedAt = clockTime(s.now())
	}

	ok, err := s.store.UpdateWalkState(ctx, in.DogID,
		DogPatch{
			Status:         DogCompleted,
			CurrentWalkEnd: nil,
			LastWalkTime:   SetString(completedAt),
		},
		latest.ID, latest.Status,
		ReservationPatch{
			Status:      ReservationCompleted,
			WalkEndTime: SetString(completedAt),
			CompletedBy: SetString(string(by)),
		})
	if err != nil {
		return "", s.done("complete_walk", storeFailure("update walk state", err))
	}
	if !ok {
		return "", s.done("complete_walk", ErrInvalidState)
	}

	return completedAt, s.done("complete_walk", nil)
}

// CancelReservation cancela por id de reserva. El perro vuelve a available
// solo si sigue en reserved al momento de escribir: si el paseo arrancó en
// el medio, la guarda no pasa y el perro queda como está.
func (s *Service) CancelReservation(ctx context.Context, reservationID int64, name, phone string) (Reservation, error) {
	if name == "" || phone == "" {
		return Reservation{}, s.done("cancel_reservation", ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	r, err := s.store.GetReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Reservation{}, s.done("cancel_reservation", ErrNotFound)
		}
		return Reservation{}, s.done("cancel_reservation", storeFailure("get reservation", err))
	}

	cancelled, err := s.cancel(ctx, r, name, phone)
	return cancelled, s.done("cancel_reservation", err)
}

// CancelLatestForDog cancela la última reserva del perro (forma by-dog del
// mismo endpoint del original).
func (s *Service) CancelLatestForDog(ctx context.Context, dogID int64, name, phone string) (Reservation, error) {
	if name == "" || phone == "" {
		return Reservation{}, s.done("cancel_reservation", ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	r, err := s.store.GetLatestReservation(ctx, dogID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Reservation{}, s.done("cancel_reservation", ErrNotFound)
		}
		return Reservation{}, s.done("cancel_reservation", storeFailure("get latest reservation", err))
	}

	cancelled, err := s.cancel(ctx, r, name, phone)
	return cancelled, s.done("cancel_reservation", err)
}

func (s *Service) cancel(ctx context.Context, r Reservation, name, phone string) (Reservation, error) {
	if r.Status != ReservationReserved {
		return Reservation{}, ErrInvalidState
	}
	if !Verify(r, name, phone) {
		return Reservation{}, ErrVerificationFailed
	}

	ok, err := s.store.UpdateReservationIfStatus(ctx, r.ID, ReservationReserved,
		ReservationPatch{Status: ReservationCancelled})
	if err != nil {
		return Reservation{}, storeFailure("cancel reservation", err)
	}
	if !ok {
		return Reservation{}, ErrInvalidState
	}

	// Guarda sobre el perro: available solo si sigue reserved. Que la
	// guarda no pase no es un error (el paseo pudo arrancar en el medio).
	if _, err := s.store.UpdateDogIfStatus(ctx, r.DogID, DogReserved, DogPatch{
		Status:         DogAvailable,
		CurrentWalkEnd: nil,
	}); err != nil {
		return Reservation{}, storeFailure("release dog after cancel", err)
	}

	r.Status = ReservationCancelled
	return r, nil
}

// ResetDog es el override administrativo: perro a available sin tocar
// reservas y sin verificación. No limpia lastWalkTime.
func (s *Service) ResetDog(ctx context.Context, dogID int64) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := s.store.UpdateDog(ctx, dogID, DogPatch{
		Status:         DogAvailable,
		CurrentWalkEnd: nil,
	}); err != nil {
		if errors.Is(err, ErrNotFound) {
			return s.done("reset_dog", ErrNotFound)
		}
		return s.done("reset_dog", storeFailure("reset dog", err))
	}
	return s.done("reset_dog", nil)
}

func (s *Service) ListDogs(ctx context.Context) ([]DogWithReserver, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	dogs, err := s.store.ListDogs(ctx)
	if err != nil {
		return nil, storeFailure("list dogs", err)
	}
	return dogs, nil
}

func (s *Service) ListReservations(ctx context.Context) ([]ReservationWithDog, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	rs, err := s.store.ListReservations(ctx)
	if err != nil {
		return nil, storeFailure("list reservations", err)
	}
	return rs, nil
}

// done registra el resultado de la operación en métricas y deja pasar el
// error tal cual, para no repetir el contador en cada return.
func (s *Service) done(op string, err error) error {
	if s.metrics != nil {
		s.metrics.OperationsTotal.WithLabelValues(op, resultLabel(err)).Inc()
	}
	if err != nil && errors.Is(err, ErrStoreUnavailable) {
		s.logger.Error("store failure", zap.String("op", op), zap.Error(err))
	}
	return err
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNoActiveReservation):
		return "no_active_reservation"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrVerificationFailed):
		return "verification_failed"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}

// storeFailure envuelve un error crudo del store como ErrStoreUnavailable
// preservando el detalle para los logs.
func storeFailure(op string, err error) error {
	return fmt.Errorf("%s: %w: %s", op, ErrStoreUnavailable, err)
}
