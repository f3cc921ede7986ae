package walks

import "time"

// DogStatus refleja el estado de la última reserva del perro.
// @Enum available, reserved, walking, completed
type DogStatus string

const (
	DogAvailable DogStatus = "available"
	DogReserved  DogStatus = "reserved"
	DogWalking   DogStatus = "walking"
	DogCompleted DogStatus = "completed"
)

// ReservationStatus: completed y cancelled son terminales.
// @Enum reserved, walking, completed, cancelled
type ReservationStatus string

const (
	ReservationReserved  ReservationStatus = "reserved"
	ReservationWalking   ReservationStatus = "walking"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCancelled ReservationStatus = "cancelled"
)

func (s ReservationStatus) Terminal() bool {
	return s == ReservationCompleted || s == ReservationCancelled
}

// CompletedBy indica quién cerró el paseo.
// @Enum manual, auto, system
type CompletedBy string

const (
	CompletedManual CompletedBy = "manual" // voluntario verificado
	CompletedAuto   CompletedBy = "auto"   // reconciler por timeout
	CompletedSystem CompletedBy = "system" // caller privilegiado sin identidad
)

// Dog es la entidad paseable. Los campos descriptivos son inmutables
// después del seed; el engine solo toca status, lastWalkTime y currentWalkEnd.
type Dog struct {
	ID          int64
	Name        string
	Breed       string
	Age         int
	Description string
	Image       string

	Status DogStatus

	// Horas de pared HH:MM, sin zona (semántica local heredada).
	LastWalkTime   *string // última hora de finalización; se limpia al resetear
	CurrentWalkEnd *string // presente sí y solo sí Status == walking
}

// Reservation es un intento de paseo con ciclo de vida propio.
// "La reserva vigente" de un perro es siempre la de mayor id.
type Reservation struct {
	ID    int64
	DogID int64

	Date string // YYYY-MM-DD
	Time string // HH:MM, slot pedido al crear

	Status ReservationStatus

	// Identidad capturada al crear; clave de verificación de todas las
	// acciones posteriores sobre esta reserva.
	ReserverName  string
	ReserverPhone string

	WalkStartTime *string // HH:MM
	WalkEndTime   *string // HH:MM
	CompletedBy   *string // manual|auto|system

	CreatedAt time.Time
}

// DogWithReserver es el read model de GET /api/dogs: el perro más el nombre
// del reservante de su última reserva (sin filtrar por estado, como el
// backend original).
type DogWithReserver struct {
	Dog
	ReserverName *string
}

// ReservationWithDog es el read model de GET /api/reservations.
type ReservationWithDog struct {
	Reservation
	DogName  string
	DogBreed string
	DogImage string
}

// StringPatch distingue "no tocar" (Set=false) de "escribir valor o NULL"
// (Set=true). Mismo truco de presencia que usábamos para los PATCH de JSON.
type StringPatch struct {
	Set   bool
	Value *string
}

func SetString(v string) StringPatch { return StringPatch{Set: true, Value: &v} }
func ClearString() StringPatch       { return StringPatch{Set: true, Value: nil} }

// DogPatch describe la parte mutable de un perro en una transición.
// CurrentWalkEnd se escribe siempre (valor o NULL) porque toda transición
// lo fija; LastWalkTime solo cuando corresponde.
type DogPatch struct {
	Status         DogStatus
	CurrentWalkEnd *string
	LastWalkTime   StringPatch
}

// ReservationPatch describe la parte mutable de una reserva en una transición.
type ReservationPatch struct {
	Status        ReservationStatus
	WalkStartTime StringPatch
	WalkEndTime   StringPatch
	CompletedBy   StringPatch
}

// ApplyDogPatch y ApplyReservationPatch centralizan la semántica de los
// patches para los adapters que no pueden expresarla en SQL (memoria).
func ApplyDogPatch(d Dog, p DogPatch) Dog {
	d.Status = p.Status
	d.CurrentWalkEnd = p.CurrentWalkEnd
	if p.LastWalkTime.Set {
		d.LastWalkTime = p.LastWalkTime.Value
	}
	return d
}

func ApplyReservationPatch(r Reservation, p ReservationPatch) Reservation {
	r.Status = p.Status
	if p.WalkStartTime.Set {
		r.WalkStartTime = p.WalkStartTime.Value
	}
	if p.WalkEndTime.Set {
		r.WalkEndTime = p.WalkEndTime.Value
	}
	if p.CompletedBy.Set {
		r.CompletedBy = p.CompletedBy.Value
	}
	return r
}

// clockTime y dateOf fijan la granularidad del dominio: HH:MM y YYYY-MM-DD
// en la zona del reloj inyectado.
func clockTime(t time.Time) string { return t.Format("15:04") }
func dateOf(t time.Time) string    { return t.Format("2006-01-02") }
