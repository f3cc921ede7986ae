package walks

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes monta la superficie HTTP del original, rutas y nombres de
// campo JSON incluidos: el frontend existente depende de ambos.
func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/api", func(api chi.Router) {
		api.Get("/dogs", listDogsHandler(svc))
		api.Post("/dogs/{dogID}/start-walk", startWalkHandler(svc))
		api.Post("/dogs/{dogID}/complete", completeWalkHandler(svc))
		api.Post("/dogs/{dogID}/cancel-reservation", cancelByDogHandler(svc))
		api.Post("/dogs/{dogID}/reset", resetDogHandler(svc))

		api.Get("/reservations", listReservationsHandler(svc))
		api.Post("/reservations", createReservationHandler(svc))
		api.Post("/reservations/{reservationID}/cancel", cancelReservationHandler(svc))
	})
}

type dogResponse struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Breed          string  `json:"breed"`
	Age            int     `json:"age"`
	Description    string  `json:"description"`
	Status         string  `json:"status"`
	LastWalkTime   *string `json:"lastWalkTime"`
	CurrentWalkEnd *string `json:"currentWalkEnd"`
	Image          string  `json:"image"`
	ReserverName   *string `json:"reserverName"`
}

type reservationResponse struct {
	ID            int64     `json:"id"`
	DogID         int64     `json:"dogId"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Status        string    `json:"status"`
	ReserverName  string    `json:"reserverName"`
	ReserverPhone string    `json:"reserverPhone"`
	WalkStartTime *string   `json:"walkStartTime"`
	WalkEndTime   *string   `json:"walkEndTime"`
	CompletedBy   *string   `json:"completedBy"`
	CreatedAt     time.Time `json:"createdAt"`
	DogName       string    `json:"dogName"`
	DogBreed      string    `json:"dogBreed"`
	DogImage      string    `json:"dogImage"`
}

type createReservationRequest struct {
	DogID         int64  `json:"dogId"`
	Time          string `json:"time"`
	ReserverName  string `json:"reserverName"`
	ReserverPhone string `json:"reserverPhone"`
}

type identityRequest struct {
	ReserverName  string `json:"reserverName"`
	ReserverPhone string `json:"reserverPhone"`
}

func listDogsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dogs, err := svc.ListDogs(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}

		out := make([]dogResponse, 0, len(dogs))
		for _, d := range dogs {
			out = append(out, dogResponse{
				ID:             d.ID,
				Name:           d.Name,
				Breed:          d.Breed,
				Age:            d.Age,
				Description:    d.Description,
				Status:         string(d.Status),
				LastWalkTime:   d.LastWalkTime,
				CurrentWalkEnd: d.CurrentWalkEnd,
				Image:          d.Image,
				ReserverName:   d.ReserverName,
			})
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func listReservationsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rs, err := svc.ListReservations(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}

		out := make([]reservationResponse, 0, len(rs))
		for _, item := range rs {
			out = append(out, reservationResponse{
				ID:            item.ID,
				DogID:         item.DogID,
				Date:          item.Date,
				Time:          item.Time,
				Status:        string(item.Status),
				ReserverName:  item.ReserverName,
				ReserverPhone: item.ReserverPhone,
				WalkStartTime: item.WalkStartTime,
				WalkEndTime:   item.WalkEndTime,
				CompletedBy:   item.CompletedBy,
				CreatedAt:     item.CreatedAt,
				DogName:       item.DogName,
				DogBreed:      item.DogBreed,
				DogImage:      item.DogImage,
			})
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func createReservationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createReservationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid json")
			return
		}

		if req.DogID == 0 || req.Time == "" || req.ReserverName == "" || req.ReserverPhone == "" {
			writeErrorMessage(w, http.StatusBadRequest,
				"dogId, time, reserverName, and reserverPhone are required")
			return
		}

		created, err := svc.CreateReservation(r.Context(), CreateReservationInput{
			DogID:         req.DogID,
			Time:          req.Time,
			ReserverName:  req.ReserverName,
			ReserverPhone: req.ReserverPhone,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"id":            created.ID,
			"dogId":         created.DogID,
			"date":          created.Date,
			"time":          created.Time,
			"reserverName":  created.ReserverName,
			"reserverPhone": created.ReserverPhone,
			"status":        string(created.Status),
		})
	}
}

func startWalkHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dogID, ok := dogIDParam(w, r)
		if !ok {
			return
		}

		var req identityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid json")
			return
		}
		if req.ReserverName == "" || req.ReserverPhone == "" {
			writeErrorMessage(w, http.StatusBadRequest, "reserverName and reserverPhone are required")
			return
		}

		started, err := svc.StartWalk(r.Context(), dogID, req.ReserverName, req.ReserverPhone)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"dogId":          dogID,
			"reservationId":  started.ReservationID,
			"status":         string(ReservationWalking),
			"currentWalkEnd": started.CurrentWalkEnd,
		})
	}
}

func completeWalkHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dogID, ok := dogIDParam(w, r)
		if !ok {
			return
		}

		// Body opcional: sin identidad el cierre queda como system (uso
		// administrativo heredado del original).
		var req identityRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		completedTime, err := svc.CompleteWalk(r.Context(), CompleteWalkInput{
			DogID:         dogID,
			ReserverName:  req.ReserverName,
			ReserverPhone: req.ReserverPhone,
			By:            CompletedSystem,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"dogId":         dogID,
			"completedTime": completedTime,
			"status":        string(ReservationCompleted),
		})
	}
}

func cancelReservationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reservationID, err := strconv.ParseInt(chi.URLParam(r, "reservationID"), 10, 64)
		if err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid reservation id")
			return
		}

		var req identityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid json")
			return
		}
		if req.ReserverName == "" || req.ReserverPhone == "" {
			writeErrorMessage(w, http.StatusBadRequest, "reserverName and reserverPhone are required")
			return
		}

		cancelled, err := svc.CancelReservation(r.Context(), reservationID, req.ReserverName, req.ReserverPhone)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"id":     cancelled.ID,
			"dogId":  cancelled.DogID,
			"status": string(ReservationCancelled),
		})
	}
}

func cancelByDogHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dogID, ok := dogIDParam(w, r)
		if !ok {
			return
		}

		var req identityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid json")
			return
		}
		if req.ReserverName == "" || req.ReserverPhone == "" {
			writeErrorMessage(w, http.StatusBadRequest, "reserverName and reserverPhone are required")
			return
		}

		cancelled, err := svc.CancelLatestForDog(r.Context(), dogID, req.ReserverName, req.ReserverPhone)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"dogId":         dogID,
			"reservationId": cancelled.ID,
			"status":        string(ReservationCancelled),
		})
	}
}

func resetDogHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dogID, ok := dogIDParam(w, r)
		if !ok {
			return
		}

		if err := svc.ResetDog(r.Context(), dogID); err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"dogId":  dogID,
			"status": string(DogAvailable),
		})
	}
}

func dogIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "dogID"), 10, 64)
	if err != nil || id <= 0 {
		writeErrorMessage(w, http.StatusBadRequest, "invalid dog id")
		return 0, false
	}
	return id, true
}

// writeError mapea la taxonomía del dominio a HTTP. VerificationFailed e
// InvalidState comparten mensaje: la respuesta no distingue "identidad
// equivocada" de "reserva ya procesada" (mismo 400 opaco del original).
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeErrorMessage(w, http.StatusBadRequest, ErrInvalidInput.Error())
	case errors.Is(err, ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, "Reservation not found")
	case errors.Is(err, ErrNoActiveReservation):
		writeErrorMessage(w, http.StatusBadRequest, ErrNoActiveReservation.Error())
	case errors.Is(err, ErrVerificationFailed), errors.Is(err, ErrInvalidState):
		writeErrorMessage(w, http.StatusBadRequest,
			"reservation details do not match or it was already processed")
	case errors.Is(err, ErrStoreUnavailable):
		writeErrorMessage(w, http.StatusServiceUnavailable, "storage temporarily unavailable")
	default:
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
