package walks

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"walk-with-mung/internal/platform/metrics"
)

// DefaultReconcileInterval replica el setInterval de 60s del original.
const DefaultReconcileInterval = time.Minute

// Reconciler ejecuta las transiciones disparadas por tiempo, sin input de
// usuario: cierra paseos vencidos y libera perros que quedaron en
// completed de un día anterior. Corre una pasada inmediata al arrancar y
// después en cada tick. Usa las mismas primitivas guardadas que el engine,
// así que pisarse con un request concurrente no corrompe nada: la guarda
// que no pasa significa "alguien ya transicionó esta fila".
type Reconciler struct {
	store    Store
	svc      *Service
	logger   *zap.Logger
	metrics  *metrics.Metrics
	interval time.Duration
	now      func() time.Time
}

func NewReconciler(store Store, svc *Service, logger *zap.Logger, m *metrics.Metrics, interval time.Duration) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	return &Reconciler{
		store:    store,
		svc:      svc,
		logger:   logger,
		metrics:  m,
		interval: interval,
		now:      time.Now,
	}
}

// Run bloquea hasta que el contexto se cancele. Una sola goroutine: los
// sweeps nunca se solapan consigo mismos.
func (rc *Reconciler) Run(ctx context.Context) {
	rc.logger.Info("reconciler started", zap.Duration("interval", rc.interval))

	rc.Sweep(ctx)

	t := time.NewTicker(rc.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			rc.logger.Info("reconciler stopped")
			return
		case <-t.C:
			rc.Sweep(ctx)
		}
	}
}

// Sweep corre las dos pasadas, independientes entre sí: que falle una no
// bloquea la otra, y ningún error tumba el loop del timer.
func (rc *Reconciler) Sweep(ctx context.Context) {
	log := rc.logger.With(zap.String("run_id", uuid.NewString()))

	if err := rc.completeOverdueWalks(ctx, log); err != nil {
		log.Error("auto-complete sweep failed", zap.Error(err))
		rc.countSweep("auto_complete", "error")
	} else {
		rc.countSweep("auto_complete", "success")
	}

	if err := rc.releaseStaleDogs(ctx, log); err != nil {
		log.Error("stale-completion sweep failed", zap.Error(err))
		rc.countSweep("stale_reset", "error")
	} else {
		rc.countSweep("stale_reset", "success")
	}
}

// completeOverdueWalks cierra como auto todo paseo cuyo fin programado ya
// pasó. El instante de corte se arma combinando la fecha de hoy con el
// HH:MM de currentWalkEnd, en la zona del reloj.
func (rc *Reconciler) completeOverdueWalks(ctx context.Context, log *zap.Logger) error {
	dogs, err := rc.store.ListWalkingDogs(ctx)
	if err != nil {
		return storeFailure("list walking dogs", err)
	}

	if rc.metrics != nil {
		rc.metrics.DogsWalking.Set(float64(len(dogs)))
	}

	now := rc.now()
	for _, d := range dogs {
		if d.CurrentWalkEnd == nil {
			continue
		}

		end, err := wallClockInstant(now, *d.CurrentWalkEnd)
		if err != nil {
			log.Warn("unparseable walk end, skipping dog",
				zap.Int64("dog_id", d.ID), zap.Stringp("current_walk_end", d.CurrentWalkEnd))
			continue
		}
		if now.Before(end) {
			continue
		}

		// Cierra con At = fin programado: lastWalkTime debe quedar en la
		// hora en que el paseo debió terminar, no en la hora del sweep.
		_, err = rc.svc.CompleteWalk(ctx, CompleteWalkInput{
			DogID: d.ID,
			By:    CompletedAuto,
			At:    *d.CurrentWalkEnd,
		})
		switch {
		case err == nil:
			log.Info("walk auto-completed",
				zap.Int64("dog_id", d.ID), zap.String("walk_end", *d.CurrentWalkEnd))
			if rc.metrics != nil {
				rc.metrics.AutoCompletedTotal.Inc()
			}
		case errors.Is(err, ErrInvalidState):
			// Un request manual llegó primero. No es un problema.
		default:
			// Error de un perro no aborta el resto del sweep.
			log.Error("auto-complete failed for dog",
				zap.Int64("dog_id", d.ID), zap.Error(err))
		}
	}

	return nil
}

// releaseStaleDogs devuelve a available los perros que siguen en completed
// con su última reserva fechada antes de hoy, limpiando lastWalkTime. Va
// directo al store (guardado por completed): no hay verificación ni
// mutación de reservas acá.
func (rc *Reconciler) releaseStaleDogs(ctx context.Context, log *zap.Logger) error {
	today := dateOf(rc.now())

	dogs, err := rc.store.ListStaleCompletedDogs(ctx, today)
	if err != nil {
		return storeFailure("list stale completed dogs", err)
	}

	for _, d := range dogs {
		ok, err := rc.store.UpdateDogIfStatus(ctx, d.ID, DogCompleted, DogPatch{
			Status:         DogAvailable,
			CurrentWalkEnd: nil,
			LastWalkTime:   ClearString(),
		})
		if err != nil {
			log.Error("stale reset failed for dog",
				zap.Int64("dog_id", d.ID), zap.Error(err))
			continue
		}
		if ok {
			log.Info("stale completed dog released", zap.Int64("dog_id", d.ID))
			if rc.metrics != nil {
				rc.metrics.StaleResetTotal.Inc()
			}
		}
	}

	return nil
}

func (rc *Reconciler) countSweep(sweep, result string) {
	if rc.metrics != nil {
		rc.metrics.SweepsTotal.WithLabelValues(sweep, result).Inc()
	}
}

// wallClockInstant combina la fecha de ref con una hora de pared HH:MM en
// la zona de ref.
func wallClockInstant(ref time.Time, hhmm string) (time.Time, error) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, errors.New("expected HH:MM")
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, err
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, err
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return time.Time{}, errors.New("hour out of range")
	}
	return time.Date(ref.Year(), ref.Month(), ref.Day(), hh, mm, 0, 0, ref.Location()), nil
}
