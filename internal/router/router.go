package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"walk-with-mung/internal/domain/walks"
	"walk-with-mung/internal/middleware"
)

type Options struct {
	Service *walks.Service

	// Logger opcional: sin él no se loguean requests (tests).
	Logger *zap.Logger

	// CORSOrigin habilita CORS para el frontend (el original lo limita al
	// dev server de Vite). Vacío = sin CORS.
	CORSOrigin string

	// Metrics expone /metrics cuando está en true.
	Metrics bool
}

func New(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if opts.Logger != nil {
		r.Use(middleware.RequestLogger(opts.Logger))
	}

	if opts.CORSOrigin != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{opts.CORSOrigin},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if opts.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	walks.RegisterRoutes(r, opts.Service)

	return r
}
