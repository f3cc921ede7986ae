package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string

	// Selección de storage: DB_DSN gana, después SQLITE_PATH, y sin
	// ninguno se corre in-memory con seed (modo dev/handoff).
	DBDSN      string
	SQLitePath string

	CORSOrigin        string
	ReconcileInterval time.Duration
}

func Load() (*Config, error) {
	// .env opcional; si no está, se usan las variables del entorno.
	_ = godotenv.Load(".env")

	cfg := &Config{
		Port:        os.Getenv("PORT"),
		Environment: os.Getenv("ENV"),
		DBDSN:       os.Getenv("DB_DSN"),
		SQLitePath:  os.Getenv("SQLITE_PATH"),
		CORSOrigin:  os.Getenv("CORS_ORIGIN"),
	}

	if cfg.Port == "" {
		cfg.Port = "4000"
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "http://localhost:5173"
	}

	cfg.ReconcileInterval = time.Minute
	if v := os.Getenv("RECONCILE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RECONCILE_INTERVAL %q: %w", v, err)
		}
		cfg.ReconcileInterval = d
	}

	return cfg, nil
}
