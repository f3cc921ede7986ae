package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Open abre (o crea) la base sqlite, aplica pragmas y migra el esquema.
// Variante de storage chica para correr sin Postgres, igual que el
// backend original corría contra un archivo local.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=ON", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`); err != nil {
		return err
	}

	const latest = 2

	cur, err := currentVersion(ctx, db)
	if err != nil {
		return err
	}
	for v := cur + 1; v <= latest; v++ {
		if err := apply(ctx, db, v); err != nil {
			return err
		}
	}
	return nil
}

func currentVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations;`).Scan(&v); err != nil {
		return 0, err
	}
	if !v.Valid {
		return 0, nil
	}
	return int(v.Int64), nil
}

func apply(ctx context.Context, db *sql.DB, version int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	switch version {
	case 1:
		if _, err := tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS dogs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  breed TEXT NOT NULL,
  age INTEGER NOT NULL DEFAULT 0,
  description TEXT NOT NULL DEFAULT '',
  image TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'available',
  last_walk_time TEXT,
  current_walk_end TEXT
);

CREATE TABLE IF NOT EXISTS reservations (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  dog_id INTEGER NOT NULL REFERENCES dogs(id),
  date TEXT NOT NULL,
  time TEXT NOT NULL,
  status TEXT NOT NULL,
  reserver_name TEXT NOT NULL,
  reserver_phone TEXT NOT NULL,
  walk_start_time TEXT,
  walk_end_time TEXT,
  completed_by TEXT,
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_reservations_dog_id ON reservations(dog_id, id);
CREATE INDEX IF NOT EXISTS idx_dogs_status ON dogs(status);
`); err != nil {
			return fmt.Errorf("migration v1 failed: %w", err)
		}
	case 2:
		// Seed de perros del refugio (mismo contenido que la migración de
		// seed de Postgres).
		if _, err := tx.ExecContext(ctx, `
INSERT INTO dogs (name, breed, age, description, image, status) VALUES
  ('Mung',  'Jindo',           3, 'Energetic boy who loves long riverside walks.',       '/images/dogs/mung.jpg',  'available'),
  ('Bori',  'Maltese',         5, 'Small and gentle, prefers short slow strolls.',       '/images/dogs/bori.jpg',  'available'),
  ('Choco', 'Poodle',          2, 'Playful chocolate poodle, friendly with everyone.',   '/images/dogs/choco.jpg', 'available'),
  ('Dubu',  'Samoyed',         4, 'Fluffy cloud, pulls a little on the leash.',          '/images/dogs/dubu.jpg',  'available'),
  ('Kkami', 'Shiba Inu',       6, 'Independent senior, walks best alone.',               '/images/dogs/kkami.jpg', 'available'),
  ('Byeol', 'Golden Retriever',1, 'Puppy energy, needs a patient walker.',               '/images/dogs/byeol.jpg', 'available');
`); err != nil {
			return fmt.Errorf("migration v2 failed: %w", err)
		}
	default:
		return fmt.Errorf("unknown migration version: %d", version)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version) VALUES(?);`, version); err != nil {
		return err
	}
	return tx.Commit()
}
