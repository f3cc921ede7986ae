package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"walk-with-mung/internal/domain/walks"
)

// WalksRepo implementa walks.Store sobre sqlite. Los updates condicionales
// son UPDATE ... WHERE status = expected; RowsAffected decide si la guarda
// pasó. Misma forma de SQL que el adapter de Postgres, con placeholders ?.
type WalksRepo struct {
	db *sql.DB
}

func NewWalksRepo(db *sql.DB) *WalksRepo {
	return &WalksRepo{db: db}
}

const dogColumns = `id, name, breed, age, description, image, status, last_walk_time, current_walk_end`

func (r *WalksRepo) GetDog(ctx context.Context, id int64) (walks.Dog, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+dogColumns+`
		FROM dogs
		WHERE id = ?
	`, id)
	return scanDog(row)
}

func (r *WalksRepo) ListDogs(ctx context.Context) ([]walks.DogWithReserver, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			d.id, d.name, d.breed, d.age, d.description, d.image,
			d.status, d.last_walk_time, d.current_walk_end,
			(
				SELECT r.reserver_name
				FROM reservations r
				WHERE r.dog_id = d.id
				ORDER BY r.id DESC
				LIMIT 1
			) AS reserver_name
		FROM dogs d
		ORDER BY d.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]walks.DogWithReserver, 0)
	for rows.Next() {
		var item walks.DogWithReserver
		var lastWalk, walkEnd, reserver sql.NullString
		if err := rows.Scan(
			&item.ID, &item.Name, &item.Breed, &item.Age, &item.Description,
			&item.Image, &item.Status, &lastWalk, &walkEnd, &reserver,
		); err != nil {
			return nil, err
		}
		item.LastWalkTime = nullableString(lastWalk)
		item.CurrentWalkEnd = nullableString(walkEnd)
		item.ReserverName = nullableString(reserver)
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *WalksRepo) ListWalkingDogs(ctx context.Context) ([]walks.Dog, error) {
	return r.listDogsWhere(ctx, `
		SELECT `+dogColumns+`
		FROM dogs
		WHERE status = ?
		ORDER BY id
	`, string(walks.DogWalking))
}

func (r *WalksRepo) ListStaleCompletedDogs(ctx context.Context, today string) ([]walks.Dog, error) {
	// La reserva vigente es la de max id; date en texto YYYY-MM-DD compara
	// cronológicamente.
	return r.listDogsWhere(ctx, `
		SELECT d.id, d.name, d.breed, d.age, d.description, d.image,
		       d.status, d.last_walk_time, d.current_walk_end
		FROM dogs d
		JOIN reservations r ON r.dog_id = d.id
		WHERE d.status = 'completed'
		  AND r.id = (SELECT MAX(id) FROM reservations r2 WHERE r2.dog_id = d.id)
		  AND r.date < ?
		ORDER BY d.id
	`, today)
}

func (r *WalksRepo) listDogsWhere(ctx context.Context, query string, args ...any) ([]walks.Dog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]walks.Dog, 0)
	for rows.Next() {
		d, err := scanDog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *WalksRepo) UpdateDog(ctx context.Context, id int64, patch walks.DogPatch) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE dogs
		SET status = ?,
		    current_walk_end = ?,
		    last_walk_time = CASE WHEN ? THEN ? ELSE last_walk_time END
		WHERE id = ?
	`, string(patch.Status), patch.CurrentWalkEnd, patch.LastWalkTime.Set, patch.LastWalkTime.Value, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return walks.ErrNotFound
	}
	return nil
}

func (r *WalksRepo) UpdateDogIfStatus(ctx context.Context, id int64, expected walks.DogStatus, patch walks.DogPatch) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE dogs
		SET status = ?,
		    current_walk_end = ?,
		    last_walk_time = CASE WHEN ? THEN ? ELSE last_walk_time END
		WHERE id = ? AND status = ?
	`, string(patch.Status), patch.CurrentWalkEnd, patch.LastWalkTime.Set, patch.LastWalkTime.Value,
		id, string(expected))
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *WalksRepo) InsertReservation(ctx context.Context, res walks.Reservation) (walks.Reservation, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO reservations (dog_id, date, time, status, reserver_name, reserver_phone, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, res.DogID, res.Date, res.Time, string(res.Status), res.ReserverName, res.ReserverPhone, res.CreatedAt)
	if err != nil {
		return walks.Reservation{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return walks.Reservation{}, err
	}
	res.ID = id
	return res, nil
}

const reservationColumns = `id, dog_id, date, time, status, reserver_name, reserver_phone, walk_start_time, walk_end_time, completed_by, created_at`

func (r *WalksRepo) GetReservation(ctx context.Context, id int64) (walks.Reservation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE id = ?
	`, id)
	return scanReservation(row)
}

func (r *WalksRepo) GetLatestReservation(ctx context.Context, dogID int64) (walks.Reservation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE dog_id = ?
		ORDER BY id DESC
		LIMIT 1
	`, dogID)
	return scanReservation(row)
}

func (r *WalksRepo) ListReservations(ctx context.Context) ([]walks.ReservationWithDog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			r.id, r.dog_id, r.date, r.time, r.status,
			r.reserver_name, r.reserver_phone,
			r.walk_start_time, r.walk_end_time, r.completed_by, r.created_at,
			d.name, d.breed, d.image
		FROM reservations r
		JOIN dogs d ON d.id = r.dog_id
		ORDER BY r.date, r.time, r.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]walks.ReservationWithDog, 0)
	for rows.Next() {
		var item walks.ReservationWithDog
		var start, end, by sql.NullString
		if err := rows.Scan(
			&item.ID, &item.DogID, &item.Date, &item.Time, &item.Status,
			&item.ReserverName, &item.ReserverPhone,
			&start, &end, &by, &item.CreatedAt,
			&item.DogName, &item.DogBreed, &item.DogImage,
		); err != nil {
			return nil, err
		}
		item.WalkStartTime = nullableString(start)
		item.WalkEndTime = nullableString(end)
		item.CompletedBy = nullableString(by)
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *WalksRepo) UpdateReservationIfStatus(ctx context.Context, id int64, expected walks.ReservationStatus, patch walks.ReservationPatch) (bool, error) {
	res, err := r.db.ExecContext(ctx, reservationPatchSQL,
		reservationPatchArgs(id, expected, patch)...)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// UpdateWalkState: reserva guardada + perro, en una transacción. Si la
// guarda de la reserva no pasa se hace rollback y ninguna fila cambia.
func (r *WalksRepo) UpdateWalkState(ctx context.Context, dogID int64, dogPatch walks.DogPatch, reservationID int64, expected walks.ReservationStatus, resPatch walks.ReservationPatch) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, reservationPatchSQL,
		reservationPatchArgs(reservationID, expected, resPatch)...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE dogs
		SET status = ?,
		    current_walk_end = ?,
		    last_walk_time = CASE WHEN ? THEN ? ELSE last_walk_time END
		WHERE id = ?
	`, string(dogPatch.Status), dogPatch.CurrentWalkEnd,
		dogPatch.LastWalkTime.Set, dogPatch.LastWalkTime.Value, dogID)
	if err != nil {
		return false, err
	}
	if n, err = res.RowsAffected(); err != nil {
		return false, err
	} else if n == 0 {
		return false, walks.ErrNotFound
	}

	return true, tx.Commit()
}

const reservationPatchSQL = `
	UPDATE reservations
	SET status = ?,
	    walk_start_time = CASE WHEN ? THEN ? ELSE walk_start_time END,
	    walk_end_time   = CASE WHEN ? THEN ? ELSE walk_end_time END,
	    completed_by    = CASE WHEN ? THEN ? ELSE completed_by END
	WHERE id = ? AND status = ?
`

func reservationPatchArgs(id int64, expected walks.ReservationStatus, p walks.ReservationPatch) []any {
	return []any{
		string(p.Status),
		p.WalkStartTime.Set, p.WalkStartTime.Value,
		p.WalkEndTime.Set, p.WalkEndTime.Value,
		p.CompletedBy.Set, p.CompletedBy.Value,
		id, string(expected),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDog(row rowScanner) (walks.Dog, error) {
	var d walks.Dog
	var lastWalk, walkEnd sql.NullString
	err := row.Scan(&d.ID, &d.Name, &d.Breed, &d.Age, &d.Description,
		&d.Image, &d.Status, &lastWalk, &walkEnd)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return walks.Dog{}, walks.ErrNotFound
		}
		return walks.Dog{}, err
	}
	d.LastWalkTime = nullableString(lastWalk)
	d.CurrentWalkEnd = nullableString(walkEnd)
	return d, nil
}

func scanReservation(row rowScanner) (walks.Reservation, error) {
	var res walks.Reservation
	var start, end, by sql.NullString
	err := row.Scan(&res.ID, &res.DogID, &res.Date, &res.Time, &res.Status,
		&res.ReserverName, &res.ReserverPhone, &start, &end, &by, &res.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return walks.Reservation{}, walks.ErrNotFound
		}
		return walks.Reservation{}, err
	}
	res.WalkStartTime = nullableString(start)
	res.WalkEndTime = nullableString(end)
	res.CompletedBy = nullableString(by)
	return res, nil
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
