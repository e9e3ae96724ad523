// Package postgres stores the trip log in PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kilianp07/taxi/core/model"
	"github.com/kilianp07/taxi/core/triplog"
)

const schema = `
CREATE TABLE IF NOT EXISTS trips (
    id              BIGSERIAL PRIMARY KEY,
    logged_at       TIMESTAMPTZ      NOT NULL,
    vehicle_id      INTEGER          NOT NULL,
    driver_id       INTEGER          NOT NULL,
    pickup          TEXT             NOT NULL,
    destination     TEXT             NOT NULL,
    started_at      TIMESTAMPTZ      NOT NULL,
    ended_at        TIMESTAMPTZ      NOT NULL,
    distance_km     DOUBLE PRECISION NOT NULL,
    fare_eur        DOUBLE PRECISION NOT NULL,
    keystore_result TEXT             NOT NULL,
    attempts        INTEGER          NOT NULL
);
CREATE INDEX IF NOT EXISTS trips_started_at_idx ON trips (started_at);`

// TripStore implements triplog.Store on a pgx pool.
type TripStore struct {
	db *pgxpool.Pool
}

// Open connects to dsn and creates the schema when missing.
func Open(ctx context.Context, dsn string) (*TripStore, error) {
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	s := NewTripStore(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewTripStore wraps an existing pool.
func NewTripStore(db *pgxpool.Pool) *TripStore {
	return &TripStore{db: db}
}

// Migrate creates the trips table.
func (s *TripStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// Append inserts one entry.
func (s *TripStore) Append(ctx context.Context, e triplog.Entry) error {
	r := e.Record
	_, err := s.db.Exec(ctx, `
        INSERT INTO trips (
            logged_at, vehicle_id, driver_id, pickup, destination,
            started_at, ended_at, distance_km, fare_eur, keystore_result, attempts
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.Timestamp,
		r.VehicleID, r.DriverID,
		r.Pickup.String(), r.Destination.String(),
		r.Start, r.End,
		r.DistanceKm, r.Fare,
		e.KeyStoreResult, e.Attempts,
	)
	return err
}

// Query returns matching entries ordered by trip start.
func (s *TripStore) Query(ctx context.Context, q triplog.Query) ([]triplog.Entry, error) {
	sql, args := buildQuery(q)
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []triplog.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// Close releases the pool.
func (s *TripStore) Close() error {
	s.db.Close()
	return nil
}

func buildQuery(q triplog.Query) (string, []any) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if !q.Start.IsZero() {
		add("started_at >= $%d", q.Start)
	}
	if !q.End.IsZero() {
		add("started_at <= $%d", q.End)
	}
	if q.VehicleID != 0 {
		add("vehicle_id = $%d", q.VehicleID)
	}
	if q.DriverID != 0 {
		add("driver_id = $%d", q.DriverID)
	}
	var b strings.Builder
	b.WriteString(`SELECT logged_at, vehicle_id, driver_id, pickup, destination,
        started_at, ended_at, distance_km, fare_eur, keystore_result, attempts
        FROM trips`)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY started_at, id")
	return b.String(), args
}

func scanEntry(row pgx.Row) (triplog.Entry, error) {
	var (
		e                   triplog.Entry
		pickup, destination string
		start, end          time.Time
	)
	r := &e.Record
	if err := row.Scan(
		&e.Timestamp, &r.VehicleID, &r.DriverID, &pickup, &destination,
		&start, &end, &r.DistanceKm, &r.Fare, &e.KeyStoreResult, &e.Attempts,
	); err != nil {
		return e, err
	}
	var err error
	if r.Pickup, err = model.ParseAddress(pickup); err != nil {
		return e, err
	}
	if r.Destination, err = model.ParseAddress(destination); err != nil {
		return e, err
	}
	r.Start, r.End = start.Local(), end.Local()
	return e, nil
}

var _ triplog.Store = (*TripStore)(nil)
