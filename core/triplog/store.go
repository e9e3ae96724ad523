// Package triplog keeps a durable log of completed trips independent of the
// key-store device.
package triplog

import (
	"context"
	"time"

	"github.com/kilianp07/taxi/core/model"
)

// Entry captures one completed trip and how the key-store handled it.
type Entry struct {
	Timestamp      time.Time        `json:"timestamp"`
	Record         model.TripRecord `json:"record"`
	KeyStoreResult string           `json:"keystore_result"`
	Attempts       int              `json:"attempts"`
}

// Query defines filters for retrieving entries. Zero fields match all.
type Query struct {
	Start     time.Time
	End       time.Time
	VehicleID int
	DriverID  int
}

// Match reports whether the entry passes the filter. Start and End bound the
// trip start time.
func (q Query) Match(e Entry) bool {
	if !q.Start.IsZero() && e.Record.Start.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && e.Record.Start.After(q.End) {
		return false
	}
	if q.VehicleID != 0 && e.Record.VehicleID != q.VehicleID {
		return false
	}
	if q.DriverID != 0 && e.Record.DriverID != q.DriverID {
		return false
	}
	return true
}

// Store persists entries and supports querying.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Query(ctx context.Context, q Query) ([]Entry, error)
	Close() error
}

// NopStore discards entries.
type NopStore struct{}

func (NopStore) Append(context.Context, Entry) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Entry, error) { return nil, nil }
func (NopStore) Close() error                                  { return nil }
