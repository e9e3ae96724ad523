package app

import (
	"context"
	"fmt"

	"github.com/kilianp07/taxi/config"
	"github.com/kilianp07/taxi/core/triplog"
	"github.com/kilianp07/taxi/infra/postgres"
)

// OpenTripLog opens the configured trip log backend.
func OpenTripLog(ctx context.Context, cfg config.TripLogConfig) (triplog.Store, error) {
	switch cfg.Backend {
	case config.TripLogJSONL:
		return triplog.NewJSONLStore(cfg.Path)
	case config.TripLogRotating:
		return triplog.NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case config.TripLogPostgres:
		return postgres.Open(ctx, cfg.DSN)
	case config.TripLogNone:
		return triplog.NopStore{}, nil
	default:
		return nil, fmt.Errorf("triplog: unknown backend %s", cfg.Backend)
	}
}
