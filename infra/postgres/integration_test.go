//go:build integration

package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/taxi/core/model"
	"github.com/kilianp07/taxi/core/triplog"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "taxi",
			"POSTGRES_PASSWORD": "taxi",
			"POSTGRES_DB":       "taxi",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(time.Minute),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://taxi:taxi@%s:%s/taxi?sslmode=disable", host, port.Port())
}

func TestTripStoreRoundTrip(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()
	s, err := Open(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()

	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)
	for i, vid := range []int{1, 3, 1} {
		rec := model.TripRecord{
			VehicleID:   vid,
			DriverID:    100 + vid,
			Pickup:      model.MustParseAddress("Sonnenweg 15,60487,Frankfurt a.M."),
			Destination: model.MustParseAddress("Markt 17,60311,Frankfurt a.M."),
			Start:       start.Add(time.Duration(i) * time.Hour),
			End:         start.Add(time.Duration(i)*time.Hour + 20*time.Minute),
			DistanceKm:  10,
			Fare:        23.5,
		}
		require.NoError(t, s.Append(ctx, triplog.Entry{Timestamp: rec.End, Record: rec, KeyStoreResult: "SUCCESS", Attempts: 1}))
	}

	all, err := s.Query(ctx, triplog.Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "1;101;Sonnenweg 15,60487,Frankfurt a.M.;Markt 17,60311,Frankfurt a.M.;01.03.2024 10:00;01.03.2024 10:20;10.00;23.50", all[0].Record.Format())

	v1, err := s.Query(ctx, triplog.Query{VehicleID: 1, Start: start.Add(30 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, v1, 1)
	assert.Equal(t, 1, v1[0].Record.VehicleID)
}
