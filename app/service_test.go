package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/taxi/config"
	"github.com/kilianp07/taxi/core/dispatch"
	"github.com/kilianp07/taxi/core/triplog"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.TripLog.Path = filepath.Join(t.TempDir(), "trips.jsonl")
	cfg.API.Addr = "127.0.0.1:0"
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNew_RejectsNil(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)
}

func TestService_DispatchOverHTTP(t *testing.T) {
	dispatch.ResetMetrics(nil)
	svc, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer svc.Close()

	srv := httptest.NewServer(svc.Handler())
	defer srv.Close()

	body := `{"pickup":"Bahnhofsplatz 1,60314,Frankfurt a.M.","destination":"Markt 17,60311,Frankfurt a.M."}`
	resp, err := http.Post(srv.URL+"/api/dispatch", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var asn dispatch.Assignment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&asn))
	assert.Equal(t, 5, asn.Vehicle.ID)
	assert.Equal(t, 8760, asn.TripDistance)
}

func TestService_RunStopsOnCancel(t *testing.T) {
	svc, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop")
	}
}

func TestOpenTripLog(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenTripLog(context.Background(), config.TripLogConfig{Backend: config.TripLogJSONL, Path: filepath.Join(dir, "a.jsonl")})
	require.NoError(t, err)
	assert.IsType(t, &triplog.JSONLStore{}, s)

	s, err = OpenTripLog(context.Background(), config.TripLogConfig{Backend: config.TripLogRotating, Path: filepath.Join(dir, "b.jsonl"), MaxSizeMB: 1})
	require.NoError(t, err)
	assert.IsType(t, &triplog.RotatingJSONLStore{}, s)
	require.NoError(t, s.Close())

	s, err = OpenTripLog(context.Background(), config.TripLogConfig{Backend: config.TripLogNone})
	require.NoError(t, err)
	assert.Equal(t, triplog.NopStore{}, s)

	_, err = OpenTripLog(context.Background(), config.TripLogConfig{Backend: "sqlite"})
	assert.Error(t, err)
}
