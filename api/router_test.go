package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coredispatch "github.com/kilianp07/taxi/core/dispatch"
	"github.com/kilianp07/taxi/core/fare"
	"github.com/kilianp07/taxi/core/fleet"
	"github.com/kilianp07/taxi/core/model"
	"github.com/kilianp07/taxi/core/triplog"
	"github.com/kilianp07/taxi/infra/logger"
)

const pickup = "Bahnhofsplatz 1,60314,Frankfurt a.M."

type memStore struct{ entries []triplog.Entry }

func (m *memStore) Append(_ context.Context, e triplog.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memStore) Query(_ context.Context, q triplog.Query) ([]triplog.Entry, error) {
	var out []triplog.Entry
	for _, e := range m.entries {
		if q.Match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }

func newTestRouter(t *testing.T, store triplog.Store, token string) (*gin.Engine, *fleet.Directory) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir, err := fleet.Sample()
	require.NoError(t, err)
	coredispatch.ResetMetrics(nil)
	e, err := coredispatch.NewEngine(dir, nil, coredispatch.Config{}, nil, nil, logger.NopLogger{})
	require.NoError(t, err)
	return NewRouter(Deps{
		Fleet:  dir,
		Ranker: e,
		Engine: e,
		Tariff: fare.Default(),
		Trips:  store,
		Token:  token,
		Logger: logger.NopLogger{},
	}), dir
}

func do(r http.Handler, method, target, body string, hdr map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t, nil, "")
	rr := do(r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}

func TestVehicles_ListAndFilter(t *testing.T) {
	r, _ := newTestRouter(t, nil, "")

	rr := do(r, http.MethodGet, "/api/vehicles", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var all []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &all))
	assert.Len(t, all, 6)
	assert.NotNil(t, all[0]["driver"])

	rr = do(r, http.MethodGet, "/api/vehicles?status=EN_ROUTE_TO_CUSTOMER", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var busy []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &busy))
	require.Len(t, busy, 1)
	assert.EqualValues(t, 4, busy[0]["id"])

	rr = do(r, http.MethodGet, "/api/vehicles?status=PARKED", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestVehicles_Get(t *testing.T) {
	r, _ := newTestRouter(t, nil, "")

	rr := do(r, http.MethodGet, "/api/vehicles/3", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var v map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	assert.EqualValues(t, 5000, v["odometer_km"])

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/vehicles/99", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/vehicles/x", "", nil).Code)
}

func TestCandidates(t *testing.T) {
	r, dir := newTestRouter(t, nil, "")

	rr := do(r, http.MethodGet, "/api/candidates?pickup="+url.QueryEscape(pickup), "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var cands []coredispatch.Candidate
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cands))
	require.Len(t, cands, 5)
	assert.Equal(t, 5, cands[0].Vehicle.ID)
	assert.Equal(t, 739, cands[0].Distance)

	rr = do(r, http.MethodGet, "/api/candidates?max=2&pickup="+url.QueryEscape(pickup), "", nil)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cands))
	assert.Len(t, cands, 2)

	require.NoError(t, dir.SetStatus(4, model.StatusFree))
	rr = do(r, http.MethodGet, "/api/candidates?max=10&pickup="+url.QueryEscape(pickup), "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cands))
	assert.Len(t, cands, coredispatch.DefaultMaxCandidates)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/candidates?pickup=nowhere", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/candidates?max=0&pickup="+url.QueryEscape(pickup), "", nil).Code)
}

func TestDispatch(t *testing.T) {
	r, dir := newTestRouter(t, nil, "")
	body := `{"pickup":"` + pickup + `","destination":"Markt 17,60311,Frankfurt a.M."}`

	rr := do(r, http.MethodPost, "/api/dispatch", body, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var asn coredispatch.Assignment
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &asn))
	assert.Equal(t, 5, asn.Vehicle.ID)
	v, _ := dir.Vehicle(5)
	assert.Equal(t, model.StatusEnRouteToCustomer, v.Status)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/dispatch", `{"pickup":"x"}`, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/dispatch", `not json`, nil).Code)
}

func TestDispatch_NoVehicle(t *testing.T) {
	r, dir := newTestRouter(t, nil, "")
	for _, v := range dir.Vehicles(fleet.Filter{}) {
		require.NoError(t, dir.SetStatus(v.ID, model.StatusOutOfService))
	}
	body := `{"pickup":"` + pickup + `","destination":"Markt 17,60311,Frankfurt a.M."}`
	rr := do(r, http.MethodPost, "/api/dispatch", body, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestFare(t *testing.T) {
	r, _ := newTestRouter(t, nil, "")

	rr := do(r, http.MethodGet, "/api/fare?km=20", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var q map[string]float64
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &q))
	assert.InDelta(t, 42.25, q["fare_eur"], 1e-9)

	for _, km := range []string{"-1", "abc", "NaN", "Inf", "-Inf"} {
		assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/fare?km="+km, "", nil).Code, km)
	}
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/fare", "", nil).Code)
}

func TestTrips(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	store := &memStore{}
	for i, vid := range []int{1, 2, 1} {
		s := start.Add(time.Duration(i) * time.Hour)
		require.NoError(t, store.Append(context.Background(), triplog.Entry{
			Timestamp: s,
			Record:    model.TripRecord{VehicleID: vid, DriverID: 100 + vid, Start: s, End: s.Add(10 * time.Minute)},
		}))
	}
	r, _ := newTestRouter(t, store, "secret")
	auth := map[string]string{"Authorization": "Bearer secret"}

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/trips", "", nil).Code)

	rr := do(r, http.MethodGet, "/api/trips?vehicle_id=1", "", auth)
	require.Equal(t, http.StatusOK, rr.Code)
	var got []triplog.Entry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Len(t, got, 2)

	target := "/api/trips?start=" + url.QueryEscape(start.Add(30*time.Minute).Format(time.RFC3339))
	rr = do(r, http.MethodGet, target, "", auth)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Len(t, got, 2)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/trips?start=yesterday", "", auth).Code)
}

func TestTrips_EmptyStore(t *testing.T) {
	r, _ := newTestRouter(t, nil, "")
	rr := do(r, http.MethodGet, "/api/trips", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", rr.Body.String())
}
