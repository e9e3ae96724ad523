package dispatch

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/taxi/core/fleet"
)

func TestDispatchMetricsFollowOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	ResetMetrics(reg)
	t.Cleanup(func() { ResetMetrics(nil) })

	dir, err := fleet.Sample()
	require.NoError(t, err)
	e := newEngine(t, dir, nil, Config{})

	_, err = e.Dispatch(context.Background(), addr(t, pickupText), addr(t, destText))
	require.NoError(t, err)
	_, err = e.Dispatch(context.Background(), nil, addr(t, destText))
	require.ErrorIs(t, err, ErrInvalidOrder)

	assert.Equal(t, 1.0, testutil.ToFloat64(dispatchRequests.WithLabelValues(OutcomeAssigned)))
	assert.Equal(t, 1.0, testutil.ToFloat64(dispatchRequests.WithLabelValues(OutcomeInvalidOrder)))
	assert.Equal(t, 1, testutil.CollectAndCount(dispatchCandidates))

	names := map[string]bool{}
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	for _, n := range []string{"taxi_dispatch_requests_total", "taxi_dispatch_candidates", "taxi_offer_latency_seconds"} {
		assert.True(t, names[n], "metric %s not registered", n)
	}
}
