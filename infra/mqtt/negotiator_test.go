package mqtt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/taxi/core/dispatch"
	"github.com/kilianp07/taxi/core/fleet"
	"github.com/kilianp07/taxi/core/model"
	coremqtt "github.com/kilianp07/taxi/core/mqtt"
	"github.com/kilianp07/taxi/infra/logger"
)

func TestNegotiatorNil(t *testing.T) {
	_, err := NewNegotiator(nil, 0)
	assert.Error(t, err)
}

func TestNegotiatorOffer(t *testing.T) {
	pub := NewMockPublisher()
	pub.Answers[101] = true
	n, err := NewNegotiator(pub, time.Millisecond)
	require.NoError(t, err)

	ok, err := n.Offer(context.Background(), dispatch.Offer{
		OrderID:        "o1",
		VehicleID:      1,
		Driver:         model.Driver{ID: 101},
		Pickup:         model.MustParseAddress("Bahnhofsplatz 1,60314,Frankfurt a.M."),
		Destination:    model.MustParseAddress("Markt 17,60311,Frankfurt a.M."),
		PickupDistance: 2840,
		TripDistance:   8760,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	sent := pub.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, 101, sent[0].DriverID)
	assert.Equal(t, "Bahnhofsplatz 1,60314,Frankfurt a.M.", sent[0].Pickup)
	assert.Equal(t, 8760, sent[0].TripDistance)
	assert.Equal(t, 2840, sent[0].PickupCost)
	assert.NotEmpty(t, sent[0].ID)
}

func TestNegotiatorTimeoutIsRefusal(t *testing.T) {
	pub := NewMockPublisher()
	pub.Silent[102] = true
	n, err := NewNegotiator(pub, time.Millisecond)
	require.NoError(t, err)
	ok, err := n.Offer(context.Background(), dispatch.Offer{Driver: model.Driver{ID: 102}})
	assert.False(t, ok)
	assert.True(t, errors.Is(err, coremqtt.ErrAnswerTimeout))
}

func TestNegotiatorCanceled(t *testing.T) {
	pub := NewMockPublisher()
	n, err := NewNegotiator(pub, time.Second)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err := n.Offer(ctx, dispatch.Offer{Driver: model.Driver{ID: 101}})
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, pub.Sent())
}

func TestNegotiatorDeadlineDuringWait(t *testing.T) {
	pub := NewMockPublisher()
	pub.Silent[103] = true
	n, err := NewNegotiator(pub, time.Minute)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	start := time.Now()
	ok, err := n.Offer(ctx, dispatch.Offer{Driver: model.Driver{ID: 103}})
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
	require.Len(t, pub.Sent(), 1)
	pub.mu.Lock()
	assert.Empty(t, pub.results)
	pub.mu.Unlock()
}

func TestEngineWithMQTTNegotiator(t *testing.T) {
	dir, err := fleet.Sample()
	require.NoError(t, err)
	pub := NewMockPublisher()
	pub.Answers[106] = true
	pub.FailIDs[105] = true
	n, err := NewNegotiator(pub, time.Millisecond)
	require.NoError(t, err)
	e, err := dispatch.NewEngine(dir, n, dispatch.Config{Negotiator: dispatch.NegotiatorMQTT}, nil, nil, logger.NopLogger{})
	require.NoError(t, err)

	pickup := model.MustParseAddress("Bahnhofsplatz 1,60314,Frankfurt a.M.")
	dest := model.MustParseAddress("Markt 17,60311,Frankfurt a.M.")
	asn, err := e.Dispatch(context.Background(), &pickup, &dest)
	require.NoError(t, err)
	assert.Equal(t, 6, asn.Vehicle.ID)
	assert.Equal(t, 106, asn.Driver.ID)
	v, _ := dir.Vehicle(5)
	assert.Equal(t, model.StatusFree, v.Status)
}
