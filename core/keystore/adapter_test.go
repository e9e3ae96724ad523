package keystore

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/taxi/core/model"
	"github.com/kilianp07/taxi/infra/logger"
)

var payload = []byte("1;101;Bahnhofsplatz 1,60314,Frankfurt a.M.;Markt 17,60311,Frankfurt a.M.;01.03.2024 10:00;01.03.2024 10:20;10.00;23.50")

func newAdapter(t *testing.T, ch Channel) *Adapter {
	t.Helper()
	a, err := NewAdapter(ch, Config{ResponseTimeoutMs: 1}, logger.NopLogger{})
	require.NoError(t, err)
	return a
}

func frame(t *testing.T) []byte {
	t.Helper()
	b, err := DataFrame{Payload: payload}.MarshalBinary()
	require.NoError(t, err)
	return b
}

func TestAdapterWrite(t *testing.T) {
	tests := []struct {
		name      string
		script    []Step
		want      Result
		attempts  int
		writes    int
		remaining int
	}{
		{"ack ack", Responses(ControlAck, ControlAck), Success, 1, 2, 0},
		{"capacity full on start", Responses(ControlCapacityFull, ControlAck, ControlAck), CapacityFull, 1, 1, 2},
		{"retry then ack", Responses(ControlRetry, ControlAck, ControlAck), Success, 2, 3, 0},
		{"retry after frame", Responses(ControlAck, ControlRetry, ControlAck, ControlAck), Success, 2, 4, 0},
		{"capacity full after frame", Responses(ControlAck, ControlCapacityFull), CapacityFull, 1, 2, 0},
		{"unexpected byte", Responses(0x7f, ControlAck, ControlAck), Success, 2, 3, 0},
		{"silent then ack", []Step{Silence(), Respond(ControlAck), Respond(ControlAck)}, Success, 2, 3, 0},
		{"lost final ack", []Step{Respond(ControlAck), Silence(), Respond(ControlAck), Respond(ControlAck)}, Success, 2, 4, 0},
		{"no response", nil, CommunicationError, MaxAttempts, MaxAttempts, 0},
		{"exhausted", []Step{Silence(), Silence(), Silence(), Respond(ControlAck), Respond(ControlAck)}, CommunicationError, 3, 3, 2},
		{"always retry", Responses(ControlRetry, ControlRetry, ControlRetry, ControlAck), CommunicationError, 3, 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := NewScriptedChannel(tt.script...)
			out := newAdapter(t, ch).Exchange(payload)
			assert.Equal(t, tt.want, out.Result)
			assert.Equal(t, tt.attempts, out.Attempts)
			assert.Len(t, ch.Writes(), tt.writes)
			assert.Equal(t, tt.remaining, ch.Remaining())
		})
	}
}

func TestAdapterWriteBytesOnWire(t *testing.T) {
	ch := NewScriptedChannel(Responses(ControlAck, ControlAck)...)
	require.Equal(t, Success, newAdapter(t, ch).Write(payload))

	want := append([]byte{ControlStart}, frame(t)...)
	assert.Equal(t, want, ch.Sent())
	w := ch.Writes()
	assert.Equal(t, []byte{ControlStart}, w[0])
	assert.Equal(t, Checksum(payload), w[1][len(w[1])-1])
}

func TestAdapterPreconditions(t *testing.T) {
	closed := NewScriptedChannel(Responses(ControlAck, ControlAck)...)
	closed.SetOpen(false)
	assert.Equal(t, CommunicationError, newAdapter(t, closed).Write(payload))
	assert.Empty(t, closed.Sent())

	noKey := NewScriptedChannel(Responses(ControlAck, ControlAck)...)
	noKey.SetKey(false)
	assert.Equal(t, CommunicationError, newAdapter(t, noKey).Write(payload))
	assert.Empty(t, noKey.Sent())

	ch := NewScriptedChannel(Responses(ControlAck, ControlAck)...)
	a := newAdapter(t, ch)
	assert.Equal(t, CommunicationError, a.Write(nil))
	assert.Equal(t, CommunicationError, a.Write([]byte{}))
	assert.Equal(t, CommunicationError, a.Write([]byte{'x', ControlAck, ControlEnd}))
	assert.Empty(t, ch.Sent())
	assert.Equal(t, 2, ch.Remaining())
}

type failingChannel struct {
	writes int
}

func (f *failingChannel) IsOpen() bool { return true }
func (f *failingChannel) Write(p []byte) (int, error) {
	f.writes++
	return 0, errors.New("broken pipe")
}
func (f *failingChannel) ReceiveByte(time.Duration) (byte, bool) { return ControlAck, true }

type shortChannel struct{ failingChannel }

func (s *shortChannel) Write(p []byte) (int, error) {
	s.writes++
	return len(p) - 1, nil
}

func TestAdapterWriteErrorsCountAsAttempts(t *testing.T) {
	ch := &failingChannel{}
	out := newAdapter(t, ch).Exchange(payload)
	assert.Equal(t, CommunicationError, out.Result)
	assert.Equal(t, MaxAttempts, out.Attempts)
	assert.Equal(t, MaxAttempts, ch.writes)

	short := &shortChannel{}
	out = newAdapter(t, short).Exchange(payload)
	assert.Equal(t, CommunicationError, out.Result)
}

func TestAdapterConfig(t *testing.T) {
	_, err := NewAdapter(nil, Config{}, nil)
	assert.Error(t, err)
	_, err = NewAdapter(NewScriptedChannel(), Config{MaxAttempts: 4}, nil)
	assert.Error(t, err)

	ch := NewScriptedChannel()
	a, err := NewAdapter(ch, Config{MaxAttempts: 1, ResponseTimeoutMs: 1}, nil)
	require.NoError(t, err)
	out := a.Exchange(payload)
	assert.Equal(t, 1, out.Attempts)
	assert.Len(t, ch.Writes(), 1)
}

func TestAdapterIdentity(t *testing.T) {
	ch := NewScriptedChannel()
	ch.SetDriverID(103)
	a := newAdapter(t, ch)
	assert.True(t, a.KeyPresent())
	id, err := a.DriverID()
	require.NoError(t, err)
	assert.Equal(t, 103, id)

	ch.SetDriverID(0)
	_, err = a.DriverID()
	assert.ErrorIs(t, err, model.ErrCommunication)

	ch.SetKey(false)
	assert.False(t, a.KeyPresent())
	_, err = a.DriverID()
	assert.ErrorIs(t, err, model.ErrCommunication)
}

type plainChannel struct{ open bool }

func (p *plainChannel) IsOpen() bool                           { return p.open }
func (p *plainChannel) Write(b []byte) (int, error)            { return len(b), nil }
func (p *plainChannel) ReceiveByte(time.Duration) (byte, bool) { return 0, false }

func TestAdapterIdentityFallback(t *testing.T) {
	ch := &plainChannel{open: true}
	a, err := NewAdapter(ch, Config{DriverID: 104}, nil)
	require.NoError(t, err)
	assert.True(t, a.KeyPresent())
	id, err := a.DriverID()
	require.NoError(t, err)
	assert.Equal(t, 104, id)

	ch.open = false
	assert.False(t, a.KeyPresent())

	ch.open = true
	a, err = NewAdapter(ch, Config{}, nil)
	require.NoError(t, err)
	_, err = a.DriverID()
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestResultErr(t *testing.T) {
	assert.NoError(t, Success.Err())
	assert.ErrorIs(t, CapacityFull.Err(), model.ErrNoCapacity)
	assert.ErrorIs(t, CommunicationError.Err(), model.ErrCommunication)
	assert.NotErrorIs(t, CapacityFull.Err(), model.ErrCommunication)
	assert.Equal(t, "SUCCESS", Success.String())
	assert.Equal(t, "CAPACITY_FULL", CapacityFull.String())
	assert.Equal(t, "COMMUNICATION_ERROR", CommunicationError.String())
}

func TestAdapterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	ResetMetrics(reg)
	t.Cleanup(func() { ResetMetrics(nil) })

	ch := NewScriptedChannel(Responses(ControlRetry, ControlAck, ControlAck)...)
	require.Equal(t, Success, newAdapter(t, ch).Write(payload))
	assert.Equal(t, 1.0, testutil.ToFloat64(keystoreAttempts.WithLabelValues(attemptRetry)))
	assert.Equal(t, 1.0, testutil.ToFloat64(keystoreAttempts.WithLabelValues(attemptStored)))
}
