package keystore

import (
	"fmt"
	"io"
	"time"

	"github.com/kilianp07/taxi/core/logger"
	"github.com/kilianp07/taxi/core/model"
)

// Adapter writes payloads to the key-store device.
type Adapter struct {
	ch          Channel
	timeout     time.Duration
	maxAttempts int
	driverID    int
	logger      logger.Logger
}

// NewAdapter creates an adapter on the channel.
func NewAdapter(ch Channel, cfg Config, log logger.Logger) (*Adapter, error) {
	if ch == nil {
		return nil, fmt.Errorf("keystore: nil parameter provided to NewAdapter")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Adapter{
		ch:          ch,
		timeout:     time.Duration(cfg.ResponseTimeoutMs) * time.Millisecond,
		maxAttempts: cfg.MaxAttempts,
		driverID:    cfg.DriverID,
		logger:      log,
	}, nil
}

// KeyPresent reports whether a key is inserted.
func (a *Adapter) KeyPresent() bool {
	if !a.ch.IsOpen() {
		return false
	}
	if kd, ok := a.ch.(KeyDetector); ok {
		return kd.KeyPresent()
	}
	return true
}

// DriverID returns the driver number of the inserted key, or the configured
// fallback when the channel cannot read one.
func (a *Adapter) DriverID() (int, error) {
	if !a.KeyPresent() {
		return 0, fmt.Errorf("keystore: no key: %w", model.ErrCommunication)
	}
	if ir, ok := a.ch.(IdentityReader); ok {
		id, err := ir.DriverID()
		if err != nil {
			return 0, fmt.Errorf("keystore: read identity: %w: %v", model.ErrCommunication, err)
		}
		return id, nil
	}
	if a.driverID == 0 {
		return 0, fmt.Errorf("keystore: key carries no driver id and none is configured: %w", model.ErrInvalidInput)
	}
	return a.driverID, nil
}

// Write stores the payload and returns the outcome class. Payload bytes go
// out verbatim, except that a payload containing DLE ETX cannot be framed:
// the device would end the frame there. Such payloads are refused with
// CommunicationError before any byte is sent. Trip records never contain
// control bytes.
func (a *Adapter) Write(payload []byte) Result {
	return a.Exchange(payload).Result
}

// WriteRecord stores the export form of the trip record.
func (a *Adapter) WriteRecord(r model.TripRecord) Outcome {
	return a.Exchange(r.Bytes())
}

// Exchange runs the handshake for payload. It returns CommunicationError
// without sending anything when the payload is empty, the channel is closed
// or no key is present.
func (a *Adapter) Exchange(payload []byte) Outcome {
	if len(payload) == 0 {
		a.warnf("refusing empty payload")
		return Outcome{Result: CommunicationError}
	}
	if !a.KeyPresent() {
		a.warnf("channel closed or key absent")
		return Outcome{Result: CommunicationError}
	}
	frame, err := DataFrame{Payload: payload}.MarshalBinary()
	if err != nil {
		a.warnf("framing payload: %v", err)
		return Outcome{Result: CommunicationError}
	}
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		res, done := a.attempt(frame)
		if done {
			a.debugw("key-store exchange finished", map[string]any{
				"result":   res.String(),
				"attempts": attempt,
				"bytes":    len(payload),
			})
			return Outcome{Result: res, Attempts: attempt}
		}
		a.debugw("key-store attempt failed", map[string]any{"attempt": attempt})
	}
	a.warnf("key-store unreachable after %d attempts", a.maxAttempts)
	return Outcome{Result: CommunicationError, Attempts: a.maxAttempts}
}

// attempt runs one START / response / frame / response exchange. done is
// false when the exchange must be retried.
func (a *Adapter) attempt(frame []byte) (Result, bool) {
	if err := a.send([]byte{ControlStart}); err != nil {
		return a.fail(attemptWriteError)
	}
	b, ok := a.ch.ReceiveByte(a.timeout)
	if !ok {
		return a.fail(attemptTimeout)
	}
	switch b {
	case ControlCapacityFull:
		keystoreAttempts.WithLabelValues(attemptCapacityFull).Inc()
		return CapacityFull, true
	case ControlAck:
	case ControlRetry:
		return a.fail(attemptRetry)
	default:
		return a.fail(attemptUnexpected)
	}

	if err := a.send(frame); err != nil {
		return a.fail(attemptWriteError)
	}
	b, ok = a.ch.ReceiveByte(a.timeout)
	if !ok {
		return a.fail(attemptTimeout)
	}
	switch b {
	case ControlAck:
		keystoreAttempts.WithLabelValues(attemptStored).Inc()
		return Success, true
	case ControlCapacityFull:
		keystoreAttempts.WithLabelValues(attemptCapacityFull).Inc()
		return CapacityFull, true
	case ControlRetry:
		return a.fail(attemptRetry)
	default:
		return a.fail(attemptUnexpected)
	}
}

func (a *Adapter) fail(label string) (Result, bool) {
	keystoreAttempts.WithLabelValues(label).Inc()
	return CommunicationError, false
}

func (a *Adapter) send(p []byte) error {
	n, err := a.ch.Write(p)
	if err != nil {
		a.warnf("key-store write: %v", err)
		return err
	}
	if n < len(p) {
		a.warnf("key-store short write: %d of %d bytes", n, len(p))
		return io.ErrShortWrite
	}
	return nil
}

func (a *Adapter) warnf(format string, args ...any) {
	if a.logger != nil {
		a.logger.Warnf(format, args...)
	}
}

func (a *Adapter) debugw(msg string, fields map[string]any) {
	if a.logger != nil {
		a.logger.Debugw(msg, fields)
	}
}
