package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	coremqtt "github.com/kilianp07/taxi/core/mqtt"
)

// Client mirrors the core mqtt.Client interface.
type Client = coremqtt.Client

// MockPublisher is an in-memory offer client used in tests and offline runs.
// Drivers answer with Answers[driverID]; drivers missing from Answers refuse.
// Drivers in Silent never answer.
type MockPublisher struct {
	Offers  []coremqtt.Offer
	Answers map[int]bool
	FailIDs map[int]bool
	Silent  map[int]bool
	mu      sync.Mutex
	results map[string]int
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		Answers: make(map[int]bool),
		FailIDs: make(map[int]bool),
		Silent:  make(map[int]bool),
		results: make(map[string]int),
	}
}

// SendOffer records the offer or returns an error if configured to fail.
func (m *MockPublisher) SendOffer(o coremqtt.Offer) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[o.DriverID] {
		return "", fmt.Errorf("publish failed")
	}
	if o.ID == "" {
		o.ID = fmt.Sprintf("offer-%s-%d", o.OrderID, o.DriverID)
	}
	m.Offers = append(m.Offers, o)
	m.results[o.ID] = o.DriverID
	return o.ID, nil
}

// WaitForAnswer answers immediately from Answers, or times out for silent drivers.
func (m *MockPublisher) WaitForAnswer(ctx context.Context, offerID string, timeout time.Duration) (bool, error) {
	m.mu.Lock()
	driverID, exists := m.results[offerID]
	silent := m.Silent[driverID]
	accepted := m.Answers[driverID]
	delete(m.results, offerID)
	m.mu.Unlock()
	if !exists {
		return false, fmt.Errorf("unknown offer %s", offerID)
	}
	if silent {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-timer.C:
			return false, fmt.Errorf("%w", coremqtt.ErrAnswerTimeout)
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return accepted, nil
}

// Sent returns a copy of the recorded offers.
func (m *MockPublisher) Sent() []coremqtt.Offer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]coremqtt.Offer(nil), m.Offers...)
}
