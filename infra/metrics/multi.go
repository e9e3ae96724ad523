package metrics

import coremetrics "github.com/kilianp07/taxi/core/metrics"

// MultiSink fanouts events to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordDispatch forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordDispatch(ev coremetrics.DispatchEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordDispatch(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordOffer forwards offer answers.
func (m *MultiSink) RecordOffer(ev coremetrics.OfferEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.OfferRecorder); ok {
			if err := rec.RecordOffer(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordTrip forwards completed trips.
func (m *MultiSink) RecordTrip(ev coremetrics.TripEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.TripRecorder); ok {
			if err := rec.RecordTrip(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordKeyStore forwards key-store exchanges.
func (m *MultiSink) RecordKeyStore(ev coremetrics.KeyStoreEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.KeyStoreRecorder); ok {
			if err := rec.RecordKeyStore(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordStateChange forwards status transitions.
func (m *MultiSink) RecordStateChange(ev coremetrics.StateChangeEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.StateRecorder); ok {
			if err := rec.RecordStateChange(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close releases every sink holding a connection.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
