package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/taxi/core/metrics"
	"github.com/kilianp07/taxi/core/model"
)

// PromSink records per-vehicle dispatch, trip and key-store figures in
// Prometheus metrics. Fleet wide counters live next to the engine, the key
// store adapter and the meter.
type PromSink struct {
	assignments *prometheus.CounterVec
	offers      *prometheus.CounterVec
	tripKm      prometheus.Histogram
	keystore    *prometheus.CounterVec
	status      *prometheus.GaugeVec
}

// NewPromSink registers the sink metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusAddr.
func NewPromSink(cfg coremetrics.Config) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taxi_vehicle_assignments_total",
		Help: "Orders assigned per vehicle",
	}, []string{"vehicle_id"})
	offers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taxi_driver_offers_total",
		Help: "Orders offered per driver and answer",
	}, []string{"driver_id", "accepted"})
	tripKm := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "taxi_trip_distance_km",
		Help:    "Distance of completed trips",
		Buckets: []float64{1, 2, 5, 10, 15, 20, 30, 50},
	})
	keystore := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taxi_keystore_writes_total",
		Help: "Trip records written to driver keys per vehicle and result",
	}, []string{"vehicle_id", "result"})
	status := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "taxi_vehicle_status",
		Help: "1 for the current status of each vehicle",
	}, []string{"vehicle_id", "status"})

	var err error
	if assignments, err = register(reg, assignments); err != nil {
		return nil, err
	}
	if offers, err = register(reg, offers); err != nil {
		return nil, err
	}
	if tripKm, err = register(reg, tripKm); err != nil {
		return nil, err
	}
	if keystore, err = register(reg, keystore); err != nil {
		return nil, err
	}
	if status, err = register(reg, status); err != nil {
		return nil, err
	}
	return &PromSink{
		assignments: assignments,
		offers:      offers,
		tripKm:      tripKm,
		keystore:    keystore,
		status:      status,
	}, nil
}

// register returns the already registered collector when one exists.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordDispatch counts assignments.
func (s *PromSink) RecordDispatch(ev coremetrics.DispatchEvent) error {
	if ev.VehicleID != 0 {
		s.assignments.WithLabelValues(strconv.Itoa(ev.VehicleID)).Inc()
	}
	return nil
}

// RecordOffer counts offer answers.
func (s *PromSink) RecordOffer(ev coremetrics.OfferEvent) error {
	s.offers.WithLabelValues(strconv.Itoa(ev.DriverID), strconv.FormatBool(ev.Accepted)).Inc()
	return nil
}

// RecordTrip observes the trip distance.
func (s *PromSink) RecordTrip(ev coremetrics.TripEvent) error {
	s.tripKm.Observe(ev.Record.DistanceKm)
	return nil
}

// RecordKeyStore counts key-store writes.
func (s *PromSink) RecordKeyStore(ev coremetrics.KeyStoreEvent) error {
	s.keystore.WithLabelValues(strconv.Itoa(ev.VehicleID), ev.Result).Inc()
	return nil
}

// RecordStateChange moves the status gauge of the vehicle.
func (s *PromSink) RecordStateChange(ev coremetrics.StateChangeEvent) error {
	id := strconv.Itoa(ev.VehicleID)
	for _, st := range []model.Status{
		model.StatusOutOfService,
		model.StatusFree,
		model.StatusEnRouteToCustomer,
		model.StatusEnRouteToDestination,
	} {
		v := 0.0
		if st.String() == ev.To {
			v = 1
		}
		s.status.WithLabelValues(id, st.String()).Set(v)
	}
	return nil
}
