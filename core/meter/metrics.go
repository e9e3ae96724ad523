package meter

import "github.com/prometheus/client_golang/prometheus"

var (
	tripsCompleted *prometheus.CounterVec
	tripFare       prometheus.Histogram
)

func newCollectors() (*prometheus.CounterVec, prometheus.Histogram) {
	trips := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taxi_trips_completed_total",
			Help: "Completed trips by key-store outcome",
		},
		[]string{"keystore_result"},
	)
	fare := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "taxi_trip_fare_eur",
			Help:    "Fare of completed trips in EUR",
			Buckets: []float64{5, 10, 20, 35, 50, 75, 100, 150},
		},
	)
	return trips, fare
}

func init() {
	tripsCompleted, tripFare = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers meter metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(tripsCompleted, tripFare)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	tripsCompleted, tripFare = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
