package keystore

import "github.com/prometheus/client_golang/prometheus"

// Attempt results used as metric labels.
const (
	attemptStored       = "stored"
	attemptCapacityFull = "capacity_full"
	attemptRetry        = "retry"
	attemptTimeout      = "timeout"
	attemptWriteError   = "write_error"
	attemptUnexpected   = "unexpected"
)

var keystoreAttempts *prometheus.CounterVec

func newCollectors() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taxi_keystore_attempts_total",
			Help: "Key-store exchange attempts by result",
		},
		[]string{"result"},
	)
}

func init() {
	keystoreAttempts = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers key-store metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(keystoreAttempts)
}

// ResetMetrics reinitializes the collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	keystoreAttempts = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
