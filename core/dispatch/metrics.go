package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	dispatchRequests   *prometheus.CounterVec
	dispatchCandidates prometheus.Histogram
	offerLatency       *prometheus.HistogramVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, prometheus.Histogram, *prometheus.HistogramVec) {
	req := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taxi_dispatch_requests_total",
			Help: "Number of dispatch requests by outcome",
		},
		[]string{"outcome"},
	)
	cand := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "taxi_dispatch_candidates",
			Help:    "Number of ranked candidates per dispatch request",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
	)
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taxi_offer_latency_seconds",
			Help:    "Latency between offering an order and the driver's answer",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"accepted"},
	)
	return req, cand, lat
}

func init() {
	dispatchRequests, dispatchCandidates, offerLatency = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(dispatchRequests, dispatchCandidates, offerLatency)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	dispatchRequests, dispatchCandidates, offerLatency = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
