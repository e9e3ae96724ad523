package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/taxi/core/metrics"
)

// NewSinkFromConfig builds the sinks listed in cfg.Sinks. Several sinks are
// combined in a MultiSink; an empty list yields a NopSink.
func NewSinkFromConfig(cfg coremetrics.Config, reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	var sinks []coremetrics.MetricsSink
	for _, name := range cfg.Sinks {
		switch name {
		case "nop", "":
		case "prometheus":
			s, err := NewPromSinkWithRegistry(cfg, reg)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, s)
		case "influx":
			sinks = append(sinks, NewInfluxSinkWithFallback(cfg.Influx))
		default:
			return nil, fmt.Errorf("metrics: unknown sink %q", name)
		}
	}
	switch len(sinks) {
	case 0:
		return coremetrics.NopSink{}, nil
	case 1:
		return sinks[0], nil
	default:
		return NewMultiSink(sinks...), nil
	}
}
