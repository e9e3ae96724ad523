package metrics

// Config defines settings for metrics sinks. Sinks lists the enabled sink
// types: "prometheus", "influx" or "nop".
type Config struct {
	Sinks          []string     `json:"sinks"`
	PrometheusAddr string       `json:"prometheus_addr"`
	Influx         InfluxConfig `json:"influx"`
}

// InfluxConfig holds connection settings for the InfluxDB sink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// Enabled reports whether the given sink type is listed.
func (c Config) Enabled(sink string) bool {
	for _, s := range c.Sinks {
		if s == sink {
			return true
		}
	}
	return false
}
