package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/taxi/core/dispatch"
	"github.com/kilianp07/taxi/core/fare"
	"github.com/kilianp07/taxi/core/keystore"
	"github.com/kilianp07/taxi/core/metrics"
	"github.com/kilianp07/taxi/infra/mqtt"
)

// EnvPrefix prefixes environment overrides. TAXI_DISPATCH__MAX_CANDIDATES
// sets dispatch.max_candidates.
const EnvPrefix = "TAXI_"

type Config struct {
	Fleet    FleetConfig     `json:"fleet"`
	Tariff   fare.Tariff     `json:"tariff"`
	Dispatch dispatch.Config `json:"dispatch"`
	KeyStore keystore.Config `json:"keystore"`
	Meter    MeterConfig     `json:"meter"`
	MQTT     mqtt.Config     `json:"mqtt"`
	Metrics  metrics.Config  `json:"metrics"`
	TripLog  TripLogConfig   `json:"triplog"`
	API      APIConfig       `json:"api"`
}

// Load reads the configuration file at path, applies environment overrides,
// fills defaults and validates every section. An empty path loads defaults
// and the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Fleet.SetDefaults()
	c.Tariff.SetDefaults()
	c.Dispatch.SetDefaults()
	c.KeyStore.SetDefaults()
	c.Meter.SetDefaults()
	c.TripLog.SetDefaults()
	c.API.SetDefaults()
	if c.Metrics.Enabled("prometheus") && c.Metrics.PrometheusAddr == "" {
		c.Metrics.PrometheusAddr = ":2112"
	}
	if c.Dispatch.Negotiator == dispatch.NegotiatorMQTT {
		c.MQTT.SetDefaults()
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Fleet.Validate(); err != nil {
		return err
	}
	if err := c.Tariff.Validate(); err != nil {
		return err
	}
	if err := c.Dispatch.Validate(); err != nil {
		return err
	}
	if err := c.KeyStore.Validate(); err != nil {
		return err
	}
	if err := c.TripLog.Validate(); err != nil {
		return err
	}
	if c.Dispatch.Negotiator == dispatch.NegotiatorMQTT {
		if err := c.MQTT.Validate(); err != nil {
			return err
		}
	}
	return nil
}
