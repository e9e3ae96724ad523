package dispatch

import "fmt"

// Dispatch modes select how drivers are asked for a candidate vehicle.
const (
	// ModePaired asks only the driver paired with the vehicle.
	ModePaired = "paired"
	// ModeRoster walks the driver roster, skipping drivers operating another vehicle.
	ModeRoster = "roster"
)

// Negotiator kinds.
const (
	NegotiatorPolicy = "policy"
	NegotiatorMQTT   = "mqtt"
)

// DefaultMaxCandidates bounds the ranked candidate list.
const DefaultMaxCandidates = 5

// Config defines dispatch-related settings.
type Config struct {
	MaxCandidates       int    `json:"max_candidates"`
	Mode                string `json:"mode"`
	Negotiator          string `json:"negotiator"`
	OfferTimeoutSeconds int    `json:"offer_timeout_seconds"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = DefaultMaxCandidates
	}
	if c.Mode == "" {
		c.Mode = ModePaired
	}
	if c.Negotiator == "" {
		c.Negotiator = NegotiatorPolicy
	}
	if c.OfferTimeoutSeconds <= 0 {
		c.OfferTimeoutSeconds = 10
	}
}

// Validate checks the enumerated fields.
func (c Config) Validate() error {
	switch c.Mode {
	case ModePaired, ModeRoster:
	default:
		return fmt.Errorf("dispatch: unknown mode %q", c.Mode)
	}
	switch c.Negotiator {
	case NegotiatorPolicy, NegotiatorMQTT:
	default:
		return fmt.Errorf("dispatch: unknown negotiator %q", c.Negotiator)
	}
	if c.MaxCandidates < 0 || c.OfferTimeoutSeconds < 0 {
		return fmt.Errorf("dispatch: negative limits")
	}
	if c.MaxCandidates > DefaultMaxCandidates {
		return fmt.Errorf("dispatch: max_candidates %d exceeds %d", c.MaxCandidates, DefaultMaxCandidates)
	}
	return nil
}
