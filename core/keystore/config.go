package keystore

import "fmt"

// Config defines key-store settings.
type Config struct {
	// Addr is the host:port of the serial bridge; empty selects the in-memory device.
	Addr              string `json:"addr"`
	ResponseTimeoutMs int    `json:"response_timeout_ms"`
	MaxAttempts       int    `json:"max_attempts"`
	// DriverID is used when the channel cannot read the driver from the key.
	DriverID int `json:"driver_id"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.ResponseTimeoutMs <= 0 {
		c.ResponseTimeoutMs = 500
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = MaxAttempts
	}
}

// Validate checks the limits.
func (c Config) Validate() error {
	if c.MaxAttempts > MaxAttempts {
		return fmt.Errorf("keystore: max_attempts must not exceed %d", MaxAttempts)
	}
	if c.DriverID < 0 {
		return fmt.Errorf("keystore: driver_id must not be negative")
	}
	return nil
}
