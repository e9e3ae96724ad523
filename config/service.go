package config

// APIConfig defines the HTTP API listener.
type APIConfig struct {
	Addr string `json:"addr"`
	// Token protects /api/trips with a bearer token when set.
	Token string `json:"token"`
}

// SetDefaults applies the default listen address.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

// MeterConfig defines the bench meter of one vehicle.
type MeterConfig struct {
	VehicleID int `json:"vehicle_id"`
	// TripKm is the odometer advance per trip reported by the bench sensors.
	TripKm float64 `json:"trip_km"`
	// ReceiptPath receives printed receipts; empty prints to stdout.
	ReceiptPath string `json:"receipt_path"`
}

// SetDefaults applies bench defaults.
func (c *MeterConfig) SetDefaults() {
	if c.VehicleID <= 0 {
		c.VehicleID = 1
	}
	if c.TripKm <= 0 {
		c.TripKm = 10
	}
}
