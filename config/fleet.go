package config

import (
	"fmt"

	"github.com/kilianp07/taxi/core/fleet"
	"github.com/kilianp07/taxi/core/model"
)

// FleetConfig declares the roster. When both lists are empty the bench fleet
// is used unless Sample is explicitly false.
type FleetConfig struct {
	Sample   *bool           `json:"sample"`
	Drivers  []DriverConfig  `json:"drivers"`
	Vehicles []VehicleConfig `json:"vehicles"`
}

// DriverConfig declares one driver.
type DriverConfig struct {
	ID              int    `json:"id"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	MaxTripDistance int    `json:"max_trip_distance"`
}

// VehicleConfig declares one vehicle. Location uses the street,postalCode,city
// text form; empty means no position fix.
type VehicleConfig struct {
	ID         int     `json:"id"`
	OdometerKm float64 `json:"odometer_km"`
	Status     string  `json:"status"`
	Location   string  `json:"location"`
	DriverID   int     `json:"driver_id"`
}

// SetDefaults enables the bench fleet for an empty roster.
func (c *FleetConfig) SetDefaults() {
	if c.Sample == nil {
		sample := len(c.Drivers) == 0 && len(c.Vehicles) == 0
		c.Sample = &sample
	}
}

// UseSample reports whether the bench fleet is loaded.
func (c FleetConfig) UseSample() bool { return c.Sample != nil && *c.Sample }

// Validate checks the declared entries.
func (c FleetConfig) Validate() error {
	for _, d := range c.Drivers {
		if err := d.driver().Validate(); err != nil {
			return err
		}
	}
	for _, v := range c.Vehicles {
		if _, err := v.vehicle(); err != nil {
			return err
		}
	}
	return nil
}

// Directory builds the fleet directory. Declared entries are added after the
// bench fleet when both are enabled.
func (c FleetConfig) Directory() (*fleet.Directory, error) {
	dir := fleet.NewDirectory()
	if c.UseSample() {
		var err error
		if dir, err = fleet.Sample(); err != nil {
			return nil, err
		}
	}
	for _, d := range c.Drivers {
		if err := dir.AddDriver(d.driver()); err != nil {
			return nil, fmt.Errorf("fleet: driver %d: %w", d.ID, err)
		}
	}
	for _, vc := range c.Vehicles {
		v, err := vc.vehicle()
		if err != nil {
			return nil, err
		}
		if err := dir.AddVehicle(v); err != nil {
			return nil, fmt.Errorf("fleet: vehicle %d: %w", vc.ID, err)
		}
	}
	return dir, nil
}

func (d DriverConfig) driver() model.Driver {
	return model.Driver{ID: d.ID, FirstName: d.FirstName, LastName: d.LastName, MaxTripDistance: d.MaxTripDistance}
}

func (v VehicleConfig) vehicle() (model.Vehicle, error) {
	st, err := model.ParseStatus(v.Status)
	if err != nil {
		return model.Vehicle{}, fmt.Errorf("fleet: vehicle %d: %w", v.ID, err)
	}
	out := model.Vehicle{ID: v.ID, Odometer: v.OdometerKm, Status: st, DriverID: v.DriverID}
	if v.Location != "" {
		loc, err := model.ParseAddress(v.Location)
		if err != nil {
			return model.Vehicle{}, fmt.Errorf("fleet: vehicle %d: %w", v.ID, err)
		}
		out.Location = &loc
	}
	if err := out.Validate(); err != nil {
		return model.Vehicle{}, err
	}
	return out, nil
}
