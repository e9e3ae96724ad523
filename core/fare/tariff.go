// Package fare computes tiered taxi fares.
package fare

import (
	"fmt"

	"github.com/kilianp07/taxi/core/model"
)

// Tariff describes a two tier distance tariff.
type Tariff struct {
	BaseFare    float64 `json:"base_fare"`
	Rate1       float64 `json:"rate1"`
	Rate2       float64 `json:"rate2"`
	ThresholdKm float64 `json:"threshold_km"`
}

// Default returns the city tariff: 3.50 EUR base, 2.00 EUR/km up to 15 km and
// 1.75 EUR/km beyond.
func Default() Tariff {
	return Tariff{BaseFare: 3.5, Rate1: 2.0, Rate2: 1.75, ThresholdKm: 15}
}

// SetDefaults fills zero fields from Default.
func (t *Tariff) SetDefaults() {
	d := Default()
	if t.BaseFare == 0 {
		t.BaseFare = d.BaseFare
	}
	if t.Rate1 == 0 {
		t.Rate1 = d.Rate1
	}
	if t.Rate2 == 0 {
		t.Rate2 = d.Rate2
	}
	if t.ThresholdKm == 0 {
		t.ThresholdKm = d.ThresholdKm
	}
}

// Validate rejects negative tariff components.
func (t Tariff) Validate() error {
	if t.BaseFare < 0 || t.Rate1 < 0 || t.Rate2 < 0 || t.ThresholdKm < 0 {
		return fmt.Errorf("%w: tariff values must not be negative", model.ErrInvalidInput)
	}
	return nil
}

// Price returns the fare for the given distance. Distances at or below zero
// cost the base fare.
func (t Tariff) Price(distanceKm float64) float64 {
	if distanceKm <= 0 {
		return t.BaseFare
	}
	if distanceKm <= t.ThresholdKm {
		return t.BaseFare + distanceKm*t.Rate1
	}
	return t.BaseFare + t.ThresholdKm*t.Rate1 + (distanceKm-t.ThresholdKm)*t.Rate2
}

// Price uses the Default tariff.
func Price(distanceKm float64) float64 { return Default().Price(distanceKm) }
