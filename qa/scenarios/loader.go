// Package scenarios replays dispatch scenarios declared in YAML against the
// dispatch engine.
package scenarios

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/taxi/config"
	"github.com/kilianp07/taxi/core/model"
)

// OrderDef is one order and the vehicle expected to take it. ExpectVehicle
// 0 means no vehicle is available.
type OrderDef struct {
	Pickup        string `json:"pickup"`
	Destination   string `json:"destination"`
	ExpectVehicle int    `json:"expect_vehicle"`
	ExpectDriver  int    `json:"expect_driver"`
}

// Addresses parses both endpoints.
func (o OrderDef) Addresses() (model.Address, model.Address, error) {
	p, err := model.ParseAddress(o.Pickup)
	if err != nil {
		return model.Address{}, model.Address{}, fmt.Errorf("pickup: %w", err)
	}
	d, err := model.ParseAddress(o.Destination)
	if err != nil {
		return model.Address{}, model.Address{}, fmt.Errorf("destination: %w", err)
	}
	return p, d, nil
}

// Expected holds totals checked after every order ran.
type Expected struct {
	Assigned int `json:"assigned"`
	Offers   int `json:"offers"`
}

// Scenario describes a fleet, how drivers answer and the orders to run.
// Negotiator "terminal" answers through an in-memory driver terminal where
// Refuse, Silent and FailPublish apply; "policy" uses the drivers' own
// acceptance rule.
type Scenario struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Fleet       config.FleetConfig `json:"fleet"`
	Mode        string             `json:"mode"`
	Negotiator  string             `json:"negotiator"`
	Refuse      []int              `json:"refuse"`
	Silent      []int              `json:"silent"`
	FailPublish []int              `json:"fail_publish"`
	Orders      []OrderDef         `json:"orders"`
	Expected    Expected           `json:"expected"`
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, err
	}
	var sc Scenario
	if err := k.UnmarshalWithConf("", &sc, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	sc.Fleet.SetDefaults()
	if err := sc.Fleet.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	return &sc, nil
}
