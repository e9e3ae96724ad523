package main

import (
	"fmt"
	"time"
)

// Reply strategies.
const (
	StrategyAuto  = "auto"
	StrategyFlaky = "flaky"
)

// Config holds parameters for the simulator.
type Config struct {
	Listen   string
	Capacity int
	Strategy string
	Delay    time.Duration
	DropRate float64
	NakRate  float64
	Seed     int64
	DumpFile string
	Verbose  bool

	// Broker enables the driver terminal emulator when set.
	Broker          string
	MaxTripDistance int
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.Capacity < 0 {
		return fmt.Errorf("capacity must be >= 0")
	}
	switch c.Strategy {
	case StrategyAuto, StrategyFlaky:
	default:
		return fmt.Errorf("unknown strategy %q", c.Strategy)
	}
	if c.DropRate < 0 || c.DropRate > 1 || c.NakRate < 0 || c.NakRate > 1 {
		return fmt.Errorf("rates must be between 0 and 1")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay must be >= 0")
	}
	if c.MaxTripDistance < 0 {
		return fmt.Errorf("max trip distance must be >= 0")
	}
	return nil
}

// ReplyStrategy builds the configured strategy.
func (c Config) ReplyStrategy() ReplyStrategy {
	if c.Strategy == StrategyFlaky {
		return NewFlakyReply(c.Delay, c.DropRate, c.NakRate, c.Seed)
	}
	return AutoReply{Delay: c.Delay}
}
