package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/kilianp07/taxi/config"
	"github.com/kilianp07/taxi/core/keystore"
	"github.com/kilianp07/taxi/core/meter"
	"github.com/kilianp07/taxi/infra/logger"
	"github.com/kilianp07/taxi/infra/serial"
)

// Bench is a meter wired to a key-store channel for one vehicle.
type Bench struct {
	Meter  *meter.Meter
	Keys   *keystore.Adapter
	Device *keystore.Device

	closers []io.Closer
}

// NewBench builds the meter of cfg.Meter.VehicleID. Receipts go to out
// unless a receipt path is configured. Without a key-store address an
// in-memory device holds the key of the vehicle's paired driver.
func (s *Service) NewBench(ctx context.Context, out io.Writer) (*Bench, error) {
	cfg := s.cfg
	b := &Bench{}
	ch, err := b.channel(ctx, s, cfg)
	if err != nil {
		return nil, err
	}
	keys, err := keystore.NewAdapter(ch, cfg.KeyStore, logger.New("keystore"))
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	if cfg.Meter.ReceiptPath != "" {
		f, err := os.OpenFile(cfg.Meter.ReceiptPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("receipt file: %w", err)
		}
		b.closers = append(b.closers, f)
		out = f
	}
	m, err := meter.New(cfg.Meter.VehicleID, s.Fleet, keys,
		meter.WithTariff(cfg.Tariff),
		meter.WithSensors(meter.FixedTripSensors{TripKm: cfg.Meter.TripKm}),
		meter.WithPrinter(meter.WriterPrinter{W: out}),
		meter.WithTripLog(s.Trips),
		meter.WithMetrics(s.Sink),
		meter.WithBus(s.Bus),
		meter.WithLogger(logger.New("meter")),
	)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.Meter = m
	b.Keys = keys
	return b, nil
}

func (b *Bench) channel(ctx context.Context, s *Service, cfg *config.Config) (keystore.Channel, error) {
	if cfg.KeyStore.Addr != "" {
		ch, err := serial.Dial(ctx, cfg.KeyStore.Addr, logger.New("serial"))
		if err != nil {
			return nil, fmt.Errorf("keystore bridge: %w", err)
		}
		b.closers = append(b.closers, ch)
		return ch, nil
	}
	driverID := cfg.KeyStore.DriverID
	if driverID == 0 {
		if d, ok := s.Fleet.DriverFor(cfg.Meter.VehicleID); ok {
			driverID = d.ID
		}
	}
	b.Device = keystore.NewDevice(0)
	return keystore.NewMemoryChannel(b.Device, driverID), nil
}

// Close releases the channel and receipt file.
func (b *Bench) Close() error {
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	b.closers = nil
	return first
}
