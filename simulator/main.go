// Command simulator emulates the key-store device on a TCP port and,
// optionally, the driver terminals on the MQTT broker.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/taxi/core/model"
	coremqtt "github.com/kilianp07/taxi/core/mqtt"
	"github.com/kilianp07/taxi/infra/logger"
	"github.com/kilianp07/taxi/infra/mqtt"
)

func main() {
	cfg := parseFlags()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	var logg logger.Logger = logger.NopLogger{}
	if cfg.Verbose {
		logg = logger.New("simulator")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	srv := NewDeviceServer(cfg.Capacity, cfg.ReplyStrategy(), logg)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(ctx, ln) })
	if cfg.Broker != "" {
		term, err := mqtt.NewTerminal(mqtt.Config{Broker: cfg.Broker, ClientID: "taxi-simulator"}, acceptWithin(cfg.MaxTripDistance))
		if err != nil {
			log.Fatalf("terminal: %v", err)
		}
		g.Go(func() error { return term.Run(ctx) })
	}
	if err := g.Wait(); err != nil {
		log.Printf("simulator: %v", err)
	}
	if cfg.DumpFile != "" {
		if err := srv.DumpFile(cfg.DumpFile); err != nil {
			log.Fatalf("dump: %v", err)
		}
	}
}

func parseFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.Listen, "listen", "127.0.0.1:7000", "TCP address of the key-store bridge")
	flag.IntVar(&cfg.Capacity, "capacity", 0, "records the key holds, 0 for unlimited")
	flag.StringVar(&cfg.Strategy, "strategy", StrategyAuto, "reply strategy (auto, flaky)")
	flag.DurationVar(&cfg.Delay, "delay", 0, "reply latency")
	flag.Float64Var(&cfg.DropRate, "drop-rate", 0, "probability of dropping a reply byte")
	flag.Float64Var(&cfg.NakRate, "nak-rate", 0, "probability of answering NAK instead of ACK")
	flag.Int64Var(&cfg.Seed, "seed", 1, "random seed of the flaky strategy")
	flag.StringVar(&cfg.DumpFile, "dump", "", "write stored records to this file on exit")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "enable verbose logging")
	flag.StringVar(&cfg.Broker, "broker", "", "MQTT broker URL of the driver terminals")
	flag.IntVar(&cfg.MaxTripDistance, "max-trip-distance", model.DefaultMaxTripDistance, "longest trip the emulated drivers accept")
	flag.Parse()
	return cfg
}

func acceptWithin(limit int) mqtt.Decider {
	return func(o coremqtt.Offer) bool {
		return o.TripDistance >= 0 && o.TripDistance <= limit
	}
}
