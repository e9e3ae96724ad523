// Package app wires the dispatch centre from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/taxi/api"
	"github.com/kilianp07/taxi/config"
	"github.com/kilianp07/taxi/core/dispatch"
	"github.com/kilianp07/taxi/core/fleet"
	coremetrics "github.com/kilianp07/taxi/core/metrics"
	"github.com/kilianp07/taxi/core/triplog"
	"github.com/kilianp07/taxi/infra/logger"
	"github.com/kilianp07/taxi/infra/metrics"
	"github.com/kilianp07/taxi/infra/mqtt"
	"github.com/kilianp07/taxi/internal/eventbus"
)

// Service orchestrates the fleet directory, the dispatch engine and the
// HTTP API.
type Service struct {
	Fleet  *fleet.Directory
	Engine *dispatch.Engine
	Trips  triplog.Store
	Sink   coremetrics.MetricsSink
	Bus    *eventbus.Bus

	cfg    *config.Config
	client *mqtt.PahoClient
	log    logger.Logger
}

// New creates a Service from the configuration. ctx bounds the setup of
// external backends.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil parameter provided to New")
	}
	logg := logger.New("service")
	dir, err := cfg.Fleet.Directory()
	if err != nil {
		return nil, fmt.Errorf("fleet: %w", err)
	}
	sink, err := metrics.NewSinkFromConfig(cfg.Metrics, nil)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	trips, err := OpenTripLog(ctx, cfg.TripLog)
	if err != nil {
		return nil, fmt.Errorf("trip log: %w", err)
	}
	svc := &Service{Fleet: dir, Trips: trips, Sink: sink, Bus: eventbus.New(), cfg: cfg, log: logg}

	var neg dispatch.Negotiator
	if cfg.Dispatch.Negotiator == dispatch.NegotiatorMQTT {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			_ = trips.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.client = client
		n, err := mqtt.NewNegotiator(client, time.Duration(cfg.Dispatch.OfferTimeoutSeconds)*time.Second)
		if err != nil {
			_ = svc.Close()
			return nil, err
		}
		neg = n
	}
	engine, err := dispatch.NewEngine(dir, neg, cfg.Dispatch, sink, svc.Bus, logger.New("dispatch"))
	if err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("dispatch engine: %w", err)
	}
	svc.Engine = engine
	return svc, nil
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	return api.NewRouter(api.Deps{
		Fleet:  s.Fleet,
		Ranker: s.Engine,
		Engine: s.Engine,
		Tariff: s.cfg.Tariff,
		Trips:  s.Trips,
		Token:  s.cfg.API.Token,
		Logger: logger.New("api"),
	})
}

// Run serves the API, the metrics endpoint and the event collector until
// ctx is canceled or one of them fails.
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return metrics.RunEventCollector(ctx, s.Bus, s.Sink)
	})
	if s.cfg.Metrics.Enabled("prometheus") {
		g.Go(func() error {
			return metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddr)
		})
	}
	g.Go(func() error {
		return s.serveAPI(ctx)
	})
	return g.Wait()
}

func (s *Service) serveAPI(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.API.Addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api shutdown: %v", err)
		}
		cancel()
	}()
	s.log.Infof("serving api on %s", s.cfg.API.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.client != nil {
		s.client.Disconnect()
	}
	if s.Bus != nil {
		s.Bus.Close()
	}
	if c, ok := s.Sink.(interface{ Close() }); ok {
		c.Close()
	}
	if s.Trips != nil {
		return s.Trips.Close()
	}
	return nil
}

// Config returns the configuration the service was built from.
func (s *Service) Config() *config.Config { return s.cfg }
