package scenarios

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/taxi/core/dispatch"
	coremetrics "github.com/kilianp07/taxi/core/metrics"
	"github.com/kilianp07/taxi/infra/logger"
	"github.com/kilianp07/taxi/infra/metrics"
	"github.com/kilianp07/taxi/infra/mqtt"
	"github.com/kilianp07/taxi/internal/eventbus"
)

// NegotiatorTerminal answers through the in-memory terminal.
const NegotiatorTerminal = "terminal"

// RunScenario dispatches every order of the scenario in sequence and checks
// the assignments and totals.
func RunScenario(t *testing.T, sc *Scenario) {
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	dir, err := sc.Fleet.Directory()
	if err != nil {
		t.Fatalf("fleet: %v", err)
	}

	var neg dispatch.Negotiator
	var pub *mqtt.MockPublisher
	if sc.Negotiator == "" || sc.Negotiator == NegotiatorTerminal {
		pub = mqtt.NewMockPublisher()
		for _, d := range dir.Drivers() {
			pub.Answers[d.ID] = true
		}
		for _, id := range sc.Refuse {
			pub.Answers[id] = false
		}
		for _, id := range sc.Silent {
			pub.Silent[id] = true
		}
		for _, id := range sc.FailPublish {
			pub.FailIDs[id] = true
		}
		if neg, err = mqtt.NewNegotiator(pub, 10*time.Millisecond); err != nil {
			t.Fatalf("negotiator: %v", err)
		}
	}

	cfg := dispatch.Config{Mode: sc.Mode}
	e, err := dispatch.NewEngine(dir, neg, cfg, sink, eventbus.New(), logger.NopLogger{})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	assigned := 0
	for i, o := range sc.Orders {
		pickup, dest, err := o.Addresses()
		if err != nil {
			t.Fatalf("order %d: %v", i, err)
		}
		asn, err := e.Dispatch(context.Background(), &pickup, &dest)
		if o.ExpectVehicle == 0 {
			if !errors.Is(err, dispatch.ErrNoVehicle) {
				t.Errorf("order %d: expected no vehicle, got %+v (%v)", i, asn.Vehicle, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("order %d: %v", i, err)
			continue
		}
		assigned++
		if asn.Vehicle.ID != o.ExpectVehicle {
			t.Errorf("order %d: expected vehicle %d, got %d", i, o.ExpectVehicle, asn.Vehicle.ID)
		}
		if o.ExpectDriver != 0 && asn.Driver.ID != o.ExpectDriver {
			t.Errorf("order %d: expected driver %d, got %d", i, o.ExpectDriver, asn.Driver.ID)
		}
	}

	if sc.Expected.Assigned != 0 && assigned != sc.Expected.Assigned {
		t.Errorf("scenario %s expected %d assigned, got %d", sc.Name, sc.Expected.Assigned, assigned)
	}
	if got := counterTotal(t, reg, "taxi_vehicle_assignments_total"); int(got) != assigned {
		t.Errorf("scenario %s: assignment counter %v, want %d", sc.Name, got, assigned)
	}
	if pub != nil && sc.Expected.Offers != 0 && len(pub.Sent()) != sc.Expected.Offers {
		t.Errorf("scenario %s expected %d offers, got %d", sc.Name, sc.Expected.Offers, len(pub.Sent()))
	}
}

func counterTotal(t *testing.T, g prometheus.Gatherer, name string) float64 {
	t.Helper()
	mfs, err := g.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var total float64
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
