package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/taxi/core/events"
	coremetrics "github.com/kilianp07/taxi/core/metrics"
	"github.com/kilianp07/taxi/internal/eventbus"
)

// RunEventCollector subscribes to the event bus and forwards vehicle status
// changes to the sink. Dispatch, trip and key-store figures reach the sink
// directly from their components. It returns when ctx is canceled or the bus
// is closed.
func RunEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) error {
	if bus == nil || sink == nil {
		return nil
	}
	rec, ok := sink.(coremetrics.StateRecorder)
	if !ok {
		return nil
	}
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub:
			if !ok {
				return nil
			}
			e, ok := ev.(events.StateChangeEvent)
			if !ok || e.From == e.To {
				continue
			}
			_ = rec.RecordStateChange(coremetrics.StateChangeEvent{
				VehicleID: e.VehicleID,
				From:      e.From.String(),
				To:        e.To.String(),
				Time:      time.Now(),
			})
		}
	}
}
