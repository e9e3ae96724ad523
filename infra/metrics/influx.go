package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/taxi/core/metrics"
	"github.com/kilianp07/taxi/infra/logger"
)

// InfluxSink writes taxi events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg coremetrics.InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg.URL, cfg.Token, cfg.Org, cfg.Bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

// RecordDispatch writes one point per dispatch request.
func (s *InfluxSink) RecordDispatch(ev coremetrics.DispatchEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("dispatch_request").
		AddTag("outcome", ev.Outcome).
		AddTag("order_id", ev.OrderID).
		AddTag("component", "dispatch_engine")
	if ev.VehicleID != 0 {
		p = p.AddTag("vehicle_id", strconv.Itoa(ev.VehicleID)).
			AddTag("driver_id", strconv.Itoa(ev.DriverID))
	}
	p = p.AddField("candidates", ev.Candidates).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordOffer writes a driver answer.
func (s *InfluxSink) RecordOffer(ev coremetrics.OfferEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("driver_offer").
		AddTag("order_id", ev.OrderID).
		AddTag("vehicle_id", strconv.Itoa(ev.VehicleID)).
		AddTag("driver_id", strconv.Itoa(ev.DriverID)).
		AddTag("accepted", strconv.FormatBool(ev.Accepted)).
		AddField("latency_ms", round3(ev.Latency.Seconds()*1000)).
		AddField("errors", ev.Error).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordTrip writes a completed trip.
func (s *InfluxSink) RecordTrip(ev coremetrics.TripEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r := ev.Record
	p := write.NewPointWithMeasurement("trip_completed").
		AddTag("vehicle_id", strconv.Itoa(r.VehicleID)).
		AddTag("driver_id", strconv.Itoa(r.DriverID)).
		AddTag("keystore_result", ev.KeyStoreResult).
		AddField("distance_km", round3(r.DistanceKm)).
		AddField("fare_eur", round3(r.Fare)).
		AddField("duration_s", r.End.Sub(r.Start).Seconds()).
		AddField("pickup", r.Pickup.String()).
		AddField("destination", r.Destination.String()).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordKeyStore writes a key-store exchange.
func (s *InfluxSink) RecordKeyStore(ev coremetrics.KeyStoreEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("keystore_write").
		AddTag("vehicle_id", strconv.Itoa(ev.VehicleID)).
		AddTag("result", ev.Result).
		AddField("attempts", ev.Attempts).
		AddField("bytes", ev.Bytes).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordStateChange writes a vehicle status transition.
func (s *InfluxSink) RecordStateChange(ev coremetrics.StateChangeEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("vehicle_state").
		AddTag("vehicle_id", strconv.Itoa(ev.VehicleID)).
		AddTag("from", ev.From).
		AddField("status", ev.To).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
