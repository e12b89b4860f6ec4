package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/rebalance/core/metrics"
	"github.com/kilianp07/rebalance/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes cycle results and station snapshots to InfluxDB.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given endpoint without checking it.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the instance and returns a NopSink when
// the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
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

// RecordCycle writes one rebalance_cycle point.
func (s *InfluxSink) RecordCycle(res coremetrics.CycleResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("rebalance_cycle").
		AddTag("outcome", res.Outcome).
		AddTag("cycle_id", res.CycleID).
		AddField("duration_ms", round3(res.Duration.Seconds()*1000)).
		AddField("stations", res.Stations).
		AddField("surplus", res.Surplus).
		AddField("deficit", res.Deficit).
		AddField("pairs", res.Pairs).
		AddField("unmatched", res.UnmatchedDeficits).
		AddField("bike_itineraries", res.BikeItineraries).
		AddField("vehicle_itineraries", res.VehicleItineraries).
		AddField("fallbacks", res.Fallbacks).
		AddField("bike_failures", res.BikeFailures).
		AddField("vehicle_failures", res.VehicleFailures).
		SetTime(res.Time)
	if res.Reason != "" {
		p = p.AddField("reason", res.Reason)
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordStationStates writes one station_state point per station.
func (s *InfluxSink) RecordStationStates(states []coremetrics.StationState) error {
	if len(states) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(states))
	for _, st := range states {
		points = append(points, write.NewPointWithMeasurement("station_state").
			AddTag("station", st.Name).
			AddTag("category", st.Category).
			AddTag("cycle_id", st.CycleID).
			AddField("number", st.Number).
			AddField("available_bikes", st.AvailableBikes).
			AddField("available_stands", st.AvailableStands).
			SetTime(st.Time))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// Close releases the client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
