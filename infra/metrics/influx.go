package metrics

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/gcal-scheduler/core/metrics"
	"github.com/kilianp07/gcal-scheduler/infra/logger"
)

// InfluxSink writes run events to an InfluxDB instance using the official client.
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

// InfluxConfig configures the InfluxDB sink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
	// Strict fails sink creation when the instance is unhealthy instead of
	// falling back to a NopSink.
	Strict bool `json:"strict"`
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink, err := newCheckedInfluxSink(InfluxConfig{URL: url, Token: token, Org: org, Bucket: bucket})
	if err != nil {
		return coremetrics.NopSink{}
	}
	return sink
}

func newCheckedInfluxSink(cfg InfluxConfig) (*InfluxSink, error) {
	sink := NewInfluxSink(cfg.URL, cfg.Token, cfg.Org, cfg.Bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err == nil && health.Status != "pass" {
		err = fmt.Errorf("influx health status: %s", health.Status)
	}
	if err != nil {
		sink.log.Errorf("influx health check: %v", err)
		sink.client.Close()
		return nil, err
	}
	return sink, nil
}

// RecordRun writes the run summary as a schedule_run point.
func (s *InfluxSink) RecordRun(ev coremetrics.RunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("schedule_run").
		AddTag("run_id", ev.RunID).
		AddTag("status", ev.Status).
		AddTag("optimal", strconv.FormatBool(ev.Optimal)).
		AddField("meetings", ev.Meetings).
		AddField("scheduled", ev.Scheduled).
		AddField("skipped", ev.Skipped).
		AddField("double_bookings", ev.DoubleBookings).
		AddField("cost", ev.Cost).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000))
	if ev.AttendanceKnown {
		p = p.AddField("attendance_percent", round3(ev.AttendancePercent))
	}
	if ev.Reason != "" {
		p = p.AddField("reason", ev.Reason)
	}
	p = p.SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordStage writes a pipeline stage timing.
func (s *InfluxSink) RecordStage(ev coremetrics.StageEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("schedule_stage").
		AddTag("stage", ev.Stage).
		AddField("count", ev.Count).
		AddField("elapsed_ms", round3(ev.Elapsed.Seconds()*1000)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
