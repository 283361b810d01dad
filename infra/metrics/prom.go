package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	coremetrics "github.com/kilianp07/gcal-scheduler/core/metrics"
)

// PromSink records scheduling runs in Prometheus metrics. The CLI exits after
// a run, so metrics are pushed to a Pushgateway when PushURL is set.
type PromSink struct {
	runs       *prometheus.CounterVec
	duration   prometheus.Histogram
	stages     *prometheus.HistogramVec
	attendance prometheus.Gauge
	cost       prometheus.Gauge
	scheduled  prometheus.Gauge
	doubles    prometheus.Gauge

	gatherer prometheus.Gatherer
	pushURL  string
	job      string
}

// PromConfig configures the Prometheus sink.
type PromConfig struct {
	PushURL string `json:"push_url"`
	Job     string `json:"job"`
}

// NewPromSink registers run metrics on the default Prometheus registerer.
func NewPromSink(cfg PromConfig) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(cfg PromConfig, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if cfg.Job == "" {
		cfg.Job = "gcal_scheduler"
	}
	s := &PromSink{pushURL: cfg.PushURL, job: cfg.Job}
	if g, ok := reg.(prometheus.Gatherer); ok {
		s.gatherer = g
	}

	var err error
	if s.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_runs_total",
		Help: "Scheduling runs by outcome",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "schedule_run_duration_seconds",
		Help:    "Wall-clock time of a scheduling run",
		Buckets: prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	if s.stages, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "schedule_stage_elapsed_seconds",
		Help:    "Elapsed time at the end of each pipeline stage",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})); err != nil {
		return nil, err
	}
	if s.attendance, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schedule_attendance_percent",
		Help: "Attendance percentage of the last schedule",
	})); err != nil {
		return nil, err
	}
	if s.cost, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schedule_cost",
		Help: "Total penalty cost of the last schedule",
	})); err != nil {
		return nil, err
	}
	if s.scheduled, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schedule_meetings_scheduled",
		Help: "Meetings placed by the last schedule",
	})); err != nil {
		return nil, err
	}
	if s.doubles, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schedule_double_bookings",
		Help: "Double-booked member pairs in the last schedule",
	})); err != nil {
		return nil, err
	}
	return s, nil
}

// register adds c to reg, reusing an already registered collector.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordRun updates the run metrics and pushes them when configured.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	s.runs.WithLabelValues(ev.Status).Inc()
	s.duration.Observe(ev.Duration.Seconds())
	if ev.Status == coremetrics.StatusOK {
		if ev.AttendanceKnown {
			s.attendance.Set(ev.AttendancePercent)
		}
		s.cost.Set(float64(ev.Cost))
		s.scheduled.Set(float64(ev.Scheduled))
		s.doubles.Set(float64(ev.DoubleBookings))
	}
	return s.Push()
}

// RecordStage observes a stage timing.
func (s *PromSink) RecordStage(ev coremetrics.StageEvent) error {
	s.stages.WithLabelValues(ev.Stage).Observe(ev.Elapsed.Seconds())
	return nil
}

// Push sends the gathered metrics to the Pushgateway. It is a no-op without a
// push URL.
func (s *PromSink) Push() error {
	if s.pushURL == "" {
		return nil
	}
	if s.gatherer == nil {
		return fmt.Errorf("prometheus registerer is not a gatherer, cannot push")
	}
	if err := push.New(s.pushURL, s.job).Gatherer(s.gatherer).Push(); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
