package metrics

import (
	"time"

	"github.com/kilianp07/gcal-scheduler/core/model"
)

// Run statuses.
const (
	StatusOK             = "ok"
	StatusNoFeasibleData = "no_feasible_input"
	StatusInvalidConfig  = "invalid_config"
	StatusTimeout        = "timeout"
	StatusError          = "error"
)

// RunEvent summarises one scheduling run.
type RunEvent struct {
	RunID     string
	Time      time.Time
	Status    string
	Reason    string
	Meetings  int
	Scheduled int
	Skipped   int
	// AttendancePercent is only meaningful when AttendanceKnown is set.
	AttendancePercent float64
	AttendanceKnown   bool
	DoubleBookings    int
	Violations        model.Violations
	Cost              int
	Optimal           bool
	Variables         int
	Duration          time.Duration
}

// FillFromResult copies the diagnostics of res into the event.
func (e *RunEvent) FillFromResult(res *model.ScheduleResult) {
	if res == nil {
		return
	}
	e.Scheduled = len(res.Bindings)
	e.Skipped = len(res.Warnings)
	e.AttendancePercent, e.AttendanceKnown = res.Attendance.Percent()
	e.DoubleBookings = len(res.DoubleBookings)
	e.Violations = res.Violations
	e.Cost = res.TotalCost
	e.Optimal = res.Optimal
	e.Variables = res.Stats.Variables
}

// MetricsSink records scheduling runs for observability purposes.
type MetricsSink interface {
	RecordRun(ev RunEvent) error
}

// StageEvent is the duration of one pipeline stage.
type StageEvent struct {
	Stage   string
	Count   int
	Elapsed time.Duration
	Time    time.Time
}

// StageRecorder records pipeline stage progress.
type StageRecorder interface {
	RecordStage(ev StageEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordRun(RunEvent) error     { return nil }
func (NopSink) RecordStage(StageEvent) error { return nil }

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards the event to all sinks, returning the first error.
func (m *MultiSink) RecordRun(ev RunEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordRun(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordStage forwards stage events to sinks that support them.
func (m *MultiSink) RecordStage(ev StageEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(StageRecorder); ok {
			if err := rec.RecordStage(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close releases the sinks that hold connections.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
