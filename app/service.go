// Package app wires configuration, calendar collaborators, the scheduling
// engine and the run recorders into one service.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/kilianp07/gcal-scheduler/config"
	"github.com/kilianp07/gcal-scheduler/core/calendar"
	"github.com/kilianp07/gcal-scheduler/core/history"
	coremetrics "github.com/kilianp07/gcal-scheduler/core/metrics"
	"github.com/kilianp07/gcal-scheduler/core/model"
	coremon "github.com/kilianp07/gcal-scheduler/core/monitoring"
	"github.com/kilianp07/gcal-scheduler/core/scheduler"
	"github.com/kilianp07/gcal-scheduler/core/solver"
	"github.com/kilianp07/gcal-scheduler/infra/logger"
	"github.com/kilianp07/gcal-scheduler/infra/metrics"
	"github.com/kilianp07/gcal-scheduler/infra/monitoring"
	"github.com/kilianp07/gcal-scheduler/infra/mqtt"
	"github.com/kilianp07/gcal-scheduler/internal/eventbus"
	"github.com/kilianp07/gcal-scheduler/pkg/export"

	// Registered calendar sources and solvers.
	_ "github.com/kilianp07/gcal-scheduler/infra/calendar/google"
	_ "github.com/kilianp07/gcal-scheduler/infra/calendar/ics"
	_ "github.com/kilianp07/gcal-scheduler/infra/satsolver"
)

// Announcer publishes run outcomes. *mqtt.Announcer satisfies it.
type Announcer interface {
	Announce(rec history.RunRecord) error
	Disconnect()
}

// Service runs scheduling requests against the configured team.
type Service struct {
	cfg       *config.Config
	roster    *config.Roster
	loc       *time.Location
	source    calendar.Source
	writer    calendar.Writer
	solver    solver.Solver
	history   history.Store
	sink      coremetrics.MetricsSink
	announcer Announcer
	monitor   coremon.Monitor
	log       logger.Logger
	now       func() time.Time
}

// Option overrides a collaborator built from the configuration.
type Option func(*Service)

// WithSource replaces the configured calendar source.
func WithSource(src calendar.Source) Option { return func(s *Service) { s.source = src } }

// WithWriter sets where saved schedules are written.
func WithWriter(w calendar.Writer) Option { return func(s *Service) { s.writer = w } }

// WithSolver replaces the configured solver.
func WithSolver(sv solver.Solver) Option { return func(s *Service) { s.solver = sv } }

// WithHistory replaces the configured run history store.
func WithHistory(h history.Store) Option { return func(s *Service) { s.history = h } }

// WithMetrics replaces the configured metrics sinks.
func WithMetrics(m coremetrics.MetricsSink) Option { return func(s *Service) { s.sink = m } }

// WithAnnouncer sets the run announcer, even when MQTT is disabled.
func WithAnnouncer(a Announcer) Option { return func(s *Service) { s.announcer = a } }

// WithMonitor replaces the Sentry monitor.
func WithMonitor(m coremon.Monitor) Option { return func(s *Service) { s.monitor = m } }

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option { return func(s *Service) { s.log = l } }

// WithClock sets the time source used to stamp runs.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// New creates a Service from the configuration. Collaborators not supplied
// through options are built from cfg.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	roster, err := cfg.Roster()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Scheduling.Location()
	if err != nil {
		return nil, err
	}
	s := &Service{cfg: cfg, roster: roster, loc: loc, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = logger.New("service")
	}

	if s.source == nil {
		if cfg.Calendar.IsStatic() {
			s.source = roster.StaticSource()
		} else if s.source, err = calendar.New(cfg.Calendar.Module()); err != nil {
			return nil, fmt.Errorf("calendar source: %w", err)
		}
	}
	if w, ok := s.source.(calendar.Writer); ok && s.writer == nil {
		s.writer = w
	}
	if s.solver == nil {
		if s.solver, err = solver.New(cfg.Solver.Module()); err != nil {
			return nil, fmt.Errorf("solver: %w", err)
		}
	}
	if s.history == nil {
		if s.history, err = history.Open(cfg.History); err != nil {
			return nil, fmt.Errorf("history store: %w", err)
		}
	}
	if s.sink == nil {
		if s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
			return nil, fmt.Errorf("metrics sink: %w", err)
		}
	}
	if s.announcer == nil && cfg.MQTT.Enabled {
		if s.announcer, err = mqtt.NewAnnouncer(cfg.MQTT, logger.New("mqtt")); err != nil {
			return nil, fmt.Errorf("mqtt announcer: %w", err)
		}
	}
	if s.monitor == nil {
		if s.monitor, err = monitoring.NewSentryMonitor(cfg.Sentry); err != nil {
			return nil, fmt.Errorf("sentry: %w", err)
		}
		coremon.Init(s.monitor)
	}
	return s, nil
}

// Roster returns the resolved team.
func (s *Service) Roster() *config.Roster { return s.roster }

// Location returns the zone used to read and render local times.
func (s *Service) Location() *time.Location { return s.loc }

// Windows lists availability windows overlapping [start, end): the static
// potential times plus, for remote sources, the potential times calendar.
func (s *Service) Windows(ctx context.Context, start, end time.Time) ([]model.Window, error) {
	windows, err := s.roster.StaticSource().FetchWindows(ctx, "", start, end)
	if err != nil {
		return nil, err
	}
	if s.cfg.Calendar.IsStatic() || s.cfg.Calendar.PotentialTimesCalendarID == "" {
		return windows, nil
	}
	remote, err := s.source.FetchWindows(ctx, s.cfg.Calendar.PotentialTimesCalendarID, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetch potential times: %w", err)
	}
	return append(windows, remote...), nil
}

// Busy returns every member's conflicts overlapping [start, end), keyed by
// member id. Busy entries of the configuration file apply on top of a remote
// calendar source.
func (s *Service) Busy(ctx context.Context, start, end time.Time) (map[string][]model.BusyInterval, error) {
	busy, err := calendar.FetchBusyByMember(ctx, s.source, s.roster.Members, start, end, s.cfg.Scheduling.FetchConcurrency)
	if err != nil {
		return nil, err
	}
	if _, static := s.source.(*calendar.StaticSource); static || len(s.roster.Busy) == 0 {
		return busy, nil
	}
	extra, err := calendar.FetchBusyByMember(ctx, s.roster.StaticSource(), s.roster.Members, start, end, s.cfg.Scheduling.FetchConcurrency)
	if err != nil {
		return nil, err
	}
	for id, intervals := range extra {
		busy[id] = append(busy[id], intervals...)
	}
	return busy, nil
}

// Slots returns the windows of the range and the candidate slots carved from
// them for the active meetings.
func (s *Service) Slots(ctx context.Context, start, end time.Time) ([]model.Window, []model.Slot, error) {
	windows, err := s.Windows(ctx, start, end)
	if err != nil {
		return nil, nil, err
	}
	def := s.cfg.Scheduling.SlotDuration()
	durations := lo.Map(s.roster.Meetings, func(m model.Meeting, _ int) time.Duration { return m.EffectiveDuration(def) })
	if len(durations) == 0 {
		durations = []time.Duration{def}
	}
	return windows, scheduler.GenerateSlots(windows, durations), nil
}

// Request describes one scheduling run.
type Request struct {
	Start time.Time
	End   time.Time
	// Penalty overrides; nil keeps the configured weight.
	KeyAttendeeAbsence    *int
	RequiredMemberAbsence *int
	KeyMeetingAbsence     *int
	// SaveCalendar names the calendar receiving the schedule; empty skips it.
	SaveCalendar string
}

// Outcome is a finished run.
type Outcome struct {
	RunID  string
	Result *model.ScheduleResult
	View   export.View
	// Saved counts the events written to the save calendar.
	Saved int
}

// Schedule runs the pipeline once for req. Every run, failed or not, is
// recorded in history and metrics and announced.
func (s *Service) Schedule(ctx context.Context, req Request) (*Outcome, error) {
	runID := uuid.NewString()
	began := s.now()
	weights := s.cfg.Penalties.Weights().Override(req.KeyAttendeeAbsence, req.RequiredMemberAbsence, req.KeyMeetingAbsence)

	res, err := s.generate(ctx, runID, req, weights)
	s.record(ctx, runID, began, req, weights, res, err)
	if err != nil {
		return nil, err
	}

	out := &Outcome{RunID: runID, Result: res, View: export.NewView(runID, res, s.roster.MemberName, s.loc)}
	if req.SaveCalendar != "" {
		if out.Saved, err = s.save(ctx, req.SaveCalendar, out.View); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (s *Service) generate(ctx context.Context, runID string, req Request, weights model.PenaltyWeights) (*model.ScheduleResult, error) {
	windows, err := s.Windows(ctx, req.Start, req.End)
	if err != nil {
		return nil, err
	}
	busy, err := s.Busy(ctx, req.Start, req.End)
	if err != nil {
		return nil, err
	}
	s.log.Infof("run %s: %d windows, %d meetings, %d members", runID, len(windows), len(s.roster.Meetings), len(s.roster.Members))

	bus := eventbus.NewTyped[scheduler.Progress]()
	done := metrics.StartProgressCollector(ctx, bus, s.sink)
	defer func() {
		bus.Close()
		<-done
	}()

	engine := scheduler.NewEngine(s.solver,
		scheduler.WithLogger(logger.New("scheduler")),
		scheduler.WithMonitor(coremon.WithTags(s.monitor, map[string]string{"run_id": runID})),
		scheduler.WithProgress(bus),
		scheduler.WithSlotDuration(s.cfg.Scheduling.SlotDuration()),
		scheduler.WithWorkers(s.cfg.Scheduling.Workers),
		scheduler.WithTimeout(s.cfg.Solver.Timeout),
		scheduler.WithBestEffort(s.cfg.Solver.AcceptBestEffort),
	)
	return engine.GenerateSchedule(ctx, scheduler.Input{
		Members:  s.roster.Members,
		Meetings: s.roster.Meetings,
		Windows:  windows,
		Busy:     busy,
		Rules:    s.roster.Rules,
		Weights:  weights,
	})
}

// save writes one event per placed meeting. A failed event is logged and the
// rest are still attempted.
func (s *Service) save(ctx context.Context, name string, v export.View) (int, error) {
	if s.writer == nil {
		return 0, fmt.Errorf("calendar type %q cannot save schedules", s.cfg.Calendar.Type)
	}
	calID, err := s.writer.EnsureCalendar(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("save calendar: %w", err)
	}
	saved := 0
	for _, r := range v.Rows {
		ev := model.Event{Summary: r.Meeting, Description: r.Description(), Location: r.Location, Start: r.Start, End: r.End}
		if err := s.writer.CreateEvent(ctx, calID, ev); err != nil {
			s.log.Errorf("failed to create event for %s at %s: %v", r.Meeting, r.Start.Format(time.RFC3339), err)
			continue
		}
		saved++
	}
	s.log.Infof("saved %d/%d meetings to %q", saved, len(v.Rows), name)
	return saved, nil
}

func (s *Service) record(ctx context.Context, runID string, began time.Time, req Request, weights model.PenaltyWeights, res *model.ScheduleResult, runErr error) {
	status, reason := classify(runErr)
	elapsed := s.now().Sub(began)

	rec := history.RunRecord{
		ID:         runID,
		Timestamp:  began,
		RangeStart: req.Start,
		RangeEnd:   req.End,
		Status:     status,
		Reason:     reason,
		Weights:    weights,
		Duration:   elapsed,
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	ev := coremetrics.RunEvent{RunID: runID, Time: began, Status: status, Reason: reason, Meetings: len(s.roster.Meetings), Duration: elapsed}
	if res != nil {
		rec.Attendance = res.Attendance
		rec.TotalCost = res.TotalCost
		rec.Optimal = res.Optimal
		for _, row := range export.NewView(runID, res, s.roster.MemberName, time.UTC).Rows {
			rec.Meetings = append(rec.Meetings, history.MeetingRecord{
				Name: row.Meeting, Start: row.Start, End: row.End, Location: row.Location,
				Missing: row.Missing, DoubleBooked: row.DoubleBooked,
			})
		}
		ev.FillFromResult(res)
	}

	if err := s.history.Append(context.WithoutCancel(ctx), rec); err != nil {
		s.log.Warnf("history append: %v", err)
	}
	if err := s.sink.RecordRun(ev); err != nil {
		s.log.Warnf("metrics: %v", err)
	}
	if s.announcer != nil {
		if err := s.announcer.Announce(rec); err != nil {
			s.log.Warnf("announce: %v", err)
		}
	}
}

// classify maps a run error to a status and a reason code.
func classify(err error) (string, string) {
	var (
		cerr  *scheduler.ConfigurationError
		nferr *scheduler.NoFeasibleInputError
		ierr  *scheduler.SolverInternalError
	)
	switch {
	case err == nil:
		return coremetrics.StatusOK, ""
	case errors.As(err, &cerr):
		return coremetrics.StatusInvalidConfig, ""
	case errors.As(err, &nferr):
		return coremetrics.StatusNoFeasibleData, string(nferr.Reason)
	case errors.Is(err, scheduler.ErrSolverTimeout):
		return coremetrics.StatusTimeout, ""
	case errors.As(err, &ierr):
		return coremetrics.StatusError, "solver_internal"
	case errors.Is(err, context.Canceled):
		return coremetrics.StatusError, "canceled"
	default:
		return coremetrics.StatusError, ""
	}
}

// History lists recorded runs.
func (s *Service) History(ctx context.Context, q history.Query) ([]history.RunRecord, error) {
	return s.history.Query(ctx, q)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.announcer != nil {
		s.announcer.Disconnect()
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	s.monitor.Flush(2 * time.Second)
	return s.history.Close()
}
