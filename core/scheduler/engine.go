package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/kilianp07/gcal-scheduler/core/logger"
	"github.com/kilianp07/gcal-scheduler/core/model"
	"github.com/kilianp07/gcal-scheduler/core/monitoring"
	"github.com/kilianp07/gcal-scheduler/core/solver"
)

// Input gathers everything one scheduling run needs.
type Input struct {
	Members  []model.Member
	Meetings []model.Meeting
	Windows  []model.Window
	// Busy maps a member id to that member's busy intervals.
	Busy    map[string][]model.BusyInterval
	Rules   model.Rules
	Weights model.PenaltyWeights
}

// Stage names a pipeline step reported through progress events.
type Stage string

const (
	StageSlots        Stage = "slots"
	StageAvailability Stage = "availability"
	StageEncode       Stage = "encode"
	StageSolve        Stage = "solve"
	StageInterpret    Stage = "interpret"
)

// Progress is published after each pipeline stage.
type Progress struct {
	Stage   Stage
	Count   int
	Elapsed time.Duration
}

// ProgressPublisher receives progress events. eventbus.TypedBus satisfies it.
type ProgressPublisher interface {
	Publish(Progress)
}

// Engine runs the scheduling pipeline. It holds no state between runs.
type Engine struct {
	solver       solver.Solver
	log          logger.Logger
	monitor      monitoring.Monitor
	progress     ProgressPublisher
	slotDuration time.Duration
	workers      int
	timeout      time.Duration
	bestEffort   bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option { return func(e *Engine) { e.log = l } }

// WithMonitor sets where internal errors are reported.
func WithMonitor(m monitoring.Monitor) Option { return func(e *Engine) { e.monitor = m } }

// WithProgress publishes stage events to p.
func WithProgress(p ProgressPublisher) Option { return func(e *Engine) { e.progress = p } }

// WithSlotDuration sets the duration of meetings that do not declare one.
func WithSlotDuration(d time.Duration) Option { return func(e *Engine) { e.slotDuration = d } }

// WithWorkers sets the availability resolution parallelism.
func WithWorkers(n int) Option { return func(e *Engine) { e.workers = n } }

// WithTimeout bounds the solver wall-clock time. Zero means no bound.
func WithTimeout(d time.Duration) Option { return func(e *Engine) { e.timeout = d } }

// WithBestEffort accepts a model that was not proven optimal when the solver
// bound expires, instead of failing with ErrSolverTimeout.
func WithBestEffort(ok bool) Option { return func(e *Engine) { e.bestEffort = ok } }

// NewEngine returns an Engine using s.
func NewEngine(s solver.Solver, opts ...Option) *Engine {
	e := &Engine{
		solver:       s,
		log:          logger.Nop{},
		monitor:      monitoring.NopMonitor{},
		slotDuration: model.DefaultMeetingDuration,
		workers:      1,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// GenerateSchedule runs the pipeline once on in.
func (e *Engine) GenerateSchedule(ctx context.Context, in Input) (*model.ScheduleResult, error) {
	began := time.Now()
	if err := e.validate(in); err != nil {
		return nil, err
	}

	durations := lo.Map(in.Meetings, func(m model.Meeting, _ int) time.Duration {
		return m.EffectiveDuration(e.slotDuration)
	})
	slots := GenerateSlots(in.Windows, durations)
	e.publish(StageSlots, len(slots), began)
	e.log.Debugf("generated %d slots from %d windows", len(slots), len(in.Windows))

	table := BuildAvailability(slots, in.Members, in.Busy, e.workers)
	e.publish(StageAvailability, len(slots)*len(in.Members), began)

	prob, err := Encode(EncodeInput{
		Meetings:        in.Meetings,
		Slots:           slots,
		Table:           table,
		Rules:           in.Rules,
		Weights:         in.Weights,
		DefaultDuration: e.slotDuration,
	})
	if err != nil {
		e.log.Warnf("nothing to schedule: %v", err)
		return nil, err
	}
	for _, w := range prob.Warnings() {
		e.log.Warnf("%s", w.Message)
	}
	f := prob.Formula
	e.publish(StageEncode, f.Variables, began)
	e.log.Infof("encoded %d variables, %d hard clauses, %d soft clauses", f.Variables, len(f.Hard), len(f.Soft))

	res, err := e.solve(ctx, f)
	if err != nil {
		return nil, err
	}
	e.publish(StageSolve, res.Cost, began)

	out, err := Interpret(InterpretInput{Problem: prob, Table: table, Rules: in.Rules, Members: in.Members}, res)
	if err != nil {
		e.reportInternal(err)
		return nil, err
	}
	out.Stats = model.SolveStats{
		Slots:       len(slots),
		Variables:   f.Variables,
		HardClauses: len(f.Hard),
		SoftClauses: len(f.Soft),
		Elapsed:     time.Since(began),
	}
	e.publish(StageInterpret, len(out.Bindings), began)
	e.log.Infof("scheduled %d meetings, attendance %s, cost %d", len(out.Bindings), out.Attendance, out.TotalCost)
	return out, nil
}

func (e *Engine) solve(ctx context.Context, f solver.Formula) (solver.Result, error) {
	solveCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	res, err := e.solver.Solve(solveCtx, f)
	switch {
	case err == nil:
	case errors.Is(err, solver.ErrUnsatisfiable):
		internal := &SolverInternalError{
			Variables:   f.Variables,
			HardClauses: len(f.Hard),
			SoftClauses: len(f.Soft),
			Err:         err,
		}
		e.reportInternal(internal)
		return solver.Result{}, internal
	case ctx.Err() != nil:
		return solver.Result{}, fmt.Errorf("solve: %w", ctx.Err())
	case errors.Is(err, solver.ErrInterrupted), errors.Is(err, context.DeadlineExceeded):
		return solver.Result{}, fmt.Errorf("%w: %v", ErrSolverTimeout, err)
	default:
		return solver.Result{}, fmt.Errorf("solve: %w", err)
	}
	if !res.Optimal && !e.bestEffort {
		return solver.Result{}, fmt.Errorf("%w: best model (cost %d) not proven optimal", ErrSolverTimeout, res.Cost)
	}
	if !res.Optimal {
		e.log.Warnf("solver bound expired, using best model found (cost %d)", res.Cost)
	}
	return res, nil
}

func (e *Engine) reportInternal(err error) {
	var internal *SolverInternalError
	if !errors.As(err, &internal) {
		return
	}
	e.log.Errorf("%v", internal)
	e.monitor.CaptureException(internal, map[string]string{
		"component":    "scheduler",
		"variables":    fmt.Sprint(internal.Variables),
		"hard_clauses": fmt.Sprint(internal.HardClauses),
		"soft_clauses": fmt.Sprint(internal.SoftClauses),
	})
}

func (e *Engine) publish(stage Stage, count int, began time.Time) {
	if e.progress == nil {
		return
	}
	e.progress.Publish(Progress{Stage: stage, Count: count, Elapsed: time.Since(began)})
}

// validate rejects inconsistent inputs before anything is encoded.
func (e *Engine) validate(in Input) error {
	var cerr ConfigurationError
	if e.solver == nil {
		cerr.Addf("no solver configured")
	}
	if e.slotDuration <= 0 {
		cerr.Addf("slot duration must be positive, got %s", e.slotDuration)
	}

	members := make(map[string]bool, len(in.Members))
	names := make(map[string]bool, len(in.Members))
	for _, m := range in.Members {
		switch {
		case m.ID == "":
			cerr.Addf("member %q has no id", m.Name)
		case members[m.ID]:
			cerr.Addf("duplicate member id %q", m.ID)
		}
		if names[m.Name] {
			cerr.Addf("duplicate member name %q", m.Name)
		}
		members[m.ID] = true
		names[m.Name] = true
	}

	meetings := make(map[string]model.Meeting, len(in.Meetings))
	meetingNames := make(map[string]bool, len(in.Meetings))
	for _, m := range in.Meetings {
		switch {
		case m.ID == "":
			cerr.Addf("meeting %q has no id", m.Name)
		case meetings[m.ID].ID != "":
			cerr.Addf("duplicate meeting id %q", m.ID)
		}
		if meetingNames[m.Name] {
			cerr.Addf("duplicate meeting name %q", m.Name)
		}
		meetings[m.ID] = m
		meetingNames[m.Name] = true
		if len(m.RequiredMembers) == 0 {
			cerr.Addf("meeting %q has no required members", m.Name)
		}
		if m.Duration < 0 {
			cerr.Addf("meeting %q has negative duration %s", m.Name, m.Duration)
		}
		seen := make(map[string]bool, len(m.RequiredMembers))
		for _, id := range m.RequiredMembers {
			if !members[id] {
				cerr.Addf("meeting %q requires unknown member %q", m.Name, id)
			}
			if seen[id] {
				cerr.Addf("meeting %q lists member %q twice", m.Name, id)
			}
			seen[id] = true
		}
	}

	for _, r := range in.Rules.KeyAttendees {
		m, ok := meetings[r.MeetingID]
		if !ok {
			cerr.Addf("key attendee rule references unknown meeting %q", r.MeetingID)
			continue
		}
		if len(r.MemberIDs) == 0 {
			cerr.Addf("key attendee rule for %q names no member", m.Name)
		}
		for _, id := range r.MemberIDs {
			if !members[id] {
				cerr.Addf("key attendee rule for %q references unknown member %q", m.Name, id)
				continue
			}
			if !m.Requires(id) {
				e.log.Warnf("key attendee %q is not a required member of %q", id, m.Name)
			}
		}
	}
	for _, r := range in.Rules.KeyMeetings {
		if _, ok := meetings[r.MeetingID]; !ok {
			cerr.Addf("key meeting rule references unknown meeting %q", r.MeetingID)
		}
	}
	if err := in.Weights.Validate(); err != nil {
		cerr.Addf("%v", err)
	}
	windows := make(map[string]bool, len(in.Windows))
	for i, w := range in.Windows {
		id := WindowID(w, i)
		if windows[id] {
			cerr.Addf("duplicate window id %q", id)
		}
		windows[id] = true
		if w.End.Before(w.Start) {
			cerr.Addf("window %s ends before it starts", id)
		}
	}
	for id := range in.Busy {
		if !members[id] {
			e.log.Debugf("ignoring busy intervals of unknown member %q", id)
		}
	}
	return cerr.Err()
}
