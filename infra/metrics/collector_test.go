package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	coremetrics "github.com/kilianp07/gcal-scheduler/core/metrics"
	"github.com/kilianp07/gcal-scheduler/core/scheduler"
	"github.com/kilianp07/gcal-scheduler/internal/eventbus"
)

type stageSink struct {
	mu     sync.Mutex
	stages []string
}

func (s *stageSink) RecordRun(coremetrics.RunEvent) error { return nil }

func (s *stageSink) RecordStage(ev coremetrics.StageEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages = append(s.stages, ev.Stage)
	return nil
}

func TestProgressCollector(t *testing.T) {
	bus := eventbus.NewTyped[scheduler.Progress]()
	sink := &stageSink{}
	done := StartProgressCollector(context.Background(), bus, sink)

	bus.Publish(scheduler.Progress{Stage: scheduler.StageSlots, Count: 3})
	bus.Publish(scheduler.Progress{Stage: scheduler.StageSolve, Elapsed: time.Millisecond})
	bus.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.stages) != 2 || sink.stages[0] != "slots" || sink.stages[1] != "solve" {
		t.Fatalf("unexpected stages %v", sink.stages)
	}
}

func TestProgressCollectorWithoutStageSupport(t *testing.T) {
	bus := eventbus.NewTyped[scheduler.Progress]()
	defer bus.Close()
	done := StartProgressCollector(context.Background(), bus, runOnlySink{})
	select {
	case <-done:
	default:
		t.Fatal("expected immediate return")
	}
}

type runOnlySink struct{}

func (runOnlySink) RecordRun(coremetrics.RunEvent) error { return nil }
