package metrics

import (
	"context"
	"time"

	coremetrics "github.com/kilianp07/gcal-scheduler/core/metrics"
	"github.com/kilianp07/gcal-scheduler/core/scheduler"
	"github.com/kilianp07/gcal-scheduler/internal/eventbus"
)

// StartProgressCollector subscribes to the engine progress bus and records a
// stage event for each message on sinks that support it. It stops when the
// context is canceled or the bus is closed. The returned channel is closed
// once the collector has exited.
func StartProgressCollector(ctx context.Context, bus *eventbus.TypedBus[scheduler.Progress], sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	rec, ok := sink.(coremetrics.StageRecorder)
	if bus == nil || !ok {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case p, ok := <-sub:
				if !ok {
					return
				}
				_ = rec.RecordStage(coremetrics.StageEvent{
					Stage:   string(p.Stage),
					Count:   p.Count,
					Elapsed: p.Elapsed,
					Time:    time.Now(),
				})
			}
		}
	}()
	return done
}
