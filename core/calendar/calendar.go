// Package calendar defines the calendar collaborators of a scheduling run:
// where availability windows and member conflicts come from, and where a
// finished schedule is written back.
package calendar

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/gcal-scheduler/core/model"
)

// BusySource lists the busy intervals of one calendar over [start, end).
type BusySource interface {
	FetchBusy(ctx context.Context, calendarRef string, start, end time.Time) ([]model.BusyInterval, error)
}

// WindowSource lists the availability windows held by one calendar.
type WindowSource interface {
	FetchWindows(ctx context.Context, calendarRef string, start, end time.Time) ([]model.Window, error)
}

// Source provides both windows and conflicts.
type Source interface {
	BusySource
	WindowSource
}

// Writer persists a schedule as calendar events.
type Writer interface {
	// EnsureCalendar returns the id of the calendar named name, creating it
	// when it does not exist.
	EnsureCalendar(ctx context.Context, name string) (string, error)
	CreateEvent(ctx context.Context, calendarID string, ev model.Event) error
}

// DefaultFetchConcurrency bounds parallel per-member calendar requests.
const DefaultFetchConcurrency = 4

// FetchBusyByMember fetches every member's conflicts concurrently and returns
// them keyed by member id. The first failing fetch cancels the others.
func FetchBusyByMember(ctx context.Context, src BusySource, members []model.Member, start, end time.Time, concurrency int) (map[string][]model.BusyInterval, error) {
	if concurrency <= 0 {
		concurrency = DefaultFetchConcurrency
	}
	results := make([][]model.BusyInterval, len(members))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, m := range members {
		g.Go(func() error {
			busy, err := src.FetchBusy(gctx, m.CalendarRef, start, end)
			if err != nil {
				return fmt.Errorf("fetch busy for %s: %w", m.Name, err)
			}
			results[i] = busy
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string][]model.BusyInterval, len(members))
	for i, m := range members {
		out[m.ID] = results[i]
	}
	return out, nil
}

// StaticSource serves windows and busy intervals held in memory, typically
// loaded from configuration.
type StaticSource struct {
	Windows []model.Window
	// Busy is keyed by calendar reference.
	Busy map[string][]model.BusyInterval
}

// FetchBusy implements BusySource.
func (s *StaticSource) FetchBusy(_ context.Context, calendarRef string, start, end time.Time) ([]model.BusyInterval, error) {
	var out []model.BusyInterval
	for _, b := range s.Busy[calendarRef] {
		if b.Start.Before(end) && b.End.After(start) {
			out = append(out, b)
		}
	}
	return out, nil
}

// FetchWindows implements WindowSource. The calendar reference is ignored.
func (s *StaticSource) FetchWindows(_ context.Context, _ string, start, end time.Time) ([]model.Window, error) {
	var out []model.Window
	for _, w := range s.Windows {
		if w.Start.Before(end) && w.End.After(start) {
			out = append(out, w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}
