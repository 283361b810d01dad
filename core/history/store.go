// Package history keeps a record of every scheduling run so past schedules
// and failures can be listed later.
package history

import (
	"context"
	"sort"
	"time"

	"github.com/kilianp07/gcal-scheduler/core/model"
)

// MeetingRecord is one placed meeting as it was reported.
type MeetingRecord struct {
	Name     string    `json:"name"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Location string    `json:"location,omitempty"`
	// Missing holds member names, not ids, so records stay readable after the
	// roster changes.
	Missing      []string `json:"missing,omitempty"`
	DoubleBooked []string `json:"double_booked,omitempty"`
}

// RunRecord captures one scheduling run and its outcome.
type RunRecord struct {
	ID         string               `json:"id"`
	Timestamp  time.Time            `json:"timestamp"`
	RangeStart time.Time            `json:"range_start"`
	RangeEnd   time.Time            `json:"range_end"`
	Status     string               `json:"status"`
	Reason     string               `json:"reason,omitempty"`
	Error      string               `json:"error,omitempty"`
	Weights    model.PenaltyWeights `json:"weights"`
	Meetings   []MeetingRecord      `json:"meetings,omitempty"`
	Attendance model.Attendance     `json:"attendance"`
	TotalCost  int                  `json:"total_cost"`
	Optimal    bool                 `json:"optimal"`
	Duration   time.Duration        `json:"duration"`
}

// HasMeeting reports whether the run placed a meeting called name.
func (r RunRecord) HasMeeting(name string) bool {
	for _, m := range r.Meetings {
		if m.Name == name {
			return true
		}
	}
	return false
}

// Query filters stored runs. Zero fields match everything.
type Query struct {
	Since   time.Time
	Until   time.Time
	Meeting string
	Status  string
	// Limit keeps only the most recent runs when positive.
	Limit int
}

// Match reports whether r passes the time, meeting and status filters.
func (q Query) Match(r RunRecord) bool {
	if !q.Since.IsZero() && r.Timestamp.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && r.Timestamp.After(q.Until) {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	return q.Meeting == "" || r.HasMeeting(q.Meeting)
}

// finish orders records oldest first and applies the limit.
func (q Query) finish(recs []RunRecord) []RunRecord {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Timestamp.Before(recs[j].Timestamp) })
	if q.Limit > 0 && len(recs) > q.Limit {
		recs = recs[len(recs)-q.Limit:]
	}
	return recs
}

// Store persists RunRecords and supports querying.
type Store interface {
	Append(ctx context.Context, rec RunRecord) error
	Query(ctx context.Context, q Query) ([]RunRecord, error)
	Close() error
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, RunRecord) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]RunRecord, error) { return nil, nil }
func (NopStore) Close() error                                      { return nil }
