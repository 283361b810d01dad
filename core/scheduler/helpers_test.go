package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gcal-scheduler/core/model"
	"github.com/kilianp07/gcal-scheduler/core/solver"
)

var monday = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return monday.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func window(id string, fromH, fromM, toH, toM int) model.Window {
	return model.Window{ID: id, Start: at(fromH, fromM), End: at(toH, toM)}
}

func members(ids ...string) []model.Member {
	out := make([]model.Member, len(ids))
	for i, id := range ids {
		out[i] = model.Member{ID: id, Name: "member-" + id}
	}
	return out
}

func meeting(id string, required ...string) model.Meeting {
	return model.Meeting{ID: id, Name: "meeting-" + id, RequiredMembers: required}
}

// allDay marks a member busy for the whole test day.
func allDay() []model.BusyInterval {
	return []model.BusyInterval{{Start: monday, End: monday.Add(24 * time.Hour)}}
}

func runExhaustive(t *testing.T, in Input, opts ...Option) *model.ScheduleResult {
	t.Helper()
	res, err := NewEngine(solver.NewExhaustive(24), opts...).GenerateSchedule(context.Background(), in)
	require.NoError(t, err)
	return res
}

// assertStructural checks the hard scheduling rules on a result.
func assertStructural(t *testing.T, in Input, res *model.ScheduleResult) {
	t.Helper()
	perMeeting := map[string]int{}
	perSlot := map[string]int{}
	for _, b := range res.Bindings {
		perMeeting[b.Meeting.ID]++
		perSlot[b.Slot.ID]++
	}
	skipped := map[string]bool{}
	for _, w := range res.Warnings {
		skipped[w.MeetingID] = true
	}
	for _, m := range in.Meetings {
		if skipped[m.ID] {
			require.Zero(t, perMeeting[m.ID], "skipped meeting %s bound", m.ID)
			continue
		}
		require.Equal(t, 1, perMeeting[m.ID], "meeting %s", m.ID)
	}
	for id, n := range perSlot {
		require.Equal(t, 1, n, "slot %s", id)
	}
	for i, a := range res.Bindings {
		for _, b := range res.Bindings[i+1:] {
			if a.Slot.WindowID != b.Slot.WindowID {
				continue
			}
			require.False(t, Overlaps(a.Slot.Start, a.Slot.End, b.Slot.Start, b.Slot.End),
				"%s and %s overlap in window %s", a.Meeting.ID, b.Meeting.ID, a.Slot.WindowID)
		}
	}
}
