package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/gcal-scheduler/core/model"
)

func collect(start, end time.Time, d time.Duration) [][2]time.Time {
	var out [][2]time.Time
	for s, e := range SlotTimes(start, end, d) {
		out = append(out, [2]time.Time{s, e})
	}
	return out
}

func TestSlotTimesTwoHourWindow(t *testing.T) {
	got := collect(at(9, 0), at(11, 0), time.Hour)
	want := [][2]time.Time{
		{at(9, 0), at(10, 0)},
		{at(9, 30), at(10, 30)},
		{at(10, 0), at(11, 0)},
	}
	assert.Equal(t, want, got)
}

func TestSlotTimesExactWindow(t *testing.T) {
	got := collect(at(9, 0), at(10, 0), time.Hour)
	assert.Equal(t, [][2]time.Time{{at(9, 0), at(10, 0)}}, got)
}

func TestSlotTimesShortWindow(t *testing.T) {
	assert.Empty(t, collect(at(9, 0), at(9, 59), time.Hour))
	assert.Empty(t, collect(at(9, 0), at(10, 0), 0))
}

func TestSlotTimesRounding(t *testing.T) {
	cases := []struct {
		name  string
		start time.Time
		want  time.Time
	}{
		{"on the hour", at(9, 0), at(9, 0)},
		{"seconds truncated", at(9, 0).Add(45 * time.Second), at(9, 0)},
		{"half hour kept", at(9, 30).Add(time.Millisecond), at(9, 30)},
		{"up to half hour", at(9, 10), at(9, 30)},
		{"up to next hour", at(9, 45), at(10, 0)},
		{"one minute past", at(9, 31), at(10, 0)},
		{"offset zone", time.Date(2025, 1, 6, 10, 10, 0, 0, time.FixedZone("CET", 3600)), at(9, 30)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for s := range SlotTimes(tc.start, at(18, 0), time.Hour) {
				assert.True(t, tc.want.Equal(s), "got %s", s)
				assert.Equal(t, time.UTC, s.Location())
				return
			}
			t.Fatal("no slot produced")
		})
	}
}

func TestSlotTimesRestartable(t *testing.T) {
	seq := SlotTimes(at(9, 0), at(12, 0), time.Hour)
	first, second := 0, 0
	for range seq {
		first++
	}
	for range seq {
		second++
	}
	assert.Equal(t, 5, first)
	assert.Equal(t, first, second)
}

func TestGenerateSlots(t *testing.T) {
	windows := []model.Window{
		{Start: at(9, 0), End: at(11, 0), Location: "Room 1"},
		{ID: "lab", Start: at(14, 0), End: at(15, 0)},
		{Start: at(16, 0), End: at(16, 30)},
	}
	slots := GenerateSlots(windows, []time.Duration{time.Hour, time.Hour, 90 * time.Minute, 0})

	ids := make([]string, len(slots))
	for i, s := range slots {
		ids[i] = s.ID
	}
	// w0: three 60 min slots then two 90 min slots, lab: one 60 min slot.
	assert.Equal(t, []string{"s1", "s2", "s3", "s4", "s5", "s6"}, ids)
	assert.Equal(t, "w0", slots[0].WindowID)
	assert.Equal(t, "Room 1", slots[0].Location)
	assert.Equal(t, 90*time.Minute, slots[3].Duration())
	assert.True(t, at(9, 30).Equal(slots[4].Start))
	assert.Equal(t, "lab", slots[5].WindowID)
	assert.Empty(t, slots[5].Location)
}
