package satsolver

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gcal-scheduler/core/model"
	"github.com/kilianp07/gcal-scheduler/core/scheduler"
)

// busyWeek builds a working week: eight members, ten one-hour meetings of six
// members each, five 8h windows and seventy random one-hour busy blocks per
// member spread over the week.
func busyWeek(seed int64) scheduler.Input {
	rng := rand.New(rand.NewSource(seed))
	monday := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

	var in scheduler.Input
	for i := 1; i <= 8; i++ {
		in.Members = append(in.Members, model.Member{ID: fmt.Sprint(i), Name: fmt.Sprintf("member-%d", i)})
	}
	for i := 0; i < 10; i++ {
		var required []string
		for j := 0; j < 6; j++ {
			required = append(required, in.Members[(i+j)%8].ID)
		}
		in.Meetings = append(in.Meetings, model.Meeting{
			ID:              fmt.Sprint(i + 1),
			Name:            fmt.Sprintf("meeting-%02d", i+1),
			RequiredMembers: required,
			Duration:        time.Hour,
		})
	}
	for d := 0; d < 5; d++ {
		day := monday.AddDate(0, 0, d)
		in.Windows = append(in.Windows, model.Window{
			ID:    fmt.Sprintf("day-%d", d),
			Start: day.Add(9 * time.Hour),
			End:   day.Add(17 * time.Hour),
		})
	}
	in.Busy = make(map[string][]model.BusyInterval)
	for _, m := range in.Members {
		for k := 0; k < 70; k++ {
			start := monday.Add(time.Duration(rng.Intn(5*24*2)) * 30 * time.Minute)
			in.Busy[m.ID] = append(in.Busy[m.ID], model.BusyInterval{Start: start, End: start.Add(time.Hour)})
		}
	}
	in.Weights = model.DefaultPenaltyWeights()
	return in
}

func TestGiniSolvesBusyWeek(t *testing.T) {
	if testing.Short() {
		t.Skip("full week search")
	}
	in := busyWeek(11)
	e := scheduler.NewEngine(New(Config{}, nil), scheduler.WithTimeout(60*time.Second))

	began := time.Now()
	res, err := e.GenerateSchedule(context.Background(), in)
	require.NoError(t, err)
	t.Logf("week solved in %s, cost %d, %d variables, %d hard clauses",
		time.Since(began), res.TotalCost, res.Stats.Variables, res.Stats.HardClauses)

	assert.True(t, res.Optimal)
	require.Len(t, res.Bindings, len(in.Meetings))
	for i, a := range res.Bindings {
		for _, b := range res.Bindings[i+1:] {
			if a.Slot.WindowID != b.Slot.WindowID {
				continue
			}
			assert.False(t, scheduler.Overlaps(a.Slot.Start, a.Slot.End, b.Slot.Start, b.Slot.End),
				"%s and %s overlap", a.Meeting.Name, b.Meeting.Name)
		}
	}
}

func TestGiniBusyWeekCappedSearch(t *testing.T) {
	if testing.Short() {
		t.Skip("full week search")
	}
	in := busyWeek(5)
	in.Meetings = in.Meetings[:4]
	in.Windows = in.Windows[:2]

	first, err := scheduler.NewEngine(New(Config{}, nil)).GenerateSchedule(context.Background(), in)
	require.NoError(t, err)
	require.True(t, first.Optimal)

	// A capped search stops early and never beats the proven optimum.
	capped, err := scheduler.NewEngine(New(Config{MaxRounds: 1}, nil), scheduler.WithBestEffort(true)).
		GenerateSchedule(context.Background(), in)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, capped.TotalCost, first.TotalCost)
}
