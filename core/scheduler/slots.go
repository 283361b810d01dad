package scheduler

import (
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/kilianp07/gcal-scheduler/core/model"
)

// SlotStep is the offset between consecutive candidate slot starts.
const SlotStep = 30 * time.Minute

// alignUp rounds t (in UTC) up to the next :00 or :30 mark. A time already on a
// mark only loses its seconds.
func alignUp(t time.Time) time.Time {
	t = t.UTC()
	floor := t.Truncate(SlotStep)
	if t.Sub(floor) < time.Minute {
		return floor
	}
	return floor.Add(SlotStep)
}

// SlotTimes yields the candidate [start, end) pairs of length d inside the
// window [start, end). Iteration can be restarted any number of times.
func SlotTimes(start, end time.Time, d time.Duration) iter.Seq2[time.Time, time.Time] {
	return func(yield func(time.Time, time.Time) bool) {
		if d <= 0 {
			return
		}
		for s := alignUp(start); !s.Add(d).After(end); s = s.Add(SlotStep) {
			if !yield(s, s.Add(d)) {
				return
			}
		}
	}
}

// WindowID returns the identifier of the i-th window, defaulting to w<i>.
func WindowID(w model.Window, i int) string {
	if w.ID != "" {
		return w.ID
	}
	return fmt.Sprintf("w%d", i)
}

// GenerateSlots carves every window into slots for each distinct duration.
// Ids are s1, s2, ... in window order, then duration, then start time.
func GenerateSlots(windows []model.Window, durations []time.Duration) []model.Slot {
	ds := lo.Filter(lo.Uniq(durations), func(d time.Duration, _ int) bool { return d > 0 })
	slices.Sort(ds)

	var slots []model.Slot
	for i, w := range windows {
		wid := WindowID(w, i)
		for _, d := range ds {
			for start, end := range SlotTimes(w.Start, w.End, d) {
				slots = append(slots, model.Slot{
					ID:       fmt.Sprintf("s%d", len(slots)+1),
					Start:    start,
					End:      end,
					WindowID: wid,
					Location: w.Location,
				})
			}
		}
	}
	return slots
}
