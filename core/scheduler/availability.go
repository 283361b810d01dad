package scheduler

import (
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/gcal-scheduler/core/model"
)

// Overlaps reports whether [s1,e1) and [s2,e2) share an instant. Comparison
// happens on absolute instants, so zones do not matter.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	start := s1
	if s2.After(start) {
		start = s2
	}
	end := e1
	if e2.Before(end) {
		end = e2
	}
	return start.Before(end)
}

// Available reports whether no busy interval overlaps slot.
func Available(slot model.Slot, busy []model.BusyInterval) bool {
	for _, b := range busy {
		if Overlaps(slot.Start, slot.End, b.Start, b.End) {
			return false
		}
	}
	return true
}

// AvailabilityTable caches the availability of every member in every slot.
// It is read-only once built.
type AvailabilityTable struct {
	slots   map[string]int
	members map[string]int
	free    [][]bool // [slot][member]
}

// BuildAvailability resolves each (member, slot) pair exactly once. Slots are
// split into up to workers disjoint ranges resolved concurrently; every range
// writes only its own rows.
func BuildAvailability(slots []model.Slot, members []model.Member, busy map[string][]model.BusyInterval, workers int) *AvailabilityTable {
	t := &AvailabilityTable{
		slots:   make(map[string]int, len(slots)),
		members: make(map[string]int, len(members)),
		free:    make([][]bool, len(slots)),
	}
	for i, s := range slots {
		t.slots[s.ID] = i
	}
	for j, m := range members {
		t.members[m.ID] = j
	}
	if workers < 1 {
		workers = 1
	}
	chunk := (len(slots) + workers - 1) / workers
	var g errgroup.Group
	for from := 0; from < len(slots); from += chunk {
		to := min(from+chunk, len(slots))
		g.Go(func() error {
			for i := from; i < to; i++ {
				row := make([]bool, len(members))
				for j, m := range members {
					row[j] = Available(slots[i], busy[m.ID])
				}
				t.free[i] = row
			}
			return nil
		})
	}
	_ = g.Wait()
	return t
}

// Available reports whether memberID is free in slotID. Unknown ids are
// reported unavailable.
func (t *AvailabilityTable) Available(slotID, memberID string) bool {
	i, ok := t.slots[slotID]
	if !ok {
		return false
	}
	j, ok := t.members[memberID]
	if !ok {
		return false
	}
	return t.free[i][j]
}

// Missing returns the members of ids unavailable in slotID, in input order.
func (t *AvailabilityTable) Missing(slotID string, ids []string) []string {
	out := []string{}
	for _, id := range ids {
		if !t.Available(slotID, id) {
			out = append(out, id)
		}
	}
	return out
}

// FreeCount returns how many of ids are available in slotID.
func (t *AvailabilityTable) FreeCount(slotID string, ids []string) int {
	return len(ids) - len(t.Missing(slotID, ids))
}
