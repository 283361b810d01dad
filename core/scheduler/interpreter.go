package scheduler

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/gcal-scheduler/core/model"
	"github.com/kilianp07/gcal-scheduler/core/solver"
)

// InterpretInput is what the interpreter needs besides the solver answer.
type InterpretInput struct {
	Problem *Problem
	Table   *AvailabilityTable
	Rules   model.Rules
	Members []model.Member
}

// Interpret decodes a solver model into a schedule with diagnostics. A model
// that breaks a hard clause or whose cost disagrees with the formula is a
// SolverInternalError.
func Interpret(in InterpretInput, res solver.Result) (*model.ScheduleResult, error) {
	p := in.Problem
	f := p.Formula
	internal := func(err error) error {
		return &SolverInternalError{
			Variables:   f.Variables,
			HardClauses: len(f.Hard),
			SoftClauses: len(f.Soft),
			Err:         err,
		}
	}
	if len(res.Assignment) != f.Variables+1 {
		return nil, internal(fmt.Errorf("assignment has %d entries, want %d", len(res.Assignment), f.Variables+1))
	}
	if i, ok := f.HardSatisfied(res.Assignment); !ok {
		return nil, internal(fmt.Errorf("%s clause %d %s violated", p.HardRules[i], i, f.Hard[i]))
	}

	out := &model.ScheduleResult{Optimal: res.Optimal, Warnings: p.Warnings()}

	for _, v := range res.True() {
		if v.Var() >= len(p.Decisions) {
			continue
		}
		d := p.Decisions[v.Var()]
		out.Bindings = append(out.Bindings, model.Binding{
			Meeting:        d.Meeting,
			Slot:           d.Slot,
			MissingMembers: in.Table.Missing(d.Slot.ID, d.Meeting.RequiredMembers),
		})
	}
	sort.SliceStable(out.Bindings, func(i, j int) bool {
		a, b := out.Bindings[i], out.Bindings[j]
		if !a.Slot.Start.Equal(b.Slot.Start) {
			return a.Slot.Start.Before(b.Slot.Start)
		}
		return a.Meeting.Name < b.Meeting.Name
	})

	for _, b := range out.Bindings {
		out.Attendance.Present += b.Present()
		out.Attendance.Required += len(b.Meeting.RequiredMembers)

		keys := in.Rules.KeyAttendeesOf(b.Meeting.ID)
		key := in.Rules.IsKeyMeeting(b.Meeting.ID)
		for _, id := range b.MissingMembers {
			out.Violations.RequiredMemberAbsences++
			if keys[id] > 0 {
				out.Violations.KeyAttendeeAbsences++
			}
			if key {
				out.Violations.KeyMeetingAbsences++
			}
		}
	}

	out.DoubleBookings = doubleBookings(out.Bindings)

	for i, s := range f.Soft {
		if s.Clause.Satisfied(res.Assignment) {
			continue
		}
		switch p.SoftOrigins[i].Rule {
		case RuleKeyAttendee:
			out.Cost.KeyAttendee += s.Weight
		case RuleRequiredMember:
			out.Cost.RequiredMember += s.Weight
		case RuleKeyMeeting:
			out.Cost.KeyMeeting += s.Weight
		}
	}
	out.TotalCost = out.Cost.Total()
	if out.TotalCost != res.Cost {
		return nil, internal(fmt.Errorf("solver reported cost %d, model costs %d", res.Cost, out.TotalCost))
	}

	out.Spread = attendanceSpread(in.Members, out.Bindings)
	return out, nil
}

// doubleBookings pairs distinct meetings whose slots overlap and share a
// present member. Windows are not considered.
func doubleBookings(bindings []model.Binding) []model.DoubleBooking {
	var out []model.DoubleBooking
	for i := 0; i < len(bindings); i++ {
		for j := i + 1; j < len(bindings); j++ {
			a, b := bindings[i], bindings[j]
			if a.Meeting.ID == b.Meeting.ID {
				continue
			}
			if !Overlaps(a.Slot.Start, a.Slot.End, b.Slot.Start, b.Slot.End) {
				continue
			}
			for _, id := range a.Meeting.RequiredMembers {
				if a.IsMissing(id) || !b.Meeting.Requires(id) || b.IsMissing(id) {
					continue
				}
				out = append(out, model.DoubleBooking{
					MemberID: id,
					MeetingA: a.Meeting.ID,
					MeetingB: b.Meeting.ID,
					SlotA:    a.Slot.ID,
					SlotB:    b.Slot.ID,
				})
			}
		}
	}
	return out
}

func attendanceSpread(members []model.Member, bindings []model.Binding) model.AttendanceSpread {
	var spread model.AttendanceSpread
	var rates []float64
	for _, m := range members {
		ma := model.MemberAttendance{MemberID: m.ID}
		for _, b := range bindings {
			if !b.Meeting.Requires(m.ID) {
				continue
			}
			ma.Required++
			if !b.IsMissing(m.ID) {
				ma.Attended++
			}
		}
		if ma.Required == 0 {
			continue
		}
		ma.Rate = float64(ma.Attended) / float64(ma.Required)
		rates = append(rates, ma.Rate)
		spread.Members = append(spread.Members, ma)
	}
	switch len(rates) {
	case 0:
	case 1:
		spread.Mean = rates[0]
	default:
		spread.Mean, spread.StdDev = stat.MeanStdDev(rates, nil)
	}
	return spread
}
