package scheduler

import (
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/kilianp07/gcal-scheduler/core/model"
	"github.com/kilianp07/gcal-scheduler/core/solver"
)

// Rule identifies which scheduling rule produced a clause.
type Rule string

const (
	RuleExactlyOne     Rule = "exactly_one"
	RuleSlotCapacity   Rule = "slot_capacity"
	RuleWindowOverlap  Rule = "window_overlap"
	RuleKeyAttendee    Rule = "key_attendee"
	RuleRequiredMember Rule = "required_member"
	RuleKeyMeeting     Rule = "key_meeting"
)

// Decision is the meaning of one decision variable: Meeting is held in Slot.
type Decision struct {
	Meeting model.Meeting
	Slot    model.Slot
}

// Name returns the diagnostic variable name m<meeting-id>_<slot-id>. Slot ids
// already carry their s prefix.
func (d Decision) Name() string { return VarName(d.Meeting.ID, d.Slot.ID) }

// VarName formats a decision variable name.
func VarName(meetingID, slotID string) string { return fmt.Sprintf("m%s_%s", meetingID, slotID) }

// SoftOrigin records why a soft clause exists.
type SoftOrigin struct {
	Rule     Rule
	MemberID string
	Var      solver.Lit
}

// Problem is the encoded formula with everything needed to decode a model.
type Problem struct {
	Formula solver.Formula
	// HardRules and SoftOrigins are parallel to Formula.Hard and Formula.Soft.
	HardRules   []Rule
	SoftOrigins []SoftOrigin
	// Decisions is indexed by decision variable; entry 0 is unused. Auxiliary
	// variables of the cardinality encodings come after the last decision.
	Decisions []Decision
	// Candidates maps a meeting id to its candidate slot ids.
	Candidates map[string][]string
	// Unschedulable lists meetings without any candidate slot.
	Unschedulable []model.Meeting

	vars map[string]solver.Lit
}

// Var returns the literal of "meeting in slot", if that pair is a candidate.
func (p *Problem) Var(meetingID, slotID string) (solver.Lit, bool) {
	l, ok := p.vars[VarName(meetingID, slotID)]
	return l, ok
}

// Warnings reports the meetings skipped for lack of candidate slots.
func (p *Problem) Warnings() []model.Warning {
	return lo.Map(p.Unschedulable, func(m model.Meeting, _ int) model.Warning {
		return model.Warning{
			Kind:      model.WarningPartialData,
			MeetingID: m.ID,
			Meeting:   m.Name,
			Message:   fmt.Sprintf("meeting %q has no candidate slot and was not scheduled", m.Name),
		}
	})
}

func (p *Problem) addHard(r Rule, lits ...solver.Lit) {
	p.Formula.AddHard(lits...)
	p.HardRules = append(p.HardRules, r)
}

func (p *Problem) addPenalty(r Rule, weight int, memberID string, v solver.Lit) {
	p.Formula.AddSoft(weight, v.Neg())
	p.SoftOrigins = append(p.SoftOrigins, SoftOrigin{Rule: r, MemberID: memberID, Var: v})
}

// EncodeInput holds the validated inputs of the encoder.
type EncodeInput struct {
	Meetings        []model.Meeting
	Slots           []model.Slot
	Table           *AvailabilityTable
	Rules           model.Rules
	Weights         model.PenaltyWeights
	DefaultDuration time.Duration
}

// Encode builds the weighted formula of a run. It returns a
// NoFeasibleInputError when there is nothing to solve.
func Encode(in EncodeInput) (*Problem, error) {
	if len(in.Meetings) == 0 {
		return nil, &NoFeasibleInputError{Reason: ReasonNoMeetings}
	}
	if len(in.Slots) == 0 {
		return nil, &NoFeasibleInputError{
			Reason:  ReasonNoSlots,
			Skipped: lo.Map(in.Meetings, func(m model.Meeting, _ int) string { return m.Name }),
		}
	}

	p := &Problem{
		Decisions:  []Decision{{}},
		Candidates: make(map[string][]string),
		vars:       make(map[string]solver.Lit),
	}
	byMeeting := make(map[string][]solver.Lit)
	bySlot := make(map[string][]solver.Lit)

	for _, m := range in.Meetings {
		d := m.EffectiveDuration(in.DefaultDuration)
		cands := lo.Filter(in.Slots, func(s model.Slot, _ int) bool { return s.Duration() == d })
		if len(cands) == 0 {
			p.Unschedulable = append(p.Unschedulable, m)
			continue
		}
		for _, s := range cands {
			v := p.Formula.NewVar()
			p.Decisions = append(p.Decisions, Decision{Meeting: m, Slot: s})
			p.vars[VarName(m.ID, s.ID)] = v
			byMeeting[m.ID] = append(byMeeting[m.ID], v)
			bySlot[s.ID] = append(bySlot[s.ID], v)
			p.Candidates[m.ID] = append(p.Candidates[m.ID], s.ID)
		}
	}
	if p.Formula.Variables == 0 {
		return nil, &NoFeasibleInputError{
			Reason:  ReasonNoFeasibleMeetings,
			Skipped: lo.Map(p.Unschedulable, func(m model.Meeting, _ int) string { return m.Name }),
		}
	}

	for _, m := range in.Meetings {
		vs := byMeeting[m.ID]
		if len(vs) == 0 {
			continue
		}
		p.addHard(RuleExactlyOne, vs...)
		atMostOne(p, RuleExactlyOne, vs)
	}
	for _, s := range in.Slots {
		atMostOne(p, RuleSlotCapacity, bySlot[s.ID])
	}
	encodeWindowOverlap(p, in.Slots, bySlot)

	w := in.Weights
	for _, m := range in.Meetings {
		vs := byMeeting[m.ID]
		if len(vs) == 0 {
			continue
		}
		counts := in.Rules.KeyAttendeesOf(m.ID)
		keys := lo.Keys(counts)
		sort.Strings(keys)
		key := in.Rules.IsKeyMeeting(m.ID)
		for _, v := range vs {
			slotID := p.Decisions[v.Var()].Slot.ID
			for _, id := range keys {
				if in.Table.Available(slotID, id) {
					continue
				}
				for n := 0; n < counts[id]; n++ {
					p.addPenalty(RuleKeyAttendee, w.KeyAttendeeAbsence, id, v)
				}
			}
			for _, id := range m.RequiredMembers {
				if in.Table.Available(slotID, id) {
					continue
				}
				p.addPenalty(RuleRequiredMember, w.RequiredMemberAbsence, id, v)
				if key {
					p.addPenalty(RuleKeyMeeting, w.KeyMeetingAbsence, id, v)
				}
			}
		}
	}

	if len(p.Formula.Hard) == 0 {
		return nil, &NoFeasibleInputError{Reason: ReasonNoFeasibleMeetings}
	}
	return p, nil
}

// pairwiseLimit is the largest group encoded with plain pairwise exclusions.
// Larger groups use auxiliary variables to keep the clause count linear.
const pairwiseLimit = 6

// atMostOne excludes any two literals of vs. Groups above pairwiseLimit use a
// sequential counter: s[i] is true once one of vs[0..i] is true.
func atMostOne(p *Problem, r Rule, vs []solver.Lit) {
	if len(vs) <= pairwiseLimit {
		for i := 0; i < len(vs); i++ {
			for j := i + 1; j < len(vs); j++ {
				p.addHard(r, vs[i].Neg(), vs[j].Neg())
			}
		}
		return
	}
	n := len(vs)
	s := make([]solver.Lit, n-1)
	for i := range s {
		s[i] = p.Formula.NewVar()
	}
	p.addHard(r, vs[0].Neg(), s[0])
	for i := 1; i < n-1; i++ {
		p.addHard(r, vs[i].Neg(), s[i])
		p.addHard(r, s[i-1].Neg(), s[i])
		p.addHard(r, vs[i].Neg(), s[i-1].Neg())
	}
	p.addHard(r, vs[n-1].Neg(), s[n-2].Neg())
}

// encodeWindowOverlap forbids two different meetings on overlapping slots of
// the same window. Same-slot pairs are covered by slot capacity and the same
// meeting on two slots by exactly-one.
func encodeWindowOverlap(p *Problem, slots []model.Slot, bySlot map[string][]solver.Lit) {
	byWindow := lo.GroupBy(slots, func(s model.Slot) string { return s.WindowID })
	windows := lo.Keys(byWindow)
	sort.Strings(windows)
	for _, wid := range windows {
		ws := byWindow[wid]
		dense := lo.SomeBy(ws, func(s model.Slot) bool { return len(bySlot[s.ID])*2 > pairwiseLimit })
		occupied := make(map[string]solver.Lit)
		occupancy := func(s model.Slot) solver.Lit {
			if o, ok := occupied[s.ID]; ok {
				return o
			}
			o := p.Formula.NewVar()
			for _, x := range bySlot[s.ID] {
				p.addHard(RuleWindowOverlap, x.Neg(), o)
			}
			occupied[s.ID] = o
			return o
		}
		for i := 0; i < len(ws); i++ {
			for j := i + 1; j < len(ws); j++ {
				a, b := ws[i], ws[j]
				if !Overlaps(a.Start, a.End, b.Start, b.End) || len(bySlot[a.ID]) == 0 || len(bySlot[b.ID]) == 0 {
					continue
				}
				if dense {
					p.addHard(RuleWindowOverlap, occupancy(a).Neg(), occupancy(b).Neg())
					continue
				}
				for _, x := range bySlot[a.ID] {
					for _, y := range bySlot[b.ID] {
						if p.Decisions[x.Var()].Meeting.ID == p.Decisions[y.Var()].Meeting.ID {
							continue
						}
						p.addHard(RuleWindowOverlap, x.Neg(), y.Neg())
					}
				}
			}
		}
	}
}
