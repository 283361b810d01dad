package model

import (
	"fmt"
	"time"
)

// Binding places one meeting in one slot.
type Binding struct {
	Meeting Meeting `json:"meeting"`
	Slot    Slot    `json:"slot"`
	// MissingMembers holds the ids of required members unavailable in Slot.
	MissingMembers []string `json:"missing_members"`
}

// Present returns the number of required members able to attend.
func (b Binding) Present() int { return len(b.Meeting.RequiredMembers) - len(b.MissingMembers) }

// IsMissing reports whether memberID is absent from the binding.
func (b Binding) IsMissing(memberID string) bool {
	for _, id := range b.MissingMembers {
		if id == memberID {
			return true
		}
	}
	return false
}

// Attendance aggregates presence over every scheduled meeting.
type Attendance struct {
	Present  int `json:"present"`
	Required int `json:"required"`
}

// Percent returns the attendance percentage. ok is false when no member was
// required at all.
func (a Attendance) Percent() (pct float64, ok bool) {
	if a.Required == 0 {
		return 0, false
	}
	return 100 * float64(a.Present) / float64(a.Required), true
}

func (a Attendance) String() string {
	pct, ok := a.Percent()
	if !ok {
		return "N/A"
	}
	return fmt.Sprintf("%d / %d = %.2f%%", a.Present, a.Required, pct)
}

// DoubleBooking records a present member bound to two meetings whose slots
// overlap in time.
type DoubleBooking struct {
	MemberID string `json:"member_id"`
	MeetingA string `json:"meeting_a"`
	MeetingB string `json:"meeting_b"`
	SlotA    string `json:"slot_a"`
	SlotB    string `json:"slot_b"`
}

// Violations counts absences per rule kind.
type Violations struct {
	KeyAttendeeAbsences    int `json:"key_attendee_absences"`
	RequiredMemberAbsences int `json:"required_member_absences"`
	KeyMeetingAbsences     int `json:"key_meeting_absences"`
}

// CostBreakdown splits the solver cost by soft rule.
type CostBreakdown struct {
	KeyAttendee    int `json:"key_attendee"`
	RequiredMember int `json:"required_member"`
	KeyMeeting     int `json:"key_meeting"`
}

// Total sums the breakdown.
func (c CostBreakdown) Total() int { return c.KeyAttendee + c.RequiredMember + c.KeyMeeting }

// MemberAttendance is the share of a member's required meetings they attend.
type MemberAttendance struct {
	MemberID string  `json:"member_id"`
	Attended int     `json:"attended"`
	Required int     `json:"required"`
	Rate     float64 `json:"rate"`
}

// AttendanceSpread summarises per-member attendance rates.
type AttendanceSpread struct {
	Members []MemberAttendance `json:"members"`
	Mean    float64            `json:"mean"`
	StdDev  float64            `json:"std_dev"`
}

// WarningKind classifies non-fatal findings of a run.
type WarningKind string

// WarningPartialData flags a meeting skipped because it had no candidate slot.
const WarningPartialData WarningKind = "partial_data"

// Warning is a non-fatal finding reported alongside a schedule.
type Warning struct {
	Kind      WarningKind `json:"kind"`
	MeetingID string      `json:"meeting_id"`
	Meeting   string      `json:"meeting"`
	Message   string      `json:"message"`
}

// SolveStats describes the size of the encoded problem.
type SolveStats struct {
	Slots       int           `json:"slots"`
	Variables   int           `json:"variables"`
	HardClauses int           `json:"hard_clauses"`
	SoftClauses int           `json:"soft_clauses"`
	Elapsed     time.Duration `json:"elapsed"`
}

// ScheduleResult is the immutable output of one scheduling run.
type ScheduleResult struct {
	Bindings       []Binding        `json:"bindings"`
	Attendance     Attendance       `json:"attendance"`
	DoubleBookings []DoubleBooking  `json:"double_bookings"`
	Violations     Violations       `json:"violations"`
	Cost           CostBreakdown    `json:"cost"`
	TotalCost      int              `json:"total_cost"`
	Optimal        bool             `json:"optimal"`
	Spread         AttendanceSpread `json:"spread"`
	Warnings       []Warning        `json:"warnings,omitempty"`
	Stats          SolveStats       `json:"stats"`
}

// BindingFor returns the binding of meetingID, if scheduled.
func (r *ScheduleResult) BindingFor(meetingID string) (Binding, bool) {
	for _, b := range r.Bindings {
		if b.Meeting.ID == meetingID {
			return b, true
		}
	}
	return Binding{}, false
}

// DoubleBookedIn returns the ids of members double booked in the given
// meeting.
func (r *ScheduleResult) DoubleBookedIn(meetingID string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, db := range r.DoubleBookings {
		if db.MeetingA != meetingID && db.MeetingB != meetingID {
			continue
		}
		if !seen[db.MemberID] {
			seen[db.MemberID] = true
			out = append(out, db.MemberID)
		}
	}
	return out
}
