package model

import "fmt"

// KeyAttendeeRule marks members whose presence at a meeting is high priority.
type KeyAttendeeRule struct {
	MeetingID string   `json:"meeting_id"`
	MemberIDs []string `json:"member_ids"`
}

// KeyMeetingRule elevates the priority of every required member of a meeting.
type KeyMeetingRule struct {
	MeetingID string `json:"meeting_id"`
}

// Rules groups the optional priority rules of a scheduling run.
type Rules struct {
	KeyAttendees []KeyAttendeeRule `json:"key_attendees"`
	KeyMeetings  []KeyMeetingRule  `json:"key_meetings"`
}

// IsKeyMeeting reports whether a KeyMeetingRule targets meetingID.
func (r Rules) IsKeyMeeting(meetingID string) bool {
	for _, km := range r.KeyMeetings {
		if km.MeetingID == meetingID {
			return true
		}
	}
	return false
}

// KeyAttendeesOf counts, per member id, how many key attendee entries name
// that member for meetingID. Each entry is penalised on its own, so a member
// listed twice weighs twice.
func (r Rules) KeyAttendeesOf(meetingID string) map[string]int {
	out := make(map[string]int)
	for _, ka := range r.KeyAttendees {
		if ka.MeetingID != meetingID {
			continue
		}
		for _, id := range ka.MemberIDs {
			out[id]++
		}
	}
	return out
}

// PenaltyWeights are the soft-constraint weights. A zero weight keeps the
// clauses but removes their effect on the optimum.
type PenaltyWeights struct {
	KeyAttendeeAbsence    int `json:"key_attendee_absence"`
	RequiredMemberAbsence int `json:"required_member_absence"`
	KeyMeetingAbsence     int `json:"key_meeting_absence"`
}

// DefaultPenaltyWeights returns the stock weights.
func DefaultPenaltyWeights() PenaltyWeights {
	return PenaltyWeights{
		KeyAttendeeAbsence:    100,
		RequiredMemberAbsence: 1,
		KeyMeetingAbsence:     5,
	}
}

// Validate rejects negative weights.
func (w PenaltyWeights) Validate() error {
	if w.KeyAttendeeAbsence < 0 {
		return fmt.Errorf("key_attendee_absence must be >= 0, got %d", w.KeyAttendeeAbsence)
	}
	if w.RequiredMemberAbsence < 0 {
		return fmt.Errorf("required_member_absence must be >= 0, got %d", w.RequiredMemberAbsence)
	}
	if w.KeyMeetingAbsence < 0 {
		return fmt.Errorf("key_meeting_absence must be >= 0, got %d", w.KeyMeetingAbsence)
	}
	return nil
}

// Override returns a copy of w where every non-nil override replaces the
// corresponding weight.
func (w PenaltyWeights) Override(keyAttendee, required, keyMeeting *int) PenaltyWeights {
	if keyAttendee != nil {
		w.KeyAttendeeAbsence = *keyAttendee
	}
	if required != nil {
		w.RequiredMemberAbsence = *required
	}
	if keyMeeting != nil {
		w.KeyMeetingAbsence = *keyMeeting
	}
	return w
}
