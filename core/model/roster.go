package model

import "time"

// DefaultMeetingDuration is the slot length used when a meeting does not
// declare its own duration.
const DefaultMeetingDuration = 60 * time.Minute

// Member is a person whose presence is requested by meetings.
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// CalendarRef is an opaque handle only understood by the calendar source.
	CalendarRef string `json:"calendar_ref"`
}

// Meeting is a fixed meeting that must be placed in exactly one slot.
type Meeting struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	RequiredMembers []string      `json:"required_members"`
	Duration        time.Duration `json:"duration"`
}

// EffectiveDuration returns the meeting duration, falling back to def when the
// meeting does not declare one.
func (m Meeting) EffectiveDuration(def time.Duration) time.Duration {
	if m.Duration > 0 {
		return m.Duration
	}
	if def > 0 {
		return def
	}
	return DefaultMeetingDuration
}

// Requires reports whether memberID is one of the meeting's required members.
func (m Meeting) Requires(memberID string) bool {
	for _, id := range m.RequiredMembers {
		if id == memberID {
			return true
		}
	}
	return false
}
