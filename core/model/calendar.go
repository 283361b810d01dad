package model

import "time"

// Window is an externally sourced block of calendar time open for scheduling.
type Window struct {
	ID       string    `json:"id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Location string    `json:"location,omitempty"`
	Summary  string    `json:"summary,omitempty"`
}

// Slot is a fixed-duration candidate placement carved from a Window.
// Slots are never mutated after generation.
type Slot struct {
	ID       string    `json:"id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	WindowID string    `json:"window_id"`
	Location string    `json:"location,omitempty"`
}

// Duration returns the slot length.
func (s Slot) Duration() time.Duration { return s.End.Sub(s.Start) }

// BusyInterval is a half-open [Start, End) conflict on a member's calendar.
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Event is a calendar entry written back to a calendar when a schedule is saved.
type Event struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
}
