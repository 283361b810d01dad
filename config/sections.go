package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/gcal-scheduler/core/factory"
	"github.com/kilianp07/gcal-scheduler/core/model"
)

// MemberConfig names a team member and the calendar holding their
// conflicts. An empty calendar falls back to the member name.
type MemberConfig struct {
	Name     string `json:"name"`
	Calendar string `json:"calendar"`
}

// MeetingConfig lists a meeting by name with its required member names.
type MeetingConfig struct {
	Name            string   `json:"name"`
	Members         []string `json:"members"`
	DurationMinutes int      `json:"duration_minutes"`
}

// KeyAttendeeConfig accepts either a members list or a single member.
type KeyAttendeeConfig struct {
	Meeting string   `json:"meeting"`
	Members []string `json:"members"`
	Member  string   `json:"member"`
}

// Names returns the union of Members and Member.
func (k KeyAttendeeConfig) Names() []string {
	out := append([]string(nil), k.Members...)
	if k.Member != "" {
		out = append(out, k.Member)
	}
	return out
}

// PenaltyConfig holds soft-constraint weights. Unset fields take the stock
// weights.
type PenaltyConfig struct {
	KeyAttendeeAbsence    *int `json:"key_attendee_absence"`
	RequiredMemberAbsence *int `json:"required_member_absence"`
	KeyMeetingAbsence     *int `json:"key_meeting_absence"`
}

// SetDefaults fills unset weights.
func (c *PenaltyConfig) SetDefaults() {
	def := model.DefaultPenaltyWeights()
	if c.KeyAttendeeAbsence == nil {
		c.KeyAttendeeAbsence = &def.KeyAttendeeAbsence
	}
	if c.RequiredMemberAbsence == nil {
		c.RequiredMemberAbsence = &def.RequiredMemberAbsence
	}
	if c.KeyMeetingAbsence == nil {
		c.KeyMeetingAbsence = &def.KeyMeetingAbsence
	}
}

// Weights returns the configured weights, stock values for unset fields.
func (c PenaltyConfig) Weights() model.PenaltyWeights {
	return model.DefaultPenaltyWeights().Override(c.KeyAttendeeAbsence, c.RequiredMemberAbsence, c.KeyMeetingAbsence)
}

// Validate rejects negative weights.
func (c PenaltyConfig) Validate() error { return c.Weights().Validate() }

// SchedulingConfig tunes slot generation and local time handling.
type SchedulingConfig struct {
	SlotDurationMinutes int    `json:"slot_duration_minutes"`
	Timezone            string `json:"timezone"`
	Workers             int    `json:"workers"`
	FetchConcurrency    int    `json:"fetch_concurrency"`
}

// DefaultTimezone is used to read week bounds and render local times.
const DefaultTimezone = "America/New_York"

// SetDefaults applies sane defaults.
func (c *SchedulingConfig) SetDefaults() {
	if c.SlotDurationMinutes == 0 {
		c.SlotDurationMinutes = int(model.DefaultMeetingDuration / time.Minute)
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = 4
	}
}

// SlotDuration returns the default meeting length.
func (c SchedulingConfig) SlotDuration() time.Duration {
	return time.Duration(c.SlotDurationMinutes) * time.Minute
}

// Location loads the configured zone.
func (c SchedulingConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate checks the duration and the zone.
func (c SchedulingConfig) Validate() error {
	if c.SlotDurationMinutes <= 0 {
		return fmt.Errorf("slot_duration_minutes must be positive, got %d", c.SlotDurationMinutes)
	}
	_, err := c.Location()
	return err
}

// CalendarConfig selects the calendar collaborator. An empty type or
// "static" serves potential_times and busy from this file.
type CalendarConfig struct {
	Type                     string         `json:"type"`
	PotentialTimesCalendarID string         `json:"potential_times_calendar_id"`
	SaveCalendar             string         `json:"save_calendar"`
	Conf                     map[string]any `json:"conf"`
}

// IsStatic reports whether windows and conflicts come from the file itself.
func (c CalendarConfig) IsStatic() bool { return c.Type == "" || c.Type == "static" }

// Module returns the registry entry of the calendar source.
func (c CalendarConfig) Module() factory.ModuleConfig {
	return factory.ModuleConfig{Type: c.Type, Conf: c.Conf}
}

// Validate requires a windows calendar for remote sources.
func (c CalendarConfig) Validate(hasStaticWindows bool) error {
	if c.IsStatic() {
		return nil
	}
	if c.PotentialTimesCalendarID == "" && !hasStaticWindows {
		return errors.New("calendar.potential_times_calendar_id is required unless potential_times are listed")
	}
	return nil
}

// WindowConfig is a static availability window.
type WindowConfig struct {
	ID       string `json:"id"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Location string `json:"location"`
	Summary  string `json:"summary"`
}

// BusyConfig is a static conflict of one member.
type BusyConfig struct {
	Member string `json:"member"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

// SolverConfig selects the MaxSAT backend.
type SolverConfig struct {
	Type             string         `json:"type"`
	Timeout          time.Duration  `json:"timeout"`
	AcceptBestEffort bool           `json:"accept_best_effort"`
	Conf             map[string]any `json:"conf"`
}

// DefaultSolverTimeout bounds a solve when none is configured.
const DefaultSolverTimeout = time.Minute

// SetDefaults selects gini with a one minute bound.
func (c *SolverConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "gini"
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultSolverTimeout
	}
}

// Module returns the registry entry of the solver.
func (c SolverConfig) Module() factory.ModuleConfig {
	return factory.ModuleConfig{Type: c.Type, Conf: c.Conf}
}

// Validate rejects negative bounds.
func (c SolverConfig) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("solver.timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}
