// Package ics reads windows and conflicts from iCalendar feeds, given either
// as a local file path or an http(s) URL. Recurring events are expanded with
// their exceptions and overridden instances.
package ics

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/kilianp07/gcal-scheduler/core/logger"
	"github.com/kilianp07/gcal-scheduler/core/model"
)

// Config tunes feed retrieval.
type Config struct {
	Timeout time.Duration `json:"timeout"`
}

// Event is one VEVENT of a feed, or one occurrence of a recurring VEVENT.
type Event struct {
	UID         string
	Summary     string
	Location    string
	Start       time.Time
	End         time.Time
	Transparent bool
	Cancelled   bool
	// RRule is the raw recurrence rule, without its RRULE: prefix.
	RRule   string
	ExDates []time.Time
	// RecurrenceID is set on an instance overriding one occurrence of UID.
	RecurrenceID time.Time
	// Occurrence marks an instance produced by Expand.
	Occurrence bool

	tz *time.Location
}

// ID identifies the event within a feed. Occurrences of a recurring event
// share their UID, so their id also carries the start time.
func (e Event) ID() string {
	if !e.Occurrence {
		return e.UID
	}
	return e.UID + "@" + e.Start.UTC().Format(time.RFC3339)
}

// Source implements calendar.Source over ICS feeds.
type Source struct {
	client *http.Client
	log    logger.Logger
}

// New returns an ICS source.
func New(cfg Config, log logger.Logger) *Source {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Source{client: &http.Client{Timeout: cfg.Timeout}, log: log}
}

// FetchBusy returns the opaque events of the feed overlapping [start, end).
func (s *Source) FetchBusy(ctx context.Context, ref string, start, end time.Time) ([]model.BusyInterval, error) {
	events, err := s.occurrences(ctx, ref, start, end)
	if err != nil {
		return nil, err
	}
	var out []model.BusyInterval
	for _, e := range events {
		if e.Transparent {
			continue
		}
		out = append(out, model.BusyInterval{Start: e.Start, End: e.End})
	}
	return out, nil
}

// FetchWindows returns every event of the feed overlapping [start, end) as a
// window.
func (s *Source) FetchWindows(ctx context.Context, ref string, start, end time.Time) ([]model.Window, error) {
	events, err := s.occurrences(ctx, ref, start, end)
	if err != nil {
		return nil, err
	}
	var out []model.Window
	for _, e := range events {
		out = append(out, model.Window{ID: e.ID(), Start: e.Start, End: e.End, Location: e.Location, Summary: e.Summary})
	}
	return out, nil
}

func (s *Source) occurrences(ctx context.Context, ref string, start, end time.Time) ([]Event, error) {
	events, err := s.load(ctx, ref)
	if err != nil {
		return nil, err
	}
	events, err = Expand(events, start, end)
	if err != nil {
		s.log.Warnf("ics: %s: %v", ref, err)
	}
	return FilterByRange(events, start, end), nil
}

func (s *Source) load(ctx context.Context, ref string) ([]Event, error) {
	if ref == "" {
		return nil, fmt.Errorf("empty calendar reference")
	}
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		f, err := os.Open(ref)
		if err != nil {
			return nil, fmt.Errorf("opening calendar: %w", err)
		}
		defer f.Close()
		return Parse(f)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching calendar: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar returned status %d", resp.StatusCode)
	}
	events, err := Parse(resp.Body)
	if err != nil {
		return nil, err
	}
	s.log.Debugf("ics: %d events from %s", len(events), ref)
	return events, nil
}

// Parse reads the VEVENTs of an iCalendar stream. Events without both bounds
// are dropped.
func Parse(r io.Reader) ([]Event, error) {
	var (
		events  []Event
		current *Event
		lines   []string
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		// Folded continuation lines start with a space or a tab.
		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && len(lines) > 0 {
			lines[len(lines)-1] += line[1:]
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading calendar: %w", err)
	}

	for _, line := range lines {
		idx := strings.Index(line, ":")
		if idx == -1 {
			continue
		}
		name, params := splitParams(line[:idx])
		value := line[idx+1:]

		switch name {
		case "BEGIN":
			if value == "VEVENT" {
				current = &Event{}
			}
		case "END":
			if value == "VEVENT" && current != nil {
				if !current.Start.IsZero() && !current.End.IsZero() {
					events = append(events, *current)
				}
				current = nil
			}
		}
		if current == nil {
			continue
		}
		switch name {
		case "UID":
			current.UID = unescape(value)
		case "SUMMARY":
			current.Summary = unescape(value)
		case "LOCATION":
			current.Location = unescape(value)
		case "TRANSP":
			current.Transparent = value == "TRANSPARENT"
		case "STATUS":
			current.Cancelled = value == "CANCELLED"
		case "DTSTART":
			current.Start = parseDateTime(value, params["TZID"])
			current.tz = zone(params["TZID"])
		case "DTEND":
			current.End = parseDateTime(value, params["TZID"])
		case "RRULE":
			current.RRule = value
		case "EXDATE":
			for _, v := range strings.Split(value, ",") {
				if t := parseDateTime(v, params["TZID"]); !t.IsZero() {
					current.ExDates = append(current.ExDates, t)
				}
			}
		case "RECURRENCE-ID":
			current.RecurrenceID = parseDateTime(value, params["TZID"])
		}
	}
	return events, nil
}

// Expand replaces every recurring event by its occurrences overlapping
// [start, end). EXDATE values remove occurrences and instances carrying a
// RECURRENCE-ID replace the occurrence they name. Cancelled events are
// dropped. An event whose rule cannot be parsed is kept as a single event and
// reported in the returned error.
func Expand(events []Event, start, end time.Time) ([]Event, error) {
	overrides := make(map[string]map[int64]bool)
	for _, e := range events {
		if e.RecurrenceID.IsZero() {
			continue
		}
		if overrides[e.UID] == nil {
			overrides[e.UID] = make(map[int64]bool)
		}
		overrides[e.UID][e.RecurrenceID.Unix()] = true
	}

	var (
		out  []Event
		errs []error
	)
	for _, e := range events {
		switch {
		case e.Cancelled:
			continue
		case !e.RecurrenceID.IsZero():
			e.Occurrence = true
			out = append(out, e)
			continue
		case e.RRule == "":
			out = append(out, e)
			continue
		}
		starts, err := recurrences(e, start, end)
		if err != nil {
			errs = append(errs, fmt.Errorf("event %q: %w", e.UID, err))
			out = append(out, e)
			continue
		}
		length := e.End.Sub(e.Start)
		for _, t := range starts {
			if overrides[e.UID][t.Unix()] {
				continue
			}
			occ := e
			occ.Start = t.UTC()
			occ.End = occ.Start.Add(length)
			occ.RRule, occ.ExDates, occ.Occurrence = "", nil, true
			out = append(out, occ)
		}
	}
	return out, errors.Join(errs...)
}

// recurrences lists the occurrence starts of e that can overlap [start, end).
// The rule is evaluated in the zone of DTSTART so weekdays and wall-clock
// times follow that zone across DST changes.
func recurrences(e Event, start, end time.Time) ([]time.Time, error) {
	opt, err := rrule.StrToROption(strings.TrimPrefix(e.RRule, "RRULE:"))
	if err != nil {
		return nil, err
	}
	tz := e.tz
	if tz == nil {
		tz = time.UTC
	}
	opt.Dtstart = e.Start.In(tz)
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, err
	}
	set := rrule.Set{}
	set.RRule(r)
	for _, ex := range e.ExDates {
		set.ExDate(ex.In(tz))
	}
	return set.Between(start.Add(-e.End.Sub(e.Start)), end, true), nil
}

// FilterByRange returns events overlapping [start, end).
func FilterByRange(events []Event, start, end time.Time) []Event {
	var filtered []Event
	for _, e := range events {
		if e.Start.Before(end) && e.End.After(start) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

func splitParams(field string) (string, map[string]string) {
	parts := strings.Split(field, ";")
	params := make(map[string]string, len(parts)-1)
	for _, p := range parts[1:] {
		if k, v, ok := strings.Cut(p, "="); ok {
			params[strings.ToUpper(k)] = strings.Trim(v, `"`)
		}
	}
	return strings.ToUpper(parts[0]), params
}

func unescape(value string) string {
	value = strings.ReplaceAll(value, "\\n", "\n")
	value = strings.ReplaceAll(value, "\\N", "\n")
	value = strings.ReplaceAll(value, "\\,", ",")
	value = strings.ReplaceAll(value, "\\;", ";")
	return strings.ReplaceAll(value, "\\\\", "\\")
}

// parseDateTime parses a DTSTART/DTEND value. Floating times use tzid when it
// names a known zone and UTC otherwise.
func parseDateTime(value, tzid string) time.Time {
	if t, err := time.Parse("20060102T150405Z", value); err == nil {
		return t
	}
	loc := zone(tzid)
	for _, layout := range []string{"20060102T150405", "20060102"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// zone resolves a TZID, falling back to UTC for unknown or empty ids.
func zone(tzid string) *time.Location {
	if tzid == "" {
		return time.UTC
	}
	if l, err := time.LoadLocation(tzid); err == nil {
		return l
	}
	return time.UTC
}
