// Package google talks to the Google Calendar v3 API: it lists windows and
// conflicts and writes finished schedules back as events.
package google

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/kilianp07/gcal-scheduler/core/logger"
	"github.com/kilianp07/gcal-scheduler/core/model"
)

// Config locates the OAuth material.
type Config struct {
	CredentialsFile string `json:"credentials_file"`
	TokenFile       string `json:"token_file"`
	// Endpoint overrides the API base URL.
	Endpoint string `json:"endpoint"`
}

// SetDefaults fills in the conventional file names.
func (c *Config) SetDefaults() {
	if c.CredentialsFile == "" {
		c.CredentialsFile = "credentials.json"
	}
	if c.TokenFile == "" {
		c.TokenFile = "token.json"
	}
}

// ErrNotAuthorized is returned when no stored token exists yet.
var ErrNotAuthorized = errors.New("google calendar: not authorized, run the auth command first")

// Client implements calendar.Source and calendar.Writer.
type Client struct {
	svc *gcal.Service
	log logger.Logger
}

// New builds a client from the stored OAuth token.
func New(ctx context.Context, cfg Config, log logger.Logger) (*Client, error) {
	cfg.SetDefaults()
	oc, err := LoadOAuthConfig(cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(cfg.TokenFile)
	if err != nil {
		return nil, err
	}
	opts := []option.ClientOption{option.WithTokenSource(persistingSource(ctx, oc, tok, cfg.TokenFile))}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	return NewWithOptions(ctx, log, opts...)
}

// NewWithOptions builds a client with explicit API options.
func NewWithOptions(ctx context.Context, log logger.Logger, opts ...option.ClientOption) (*Client, error) {
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Client{svc: svc, log: log}, nil
}

// FetchBusy implements calendar.BusySource. Events marked free are skipped.
func (c *Client) FetchBusy(ctx context.Context, calendarID string, start, end time.Time) ([]model.BusyInterval, error) {
	var out []model.BusyInterval
	err := c.listEvents(ctx, calendarID, start, end, func(ev *gcal.Event, from, to time.Time) {
		if ev.Transparency == "transparent" {
			return
		}
		out = append(out, model.BusyInterval{Start: from, End: to})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FetchWindows implements calendar.WindowSource.
func (c *Client) FetchWindows(ctx context.Context, calendarID string, start, end time.Time) ([]model.Window, error) {
	var out []model.Window
	err := c.listEvents(ctx, calendarID, start, end, func(ev *gcal.Event, from, to time.Time) {
		out = append(out, model.Window{ID: ev.Id, Start: from, End: to, Location: ev.Location, Summary: ev.Summary})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) listEvents(ctx context.Context, calendarID string, start, end time.Time, fn func(*gcal.Event, time.Time, time.Time)) error {
	call := c.svc.Events.List(calendarID).
		TimeMin(start.UTC().Format(time.RFC3339)).
		TimeMax(end.UTC().Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")
	n := 0
	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, ev := range page.Items {
			from, err := eventTime(ev.Start)
			if err != nil {
				return fmt.Errorf("event %s start: %w", ev.Id, err)
			}
			to, err := eventTime(ev.End)
			if err != nil {
				return fmt.Errorf("event %s end: %w", ev.Id, err)
			}
			fn(ev, from, to)
			n++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("list events of %s: %w", calendarID, err)
	}
	c.log.Debugf("google: %d events in %s", n, calendarID)
	return nil
}

// eventTime reads a timed or all-day bound. All-day dates are midnight UTC.
func eventTime(t *gcal.EventDateTime) (time.Time, error) {
	switch {
	case t == nil:
		return time.Time{}, errors.New("missing")
	case t.DateTime != "":
		v, err := time.Parse(time.RFC3339, t.DateTime)
		return v.UTC(), err
	default:
		return time.Parse("2006-01-02", t.Date)
	}
}

// EnsureCalendar implements calendar.Writer.
func (c *Client) EnsureCalendar(ctx context.Context, name string) (string, error) {
	var id string
	errFound := errors.New("found")
	err := c.svc.CalendarList.List().Pages(ctx, func(page *gcal.CalendarList) error {
		for _, entry := range page.Items {
			if entry.Summary == name {
				id = entry.Id
				return errFound
			}
		}
		return nil
	})
	if errors.Is(err, errFound) {
		return id, nil
	}
	if err != nil {
		return "", fmt.Errorf("list calendars: %w", err)
	}
	created, err := c.svc.Calendars.Insert(&gcal.Calendar{Summary: name, TimeZone: "UTC"}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create calendar %q: %w", name, err)
	}
	c.log.Infof("created calendar %q (%s)", name, created.Id)
	return created.Id, nil
}

// CreateEvent implements calendar.Writer.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, ev model.Event) error {
	body := &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       &gcal.EventDateTime{DateTime: ev.Start.UTC().Format(time.RFC3339), TimeZone: "UTC"},
		End:         &gcal.EventDateTime{DateTime: ev.End.UTC().Format(time.RFC3339), TimeZone: "UTC"},
	}
	if _, err := c.svc.Events.Insert(calendarID, body).Context(ctx).Do(); err != nil {
		return fmt.Errorf("create event %q: %w", ev.Summary, err)
	}
	return nil
}
