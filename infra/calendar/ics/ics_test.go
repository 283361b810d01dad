package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gcal-scheduler/core/calendar"
	"github.com/kilianp07/gcal-scheduler/core/factory"
)

const feed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:w1\r\n" +
	"SUMMARY:Morning block\r\n" +
	"LOCATION:Room 4\\, second floor\r\n" +
	"DTSTART:20240603T090000Z\r\n" +
	"DTEND:20240603T120000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:w2\r\n" +
	"SUMMARY:Afternoon block with a long title that was\r\n" +
	"  folded\r\n" +
	"DTSTART;TZID=America/New_York:20240603T140000\r\n" +
	"DTEND;TZID=America/New_York:20240603T160000\r\n" +
	"TRANSP:TRANSPARENT\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:broken\r\n" +
	"DTSTART:20240603T090000Z\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

var (
	from = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	to   = time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC)
)

func TestParse(t *testing.T) {
	events, err := Parse(strings.NewReader(feed))
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "Room 4, second floor", events[0].Location)
	assert.Equal(t, time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC), events[0].Start)
	assert.Equal(t, "Afternoon block with a long title that was folded", events[1].Summary)
	assert.Equal(t, time.Date(2024, 6, 3, 18, 0, 0, 0, time.UTC), events[1].Start)
	assert.True(t, events[1].Transparent)
}

func TestFetchFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "windows.ics")
	require.NoError(t, os.WriteFile(path, []byte(feed), 0o644))

	src := New(Config{}, nil)
	ws, err := src.FetchWindows(context.Background(), path, from, to)
	require.NoError(t, err)
	require.Len(t, ws, 2)
	assert.Equal(t, "w1", ws[0].ID)
	assert.Equal(t, "Room 4, second floor", ws[0].Location)

	busy, err := src.FetchBusy(context.Background(), path, from, to)
	require.NoError(t, err)
	assert.Len(t, busy, 1, "transparent events do not block")
}

func TestFetchFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cal.ics" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	src := New(Config{Timeout: time.Second}, nil)
	busy, err := src.FetchBusy(context.Background(), srv.URL+"/cal.ics", from, to)
	require.NoError(t, err)
	assert.Len(t, busy, 1)

	_, err = src.FetchBusy(context.Background(), srv.URL+"/missing.ics", from, to)
	assert.ErrorContains(t, err, "status 404")
}

func TestFilterByRange(t *testing.T) {
	events, err := Parse(strings.NewReader(feed))
	require.NoError(t, err)
	got := FilterByRange(events, time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC), to)
	require.Len(t, got, 1)
	assert.Equal(t, "w2", got[0].UID)
}

func TestRegistered(t *testing.T) {
	src, err := calendar.New(factory.ModuleConfig{Type: "ics", Conf: map[string]any{"timeout": "5s"}})
	require.NoError(t, err)
	assert.IsType(t, &Source{}, src)
}

// weekly is a Monday stand-up first held on 2025-01-06, with the 20th
// skipped, the 27th moved to the afternoon and February cancelled by UNTIL.
const weekly = "BEGIN:VCALENDAR\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup\r\n" +
	"SUMMARY:Stand-up\r\n" +
	"DTSTART;TZID=Europe/Paris:20250106T100000\r\n" +
	"DTEND;TZID=Europe/Paris:20250106T103000\r\n" +
	"RRULE:FREQ=WEEKLY;BYDAY=MO;UNTIL=20250131T000000Z\r\n" +
	"EXDATE;TZID=Europe/Paris:20250120T100000\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup\r\n" +
	"RECURRENCE-ID;TZID=Europe/Paris:20250127T100000\r\n" +
	"SUMMARY:Stand-up (moved)\r\n" +
	"DTSTART;TZID=Europe/Paris:20250127T150000\r\n" +
	"DTEND;TZID=Europe/Paris:20250127T153000\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:offsite\r\n" +
	"STATUS:CANCELLED\r\n" +
	"DTSTART:20250114T090000Z\r\n" +
	"DTEND:20250114T170000Z\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestExpandRecurring(t *testing.T) {
	events, err := Parse(strings.NewReader(weekly))
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO;UNTIL=20250131T000000Z", events[0].RRule)
	require.Len(t, events[0].ExDates, 1)
	assert.Equal(t, time.Date(2025, 1, 27, 9, 0, 0, 0, time.UTC), events[1].RecurrenceID)

	tests := []struct {
		name   string
		from   time.Time
		to     time.Time
		starts []time.Time
	}{
		{
			name:   "later week of the series",
			from:   time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC),
			to:     time.Date(2025, 1, 18, 0, 0, 0, 0, time.UTC),
			starts: []time.Time{time.Date(2025, 1, 13, 9, 0, 0, 0, time.UTC)},
		},
		{
			name: "excluded date",
			from: time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC),
			to:   time.Date(2025, 1, 25, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "overridden instance",
			from:   time.Date(2025, 1, 27, 0, 0, 0, 0, time.UTC),
			to:     time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
			starts: []time.Time{time.Date(2025, 1, 27, 14, 0, 0, 0, time.UTC)},
		},
		{
			name: "after until",
			from: time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC),
			to:   time.Date(2025, 2, 8, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expand(events, tt.from, tt.to)
			require.NoError(t, err)
			got = FilterByRange(got, tt.from, tt.to)
			var starts []time.Time
			for _, e := range got {
				assert.Equal(t, 30*time.Minute, e.End.Sub(e.Start))
				starts = append(starts, e.Start)
			}
			assert.Equal(t, tt.starts, starts)
		})
	}
}

func TestFetchRecurringWindows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weekly.ics")
	require.NoError(t, os.WriteFile(path, []byte(weekly), 0o644))
	src := New(Config{}, nil)

	from := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 18, 0, 0, 0, 0, time.UTC)
	ws, err := src.FetchWindows(context.Background(), path, from, to)
	require.NoError(t, err)
	require.Len(t, ws, 2)
	assert.Equal(t, "standup@2025-01-06T09:00:00Z", ws[0].ID)
	assert.Equal(t, "standup@2025-01-13T09:00:00Z", ws[1].ID)
	assert.NotEqual(t, ws[0].ID, ws[1].ID)

	busy, err := src.FetchBusy(context.Background(), path, time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC), to)
	require.NoError(t, err)
	require.Len(t, busy, 1, "a weekly event blocks later weeks; the cancelled offsite does not")
	assert.Equal(t, time.Date(2025, 1, 13, 9, 0, 0, 0, time.UTC), busy[0].Start)
}

func TestExpandBadRule(t *testing.T) {
	events := []Event{{
		UID:   "x",
		Start: time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC),
		RRule: "FREQ=SOMETIMES",
	}}
	got, err := Expand(events, from, to)
	assert.Error(t, err)
	require.Len(t, got, 1, "the first instance is kept")
	assert.Equal(t, "x", got[0].ID())
}
