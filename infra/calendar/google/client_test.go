package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/kilianp07/gcal-scheduler/core/model"
)

type fakeAPI struct {
	mu      sync.Mutex
	created []gcal.Event
	calName string
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /calendars/team/events", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("singleEvents"))
		assert.Equal(t, "startTime", r.URL.Query().Get("orderBy"))
		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(w, map[string]any{
				"items": []map[string]any{
					{"id": "e1", "summary": "Standup", "location": "Room 1",
						"start": map[string]string{"dateTime": "2024-06-03T09:00:00-04:00"},
						"end":   map[string]string{"dateTime": "2024-06-03T10:00:00-04:00"}},
					{"id": "e2", "transparency": "transparent",
						"start": map[string]string{"dateTime": "2024-06-03T11:00:00Z"},
						"end":   map[string]string{"dateTime": "2024-06-03T12:00:00Z"}},
				},
				"nextPageToken": "p2",
			})
			return
		}
		writeJSON(w, map[string]any{
			"items": []map[string]any{
				{"id": "e3", "start": map[string]string{"date": "2024-06-04"}, "end": map[string]string{"date": "2024-06-05"}},
			},
		})
	})
	mux.HandleFunc("GET /users/me/calendarList", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"items": []map[string]any{{"id": "existing-id", "summary": "Existing"}}})
	})
	mux.HandleFunc("POST /calendars", func(w http.ResponseWriter, r *http.Request) {
		var c gcal.Calendar
		require.NoError(t, json.NewDecoder(r.Body).Decode(&c))
		assert.Equal(t, "UTC", c.TimeZone)
		f.mu.Lock()
		f.calName = c.Summary
		f.mu.Unlock()
		writeJSON(w, map[string]any{"id": "new-id", "summary": c.Summary})
	})
	mux.HandleFunc("POST /calendars/new-id/events", func(w http.ResponseWriter, r *http.Request) {
		var ev gcal.Event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ev))
		f.mu.Lock()
		f.created = append(f.created, ev)
		f.mu.Unlock()
		writeJSON(w, map[string]any{"id": "created"})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T) (*Client, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)
	c, err := NewWithOptions(context.Background(), nil,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return c, api
}

var (
	from = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	to   = time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC)
)

func TestFetchBusy(t *testing.T) {
	c, _ := newTestClient(t)
	busy, err := c.FetchBusy(context.Background(), "team", from, to)
	require.NoError(t, err)
	assert.Equal(t, []model.BusyInterval{
		{Start: time.Date(2024, 6, 3, 13, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)},
		{Start: time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)},
	}, busy)
}

func TestFetchWindows(t *testing.T) {
	c, _ := newTestClient(t)
	ws, err := c.FetchWindows(context.Background(), "team", from, to)
	require.NoError(t, err)
	require.Len(t, ws, 3)
	assert.Equal(t, "e1", ws[0].ID)
	assert.Equal(t, "Room 1", ws[0].Location)
	assert.Equal(t, "Standup", ws[0].Summary)
}

func TestEnsureCalendar(t *testing.T) {
	c, api := newTestClient(t)
	id, err := c.EnsureCalendar(context.Background(), "Existing")
	require.NoError(t, err)
	assert.Equal(t, "existing-id", id)

	id, err = c.EnsureCalendar(context.Background(), "Team Schedule")
	require.NoError(t, err)
	assert.Equal(t, "new-id", id)
	assert.Equal(t, "Team Schedule", api.calName)
}

func TestCreateEvent(t *testing.T) {
	c, api := newTestClient(t)
	err := c.CreateEvent(context.Background(), "new-id", model.Event{
		Summary:     "Planning",
		Description: "Missing: Bob",
		Location:    "Room 2",
		Start:       time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
		End:         time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, api.created, 1)
	ev := api.created[0]
	assert.Equal(t, "Planning", ev.Summary)
	assert.Equal(t, "Missing: Bob", ev.Description)
	assert.Equal(t, "2024-06-03T09:00:00Z", ev.Start.DateTime)
	assert.Equal(t, "UTC", ev.End.TimeZone)
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	_, err := LoadToken(path)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	tok := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer"}
	require.NoError(t, SaveToken(path, tok))
	got, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "r", got.RefreshToken)
}

func TestNewRequiresToken(t *testing.T) {
	dir := t.TempDir()
	creds := filepath.Join(dir, "credentials.json")
	data := `{"installed":{"client_id":"id","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`
	require.NoError(t, os.WriteFile(creds, []byte(data), 0o600))

	_, err := New(context.Background(), Config{CredentialsFile: creds, TokenFile: filepath.Join(dir, "token.json")}, nil)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}
