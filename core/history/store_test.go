package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func runs() []RunRecord {
	return []RunRecord{
		{ID: "r1", Timestamp: base, Status: "ok", Meetings: []MeetingRecord{{Name: "Standup"}, {Name: "Planning"}}},
		{ID: "r2", Timestamp: base.Add(time.Hour), Status: "timeout"},
		{ID: "r3", Timestamp: base.Add(2 * time.Hour), Status: "ok", Meetings: []MeetingRecord{{Name: "Standup", Missing: []string{"Bob"}}}},
	}
}

func ids(recs []RunRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	// Appended out of order on purpose.
	recs := runs()
	for _, i := range []int{2, 0, 1} {
		require.NoError(t, s.Append(ctx, recs[i]))
	}

	cases := []struct {
		name string
		q    Query
		want []string
	}{
		{"all", Query{}, []string{"r1", "r2", "r3"}},
		{"since", Query{Since: base.Add(30 * time.Minute)}, []string{"r2", "r3"}},
		{"until", Query{Until: base.Add(time.Hour)}, []string{"r1", "r2"}},
		{"meeting", Query{Meeting: "Standup"}, []string{"r1", "r3"}},
		{"status", Query{Status: "timeout"}, []string{"r2"}},
		{"limit keeps latest", Query{Limit: 2}, []string{"r2", "r3"}},
		{"meeting and limit", Query{Meeting: "Standup", Limit: 1}, []string{"r3"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.Query(ctx, tc.q)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids(got))
		})
	}

	got, err := s.Query(ctx, Query{Meeting: "Standup", Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"Bob"}, got[0].Meetings[0].Missing)
}

func TestJSONLStore(t *testing.T) {
	s, err := NewJSONLStore(filepath.Join(t.TempDir(), "hist", "runs.jsonl"), 1, 2, 1)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestJSONLStoreRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	s, err := NewJSONLStore(path, 1, 5, 1)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	// Each record carries ~40KB so 1MB rotation triggers well before the end.
	big := make([]MeetingRecord, 400)
	for i := range big {
		big[i] = MeetingRecord{Name: fmt.Sprintf("meeting-%03d with a reasonably long name", i)}
	}
	for i := 0; i < 40; i++ {
		require.NoError(t, s.Append(context.Background(), RunRecord{ID: fmt.Sprint(i), Timestamp: base.Add(time.Duration(i) * time.Minute), Meetings: big}))
	}
	files, err := filepath.Glob(filepath.Join(filepath.Dir(path), "runs*.jsonl"))
	require.NoError(t, err)
	assert.Greater(t, len(files), 1)

	got, err := s.Query(context.Background(), Query{Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"37", "38", "39"}, ids(got))
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore("file:history_test?mode=memory&cache=shared")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestSQLiteDuplicateID(t *testing.T) {
	s, err := NewSQLiteStore("file:history_dup?mode=memory&cache=shared")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	rec := RunRecord{ID: "same", Timestamp: base}
	require.NoError(t, s.Append(context.Background(), rec))
	assert.Error(t, s.Append(context.Background(), rec))
}

func TestOpen(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()
	assert.Equal(t, "jsonl", cfg.Backend)
	assert.Equal(t, "schedule_history.jsonl", cfg.Path)
	require.NoError(t, cfg.Validate())

	s, err := Open(Config{Backend: "none"})
	require.NoError(t, err)
	assert.IsType(t, NopStore{}, s)

	s, err = Open(Config{Backend: "jsonl", Path: filepath.Join(t.TempDir(), "h.jsonl"), MaxSizeMB: 1})
	require.NoError(t, err)
	assert.IsType(t, &JSONLStore{}, s)
	_ = s.Close()

	assert.Error(t, Config{Backend: "csv", Path: "x"}.Validate())
	_, err = Open(Config{Backend: "csv"})
	assert.Error(t, err)
}
