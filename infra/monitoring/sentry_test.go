package monitoring

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gcal-scheduler/config"
	coremon "github.com/kilianp07/gcal-scheduler/core/monitoring"
)

func TestEmptyDSNIsNop(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	require.NoError(t, err)
	assert.IsType(t, coremon.NopMonitor{}, m)
}

func TestClientOptions(t *testing.T) {
	opts := clientOptions(config.SentryConfig{DSN: "https://key@example.com/1", Environment: "prod", Release: "v1", TracesSampleRate: 0.5})
	assert.Equal(t, "prod", opts.Environment)
	assert.Equal(t, "v1", opts.Release)
	assert.InDelta(t, 0.5, opts.TracesSampleRate, 1e-9)
}

func TestCaptureExceptionTags(t *testing.T) {
	var (
		mu     sync.Mutex
		events []*sentry.Event
	)
	opts := clientOptions(config.SentryConfig{DSN: "https://key@example.com/1"})
	opts.BeforeSend = func(ev *sentry.Event, _ *sentry.EventHint) *sentry.Event {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
		return nil
	}
	m, err := newSentryMonitor(opts)
	require.NoError(t, err)

	m.CaptureException(errors.New("solver produced an invalid model"), map[string]string{"component": "scheduler", "variables": "12"})
	m.CaptureException(nil, nil)
	m.Flush(time.Second)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, "scheduler", events[0].Tags["component"])
	assert.Equal(t, "12", events[0].Tags["variables"])
	assert.Equal(t, "gcal-scheduler", events[0].Tags["app"])
}
