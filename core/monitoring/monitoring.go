// Package monitoring carries error reporting for failures an operator must
// see, such as solver internal errors.
package monitoring

import (
	"sync"
	"time"
)

// Monitor reports errors to an external tracker.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Recover()
	Flush(timeout time.Duration)
}

// NopMonitor drops every report.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init sets the process-wide monitor. A nil m is ignored.
func Init(m Monitor) {
	if m == nil {
		return
	}
	mu.Lock()
	current = m
	mu.Unlock()
}

// Current returns the process-wide monitor.
func Current() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// CaptureException records err on the process-wide monitor.
func CaptureException(err error, tags map[string]string) {
	Current().CaptureException(err, tags)
}

// Recover captures panics in goroutines.
func Recover() {
	Current().Recover()
}

// Flush flushes buffered events.
func Flush(d time.Duration) {
	Current().Flush(d)
}

// WithTags returns a Monitor that merges base into the tags of every capture.
// Tags passed to CaptureException win on conflict.
func WithTags(m Monitor, base map[string]string) Monitor {
	if m == nil {
		m = NopMonitor{}
	}
	return tagged{Monitor: m, base: base}
}

type tagged struct {
	Monitor
	base map[string]string
}

func (t tagged) CaptureException(err error, tags map[string]string) {
	merged := make(map[string]string, len(t.base)+len(tags))
	for k, v := range t.base {
		merged[k] = v
	}
	for k, v := range tags {
		merged[k] = v
	}
	t.Monitor.CaptureException(err, merged)
}
