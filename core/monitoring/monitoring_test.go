package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingMonitor struct {
	NopMonitor
	tags map[string]string
}

func (r *recordingMonitor) CaptureException(_ error, tags map[string]string) { r.tags = tags }

func TestWithTagsMerges(t *testing.T) {
	rec := &recordingMonitor{}
	m := WithTags(rec, map[string]string{"component": "scheduler", "run_id": "r1"})
	m.CaptureException(errors.New("boom"), map[string]string{"component": "solver"})
	assert.Equal(t, map[string]string{"component": "solver", "run_id": "r1"}, rec.tags)
	m.Flush(time.Millisecond)
}

func TestInitIgnoresNil(t *testing.T) {
	rec := &recordingMonitor{}
	Init(rec)
	t.Cleanup(func() { Init(NopMonitor{}) })
	Init(nil)
	assert.Same(t, rec, Current())
	CaptureException(errors.New("x"), map[string]string{"k": "v"})
	assert.Equal(t, "v", rec.tags["k"])
}
