package log

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/almrun/internal/projection"
)

func TestProgressIndicator_RendersBar(t *testing.T) {
	var buf bytes.Buffer
	pi := NewProgressIndicator(&buf, "base", 4, ProgressConfig{ShowProgress: true})

	pi.Observe(projection.Progress{Scenario: "base", Path: 3, Done: 2, Total: 4})

	out := buf.String()
	assert.Contains(t, out, "base [")
	assert.Contains(t, out, "] 2/4 (50.0%)")
	assert.Contains(t, out, "path 3")
	assert.Equal(t, 10, bytes.Count(buf.Bytes(), []byte("█")))
}

func TestProgressIndicator_SpinnerAndCounter(t *testing.T) {
	var buf bytes.Buffer
	pi := NewProgressIndicator(&buf, "base", 3, ProgressConfig{ShowSpinner: true, ShowETA: true, SpinnerStyle: SpinnerLine})

	pi.Observe(projection.Progress{Done: 0, Total: 3})
	assert.Contains(t, buf.String(), "- base (0/3)")

	buf.Reset()
	pi.Observe(projection.Progress{Path: 2, Done: 1, Total: 3})
	assert.Contains(t, buf.String(), "\\ base (1/3) ETA: ")
	assert.Contains(t, buf.String(), "path 2")
}

func TestProgressIndicator_Stages(t *testing.T) {
	var buf bytes.Buffer
	pi := NewProgressIndicator(&buf, "base", 4, ProgressConfig{ShowProgress: true})

	pi.Observe(projection.Progress{Stage: projection.StageSolve, Done: 0, Total: 1})
	assert.Contains(t, buf.String(), "base solve...")
	assert.NotContains(t, buf.String(), "1/1")

	buf.Reset()
	pi.Observe(projection.Progress{Stage: projection.StageProject, Done: 1, Total: 4})
	assert.Contains(t, buf.String(), "] 1/4 (25.0%)")
}

func TestProgressIndicator_QuietOnlyPrintsFinalLine(t *testing.T) {
	var buf bytes.Buffer
	pi := NewProgressIndicator(&buf, "base", 2, QuietProgressConfig())
	pi.Observe(projection.Progress{Done: 1, Total: 2})
	assert.Empty(t, buf.String())

	start := time.Now()
	pi.Finish(projection.Completion{
		Status:   projection.StatusFinished,
		Paths:    make([]*projection.PathResult, 2),
		Started:  start,
		Finished: start.Add(1500 * time.Millisecond),
	})
	assert.Contains(t, buf.String(), "base finished (2 paths, 1.5s)")
}

func TestProgressIndicator_FinishStatuses(t *testing.T) {
	tests := []struct {
		name       string
		completion projection.Completion
		want       string
	}{
		{"aborted", projection.Completion{Status: projection.StatusAborted}, "aborted after 1/3 paths"},
		{"crashed", projection.Completion{Status: projection.StatusCrashed, Err: errors.New("non-finite value")}, "crashed: non-finite value"},
		{"crashed without error", projection.Completion{Status: projection.StatusCrashed}, "crashed: unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			pi := NewProgressIndicator(&buf, "stress", 3, QuietProgressConfig())
			pi.Observe(projection.Progress{Done: 1, Total: 3})
			pi.Finish(tt.completion)
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestSpinner_Styles(t *testing.T) {
	assert.Equal(t, "-", NewSpinner(SpinnerLine).Current())
	assert.Equal(t, "⠋", NewSpinner(SpinnerDots).Current())

	s := NewSpinner(SpinnerLine)
	assert.Equal(t, "\\", s.Advance())
	s.Advance()
	s.Advance()
	assert.Equal(t, "-", s.Advance())
}

func TestStepLogger(t *testing.T) {
	sl := NewStepLogger([]string{"build", "solve", "project"})
	sl.StartStep("build")
	sl.StartStep("unknown")
	sl.StartStep("solve")
	sl.Finish()

	d := sl.Durations()
	assert.Greater(t, d[0], time.Duration(0))
	assert.Greater(t, d[1], time.Duration(0))
	assert.Equal(t, time.Duration(0), d[2])
	assert.Equal(t, "solve", sl.currentStepName())
}
