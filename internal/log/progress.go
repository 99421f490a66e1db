// Package log renders projection progress on the console.
package log

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/almrun/internal/projection"
)

// ProgressIndicator draws a single-line progress bar for a projection run
type ProgressIndicator struct {
	mu        sync.Mutex
	out       io.Writer
	name      string
	total     int
	done      int
	lastPath  int
	stage     string
	startTime time.Time
	spinner   *Spinner
	cfg       ProgressConfig
}

// Spinner cycles through its frames, one per finished path
type Spinner struct {
	frames []string
	frame  int
}

// ProgressConfig selects the parts of the progress line
type ProgressConfig struct {
	ShowSpinner  bool
	ShowProgress bool
	ShowETA      bool
	SpinnerStyle SpinnerStyle
	BarWidth     int
}

type SpinnerStyle string

const (
	SpinnerDots SpinnerStyle = "dots"
	SpinnerLine SpinnerStyle = "line"
)

const defaultBarWidth = 20

// NewProgressIndicator creates an indicator writing to out
func NewProgressIndicator(out io.Writer, name string, total int, cfg ProgressConfig) *ProgressIndicator {
	if cfg.BarWidth <= 0 {
		cfg.BarWidth = defaultBarWidth
	}
	pi := &ProgressIndicator{
		out:       out,
		name:      name,
		total:     total,
		startTime: time.Now(),
		cfg:       cfg,
	}
	if cfg.ShowSpinner {
		pi.spinner = NewSpinner(cfg.SpinnerStyle)
	}
	return pi
}

func NewSpinner(style SpinnerStyle) *Spinner {
	if style == SpinnerLine {
		return &Spinner{frames: []string{"-", "\\", "|", "/"}}
	}
	return &Spinner{frames: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}}
}

// Current is the frame on display
func (s *Spinner) Current() string { return s.frames[s.frame] }

// Advance moves to the next frame and returns it
func (s *Spinner) Advance() string {
	s.frame = (s.frame + 1) % len(s.frames)
	return s.frames[s.frame]
}

// Observe consumes one engine progress event. It is safe to pass as Hooks.Progress.
func (pi *ProgressIndicator) Observe(p projection.Progress) {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	if p.Stage != "" {
		pi.stage = p.Stage
	}
	if !p.Preparing() {
		if p.Total > 0 {
			pi.total = p.Total
		}
		if p.Done > pi.done && pi.spinner != nil {
			pi.spinner.Advance()
		}
		pi.done = p.Done
		pi.lastPath = p.Path
	}

	if pi.cfg.ShowProgress || pi.cfg.ShowETA {
		fmt.Fprint(pi.out, pi.line())
	}
}

// Finish prints the final line for a completed run
func (pi *ProgressIndicator) Finish(c projection.Completion) {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	took := c.Finished.Sub(c.Started).Round(time.Millisecond)
	switch c.Status {
	case projection.StatusFinished:
		fmt.Fprintf(pi.out, "\r✅ %s finished (%d paths, %v)\n", pi.name, len(c.Paths), took)
	case projection.StatusAborted:
		fmt.Fprintf(pi.out, "\r⏹  %s aborted after %d/%d paths (%v)\n", pi.name, pi.done, pi.total, took)
	default:
		reason := "unknown error"
		if c.Err != nil {
			reason = c.Err.Error()
		}
		fmt.Fprintf(pi.out, "\r❌ %s crashed: %s (%v)\n", pi.name, reason, took)
	}
}

// Fail marks the indicator as failed before the run started
func (pi *ProgressIndicator) Fail(reason string) {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	fmt.Fprintf(pi.out, "\r❌ %s failed: %s (%v)\n", pi.name, reason, time.Since(pi.startTime).Round(time.Millisecond))
}

func (pi *ProgressIndicator) line() string {
	var b strings.Builder
	b.WriteString("\r\033[K")

	if pi.spinner != nil {
		b.WriteString(pi.spinner.Current() + " ")
	}
	b.WriteString(pi.name)
	if pi.stage != "" && pi.stage != projection.StageProject {
		b.WriteString(" " + pi.stage + "...")
		return b.String()
	}

	switch {
	case pi.total <= 0:
	case pi.cfg.ShowProgress:
		filled := pi.cfg.BarWidth * pi.done / pi.total
		fmt.Fprintf(&b, " [%s%s] %d/%d (%.1f%%)",
			strings.Repeat("█", filled), strings.Repeat("░", pi.cfg.BarWidth-filled),
			pi.done, pi.total, 100*float64(pi.done)/float64(pi.total))
	default:
		fmt.Fprintf(&b, " (%d/%d)", pi.done, pi.total)
	}

	if eta, ok := pi.eta(); ok && pi.cfg.ShowETA {
		fmt.Fprintf(&b, " ETA: %v", eta)
	}
	if pi.lastPath > 0 {
		fmt.Fprintf(&b, " path %d", pi.lastPath)
	}
	return b.String()
}

// eta extrapolates the mean time per finished path
func (pi *ProgressIndicator) eta() (time.Duration, bool) {
	if pi.total <= 0 || pi.done <= 0 || pi.done >= pi.total {
		return 0, false
	}
	eta := time.Since(pi.startTime) / time.Duration(pi.done) * time.Duration(pi.total-pi.done)
	if eta > time.Hour {
		return eta.Round(time.Minute), true
	}
	return eta.Round(time.Second), true
}

// StepLogger logs the stages of a command (build, solve, project, ...)
type StepLogger struct {
	steps       []string
	currentStep int
	startTime   time.Time
	stepStart   time.Time
	stepTimes   []time.Duration
}

// NewStepLogger creates a logger for the given ordered stages
func NewStepLogger(steps []string) *StepLogger {
	now := time.Now()
	return &StepLogger{
		steps:       steps,
		currentStep: -1,
		startTime:   now,
		stepStart:   now,
		stepTimes:   make([]time.Duration, len(steps)),
	}
}

// StartStep completes the running stage and begins stepName
func (sl *StepLogger) StartStep(stepName string) {
	stepIndex := -1
	for i, step := range sl.steps {
		if step == stepName {
			stepIndex = i
			break
		}
	}

	if stepIndex == -1 {
		log.Warn().Str("step", stepName).Msg("Unknown step")
		return
	}

	sl.CompleteStep()
	sl.currentStep = stepIndex
	sl.stepStart = time.Now()

	log.Info().
		Str("step", stepName).
		Int("step_number", stepIndex+1).
		Int("total_steps", len(sl.steps)).
		Msg("Starting step")
}

// CompleteStep records the duration of the running stage
func (sl *StepLogger) CompleteStep() {
	if sl.currentStep < 0 || sl.stepTimes[sl.currentStep] != 0 {
		return
	}
	d := time.Since(sl.stepStart)
	if d == 0 {
		d = time.Nanosecond
	}
	sl.stepTimes[sl.currentStep] = d

	log.Debug().
		Str("step", sl.steps[sl.currentStep]).
		Dur("duration", d).
		Msg("Step completed")
}

// Durations returns the recorded stage durations in stage order
func (sl *StepLogger) Durations() []time.Duration { return sl.stepTimes }

// Finish completes the step logger and logs the timing summary
func (sl *StepLogger) Finish() {
	sl.CompleteStep()
	total := time.Since(sl.startTime)

	log.Info().Dur("total_duration", total).Msg("Steps completed")
	for i, step := range sl.steps {
		if sl.stepTimes[i] == 0 {
			continue
		}
		log.Debug().
			Str("step", step).
			Dur("duration", sl.stepTimes[i]).
			Float64("percentage", float64(sl.stepTimes[i])/float64(total)*100).
			Msgf("  %d. %s", i+1, step)
	}
}

// Fail logs the failure of the running stage
func (sl *StepLogger) Fail(err error) {
	log.Error().
		Err(err).
		Str("failed_step", sl.currentStepName()).
		Int("total_steps", len(sl.steps)).
		Msg("Step failed")
}

func (sl *StepLogger) currentStepName() string {
	if sl.currentStep >= 0 && sl.currentStep < len(sl.steps) {
		return sl.steps[sl.currentStep]
	}
	return "unknown"
}

// DefaultProgressConfig is the interactive terminal configuration
func DefaultProgressConfig() ProgressConfig {
	return ProgressConfig{
		ShowSpinner:  true,
		ShowProgress: true,
		ShowETA:      true,
		SpinnerStyle: SpinnerDots,
		BarWidth:     defaultBarWidth,
	}
}

// QuietProgressConfig prints only the final line
func QuietProgressConfig() ProgressConfig {
	return ProgressConfig{SpinnerStyle: SpinnerDots}
}
