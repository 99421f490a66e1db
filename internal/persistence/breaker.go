package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// BreakerConfig configures the circuit breaker in front of a sink
type BreakerConfig struct {
	MaxRequests         uint32        `yaml:"max_requests"`
	Interval            time.Duration `yaml:"interval"`
	Timeout             time.Duration `yaml:"timeout"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
}

// DefaultBreakerConfig returns the breaker defaults
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 3,
	}
}

// BreakerSink protects a sink with a circuit breaker so that a failing database
// fails fast instead of stalling every path hand-off.
type BreakerSink struct {
	next    PathSink
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerSink wraps next
func NewBreakerSink(name string, next PathSink, cfg BreakerConfig) *BreakerSink {
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 1
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("sink", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Sink circuit breaker state changed")
		},
	}
	return &BreakerSink{next: next, breaker: gobreaker.NewCircuitBreaker(settings)}
}

// Write implements PathSink
func (b *BreakerSink) Write(ctx context.Context, rows []Row) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.next.Write(ctx, rows)
	})
	if err != nil {
		return fmt.Errorf("sink %s: %w", b.breaker.Name(), err)
	}
	return nil
}

// State reports the breaker state for health endpoints
func (b *BreakerSink) State() string { return b.breaker.State().String() }
