package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSink struct {
	calls int
	err   error
}

func (s *countingSink) Write(context.Context, []Row) error {
	s.calls++
	return s.err
}

func TestBreakerSink_PassesThrough(t *testing.T) {
	next := &countingSink{}
	sink := NewBreakerSink("test", next, DefaultBreakerConfig())

	require.NoError(t, sink.Write(context.Background(), []Row{{RunID: "r", Kind: KindAggregate}}))
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, "closed", sink.State())
}

func TestBreakerSink_OpensAfterConsecutiveFailures(t *testing.T) {
	boom := errors.New("connection refused")
	next := &countingSink{err: boom}
	cfg := DefaultBreakerConfig()
	cfg.Timeout = time.Hour
	sink := NewBreakerSink("test", next, cfg)

	for i := 0; i < 3; i++ {
		err := sink.Write(context.Background(), nil)
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, "open", sink.State())

	err := sink.Write(context.Background(), nil)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, next.calls, "open breaker must not reach the sink")
}

func TestDiscard(t *testing.T) {
	var sink PathSink = Discard{}
	assert.NoError(t, sink.Write(context.Background(), []Row{{}}))
}
