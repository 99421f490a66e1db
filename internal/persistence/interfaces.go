package persistence

import (
	"context"
	"time"
)

// Record kinds stored per finished path
const (
	KindAggregate = "aggregate"
	KindCohort    = "cohort"
	KindFund      = "fund"
	KindLadder    = "ladder"
)

// Row is one finished record of one path, flattened for storage
type Row struct {
	RunID    string             `json:"run_id" db:"run_id"`
	Scenario string             `json:"scenario" db:"scenario"`
	Path     int                `json:"path" db:"path"`
	Kind     string             `json:"kind" db:"kind"`
	Key      string             `json:"key" db:"key"`
	Timestep int                `json:"timestep" db:"timestep"`
	Fields   map[string]float64 `json:"fields" db:"fields"`
}

// PathSink receives the records of every finished path. Write is the blocking
// hand-off from the engine to the output stage.
type PathSink interface {
	Write(ctx context.Context, rows []Row) error
}

// PathRepo persists and queries finished path records
type PathRepo interface {
	PathSink

	// ListPath returns every row of one path ordered by kind, key and timestep
	ListPath(ctx context.Context, runID string, path int) ([]Row, error)

	// CountRun returns the number of stored rows for a run
	CountRun(ctx context.Context, runID string) (int64, error)

	// DeleteRun removes all rows of a run
	DeleteRun(ctx context.Context, runID string) error
}

// Repository aggregates all persistence interfaces
type Repository struct {
	Paths PathRepo
}

// HealthCheck represents repository health status
type HealthCheck struct {
	Healthy        bool           `json:"healthy"`
	Errors         []string       `json:"errors,omitempty"`
	ConnectionPool map[string]int `json:"connection_pool"`
	LastCheck      time.Time      `json:"last_check"`
	ResponseTimeMS int64          `json:"response_time_ms"`
}

// RepositoryHealth provides health monitoring for persistence layer
type RepositoryHealth interface {
	Health(ctx context.Context) HealthCheck
	Ping(ctx context.Context) error
}

// Discard is a sink that drops everything
type Discard struct{}

// Write implements PathSink
func (Discard) Write(context.Context, []Row) error { return nil }
