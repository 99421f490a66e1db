package db

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/almrun/internal/persistence"
)

// PathStore writes finished paths as JSON lines to disk and, when a database sink is
// configured, to the database as well. A database failure is logged, never fatal, as
// the file copy is always written.
type PathStore struct {
	fileBase string
	db       persistence.PathSink
	mu       sync.Mutex
}

// NewPathStore creates a store writing below fileBase. db may be nil.
func NewPathStore(fileBase string, db persistence.PathSink) *PathStore {
	return &PathStore{fileBase: fileBase, db: db}
}

// Write implements persistence.PathSink
func (s *PathStore) Write(ctx context.Context, rows []persistence.Row) error {
	if len(rows) == 0 {
		return nil
	}

	if s.fileBase != "" {
		if err := s.storeToFile(rows); err != nil {
			return err
		}
	}

	if s.db != nil {
		if err := s.db.Write(ctx, rows); err != nil {
			log.Warn().Err(err).
				Str("run_id", rows[0].RunID).
				Int("path", rows[0].Path).
				Msg("Failed to store path records to database")
		}
	}
	return nil
}

// FileName is the JSON-lines file holding one run's records
func (s *PathStore) FileName(runID string) string {
	return filepath.Join(s.fileBase, runID+".jsonl")
}

func (s *PathStore) storeToFile(rows []persistence.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.fileBase, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.OpenFile(s.FileName(rows[0].RunID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("failed to encode path record: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// ReadFile loads every record of a run written by the file half of the store
func (s *PathStore) ReadFile(runID string) ([]persistence.Row, error) {
	f, err := os.Open(s.FileName(runID))
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}
	defer f.Close()

	var rows []persistence.Row
	dec := json.NewDecoder(f)
	for dec.More() {
		var row persistence.Row
		if err := dec.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode path record: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
