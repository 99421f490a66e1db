// Package output turns stored path records into CSV files for spreadsheets and reviews.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/sawpanic/almrun/internal/persistence"
)

type Emitter struct {
	// Precision of CSV values; -1 keeps the shortest exact representation
	Precision int
}

func NewEmitter() *Emitter {
	return &Emitter{Precision: -1}
}

// EmitCSV writes the records of one kind as a wide table: one line per
// (path, key, timestep) and one column per field, sorted by name.
func (e *Emitter) EmitCSV(filePath string, rows []persistence.Row, kind string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	return e.WriteCSV(file, rows, kind)
}

// WriteCSV is EmitCSV on an open writer. An empty kind keeps every record.
func (e *Emitter) WriteCSV(w io.Writer, rows []persistence.Row, kind string) error {
	selected := filterKind(rows, kind)
	fields := fieldNames(selected)

	writer := csv.NewWriter(w)
	header := append([]string{"run_id", "scenario", "path", "kind", "key", "timestep"}, fields...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range selected {
		record := []string{
			row.RunID,
			row.Scenario,
			strconv.Itoa(row.Path),
			row.Kind,
			row.Key,
			strconv.Itoa(row.Timestep),
		}
		for _, name := range fields {
			v, ok := row.Fields[name]
			if !ok {
				record = append(record, "")
				continue
			}
			record = append(record, strconv.FormatFloat(v, 'f', e.Precision, 64))
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func filterKind(rows []persistence.Row, kind string) []persistence.Row {
	if kind == "" {
		return rows
	}
	out := make([]persistence.Row, 0, len(rows))
	for _, row := range rows {
		if row.Kind == kind {
			out = append(out, row)
		}
	}
	return out
}

func fieldNames(rows []persistence.Row) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for name := range row.Fields {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
