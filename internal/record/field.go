// Package record defines the explicit accessor surface shared by every projection
// record type, so that reporting and persistence layers never need reflection.
package record

import "math"

// Field is one named numeric value of a record. Checked fields take part in the
// per-timestep finiteness check.
type Field struct {
	Name    string
	Value   float64
	Checked bool
}

// Accessor is implemented by every record type
type Accessor interface {
	Fields() []Field
}

// NonFinite returns the names of checked fields holding NaN or ±Inf, prefixed
func NonFinite(prefix string, fields []Field) []string {
	var bad []string
	for _, f := range fields {
		if !f.Checked {
			continue
		}
		if math.IsNaN(f.Value) || math.IsInf(f.Value, 0) {
			bad = append(bad, prefix+f.Name)
		}
	}
	return bad
}

// Map flattens fields into a name → value map
func Map(fields []Field) map[string]float64 {
	m := make(map[string]float64, len(fields))
	for _, f := range fields {
		m[f.Name] = f.Value
	}
	return m
}
