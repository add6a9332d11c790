package model

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ScanFlatRows reads a BuildSelectQuery result into flat maps keyed by the
// column names of the query ("email", "group.name", "roles.id").
func ScanFlatRows(rows pgx.Rows) ([]map[string]any, error) {
	if rows == nil {
		return nil, fmt.Errorf("rows is nil")
	}
	fields := rows.FieldDescriptions()
	keys := make([]string, len(fields))
	for i, fd := range fields {
		keys[i] = fd.Name
	}

	out := make([]map[string]any, 0, 64)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		n := len(vals)
		if len(keys) < n {
			n = len(keys)
		}
		row := make(map[string]any, n)
		for i := 0; i < n; i++ {
			row[keys[i]] = normalizeValue(vals[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeValue turns driver values that do not encode well as JSON into
// plain ones. pgx returns uuid columns as [16]byte.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case [16]byte:
		return uuid.UUID(t).String()
	default:
		return v
	}
}
