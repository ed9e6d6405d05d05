// Package recordstore abstracts the external tabular data store. The core
// only ever sees the Store capability; Airtable and Baserow are
// interchangeable variants behind it.
package recordstore

import (
	"context"
	"errors"
)

// Record is one row of a table, backend identifiers included.
type Record struct {
	ID     string
	Fields map[string]interface{}
}

// Filter restricts ListRecords to rows where Field equals Value, or, with
// Exclude set, to rows where it does not. A nil filter lists everything.
type Filter struct {
	Field   string
	Value   string
	Exclude bool
}

// Store is the record store capability.
type Store interface {
	ListRecords(ctx context.Context, table string, filter *Filter) ([]Record, error)
	CreateRecord(ctx context.Context, table string, fields map[string]interface{}) (*Record, error)
	FindByField(ctx context.Context, table, field, value string) ([]Record, error)
}

// ErrUpstream marks transport or upstream-status failures so callers can
// translate them into the UpstreamUnavailable taxonomy.
var ErrUpstream = errors.New("record store upstream error")

// StringField reads a field as a string, tolerating absent or differently
// typed values.
func (r *Record) StringField(name string) string {
	if v, ok := r.Fields[name].(string); ok {
		return v
	}
	return ""
}

// NumberField reads a numeric field. JSON decoding yields float64.
func (r *Record) NumberField(name string) float64 {
	switch v := r.Fields[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
