package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/agentic-research/designtree/api"
)

// RecordSource yields design records one at a time.
type RecordSource interface {
	// Each calls fn for every record in source order. Iteration stops at
	// the first error returned by fn or when ctx is done.
	Each(ctx context.Context, fn func(api.Record) error) error
}

// Options configures OpenSource.
type Options struct {
	// Selector is the JSONPath used by JSON sources.
	Selector string
	// Table is the table read by SQLite sources.
	Table string
}

// OpenSource picks a source implementation from the file extension.
func OpenSource(path string, opts Options) (RecordSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return &JSONSource{Path: path, Selector: opts.Selector}, nil
	case ".db", ".sqlite", ".sqlite3":
		return &SQLiteSource{Path: path, Table: opts.Table}, nil
	default:
		return nil, fmt.Errorf("unsupported record source %s", path)
	}
}

// SliceSource serves records held in memory.
type SliceSource []api.Record

// Each implements RecordSource.
func (s SliceSource) Each(ctx context.Context, fn func(api.Record) error) error {
	for _, rec := range s {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// decodeRecord converts a generic JSON value into a record and checks its
// item types.
func decodeRecord(v any) (api.Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return api.Record{}, fmt.Errorf("re-encode record: %w", err)
	}
	return parseRecord(raw)
}

func parseRecord(raw []byte) (api.Record, error) {
	var rec api.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return api.Record{}, fmt.Errorf("parse record json: %w", err)
	}
	for name, item := range rec.Items {
		switch item.Type {
		case api.ItemText, api.ItemNumber, api.ItemRaw:
		case "":
			// Untyped items are inferred from which value is present.
			switch {
			case item.Raw != "":
				item.Type = api.ItemRaw
			case len(item.Number) > 0:
				item.Type = api.ItemNumber
			default:
				item.Type = api.ItemText
			}
			rec.Items[name] = item
		default:
			return api.Record{}, fmt.Errorf("record %s item %s: unknown item type %q", rec.NoteID, name, item.Type)
		}
	}
	return rec, nil
}

var (
	_ RecordSource = (*JSONSource)(nil)
	_ RecordSource = (*SQLiteSource)(nil)
	_ RecordSource = SliceSource(nil)
)
