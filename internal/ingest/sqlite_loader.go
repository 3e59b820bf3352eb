package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "modernc.org/sqlite"

	"github.com/agentic-research/designtree/api"
)

// DefaultTable is the table SQLiteSource reads when Table is empty.
const DefaultTable = "design_records"

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteSource streams records from a table with (note_id TEXT, record TEXT)
// columns, where record holds the record JSON. Only one parsed record is
// alive at a time.
type SQLiteSource struct {
	Path  string
	Table string
}

func (s *SQLiteSource) table() (string, error) {
	t := s.Table
	if t == "" {
		t = DefaultTable
	}
	if !identifier.MatchString(t) {
		return "", fmt.Errorf("invalid table name %q", t)
	}
	return t, nil
}

// Each implements RecordSource. A record whose JSON has no note_id takes
// the row's note_id.
func (s *SQLiteSource) Each(ctx context.Context, fn func(api.Record) error) error {
	table, err := s.table()
	if err != nil {
		return err
	}
	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", s.Path, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	rows, err := db.QueryContext(ctx, "SELECT note_id, record FROM "+table+" ORDER BY rowid")
	if err != nil {
		return fmt.Errorf("query %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		rec, err := parseRecord([]byte(raw))
		if err != nil {
			return fmt.Errorf("row %s: %w", id, err)
		}
		if rec.NoteID == "" {
			rec.NoteID = id
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}
