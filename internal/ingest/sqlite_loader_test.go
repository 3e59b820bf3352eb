package ingest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/agentic-research/designtree/api"
)

func createTestDB(t *testing.T, table string, rows [][2]string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.Exec("CREATE TABLE " + table + " (note_id TEXT PRIMARY KEY, record TEXT NOT NULL)")
	require.NoError(t, err)

	for _, row := range rows {
		_, err = db.Exec("INSERT INTO "+table+" (note_id, record) VALUES (?, ?)", row[0], row[1])
		require.NoError(t, err)
	}
	return dbPath
}

func TestSQLiteSource(t *testing.T) {
	t.Run("basic records", func(t *testing.T) {
		dbPath := createTestDB(t, DefaultTable, [][2]string{
			{"20fa", `{"class":4,"flags":"C","title":"Main"}`},
			{"21aa", `{"note_id":"override","class":8,"title":"All"}`},
		})

		recs := collect(t, &SQLiteSource{Path: dbPath})
		require.Len(t, recs, 2)
		assert.Equal(t, "20fa", recs[0].NoteID, "row id fills a missing note_id")
		assert.Equal(t, uint16(4), recs[0].Class)
		assert.Equal(t, "override", recs[1].NoteID)
	})

	t.Run("custom table", func(t *testing.T) {
		dbPath := createTestDB(t, "notes", [][2]string{{"1", `{"title":"x"}`}})
		recs := collect(t, &SQLiteSource{Path: dbPath, Table: "notes"})
		require.Len(t, recs, 1)
		assert.Equal(t, "x", recs[0].Title)
	})

	t.Run("empty database", func(t *testing.T) {
		dbPath := createTestDB(t, DefaultTable, nil)
		assert.Empty(t, collect(t, &SQLiteSource{Path: dbPath}))
	})

	t.Run("missing table", func(t *testing.T) {
		dbPath := createTestDB(t, "other", nil)
		err := (&SQLiteSource{Path: dbPath}).Each(context.Background(), func(api.Record) error { return nil })
		require.Error(t, err)
	})

	t.Run("invalid table name", func(t *testing.T) {
		src := &SQLiteSource{Path: "unused.db", Table: "x; DROP TABLE y"}
		err := src.Each(context.Background(), func(api.Record) error { return nil })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid table name")
	})

	t.Run("bad record json", func(t *testing.T) {
		dbPath := createTestDB(t, DefaultTable, [][2]string{{"1", `{not json`}})
		err := (&SQLiteSource{Path: dbPath}).Each(context.Background(), func(api.Record) error { return nil })
		require.Error(t, err)
	})
}
