package export

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring"
	_ "modernc.org/sqlite"

	"github.com/agentic-research/designtree/internal/design"
)

// Entry is one exported record.
type Entry struct {
	NoteID string
	Kind   design.Kind
	Path   string
	Format design.Format
	Title  string
}

// Index tracks what an export wrote: entries, claimed paths and one bitmap
// of note IDs per kind. Safe for concurrent use.
type Index struct {
	mu      sync.Mutex
	entries []Entry
	paths   map[string]string // folded path -> note id
	dirs    map[string]bool   // folded directories of claimed paths
	kinds   map[design.Kind]*roaring.Bitmap
	records int
	unknown int
	skipped int
}

func NewIndex() *Index {
	return &Index{
		paths: make(map[string]string),
		dirs:  make(map[string]bool),
		kinds: make(map[design.Kind]*roaring.Bitmap),
	}
}

// noteNumber parses a hexadecimal note id. ok is false for ids that do not
// fit 32 bits.
func noteNumber(id string) (uint32, bool) {
	n, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(id), "0x"), 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

// Claim reserves relPath for noteID. Paths are compared case-insensitively,
// and a file may not sit where another record needs a directory or the
// other way round. When the path is taken the note id is spliced in before
// the extension ("Main~20fa.form"), or after the directory name when a
// file holds one of its directories ("lib~20fa/x.js").
func (ix *Index) Claim(relPath, noteID string) string {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	p := relPath
	if ix.clashes(p, noteID) {
		suffix := noteID
		if suffix == "" {
			suffix = strconv.Itoa(len(ix.paths))
		}
		anc := ix.fileAncestor(relPath)
		for i := 1; ; i++ {
			tag := suffix
			if i > 1 {
				tag = fmt.Sprintf("%s-%d", suffix, i)
			}
			p = splice(relPath, anc, tag)
			if !ix.clashes(p, noteID) {
				break
			}
		}
	}
	key := foldPath(p)
	ix.paths[key] = noteID
	for d := path.Dir(key); d != "." && d != "/"; d = path.Dir(d) {
		ix.dirs[d] = true
	}
	return p
}

func foldPath(p string) string {
	return strings.ToLower(p)
}

// clashes reports whether p is held by another record, is a directory of
// a claimed file, or lies under a claimed file.
func (ix *Index) clashes(p, noteID string) bool {
	key := foldPath(p)
	if owner, taken := ix.paths[key]; taken && (owner != noteID || noteID == "") {
		return true
	}
	return ix.dirs[key] || ix.fileAncestor(p) != ""
}

// fileAncestor returns the shortest directory of p that is claimed as a
// file, or "".
func (ix *Index) fileAncestor(p string) string {
	var found string
	for d := path.Dir(p); d != "." && d != "/"; d = path.Dir(d) {
		if _, taken := ix.paths[foldPath(d)]; taken {
			found = d
		}
	}
	return found
}

func splice(relPath, anc, tag string) string {
	if anc != "" {
		return anc + "~" + tag + relPath[len(anc):]
	}
	ext := path.Ext(relPath)
	return strings.TrimSuffix(relPath, ext) + "~" + tag + ext
}

// Seen counts a record read from the source.
func (ix *Index) Seen() {
	ix.mu.Lock()
	ix.records++
	ix.mu.Unlock()
}

// Add records a written entry.
func (ix *Index) Add(e Entry) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.entries = append(ix.entries, e)
	if e.Kind == design.KindUnknown {
		ix.unknown++
	}
	if n, ok := noteNumber(e.NoteID); ok {
		bm, ok := ix.kinds[e.Kind]
		if !ok {
			bm = roaring.New()
			ix.kinds[e.Kind] = bm
		}
		bm.Add(n)
	}
}

// Skip counts a record that was not written.
func (ix *Index) Skip(unknown bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.skipped++
	if unknown {
		ix.unknown++
	}
}

// Entries returns the written entries ordered by path.
func (ix *Index) Entries() []Entry {
	ix.mu.Lock()
	out := append([]Entry(nil), ix.entries...)
	ix.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Bitmap returns a copy of the note-id bitmap of k.
func (ix *Index) Bitmap(k design.Kind) *roaring.Bitmap {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if bm, ok := ix.kinds[k]; ok {
		return bm.Clone()
	}
	return roaring.New()
}

// Counts returns the number of written entries per kind name.
func (ix *Index) Counts() map[string]int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	out := make(map[string]int)
	for _, e := range ix.entries {
		out[e.Kind.String()]++
	}
	return out
}

const indexSchema = `
CREATE TABLE IF NOT EXISTS entries (
	path TEXT PRIMARY KEY,
	note_id TEXT,
	kind TEXT NOT NULL,
	format TEXT NOT NULL,
	title TEXT
);
CREATE INDEX IF NOT EXISTS idx_entries_kind ON entries(kind);

CREATE TABLE IF NOT EXISTS kind_bitmaps (
	kind TEXT PRIMARY KEY,
	bitmap BLOB NOT NULL
) WITHOUT ROWID;
`

// WriteSQLite stores the index in a SQLite database at dbPath in a single
// transaction.
func (ix *Index) WriteSQLite(dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	if _, err := db.Exec("PRAGMA journal_mode = MEMORY"); err != nil {
		return err
	}
	if _, err := db.Exec(indexSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin index write: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // safe to ignore

	entryStmt, err := tx.Prepare("INSERT OR REPLACE INTO entries (path, note_id, kind, format, title) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare entries insert: %w", err)
	}
	defer func() { _ = entryStmt.Close() }() // safe to ignore

	for _, e := range ix.Entries() {
		if _, err := entryStmt.Exec(e.Path, e.NoteID, e.Kind.String(), e.Format.String(), e.Title); err != nil {
			return fmt.Errorf("insert entry %s: %w", e.Path, err)
		}
	}

	bmStmt, err := tx.Prepare("INSERT OR REPLACE INTO kind_bitmaps (kind, bitmap) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("prepare kind_bitmaps insert: %w", err)
	}
	defer func() { _ = bmStmt.Close() }() // safe to ignore

	ix.mu.Lock()
	defer ix.mu.Unlock()
	var buf bytes.Buffer
	for k, bm := range ix.kinds {
		buf.Reset()
		if _, err := bm.WriteTo(&buf); err != nil {
			return fmt.Errorf("serialize bitmap for %s: %w", k, err)
		}
		if _, err := bmStmt.Exec(k.String(), buf.Bytes()); err != nil {
			return fmt.Errorf("insert bitmap %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// KindEntries reads the entries of one kind from an index database.
func KindEntries(dbPath string, k design.Kind) ([]Entry, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	rows, err := db.Query("SELECT path, note_id, format, title FROM entries WHERE kind = ? ORDER BY path", k.String())
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	var out []Entry
	for rows.Next() {
		var e Entry
		var format string
		if err := rows.Scan(&e.Path, &e.NoteID, &format, &e.Title); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.Kind = k
		e.Format = parseFormat(format)
		out = append(out, e)
	}
	return out, rows.Err()
}

// KindBitmap reads the note-id bitmap of one kind. Kinds without entries
// yield an empty bitmap.
func KindBitmap(dbPath string, k design.Kind) (*roaring.Bitmap, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	var blob []byte
	err = db.QueryRow("SELECT bitmap FROM kind_bitmaps WHERE kind = ?", k.String()).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return roaring.New(), nil
	}
	if err != nil {
		return nil, err
	}
	rb := roaring.New()
	if err := rb.UnmarshalBinary(blob); err != nil {
		return nil, fmt.Errorf("unmarshal bitmap: %w", err)
	}
	return rb, nil
}

func parseFormat(s string) design.Format {
	for _, f := range []design.Format{design.EmbeddedDocument, design.RawFilePlusMetadata, design.RawFileOnly} {
		if f.String() == s {
			return f
		}
	}
	return design.EmbeddedDocument
}
