// Package export projects design records onto an on-disk tree: each record
// is classified, located and written in its kind's format.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/agentic-research/designtree/api"
	"github.com/agentic-research/designtree/internal/design"
	"github.com/agentic-research/designtree/internal/ingest"
	"github.com/agentic-research/designtree/internal/treefs"
	"github.com/agentic-research/designtree/internal/writeback"
)

// Options configures an Engine.
type Options struct {
	// Workers bounds how many records are rendered at once. Values below 1
	// mean 1.
	Workers int
	// SkipUnknown drops unclassified records instead of writing them under
	// the catch-all path.
	SkipUnknown bool
	// ValidateScripts syntax-checks script sources and logs problems.
	ValidateScripts bool
	// Source labels the run in the summary.
	Source string
	Logger *slog.Logger
}

// Engine drives one export into a filesystem.
type Engine struct {
	fs    billy.Filesystem
	fsMu  sync.Mutex // memfs is not safe for concurrent writes
	opts  Options
	log   *slog.Logger
	index *Index
	now   func() time.Time
}

func NewEngine(fsys billy.Filesystem, opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Engine{
		fs:    fsys,
		opts:  opts,
		log:   log,
		index: NewIndex(),
		now:   time.Now,
	}
}

// Index returns what the engine has written so far.
func (e *Engine) Index() *Index {
	return e.index
}

// Export writes every record of src and finishes with the summary and
// index files at the tree root.
func (e *Engine) Export(ctx context.Context, src ingest.RecordSource) (*Summary, error) {
	runID := uuid.NewString()
	e.log.Info("export started", "run", runID, "source", e.opts.Source, "workers", e.opts.Workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	// Paths are claimed here, in source order, so collisions resolve the
	// same way whatever the worker count.
	err := src.Each(gctx, func(rec api.Record) error {
		e.index.Seen()
		t, ok := e.place(rec)
		if !ok {
			return nil
		}
		g.Go(func() error {
			return e.exportRecord(rec, t)
		})
		return nil
	})
	if werr := g.Wait(); werr != nil {
		return nil, werr
	}
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}

	s := e.summary(runID)
	if err := writeSummary(e.fs, s); err != nil {
		return nil, err
	}
	if err := e.writeIndex(); err != nil {
		return nil, err
	}
	e.log.Info("export finished", "run", runID, "records", s.Records, "written", s.Written, "unknown", s.Unknown, "skipped", s.Skipped)
	return s, nil
}

func (e *Engine) summary(runID string) *Summary {
	e.index.mu.Lock()
	defer e.index.mu.Unlock()
	s := &Summary{
		RunID:      runID,
		Source:     e.opts.Source,
		ExportedAt: e.now().UTC().Truncate(time.Second),
		Records:    e.index.records,
		Written:    len(e.index.entries),
		Unknown:    e.index.unknown,
		Skipped:    e.index.skipped,
		Kinds:      make(map[string]int),
	}
	for _, en := range e.index.entries {
		s.Kinds[en.Kind.String()]++
	}
	return s
}

// writeIndex builds the SQLite index in a scratch file and copies it into
// the tree, which may not live on disk.
func (e *Engine) writeIndex() error {
	tmp, err := os.CreateTemp("", "designtree-index-*.db")
	if err != nil {
		return fmt.Errorf("create index scratch file: %w", err)
	}
	tmpName := tmp.Name()
	_ = tmp.Close()
	defer func() { _ = os.Remove(tmpName) }() // best-effort cleanup

	if err := e.index.WriteSQLite(tmpName); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	data, err := os.ReadFile(tmpName)
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}
	return e.write(IndexFile, data)
}

func (e *Engine) write(name string, data []byte) error {
	e.fsMu.Lock()
	defer e.fsMu.Unlock()
	return treefs.WriteFile(e.fs, name, data)
}

// target is where a record goes.
type target struct {
	kind    design.Kind
	relPath string
	format  design.Format
}

// place classifies rec and claims its path. ok is false when the record is
// skipped.
func (e *Engine) place(rec api.Record) (t target, ok bool) {
	kind := design.Classify(classifierInput(rec))
	if kind == design.KindUnknown {
		e.log.Warn("unclassified design record",
			"note", rec.NoteID, "class", design.ClassName(rec.Class), "flags", rec.Flags, "title", rec.Title)
		if e.opts.SkipUnknown {
			e.index.Skip(true)
			return target{}, false
		}
	}
	relPath, _, format := design.Locate(kind, rec.Title)
	return target{kind: kind, relPath: e.index.Claim(relPath, rec.NoteID), format: format}, true
}

func (e *Engine) exportRecord(rec api.Record, t target) error {
	kind, relPath, format := t.kind, t.relPath, t.format

	b, err := buildDocument(rec, kind)
	if err != nil {
		return fmt.Errorf("record %s: %w", rec.NoteID, err)
	}
	if format != design.EmbeddedDocument {
		if !b.hasPayload {
			e.log.Warn("attachment item missing", "note", rec.NoteID, "kind", kind, "item", kind.Layout().AttachmentItem)
		} else if !b.packaged {
			e.log.Debug("attachment taken verbatim", "note", rec.NoteID, "kind", kind)
		}
		if e.opts.ValidateScripts {
			for _, ve := range writeback.ASTErrors(b.payload, relPath) {
				e.log.Warn("script syntax error", "note", rec.NoteID, "error", ve.Error())
			}
		}
	}

	switch format {
	case design.EmbeddedDocument:
		err = e.writeDocument(relPath, b)
	case design.RawFilePlusMetadata:
		if err = e.write(relPath, b.payload); err == nil {
			err = e.writeDocument(design.MetadataPath(relPath), b)
		}
	case design.RawFileOnly:
		err = e.write(relPath, b.payload)
	}
	if err != nil {
		return fmt.Errorf("record %s: %w", rec.NoteID, err)
	}

	e.index.Add(Entry{NoteID: rec.NoteID, Kind: kind, Path: relPath, Format: format, Title: rec.Title})
	e.log.Debug("exported", "note", rec.NoteID, "kind", kind, "path", relPath)
	return nil
}

func (e *Engine) writeDocument(name string, b *built) error {
	data, err := b.doc.Bytes()
	if err != nil {
		return fmt.Errorf("serialize %s: %w", name, err)
	}
	return e.write(name, data)
}
