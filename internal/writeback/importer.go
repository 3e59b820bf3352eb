package writeback

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/agentic-research/designtree/internal/cdrecord"
	"github.com/agentic-research/designtree/internal/design"
	"github.com/agentic-research/designtree/internal/dxl"
	"github.com/agentic-research/designtree/internal/treefs"
)

// DocumentExt is appended to rebuilt document paths that lack it.
const DocumentExt = ".dxl"

// Options configures an Importer.
type Options struct {
	// ValidateScripts rejects script sources with syntax errors.
	ValidateScripts bool
	Logger          *slog.Logger
}

// Rebuilt describes one interchange document produced by an import.
type Rebuilt struct {
	Source string
	Output string
	Kind   design.Kind
	NoteID string
}

// Result lists what an import produced and what it passed over.
type Result struct {
	Rebuilt []Rebuilt
	Skipped []string
}

// Importer turns an exported tree back into interchange documents.
type Importer struct {
	src  billy.Filesystem
	dst  billy.Filesystem
	opts Options
	log  *slog.Logger
}

func NewImporter(src, dst billy.Filesystem, opts Options) *Importer {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Importer{src: src, dst: dst, opts: opts, log: log}
}

// rawOnlyIdentity gives documents rebuilt from raw-only singletons the
// identity items that classify them back to the same kind.
var rawOnlyIdentity = map[design.Kind]struct{ title, flags, flagsExt string }{
	design.KindXSPProperties: {"WEB-INF/xsp.properties", "g", "w"},
}

// Import rebuilds every document in the source tree. Raw files with a
// sibling metadata document, and raw-only singletons, are packaged and
// chunked back into their attachment item; other documents are copied
// through. Files that are neither are skipped.
func (im *Importer) Import(ctx context.Context) (*Result, error) {
	files, err := treefs.Files(im.src)
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f] = true
	}

	res := &Result{}
	for _, p := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if design.IsMetadataPath(p) {
			if !present[strings.TrimSuffix(p, design.MetadataSuffix)] {
				im.log.Warn("metadata without raw file", "path", p)
				res.Skipped = append(res.Skipped, p)
			}
			continue
		}

		var (
			rb  *Rebuilt
			err error
		)
		switch meta := design.MetadataPath(p); {
		case present[meta]:
			rb, err = im.rebuildRaw(p, meta)
		case rawOnlyKind(p) != design.KindUnknown:
			rb, err = im.rebuildRawOnly(p, rawOnlyKind(p))
		default:
			rb, err = im.copyDocument(p)
		}
		if err != nil {
			return nil, err
		}
		if rb == nil {
			res.Skipped = append(res.Skipped, p)
			continue
		}
		im.log.Debug("rebuilt", "path", p, "kind", rb.Kind, "output", rb.Output)
		res.Rebuilt = append(res.Rebuilt, *rb)
	}
	im.log.Info("import finished", "rebuilt", len(res.Rebuilt), "skipped", len(res.Skipped))
	return res, nil
}

func rawOnlyKind(p string) design.Kind {
	for k := range rawOnlyIdentity {
		if l := k.Layout(); l.Singleton && l.Path == p {
			return k
		}
	}
	return design.KindUnknown
}

func outputPath(p string) string {
	if strings.HasSuffix(p, DocumentExt) {
		return p
	}
	return p + DocumentExt
}

// RecordOf reads the classifier input back from a document's identity
// items.
func RecordOf(doc *dxl.Document) design.Record {
	class, _ := design.ParseClass(doc.Class())
	r := design.Record{
		Class:    class,
		Flags:    doc.FirstText(design.ItemFlags),
		FlagsExt: doc.FirstText(design.ItemFlagsExt),
		Title:    doc.FirstText(design.ItemTitle),
		HasItem:  doc.HasItem,
	}
	if nums, err := doc.ItemNumbers(design.ItemAssistType); err == nil && len(nums) > 0 {
		v := int(nums[0])
		r.AssistType = &v
	}
	return r
}

func (im *Importer) rebuildRaw(p, meta string) (*Rebuilt, error) {
	data, err := treefs.ReadFile(im.src, meta)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", meta, err)
	}
	doc, err := dxl.ReadDocument(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", meta, err)
	}
	kind := design.Classify(RecordOf(doc))
	if kind.Layout().AttachmentItem == "" {
		return nil, fmt.Errorf("%s: metadata describes %s, which has no file content", meta, kind)
	}
	return im.pack(p, doc, kind)
}

func (im *Importer) rebuildRawOnly(p string, kind design.Kind) (*Rebuilt, error) {
	id := rawOnlyIdentity[kind]
	doc := dxl.NewDocument(design.ClassName(design.ClassOf(kind)))
	doc.WriteTextItem(design.ItemTitle, id.title)
	doc.WriteTextItem(design.ItemFlags, id.flags)
	doc.WriteTextItem(design.ItemFlagsExt, id.flagsExt)
	return im.pack(p, doc, kind)
}

// pack encodes the raw file at p as kind's attachment, chunks it into doc
// and writes the document.
func (im *Importer) pack(p string, doc *dxl.Document, kind design.Kind) (*Rebuilt, error) {
	layout := kind.Layout()
	payload, err := treefs.ReadFile(im.src, p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	if im.opts.ValidateScripts && Validatable(p) {
		if err := Validate(payload, p); err != nil {
			return nil, err
		}
	}

	stream, err := cdrecord.EncodeBytes(payload, cdrecord.Attachment{
		Kind:     layout.Attachment,
		Name:     path.Base(p),
		MIMEHint: doc.FirstText(design.ItemMimeType),
	})
	if err != nil {
		return nil, fmt.Errorf("package %s: %w", p, err)
	}
	if err := doc.WriteRawItem(layout.AttachmentItem, stream,
		cdrecord.ItemCap(layout.Attachment), cdrecord.HeaderSize(layout.Attachment)); err != nil {
		return nil, fmt.Errorf("chunk %s: %w", p, err)
	}
	if layout.Attachment == cdrecord.GenericFile {
		doc.WriteNumberItem(design.ItemFileSize, float64(len(payload)))
	}
	return im.emit(p, doc, kind)
}

func (im *Importer) copyDocument(p string) (*Rebuilt, error) {
	data, err := treefs.ReadFile(im.src, p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	doc, err := dxl.ReadDocument(bytes.NewReader(data))
	if err != nil {
		im.log.Warn("not an interchange document", "path", p, "error", err)
		return nil, nil
	}
	kind := design.Classify(RecordOf(doc))
	out := outputPath(p)
	if err := treefs.WriteFile(im.dst, out, data); err != nil {
		return nil, fmt.Errorf("write %s: %w", out, err)
	}
	return &Rebuilt{Source: p, Output: out, Kind: kind, NoteID: doc.NoteID()}, nil
}

func (im *Importer) emit(p string, doc *dxl.Document, kind design.Kind) (*Rebuilt, error) {
	data, err := doc.Bytes()
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", p, err)
	}
	out := outputPath(p)
	if err := treefs.WriteFile(im.dst, out, data); err != nil {
		return nil, fmt.Errorf("write %s: %w", out, err)
	}
	return &Rebuilt{Source: p, Output: out, Kind: kind, NoteID: doc.NoteID()}, nil
}
