package export

import (
	"encoding/base64"
	"fmt"
	"sort"

	"github.com/agentic-research/designtree/api"
	"github.com/agentic-research/designtree/internal/cdrecord"
	"github.com/agentic-research/designtree/internal/design"
	"github.com/agentic-research/designtree/internal/dxl"
)

// recordFields are written from Record fields and win over same-named items.
var recordFields = map[string]bool{
	design.ItemTitle:      true,
	design.ItemFlags:      true,
	design.ItemFlagsExt:   true,
	design.ItemAssistType: true,
}

// classifierInput adapts a source record for the classifier.
func classifierInput(rec api.Record) design.Record {
	return design.Record{
		Class:      rec.Class,
		Flags:      rec.Flags,
		FlagsExt:   rec.FlagsExt,
		Title:      rec.Title,
		HasItem:    rec.HasItem,
		AssistType: rec.AssistType,
	}
}

// built is an interchange document plus the attachment payload split off
// for raw formats.
type built struct {
	doc     *dxl.Document
	payload []byte
	// hasPayload is false when a raw-format record had no attachment item.
	hasPayload bool
	// packaged is false when the attachment item did not hold a record
	// stream and was taken verbatim.
	packaged bool
}

// buildDocument renders rec as an interchange document. Items are written
// in name order after the identity items. For raw formats the attachment
// item is unpacked into payload and left out of the document.
func buildDocument(rec api.Record, kind design.Kind) (*built, error) {
	layout := kind.Layout()
	doc := dxl.NewDocument(design.ClassName(rec.Class))
	if rec.NoteID != "" {
		doc.SetNoteID(rec.NoteID)
	}
	doc.WriteTextItem(design.ItemTitle, rec.Title)
	if rec.Flags != "" {
		doc.WriteTextItem(design.ItemFlags, rec.Flags)
	}
	if rec.FlagsExt != "" {
		doc.WriteTextItem(design.ItemFlagsExt, rec.FlagsExt)
	}
	if rec.AssistType != nil {
		doc.WriteNumberItem(design.ItemAssistType, float64(*rec.AssistType))
	}

	names := make([]string, 0, len(rec.Items))
	for name := range rec.Items {
		names = append(names, name)
	}
	sort.Strings(names)

	b := &built{doc: doc}
	for _, name := range names {
		if recordFields[name] {
			continue
		}
		if layout.IgnoredItems != nil && layout.IgnoredItems.MatchString(name) {
			continue
		}
		item := rec.Items[name]
		switch item.Type {
		case api.ItemText:
			doc.WriteTextItem(name, item.Text...)
		case api.ItemNumber:
			doc.WriteNumberItem(name, item.Number...)
		case api.ItemRaw:
			data, err := base64.StdEncoding.DecodeString(item.Raw)
			if err != nil {
				return nil, fmt.Errorf("item %s: %w", name, err)
			}
			if layout.Format != design.EmbeddedDocument && name == layout.AttachmentItem {
				b.payload, b.packaged = unpack(data)
				b.hasPayload = true
				continue
			}
			if err := doc.WriteRawItem(name, data, cdrecord.ItemCap(cdrecord.GenericFile), 0); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("item %s: unknown item type %q", name, item.Type)
		}
	}
	return b, nil
}

// unpack extracts the payload of a packaged attachment. Data that is not a
// record stream is returned unchanged with packaged=false.
func unpack(data []byte) (payload []byte, packaged bool) {
	dec, err := cdrecord.Decode(data)
	if err != nil {
		return data, false
	}
	return dec.Data, true
}
