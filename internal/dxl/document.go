// Package dxl reads and writes interchange documents: XML notes whose
// named <item> children carry text, numbers, or base64-wrapped raw item
// data.
//
// A Document is not safe for concurrent use. Item writes delete and append
// elements in place.
package dxl

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/beevik/etree"
)

// Namespace is the XML namespace of interchange documents.
const Namespace = "http://www.lotus.com/dxl"

const (
	tagNote     = "note"
	tagNoteInfo = "noteinfo"
	tagItem     = "item"
	attrName    = "name"
	attrClass   = "class"
	attrNoteID  = "noteid"
)

var (
	// ErrNoItem is returned when a requested item is absent.
	ErrNoItem = errors.New("item not found")
	// ErrNotNote is returned when a parsed document has no <note> root.
	ErrNotNote = errors.New("document root is not a note")
)

// Document is one interchange note.
type Document struct {
	doc *etree.Document
}

// NewDocument creates an empty note of the given class.
func NewDocument(class string) *Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	root := doc.CreateElement(tagNote)
	root.CreateAttr(attrClass, class)
	root.CreateAttr("xmlns", Namespace)
	return &Document{doc: doc}
}

// ReadDocument parses a note from r.
func ReadDocument(r io.Reader) (*Document, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("parse interchange document: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != tagNote {
		return nil, ErrNotNote
	}
	return &Document{doc: doc}, nil
}

// WriteTo writes the indented document to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	d.doc.Indent(2)
	return d.doc.WriteTo(w)
}

// Bytes returns the serialized document.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d *Document) root() *etree.Element {
	return d.doc.Root()
}

// Class returns the note class name, e.g. "form".
func (d *Document) Class() string {
	return d.root().SelectAttrValue(attrClass, "")
}

// NoteID returns the note id recorded in <noteinfo>, or "".
func (d *Document) NoteID() string {
	info := d.root().SelectElement(tagNoteInfo)
	if info == nil {
		return ""
	}
	return info.SelectAttrValue(attrNoteID, "")
}

// SetNoteID records the note id in a <noteinfo> element placed before the
// first item.
func (d *Document) SetNoteID(id string) {
	root := d.root()
	info := root.SelectElement(tagNoteInfo)
	if info == nil {
		info = etree.NewElement(tagNoteInfo)
		root.InsertChildAt(0, info)
	}
	info.CreateAttr(attrNoteID, id)
}

// items returns every <item> child named name, in document order.
func (d *Document) items(name string) []*etree.Element {
	var out []*etree.Element
	for _, el := range d.root().SelectElements(tagItem) {
		if el.SelectAttrValue(attrName, "") == name {
			out = append(out, el)
		}
	}
	return out
}

// HasItem reports whether at least one item named name exists.
func (d *Document) HasItem(name string) bool {
	return len(d.items(name)) > 0
}

// ItemNames returns the distinct item names in document order.
func (d *Document) ItemNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, el := range d.root().SelectElements(tagItem) {
		name := el.SelectAttrValue(attrName, "")
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// DeleteItems removes every item whose name attribute equals name exactly
// and returns how many were removed.
func (d *Document) DeleteItems(name string) int {
	root := d.root()
	removed := 0
	for _, el := range d.items(name) {
		if root.RemoveChild(el) != nil {
			removed++
		}
	}
	return removed
}

// StripItems removes every item whose name matches re. A nil re removes
// nothing.
func (d *Document) StripItems(re *regexp.Regexp) int {
	if re == nil {
		return 0
	}
	removed := 0
	for _, name := range d.ItemNames() {
		if re.MatchString(name) {
			removed += d.DeleteItems(name)
		}
	}
	return removed
}

// newItem appends a fresh <item name=...> to the note.
func (d *Document) newItem(name string) *etree.Element {
	el := d.root().CreateElement(tagItem)
	el.CreateAttr(attrName, name)
	return el
}
