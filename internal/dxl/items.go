package dxl

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrItemCap is returned when a raw item capacity cannot make progress.
var ErrItemCap = errors.New("raw item capacity must be positive")

const (
	tagRawItemData = "rawitemdata"
	tagText        = "text"
	tagTextList    = "textlist"
	tagNumber      = "number"
	tagNumberList  = "numberlist"

	// RawTypeComposite is the rawitemdata type written for packaged records.
	RawTypeComposite = "1"

	base64LineWidth = 72
)

// WriteRawItem replaces every item named name with data split into
// base64 chunks. The first chunk holds up to itemCap+headerSize bytes so
// a fixed binary header does not push a near-empty chunk onto the end;
// later chunks hold up to itemCap bytes. Each chunk becomes its own item
// appended in order; readers concatenate them in document order.
func (d *Document) WriteRawItem(name string, data []byte, itemCap, headerSize int) error {
	if itemCap <= 0 || headerSize < 0 {
		return fmt.Errorf("%w: item %q cap %d header %d", ErrItemCap, name, itemCap, headerSize)
	}
	d.DeleteItems(name)

	limit := itemCap + headerSize
	for off := 0; off < len(data); {
		end := off + limit
		if end > len(data) {
			end = len(data)
		}
		raw := d.newItem(name).CreateElement(tagRawItemData)
		raw.CreateAttr("type", RawTypeComposite)
		raw.SetText(wrapBase64(data[off:end]))
		off = end
		limit = itemCap
	}
	return nil
}

// wrapBase64 encodes chunk and breaks it into lines of 72 characters,
// each preceded by a newline.
func wrapBase64(chunk []byte) string {
	enc := base64.StdEncoding.EncodeToString(chunk)
	var sb strings.Builder
	sb.Grow(len(enc) + len(enc)/base64LineWidth + 2)
	for i := 0; i < len(enc); i += base64LineWidth {
		end := i + base64LineWidth
		if end > len(enc) {
			end = len(enc)
		}
		sb.WriteByte('\n')
		sb.WriteString(enc[i:end])
	}
	return sb.String()
}

// ReadRawItem concatenates the decoded rawitemdata of every item named
// name in document order.
func (d *Document) ReadRawItem(name string) ([]byte, error) {
	items := d.items(name)
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoItem, name)
	}
	var out []byte
	for i, item := range items {
		for _, raw := range item.SelectElements(tagRawItemData) {
			text := strings.Map(func(r rune) rune {
				switch r {
				case '\n', '\r', ' ', '\t':
					return -1
				}
				return r
			}, raw.Text())
			chunk, err := base64.StdEncoding.DecodeString(text)
			if err != nil {
				return nil, fmt.Errorf("decode %s chunk %d: %w", name, i, err)
			}
			out = append(out, chunk...)
		}
	}
	return out, nil
}

// WriteTextItem replaces every item named name with one text item holding
// values. Several values are written as a text list.
func (d *Document) WriteTextItem(name string, values ...string) {
	d.DeleteItems(name)
	item := d.newItem(name)
	parent := item
	if len(values) > 1 {
		parent = item.CreateElement(tagTextList)
	}
	for _, v := range values {
		parent.CreateElement(tagText).SetText(v)
	}
}

// WriteNumberItem replaces every item named name with one number item
// holding values. Several values are written as a number list.
func (d *Document) WriteNumberItem(name string, values ...float64) {
	d.DeleteItems(name)
	item := d.newItem(name)
	parent := item
	if len(values) > 1 {
		parent = item.CreateElement(tagNumberList)
	}
	for _, v := range values {
		parent.CreateElement(tagNumber).SetText(strconv.FormatFloat(v, 'f', -1, 64))
	}
}

// ItemText returns the text values of every item named name.
func (d *Document) ItemText(name string) []string {
	var out []string
	for _, item := range d.items(name) {
		for _, t := range item.FindElements(".//" + tagText) {
			out = append(out, t.Text())
		}
	}
	return out
}

// FirstText returns the first text value of name, or "".
func (d *Document) FirstText(name string) string {
	if v := d.ItemText(name); len(v) > 0 {
		return v[0]
	}
	return ""
}

// ItemNumbers returns the numeric values of every item named name.
func (d *Document) ItemNumbers(name string) ([]float64, error) {
	var out []float64
	for _, item := range d.items(name) {
		for _, n := range item.FindElements(".//" + tagNumber) {
			v, err := strconv.ParseFloat(strings.TrimSpace(n.Text()), 64)
			if err != nil {
				return nil, fmt.Errorf("item %s: %w", name, err)
			}
			out = append(out, v)
		}
	}
	return out, nil
}
