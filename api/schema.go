package api

// Dump is the root of a JSON design dump.
type Dump struct {
	// Version of the dump schema.
	Version string `json:"version"`
	// Database the records were read from (informational).
	Database string `json:"database,omitempty"`
	// Records in export order.
	Records []Record `json:"records"`
}

// Record is one design note as read from a source.
type Record struct {
	// NoteID is the hexadecimal note identifier, e.g. "20fa".
	NoteID string `json:"note_id"`
	// Class is the note class code.
	Class uint16 `json:"class"`
	// Flags is the $Flags item value.
	Flags string `json:"flags,omitempty"`
	// FlagsExt is the $FlagsExt item value.
	FlagsExt string `json:"flags_ext,omitempty"`
	// Title is the $TITLE value including "|" aliases.
	Title string `json:"title"`
	// AssistType is set for agents that carry $AssistType.
	AssistType *int `json:"assist_type,omitempty"`
	// Items holds the remaining note items by name.
	Items map[string]Item `json:"items,omitempty"`
}

// Item is one named note item.
type Item struct {
	// Type is "text", "number" or "raw".
	Type   string    `json:"type"`
	Text   []string  `json:"text,omitempty"`
	Number []float64 `json:"number,omitempty"`
	// Raw is base64 item data. Attachment items hold the packaged record
	// stream, which export unpacks into the raw file.
	Raw string `json:"raw,omitempty"`
}

// Item types.
const (
	ItemText   = "text"
	ItemNumber = "number"
	ItemRaw    = "raw"
)

// HasItem reports whether the record carries an item named name.
func (r Record) HasItem(name string) bool {
	_, ok := r.Items[name]
	return ok
}
