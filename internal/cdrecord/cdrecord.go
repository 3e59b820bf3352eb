// Package cdrecord packages attachment bytes into composite-data record
// streams: a fixed header record followed by size-capped segment records.
//
// Three attachment kinds are supported, each with its own header, segment
// layout and segment cap:
//
//	GenericFile  file header (97) + file segments (96), cap 10240
//	Image        graphic wrapper (153) + image header (125) + image segments (124), cap 10250
//	ScriptBlob   event header (0xFFF9) + blob-part segments (0xFFDC), cap 20000
//
// All integers are little-endian. Header sizes below include the signature
// word and the record length field.
package cdrecord

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// Record signatures.
const (
	SigFileHeader   uint16 = 97
	SigFileSegment  uint16 = 96
	SigGraphic      uint16 = 153
	SigImageHeader  uint16 = 125
	SigImageSegment uint16 = 124
	SigEvent        uint16 = 0xFF00 | 249
	SigBlobPart     uint16 = 0xFF00 | 220
)

// Fixed record sizes and per-kind segment caps.
const (
	FileHeaderSize        = 16
	FileSegmentHeaderSize = 12
	FileSegmentCap        = 10240

	GraphicSize            = 22
	ImageHeaderSize        = 20
	ImageSegmentHeaderSize = 8
	ImageSegmentCap        = 10250

	EventHeaderSize    = 18
	BlobPartHeaderSize = 14
	BlobPartCap        = 20000
)

// Event header constants written for script libraries.
const (
	EventTypeLibrary     uint16 = 22
	ActionTypeJavaScript uint16 = 4
)

var (
	// ErrUnknownKind is returned for an Attachment with no recognized Kind.
	ErrUnknownKind = errors.New("unknown attachment kind")
	// ErrTooLarge is returned when a payload does not fit the 32-bit length fields.
	ErrTooLarge = errors.New("attachment too large")
)

// Kind selects the record layout used to package an attachment.
type Kind int

const (
	GenericFile Kind = iota + 1
	Image
	ScriptBlob
)

func (k Kind) String() string {
	switch k {
	case GenericFile:
		return "file"
	case Image:
		return "image"
	case ScriptBlob:
		return "script"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps the names produced by Kind.String back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "file":
		return GenericFile, nil
	case "image":
		return Image, nil
	case "script":
		return ScriptBlob, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Attachment describes how a byte source should be packaged.
type Attachment struct {
	Kind Kind
	// Name is the attachment's file name. Images use its extension to
	// infer the image type.
	Name string
	// MIMEHint is an explicit content type for images; it takes
	// precedence over Name.
	MIMEHint string
}

// SegmentCap returns the maximum payload carried by one segment of kind k.
func SegmentCap(k Kind) int {
	switch k {
	case GenericFile:
		return FileSegmentCap
	case Image:
		return ImageSegmentCap
	case ScriptBlob:
		return BlobPartCap
	}
	return 0
}

// ItemCap returns the pre-encoding byte capacity of one interchange item
// chunk for kind k: two full segments including their headers.
func ItemCap(k Kind) int {
	switch k {
	case GenericFile:
		return (FileSegmentHeaderSize + FileSegmentCap) * 2
	case Image:
		return (ImageSegmentHeaderSize + ImageSegmentCap) * 2
	case ScriptBlob:
		return (BlobPartHeaderSize + BlobPartCap) * 2
	}
	return 0
}

// HeaderSize returns the size of the leading header records for kind k.
// The first interchange chunk carries this many extra bytes.
func HeaderSize(k Kind) int {
	switch k {
	case GenericFile:
		return FileHeaderSize
	case Image:
		return GraphicSize + ImageHeaderSize
	case ScriptBlob:
		return EventHeaderSize
	}
	return 0
}

// SegmentCount returns ceil(n / limit).
func SegmentCount(n, limit int) int {
	if n <= 0 {
		return 0
	}
	return (n + limit - 1) / limit
}

// Encode reads r to the end and packages the bytes as a. Read errors are
// returned wrapped; nothing is emitted for a partially read source.
func Encode(r io.Reader, a Attachment) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s attachment %q: %w", a.Kind, a.Name, err)
	}
	return EncodeBytes(data, a)
}

// EncodeFile packages the contents of the named file. The file is closed
// before EncodeFile returns.
func EncodeFile(path string, a Attachment) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open attachment: %w", err)
	}
	defer func() { _ = f.Close() }()

	if a.Name == "" {
		a.Name = f.Name()
	}
	return Encode(f, a)
}

// EncodeBytes packages data as a.
func EncodeBytes(data []byte, a Attachment) ([]byte, error) {
	if uint64(len(data)) > math.MaxUint32-2 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}
	switch a.Kind {
	case GenericFile:
		return encodeFile(data), nil
	case Image:
		return encodeImage(data, a), nil
	case ScriptBlob:
		return encodeScript(data), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(a.Kind))
	}
}

// buffer is a cursor over a pre-sized, zeroed byte slice.
type buffer struct {
	b   []byte
	off int
}

func newBuffer(size int) *buffer {
	return &buffer{b: make([]byte, size)}
}

func (w *buffer) u16(v uint16) {
	binary.LittleEndian.PutUint16(w.b[w.off:], v)
	w.off += 2
}

func (w *buffer) u32(v uint32) {
	binary.LittleEndian.PutUint32(w.b[w.off:], v)
	w.off += 4
}

func (w *buffer) write(p []byte) {
	w.off += copy(w.b[w.off:], p)
}

// skip advances over n bytes that stay zero (reserved fields, padding).
func (w *buffer) skip(n int) {
	w.off += n
}

// segmentWriter emits one segment header given the payload size and the
// padded size of that segment.
type segmentWriter func(w *buffer, dataSize, segSize int)

// writeSegments splits data into segments of at most limit bytes. Each
// segment is header, payload, and one zero byte when the payload is odd.
func writeSegments(w *buffer, data []byte, limit int, header segmentWriter) {
	for off := 0; off < len(data); off += limit {
		dataSize := len(data) - off
		if dataSize > limit {
			dataSize = limit
		}
		segSize := dataSize + dataSize%2
		header(w, dataSize, segSize)
		w.write(data[off : off+dataSize])
		w.skip(segSize - dataSize)
	}
}
