package cdrecord

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrTruncated is returned when a stream ends inside a record.
	ErrTruncated = errors.New("truncated record stream")
	// ErrSignature is returned when a record carries an unexpected signature.
	ErrSignature = errors.New("unexpected record signature")
	// ErrCorrupt is returned when declared sizes contradict each other.
	ErrCorrupt = errors.New("inconsistent record sizes")
)

// Segment describes one segment record found in a stream.
type Segment struct {
	DataSize int
	SegSize  int
}

// Decoded is the result of walking a record stream.
type Decoded struct {
	Kind Kind
	// Data is the reassembled payload. For script blobs the trailing zero
	// padding is removed and the bytes are converted back to UTF-8.
	Data      []byte
	Segments  []Segment
	ImageType uint16
	Width     uint16
	Height    uint16
}

// reader is a bounds-checked little-endian cursor.
type reader struct {
	b   []byte
	off int
}

func (r *reader) need(n int) error {
	if r.off+n > len(r.b) {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, r.off, len(r.b)-r.off)
	}
	return nil
}

func (r *reader) u16() uint16 {
	v := binary.LittleEndian.Uint16(r.b[r.off:])
	r.off += 2
	return v
}

func (r *reader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.b[r.off:])
	r.off += 4
	return v
}

func (r *reader) peekSig() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(r.b[r.off:]), nil
}

func (r *reader) expectSig(want uint16) error {
	got, err := r.peekSig()
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: got %#x at offset %d, want %#x", ErrSignature, got, r.off, want)
	}
	r.off += 2
	return nil
}

// Decode walks a record stream produced by Encode and reassembles its
// payload. The header signature selects the layout.
func Decode(stream []byte) (*Decoded, error) {
	r := &reader{b: stream}
	sig, err := r.peekSig()
	if err != nil {
		return nil, err
	}
	switch sig {
	case SigFileHeader:
		return decodeFile(r)
	case SigGraphic:
		return decodeImage(r)
	case SigEvent:
		return decodeScript(r)
	default:
		return nil, fmt.Errorf("%w: leading %#x", ErrSignature, sig)
	}
}

// segmentParser reads one segment header (after its signature) and returns
// the declared payload and padded sizes.
type segmentParser func(r *reader) (dataSize, segSize int, err error)

func readSegments(r *reader, count int, sig uint16, headerSize, limit int, parse segmentParser) ([]byte, []Segment, error) {
	if count < 0 || count > (len(r.b)-r.off)/headerSize {
		return nil, nil, fmt.Errorf("%w: %d segments cannot fit in %d bytes", ErrCorrupt, count, len(r.b)-r.off)
	}
	var payload []byte
	segments := make([]Segment, 0, count)
	for i := 0; i < count; i++ {
		start := r.off
		if err := r.need(headerSize); err != nil {
			return nil, nil, fmt.Errorf("segment %d: %w", i, err)
		}
		if err := r.expectSig(sig); err != nil {
			return nil, nil, fmt.Errorf("segment %d: %w", i, err)
		}
		dataSize, segSize, err := parse(r)
		if err != nil {
			return nil, nil, fmt.Errorf("segment %d: %w", i, err)
		}
		if dataSize > limit || segSize != dataSize+dataSize%2 {
			return nil, nil, fmt.Errorf("segment %d: %w: data %d seg %d", i, ErrCorrupt, dataSize, segSize)
		}
		r.off = start + headerSize
		if err := r.need(segSize); err != nil {
			return nil, nil, fmt.Errorf("segment %d payload: %w", i, err)
		}
		payload = append(payload, r.b[r.off:r.off+dataSize]...)
		r.off += segSize
		segments = append(segments, Segment{DataSize: dataSize, SegSize: segSize})
	}
	return payload, segments, nil
}

func decodeFile(r *reader) (*Decoded, error) {
	if err := r.need(FileHeaderSize); err != nil {
		return nil, fmt.Errorf("file header: %w", err)
	}
	r.off += 2
	if l := r.u16(); l != FileHeaderSize {
		return nil, fmt.Errorf("file header: %w: length %d", ErrCorrupt, l)
	}
	total := int(r.u32())
	count := int(r.u32())
	r.u32() // flags

	data, segs, err := readSegments(r, count, SigFileSegment, FileSegmentHeaderSize, FileSegmentCap,
		func(r *reader) (int, int, error) {
			recLen := int(r.u16())
			dataSize := int(r.u16())
			segSize := int(r.u16())
			if recLen != FileSegmentHeaderSize+segSize {
				return 0, 0, fmt.Errorf("%w: record length %d for segment size %d", ErrCorrupt, recLen, segSize)
			}
			return dataSize, segSize, nil
		})
	if err != nil {
		return nil, fmt.Errorf("file: %w", err)
	}
	if len(data) != total {
		return nil, fmt.Errorf("file: %w: header declares %d bytes, segments carry %d", ErrCorrupt, total, len(data))
	}
	return &Decoded{Kind: GenericFile, Data: data, Segments: segs}, nil
}

func decodeImage(r *reader) (*Decoded, error) {
	if err := r.need(GraphicSize + ImageHeaderSize); err != nil {
		return nil, fmt.Errorf("image header: %w", err)
	}
	r.off += 2
	if l := r.u32(); l != GraphicSize {
		return nil, fmt.Errorf("graphic: %w: length %d", ErrCorrupt, l)
	}
	r.off += GraphicSize - 6

	if err := r.expectSig(SigImageHeader); err != nil {
		return nil, fmt.Errorf("image header: %w", err)
	}
	if l := r.u32(); l != ImageHeaderSize {
		return nil, fmt.Errorf("image header: %w: length %d", ErrCorrupt, l)
	}
	d := &Decoded{Kind: Image}
	d.ImageType = r.u16()
	d.Width = r.u16()
	d.Height = r.u16()
	total := int(r.u32())
	count := int(r.u32())

	data, segs, err := readSegments(r, count, SigImageSegment, ImageSegmentHeaderSize, ImageSegmentCap,
		func(r *reader) (int, int, error) {
			recLen := int(r.u16())
			dataSize := int(r.u16())
			segSize := int(r.u16())
			if recLen != ImageSegmentHeaderSize+segSize {
				return 0, 0, fmt.Errorf("%w: record length %d for segment size %d", ErrCorrupt, recLen, segSize)
			}
			return dataSize, segSize, nil
		})
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	if len(data) != total {
		return nil, fmt.Errorf("image: %w: header declares %d bytes, segments carry %d", ErrCorrupt, total, len(data))
	}
	d.Data = data
	d.Segments = segs
	return d, nil
}

func decodeScript(r *reader) (*Decoded, error) {
	if err := r.need(EventHeaderSize); err != nil {
		return nil, fmt.Errorf("event header: %w", err)
	}
	r.off += 2
	if l := r.u16(); l != EventHeaderSize {
		return nil, fmt.Errorf("event header: %w: length %d", ErrCorrupt, l)
	}
	r.u32() // flags
	r.u16() // event type
	r.u16() // action type
	total := int(r.u32())
	r.u16() // signature length

	count := SegmentCount(total, BlobPartCap)
	blob, segs, err := readSegments(r, count, SigBlobPart, BlobPartHeaderSize, BlobPartCap,
		func(r *reader) (int, int, error) {
			recLen := int(r.u16())
			if owner := r.u16(); owner != SigEvent {
				return 0, 0, fmt.Errorf("%w: owner %#x", ErrSignature, owner)
			}
			dataSize := int(r.u16())
			segSize := recLen - BlobPartHeaderSize
			if blobMax := int(r.u16()); blobMax != BlobPartCap {
				return 0, 0, fmt.Errorf("%w: blob max %d", ErrCorrupt, blobMax)
			}
			return dataSize, segSize, nil
		})
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	if len(blob) != total {
		return nil, fmt.Errorf("script: %w: header declares %d bytes, segments carry %d", ErrCorrupt, total, len(blob))
	}

	src, err := decodeLegacy(scriptBody(blob))
	if err != nil {
		return nil, err
	}
	return &Decoded{Kind: ScriptBlob, Data: src, Segments: segs}, nil
}
