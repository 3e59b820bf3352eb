package cdrecord

import (
	"fmt"
	"sync"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Script sources are stored in the host's mixed-width multi-byte charset.
// Bytes below 0x80 stand for themselves, bytes 0x80-0xFF are the optimized
// group 1 code page, and any other character is the group byte 0x14
// followed by its big-endian UCS-2 value. Characters beyond the BMP take
// two 0x14 sequences, one per surrogate.
const groupUnicode = 0x14

var groupOne = charmap.CodePage850

// maxPooledLegacy bounds the buffers kept for reuse.
const maxPooledLegacy = 1 << 20

var legacyPool = sync.Pool{
	New: func() any { return new(legacyBuffer) },
}

// legacyBuffer holds script source converted to the legacy charset. It is
// acquired from a pool and must be released exactly once.
type legacyBuffer struct {
	b []byte
}

// acquireLegacy converts UTF-8 src into a pooled legacy-charset buffer.
// Invalid UTF-8 sequences become U+FFFD.
func acquireLegacy(src []byte) *legacyBuffer {
	lb := legacyPool.Get().(*legacyBuffer)
	lb.fill(src)
	return lb
}

func (lb *legacyBuffer) fill(src []byte) {
	b := lb.b[:0]
	for len(src) > 0 {
		if c := src[0]; c < utf8.RuneSelf && c != groupUnicode {
			b = append(b, c)
			src = src[1:]
			continue
		}
		r, size := utf8.DecodeRune(src)
		src = src[size:]
		if r >= utf8.RuneSelf {
			if g, ok := groupOne.EncodeRune(r); ok && g >= utf8.RuneSelf {
				b = append(b, g)
				continue
			}
		}
		b = appendUnicodeGroup(b, r)
	}
	lb.b = b
}

func appendUnicodeGroup(b []byte, r rune) []byte {
	if r > 0xFFFF {
		hi, lo := utf16.EncodeRune(r)
		return appendUnicodeGroup(appendUnicodeGroup(b, hi), lo)
	}
	return append(b, groupUnicode, byte(r>>8), byte(r))
}

func (lb *legacyBuffer) bytes() []byte {
	return lb.b
}

func (lb *legacyBuffer) release() {
	if cap(lb.b) > maxPooledLegacy {
		lb.b = nil
	} else {
		lb.b = lb.b[:0]
	}
	legacyPool.Put(lb)
}

// paddedScriptLength returns the blob length stored for n source bytes:
// at least one trailing zero, rounded up to an even size.
func paddedScriptLength(n int) int {
	padded := n + 1
	return padded + padded%2
}

// encodeScript converts src to the legacy charset and writes an event
// header followed by blob-part segments over the padded encoded bytes.
//
//	header:  Sig(2) Len(2) Flags(4) EventType(2) ActionType(2) ActionLength(4) SignatureLength(2)
//	segment: Sig(2) Len(2) OwnerSig(2) Length(2) BlobMax(2) Reserved(4) payload [pad]
func encodeScript(src []byte) []byte {
	lb := acquireLegacy(src)
	defer lb.release()

	encoded := lb.bytes()
	padded := paddedScriptLength(len(encoded))
	segCount := SegmentCount(padded, BlobPartCap)

	w := newBuffer(EventHeaderSize + segCount*BlobPartHeaderSize + padded + padded%2)
	w.u16(SigEvent)
	w.u16(EventHeaderSize)
	w.u32(0) // flags
	w.u16(EventTypeLibrary)
	w.u16(ActionTypeJavaScript)
	w.u32(uint32(padded))
	w.u16(0) // signature length

	// The blob is the encoded source followed by zero padding; the
	// padding bytes are already zero in a fresh slice.
	blob := make([]byte, padded)
	copy(blob, encoded)

	writeSegments(w, blob, BlobPartCap, func(w *buffer, dataSize, segSize int) {
		w.u16(SigBlobPart)
		w.u16(uint16(BlobPartHeaderSize + segSize))
		w.u16(SigEvent)
		w.u16(uint16(dataSize))
		w.u16(BlobPartCap)
		w.skip(4) // reserved
	})
	return w.b
}

// scriptBody drops the zero padding after an encoded script. The last
// byte is always padding; a zero before it is padding too unless it ends a
// Unicode group sequence. A single trailing NUL of an odd-length source is
// indistinguishable from padding and is dropped.
func scriptBody(blob []byte) []byte {
	if len(blob) == 0 {
		return blob
	}
	body := blob[:len(blob)-1]
	last := -1
	for i := 0; i < len(body); {
		last = i
		if body[i] == groupUnicode {
			i += 3
		} else {
			i++
		}
	}
	if last == len(body)-1 && body[last] == 0 {
		body = body[:last]
	}
	return body
}

// decodeLegacy converts legacy-charset bytes back to UTF-8.
func decodeLegacy(b []byte) ([]byte, error) {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c == groupUnicode:
			if i+3 > len(b) {
				return nil, fmt.Errorf("script text: %w: unicode group at offset %d", ErrTruncated, i)
			}
			r := rune(b[i+1])<<8 | rune(b[i+2])
			i += 3
			if utf16.IsSurrogate(r) && i+3 <= len(b) && b[i] == groupUnicode {
				if pair := utf16.DecodeRune(r, rune(b[i+1])<<8|rune(b[i+2])); pair != utf8.RuneError {
					r = pair
					i += 3
				}
			}
			out = utf8.AppendRune(out, r)
		case c < utf8.RuneSelf:
			out = append(out, c)
			i++
		default:
			out = utf8.AppendRune(out, groupOne.DecodeByte(c))
			i++
		}
	}
	return out, nil
}
