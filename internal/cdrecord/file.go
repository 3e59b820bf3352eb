package cdrecord

// encodeFile writes a file header followed by file segments.
//
//	header:  Sig(2) Len(2) FileDataSize(4) SegCount(4) Flags(4)
//	segment: Sig(2) Len(2) DataSize(2) SegSize(2) Flags(4) payload [pad]
//
// Both records omit the trailing Reserved(4) of the on-disk structures so
// that the header stays 16 bytes and the segment 12, counting Sig and Len.
func encodeFile(data []byte) []byte {
	n := len(data)
	segCount := SegmentCount(n, FileSegmentCap)

	w := newBuffer(FileHeaderSize + segCount*FileSegmentHeaderSize + n + n%2)
	w.u16(SigFileHeader)
	w.u16(FileHeaderSize)
	w.u32(uint32(n))
	w.u32(uint32(segCount))
	w.u32(0) // flags

	writeSegments(w, data, FileSegmentCap, func(w *buffer, dataSize, segSize int) {
		w.u16(SigFileSegment)
		w.u16(uint16(FileSegmentHeaderSize + segSize))
		w.u16(uint16(dataSize))
		w.u16(uint16(segSize))
		w.u32(0) // flags
	})
	return w.b
}
