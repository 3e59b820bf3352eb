package cdrecord

import (
	"bytes"
	"image"
	_ "image/gif"  // register decoder for DecodeConfig
	_ "image/jpeg" // register decoder for DecodeConfig
	_ "image/png"  // register decoder for DecodeConfig
	"math"
	"mime"
	"path"
	"strings"
)

// Image type codes stored in the image header.
const (
	ImageTypeUnknown uint16 = 0
	ImageTypeGIF     uint16 = 1
	ImageTypeJPEG    uint16 = 2
	ImageTypeBMP     uint16 = 3
)

// ResolveImageType picks the image type code for an attachment. It tries
// the explicit MIME hint, then the file extension, then a content-type
// guess from the file name. PNG maps to ImageTypeJPEG: the legacy format
// has no PNG code and readers accept PNG data under the JPEG type.
// Unresolved types yield ImageTypeUnknown.
func ResolveImageType(mimeHint, name string) uint16 {
	if t := imageTypeForMIME(mimeHint); t != ImageTypeUnknown {
		return t
	}
	ext := strings.ToLower(path.Ext(name))
	switch ext {
	case ".gif":
		return ImageTypeGIF
	case ".bmp":
		return ImageTypeBMP
	case ".jpg", ".jpeg", ".png":
		return ImageTypeJPEG
	}
	if ext != "" {
		return imageTypeForMIME(mime.TypeByExtension(ext))
	}
	return ImageTypeUnknown
}

func imageTypeForMIME(contentType string) uint16 {
	if contentType == "" {
		return ImageTypeUnknown
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ImageTypeUnknown
	}
	switch mediaType {
	case "image/gif":
		return ImageTypeGIF
	case "image/bmp", "image/x-bmp", "image/x-ms-bmp":
		return ImageTypeBMP
	case "image/jpeg", "image/pjpeg", "image/jpg", "image/png":
		return ImageTypeJPEG
	}
	return ImageTypeUnknown
}

// imageDimensions returns the pixel size of data when a registered decoder
// recognizes it. Unknown formats and sizes beyond 16 bits report zero.
func imageDimensions(data []byte) (width, height uint16) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width > math.MaxUint16 || cfg.Height > math.MaxUint16 {
		return 0, 0
	}
	return uint16(cfg.Width), uint16(cfg.Height)
}

// encodeImage writes a graphic wrapper, an image header and image segments.
//
//	graphic: Sig(2) Len(4) DestW(2) DestH(2) CropW(2) CropH(2) CropOffset(8)
//	header:  Sig(2) Len(4) ImageType(2) Width(2) Height(2) ImageDataSize(4) SegCount(4)
//	segment: Sig(2) Len(2) DataSize(2) SegSize(2) payload [pad]
func encodeImage(data []byte, a Attachment) []byte {
	n := len(data)
	segCount := SegmentCount(n, ImageSegmentCap)
	width, height := imageDimensions(data)

	w := newBuffer(GraphicSize + ImageHeaderSize + segCount*ImageSegmentHeaderSize + n + n%2)

	w.u16(SigGraphic)
	w.u32(GraphicSize)
	w.u16(width)
	w.u16(height)
	w.u16(width)
	w.u16(height)
	w.skip(8) // crop offset

	w.u16(SigImageHeader)
	w.u32(ImageHeaderSize)
	w.u16(ResolveImageType(a.MIMEHint, a.Name))
	w.u16(width)
	w.u16(height)
	w.u32(uint32(n))
	w.u32(uint32(segCount))

	writeSegments(w, data, ImageSegmentCap, func(w *buffer, dataSize, segSize int) {
		w.u16(SigImageSegment)
		w.u16(uint16(ImageSegmentHeaderSize + segSize))
		w.u16(uint16(dataSize))
		w.u16(uint16(segSize))
	})
	return w.b
}
