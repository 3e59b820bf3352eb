package design

import (
	"path"
	"strings"
)

// MetadataSuffix is appended to a raw file's path for its metadata
// document.
const MetadataSuffix = ".metadata"

const untitled = "untitled"

var unsafeChars = strings.NewReplacer(
	`\`, "_", ":", "_", "*", "_", "?", "_", `"`, "_", "<", "_", ">", "_", "|", "_",
)

// Locate returns the slash-separated path of a record relative to the tree
// root, the extension applied to it (empty when none) and the output
// format. Singleton kinds ignore the title.
func Locate(kind Kind, title string) (relPath string, ext string, format Format) {
	l := kind.Layout()
	if l.Singleton {
		return l.Path, path.Ext(l.Path), l.Format
	}

	name := fileName(title)
	ext = l.Extension
	if ext != "" && strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext)) {
		name = name[:len(name)-len(ext)]
		if name == "" {
			name = untitled
		}
	}
	return path.Join(l.Path, name+ext), ext, l.Format
}

// fileName turns a design title into a relative file name. Aliases after
// "|" are dropped, "/" separated titles keep their directories, and
// characters that are unsafe on common filesystems become "_".
func fileName(title string) string {
	primary, _, _ := strings.Cut(title, "|")
	primary = strings.ReplaceAll(primary, `\`, "/")

	var parts []string
	for _, seg := range strings.Split(primary, "/") {
		seg = strings.TrimSpace(unsafeChars.Replace(seg))
		switch seg {
		case "", ".":
			continue
		case "..":
			seg = "_"
		}
		parts = append(parts, seg)
	}
	if len(parts) == 0 {
		return untitled
	}
	return strings.Join(parts, "/")
}

// MetadataPath returns the path of the metadata document that accompanies
// the raw file at relPath.
func MetadataPath(relPath string) string {
	return relPath + MetadataSuffix
}

// IsMetadataPath reports whether p names a metadata document.
func IsMetadataPath(p string) bool {
	return strings.HasSuffix(p, MetadataSuffix)
}
