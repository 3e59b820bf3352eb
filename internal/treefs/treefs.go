// Package treefs holds the file helpers shared by export and import. All
// access goes through a billy filesystem so the drivers run unchanged on
// disk (osfs) and in memory (memfs).
package treefs

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// ReservedPrefix marks bookkeeping files at the tree root.
const ReservedPrefix = ".designtree"

// WriteFile writes data to name atomically: content goes to a temp file in
// the same directory, which is then renamed over name. Parent directories
// are created as needed.
func WriteFile(fsys billy.Filesystem, name string, data []byte) error {
	dir := path.Dir(name)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	tmp, err := fsys.TempFile(dir, ".designtree-write-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = fsys.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = fsys.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("close temp: %w", err)
	}
	if err := fsys.Rename(tmpName, name); err != nil {
		_ = fsys.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("rename temp to %s: %w", name, err)
	}
	return nil
}

// ReadFile reads the whole file.
func ReadFile(fsys billy.Filesystem, name string) ([]byte, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }() // safe to ignore
	return io.ReadAll(f)
}

// Exists reports whether name exists.
func Exists(fsys billy.Filesystem, name string) bool {
	_, err := fsys.Stat(name)
	return err == nil
}

// Files lists every regular file below the root in lexical order, with
// slash-separated relative paths. Files and directories whose name starts
// with ReservedPrefix are left out.
func Files(fsys billy.Filesystem) ([]string, error) {
	var out []string
	err := util.Walk(fsys, "/", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if p != "/" && strings.HasPrefix(info.Name(), ReservedPrefix) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Mode().IsRegular() {
			out = append(out, strings.TrimPrefix(path.Clean(p), "/"))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk tree: %w", err)
	}
	sort.Strings(out)
	return out, nil
}
