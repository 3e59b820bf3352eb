package export

import (
	"fmt"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/pelletier/go-toml/v2"

	"github.com/agentic-research/designtree/internal/treefs"
)

const (
	// SummaryFile is written at the tree root after every export.
	SummaryFile = treefs.ReservedPrefix + ".toml"
	// IndexFile is the SQLite index written next to SummaryFile.
	IndexFile = treefs.ReservedPrefix + ".db"
)

// Summary describes one export run.
type Summary struct {
	RunID      string         `toml:"run_id"`
	Source     string         `toml:"source"`
	ExportedAt time.Time      `toml:"exported_at"`
	Records    int            `toml:"records"`
	Written    int            `toml:"written"`
	Unknown    int            `toml:"unknown"`
	Skipped    int            `toml:"skipped"`
	Kinds      map[string]int `toml:"kinds"`
}

func writeSummary(fsys billy.Filesystem, s *Summary) error {
	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return treefs.WriteFile(fsys, SummaryFile, data)
}

// Stats reads the summary of the last export into fsys.
func Stats(fsys billy.Filesystem) (*Summary, error) {
	data, err := treefs.ReadFile(fsys, SummaryFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", SummaryFile, err)
	}
	var s Summary
	if err := toml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", SummaryFile, err)
	}
	return &s, nil
}
