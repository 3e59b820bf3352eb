package ingest

import (
	"context"
	"fmt"
	"os"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/agentic-research/designtree/api"
)

// DefaultSelector selects the records array of a design dump.
const DefaultSelector = "$.records[*]"

// JSONSource reads records from a JSON dump. Selector is a JSONPath that
// yields one object per record.
type JSONSource struct {
	Path     string
	Selector string
}

// Each implements RecordSource.
func (s *JSONSource) Each(ctx context.Context, fn func(api.Record) error) error {
	f, err := os.Open(s.Path)
	if err != nil {
		return fmt.Errorf("open json dump: %w", err)
	}
	defer func() { _ = f.Close() }() // safe to ignore

	data, err := oj.Load(f)
	if err != nil {
		return fmt.Errorf("failed to parse json %s: %w", s.Path, err)
	}
	matches, err := Select(data, s.selector())
	if err != nil {
		return err
	}
	for i, m := range matches {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := decodeRecord(m)
		if err != nil {
			return fmt.Errorf("%s match %d: %w", s.Path, i, err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *JSONSource) selector() string {
	if s.Selector == "" {
		return DefaultSelector
	}
	return s.Selector
}

// Select runs a JSONPath selector against parsed JSON.
func Select(root any, selector string) ([]any, error) {
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", selector, err)
	}
	return x.Get(root), nil
}
