package writeback

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
)

// ValidationError locates a syntax error in a script source.
type ValidationError struct {
	FilePath string
	Line     uint32 // 0-indexed
	Column   uint32 // 0-indexed
	Message  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.FilePath, e.Line+1, e.Column+1, e.Message)
}

// languageForPath maps script file extensions to tree-sitter languages.
// Client (.js) and server (.jss) script libraries share the JavaScript
// grammar.
func languageForPath(filePath string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".js", ".jss":
		return javascript.GetLanguage()
	case ".java":
		return java.GetLanguage()
	}
	return nil
}

// Validatable reports whether filePath has a grammar.
func Validatable(filePath string) bool {
	return languageForPath(filePath) != nil
}

// parse returns the syntax tree root, or nil when the path has no grammar.
func parse(content []byte, filePath string) (*sitter.Node, error) {
	lang := languageForPath(filePath)
	if lang == nil {
		return nil, nil
	}
	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed for %s: %w", filePath, err)
	}
	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("tree-sitter returned nil root for %s", filePath)
	}
	return root, nil
}

func errorAt(node *sitter.Node, filePath string) ValidationError {
	msg := "syntax error"
	if node.IsMissing() {
		msg = fmt.Sprintf("missing %s", node.Type())
	}
	return ValidationError{
		FilePath: filePath,
		Line:     node.StartPoint().Row,
		Column:   node.StartPoint().Column,
		Message:  msg,
	}
}

// Validate parses a script source and returns a *ValidationError at the
// first syntax error. Paths without a grammar pass (nil).
func Validate(content []byte, filePath string) error {
	root, err := parse(content, filePath)
	if err != nil || root == nil || !root.HasError() {
		return err
	}
	errs := collectErrors(root, filePath, 1)
	if len(errs) == 0 {
		return &ValidationError{FilePath: filePath, Message: "source contains errors"}
	}
	return &errs[0]
}

// ASTErrors returns every syntax error location for diagnostics, or nil.
func ASTErrors(content []byte, filePath string) []ValidationError {
	root, err := parse(content, filePath)
	if err != nil || root == nil || !root.HasError() {
		return nil
	}
	return collectErrors(root, filePath, 0)
}

// collectErrors walks error branches depth first and stops after limit
// findings (0 means no limit). Children of an ERROR node are not reported.
func collectErrors(root *sitter.Node, filePath string, limit int) []ValidationError {
	var errs []ValidationError
	var walk func(n *sitter.Node) bool
	walk = func(n *sitter.Node) bool {
		if n.IsError() || n.IsMissing() {
			errs = append(errs, errorAt(n, filePath))
			return limit == 0 || len(errs) < limit
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			if child.HasError() || child.IsError() || child.IsMissing() {
				if !walk(child) {
					return false
				}
			}
		}
		return true
	}
	walk(root)
	return errs
}
