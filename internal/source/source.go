package source

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
)

// DefaultExtensions are the file extensions processed when none are configured.
// Gno shares the syntax of Go, so both are parsed the same way.
var DefaultExtensions = []string{".go", ".gno"}

// Parse parses a Go or Gno file with its comments.
// When content is nil the file is read from filename.
func Parse(filename string, content []byte) (*ast.File, *token.FileSet, error) {
	fset := token.NewFileSet()
	var src any
	if content != nil {
		src = content
	}
	node, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, nil, err
	}
	return node, fset, nil
}

// Format prints the file in gofmt style.
func Format(fset *token.FileSet, file *ast.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := format.Node(&buf, fset, file); err != nil {
		return nil, fmt.Errorf("failed to format file: %w", err)
	}
	return buf.Bytes(), nil
}

// HasExtension reports whether path ends with one of exts.
func HasExtension(path string, exts []string) bool {
	ext := filepath.Ext(path)
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// Code stores the content of a source code file.
type Code struct {
	Lines []string
}

// NewCode splits content into lines.
func NewCode(content []byte) *Code {
	return &Code{Lines: strings.Split(string(content), "\n")}
}

// ReadCode reads the content of a file and returns it as a `Code` struct.
func ReadCode(filename string) (*Code, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return NewCode(content), nil
}
