package formatter

import (
	"errors"
	"go/token"
	"testing"

	"github.com/gnolang/goinline/internal/macro"
	"github.com/gnolang/goinline/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatReports(t *testing.T) {
	t.Parallel()
	code := &source.Code{
		Lines: []string{
			"package main",
			"",
			"func main() {",
			"\tf(1, 2)",
			"}",
		},
	}

	reports := []Report{
		{
			Severity: SeverityError,
			Rule:     "arity-mismatch",
			Pos:      token.Position{Filename: "test.go", Line: 4, Column: 2},
			Message:  "argument count mismatch f: want 1 arguments, got 2",
		},
		{
			Severity: SeverityWarning,
			Rule:     MarkerImportRule,
			Pos:      token.Position{Filename: "test.go", Line: 3, Column: 6},
			Message:  "kept",
			Note:     "remove the call",
		},
	}

	expected := `error: arity-mismatch
 --> test.go:4:2
  |
4 | f(1, 2)
  | ^
  = argument count mismatch f: want 1 arguments, got 2

warning: marker-import
 --> test.go:3:6
  |
3 | func main() {
  |      ^
  = kept
  = note: remove the call

`

	assert.Equal(t, expected, FormatReports(reports, code))
}

func TestFormatReportsWithoutSource(t *testing.T) {
	t.Parallel()
	reports := []Report{
		{Rule: "error", Message: "failed to read file"},
		{Rule: "error", Pos: token.Position{Filename: "a.go"}, Message: "parse error"},
	}

	expected := `error: error
  = failed to read file

error: error
 --> a.go
  = parse error

`
	assert.Equal(t, expected, FormatReports(reports, nil))
}

func TestFromError(t *testing.T) {
	t.Parallel()
	err := &macro.Error{
		Kind:   macro.ErrRecursiveMacro,
		Macro:  "loop",
		Pos:    token.Position{Filename: "a.go", Line: 5, Column: 1},
		Detail: "body refers to loop",
	}

	r := FromError(err)
	assert.Equal(t, SeverityError, r.Severity)
	assert.Equal(t, "recursive-macro", r.Rule)
	assert.Equal(t, 5, r.Pos.Line)
	assert.Equal(t, "recursive macro loop: body refers to loop", r.Message)
	assert.NotEmpty(t, r.Note)

	plain := FromError(errors.New("boom"))
	assert.Equal(t, "error", plain.Rule)
	assert.Equal(t, "boom", plain.Message)
	assert.False(t, plain.Pos.IsValid())
}

func TestFromDiagnostic(t *testing.T) {
	t.Parallel()
	r := FromDiagnostic(macro.Diagnostic{
		Pos:     token.Position{Filename: "a.go", Line: 3, Column: 8},
		Message: "marker import kept",
	})
	assert.Equal(t, SeverityWarning, r.Severity)
	assert.Equal(t, MarkerImportRule, r.Rule)
	assert.Equal(t, "warning", r.Severity.String())
}

func TestFormatDiff(t *testing.T) {
	t.Parallel()
	original := []byte("a\nb\nc\n")
	expanded := []byte("a\nx\nc\n")

	diff, err := FormatDiff("main.go", original, expanded)
	require.NoError(t, err)

	expected := `--- a/main.go
+++ b/main.go
@@ -1,3 +1,3 @@
 a
-b
+x
 c
`
	assert.Equal(t, expected, diff)

	diff, err = FormatDiff("main.go", original, original)
	require.NoError(t, err)
	assert.Empty(t, diff)
}

func TestCalculateVisualColumn(t *testing.T) {
	t.Parallel()
	tests := []struct {
		line     string
		column   int
		expected int
	}{
		{"abc", 1, 0},
		{"abc", 3, 2},
		{"\tabc", 2, 8},
		{"a\tb", 3, 8},
		{"abc", -1, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, calculateVisualColumn(tt.line, tt.column), tt.line)
	}
}

func TestFindCommonIndent(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "\t", findCommonIndent([]string{"\t\tx", "", "\ty"}))
	assert.Equal(t, "", findCommonIndent([]string{"x", "\ty"}))
	assert.Equal(t, "", findCommonIndent(nil))
}
