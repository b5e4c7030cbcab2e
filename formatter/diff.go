package formatter

import (
	"bytes"
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
)

const diffContext = 3

var (
	diffFileStyle   = color.New(color.Bold)
	diffHunkStyle   = color.New(color.FgCyan)
	diffAddStyle    = color.New(color.FgGreen)
	diffRemoveStyle = color.New(color.FgRed)
)

// FormatDiff renders the changes from original to expanded as a colored
// unified diff. It returns "" when both are equal.
func FormatDiff(filename string, original, expanded []byte) (string, error) {
	if bytes.Equal(original, expanded) {
		return "", nil
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(string(original)),
		B:        splitLines(string(expanded)),
		FromFile: "a/" + filename,
		ToFile:   "b/" + filename,
		Context:  diffContext,
	})
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case line == "":
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			builder.WriteString(diffFileStyle.Sprint(line))
		case strings.HasPrefix(line, "@@"):
			builder.WriteString(diffHunkStyle.Sprint(line))
		case strings.HasPrefix(line, "+"):
			builder.WriteString(diffAddStyle.Sprint(line))
		case strings.HasPrefix(line, "-"):
			builder.WriteString(diffRemoveStyle.Sprint(line))
		default:
			builder.WriteString(line)
		}
	}
	return builder.String(), nil
}

// splitLines splits s after each newline. A last line without a newline gets
// one, so the diff does not report a missing final newline.
func splitLines(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if last := len(lines) - 1; lines[last] == "" {
		lines = lines[:last]
	} else {
		lines[last] += "\n"
	}
	return lines
}
