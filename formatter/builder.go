package formatter

import (
	"bytes"
	"errors"
	"fmt"
	"go/token"
	"strings"
	"text/template"
	"unicode"

	"github.com/fatih/color"
	"github.com/gnolang/goinline/internal/macro"
	"github.com/gnolang/goinline/internal/source"
)

const tabWidth = 8

// MarkerImportRule is the rule reported for a marker import that had to be kept.
const MarkerImportRule = "marker-import"

var (
	errorStyle   = color.New(color.FgRed, color.Bold)
	warningStyle = color.New(color.FgHiYellow, color.Bold)
	ruleStyle    = color.New(color.FgYellow, color.Bold)
	fileStyle    = color.New(color.FgCyan, color.Bold)
	lineStyle    = color.New(color.FgHiBlue, color.Bold)
	messageStyle = color.New(color.FgRed, color.Bold)
	noteStyle    = color.New(color.FgGreen, color.Bold)
)

// Severity tells whether a report stopped the expansion of its file.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Report is a problem found while expanding a file, ready to be rendered.
type Report struct {
	Severity Severity
	Rule     string
	Pos      token.Position
	Message  string
	Note     string
}

// FromError converts an expansion error into a report. Errors other than
// *macro.Error are reported without a source location.
func FromError(err error) Report {
	var merr *macro.Error
	if errors.As(err, &merr) {
		return Report{
			Severity: SeverityError,
			Rule:     merr.Rule(),
			Pos:      merr.Pos,
			Message:  merr.Message(),
			Note:     noteFor(merr.Kind),
		}
	}
	return Report{
		Severity: SeverityError,
		Rule:     "error",
		Message:  err.Error(),
	}
}

// FromDiagnostic converts a non-fatal diagnostic into a warning report.
func FromDiagnostic(d macro.Diagnostic) Report {
	return Report{
		Severity: SeverityWarning,
		Rule:     MarkerImportRule,
		Pos:      d.Pos,
		Message:  d.Message,
	}
}

func noteFor(kind error) string {
	switch kind {
	case macro.ErrRecursiveMacro:
		return "a macro is copied into its call sites, so it cannot reach itself"
	case macro.ErrDanglingReference:
		return "macro declarations are removed after expansion"
	case macro.ErrUnsupportedBinding:
		return "pass a variable, field or index expression for an assigned parameter"
	}
	return ""
}

// FormatReports renders reports against the source they point into. code may
// be nil when the source is unavailable; the snippet is then left out.
func FormatReports(reports []Report, code *source.Code) string {
	var builder strings.Builder
	for _, r := range reports {
		builder.WriteString(buildReport(r, code))
	}
	return builder.String()
}

/***** Report Builder *****/

type reportData struct {
	Severity        string
	Rule            string
	Filename        string
	Line            int
	Column          int
	Message         string
	Note            string
	MaxLineNumWidth int
	Padding         string
	CommonIndent    string
	SnippetLines    []string
}

const reportTemplate = `{{header .Severity .Rule .MaxLineNumWidth .Filename .Line .Column}}` +
	`{{snippet .SnippetLines .Line .MaxLineNumWidth .CommonIndent .Padding}}` +
	`{{caretAndMessage .Message .Padding .Line .Column .SnippetLines .CommonIndent}}` +
	`{{note .Note .Padding}}
`

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"header":          header,
	"snippet":         codeSnippet,
	"caretAndMessage": caretAndMessage,
	"note":            note,
}).Parse(reportTemplate))

func buildReport(r Report, code *source.Code) string {
	var lines []string
	if code != nil {
		lines = code.Lines
	}

	maxLineNumWidth := calculateMaxLineNumWidth(r.Pos.Line)
	var commonIndent string
	if isValidLine(r.Pos.Line, lines) {
		commonIndent = findCommonIndent(lines[r.Pos.Line-1 : r.Pos.Line])
	}

	data := reportData{
		Severity:        r.Severity.String(),
		Rule:            r.Rule,
		Filename:        r.Pos.Filename,
		Line:            r.Pos.Line,
		Column:          r.Pos.Column,
		Message:         r.Message,
		Note:            r.Note,
		MaxLineNumWidth: maxLineNumWidth,
		Padding:         strings.Repeat(" ", maxLineNumWidth+1),
		CommonIndent:    commonIndent,
		SnippetLines:    lines,
	}

	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("Error formatting report: %v\n", err)
	}
	return buf.String()
}

// utils functions used in the text template

func header(severity string, rule string, maxLineNumWidth int, filename string, line int, column int) string {
	var endString string
	switch severity {
	case "warning":
		endString = warningStyle.Sprint("warning: ")
	default:
		endString = errorStyle.Sprint("error: ")
	}
	endString += ruleStyle.Sprintf("%s\n", rule)

	if filename == "" {
		return endString
	}

	padding := strings.Repeat(" ", maxLineNumWidth)
	endString += lineStyle.Sprintf("%s--> ", padding)
	if line > 0 {
		endString += fileStyle.Sprintf("%s:%d:%d\n", filename, line, column)
	} else {
		endString += fileStyle.Sprintf("%s\n", filename)
	}
	return endString
}

func codeSnippet(snippetLines []string, line int, maxLineNumWidth int, commonIndent string, padding string) string {
	if !isValidLine(line, snippetLines) {
		return ""
	}
	endString := lineStyle.Sprintf("%s|\n", padding)
	lineNum := fmt.Sprintf("%*d", maxLineNumWidth, line)
	endString += lineStyle.Sprintf("%s | ", lineNum)
	endString += fmt.Sprintf("%s\n", strings.TrimPrefix(snippetLines[line-1], commonIndent))
	return endString
}

func caretAndMessage(message string, padding string, line int, column int, snippetLines []string, commonIndent string) string {
	var endString string
	if isValidLine(line, snippetLines) {
		commonIndentWidth := calculateVisualColumn(commonIndent, len(commonIndent)+1)
		caretColumn := calculateVisualColumn(snippetLines[line-1], column) - commonIndentWidth
		if caretColumn < 0 {
			caretColumn = 0
		}
		endString = lineStyle.Sprintf("%s| ", padding)
		endString += strings.Repeat(" ", caretColumn)
		endString += messageStyle.Sprint("^\n")
	}

	endString += lineStyle.Sprintf("%s= ", padding)
	endString += messageStyle.Sprintf("%s\n", message)
	return endString
}

func note(note string, padding string) string {
	if note == "" {
		return ""
	}
	return lineStyle.Sprintf("%s= ", padding) + noteStyle.Sprint("note: ") + fmt.Sprintf("%s\n", note)
}

func isValidLine(line int, snippetLines []string) bool {
	return line > 0 && line <= len(snippetLines)
}

func calculateMaxLineNumWidth(line int) int {
	return len(fmt.Sprintf("%d", line))
}

// calculateVisualColumn calculates the visual column position
// in a string. taking into account tab characters.
func calculateVisualColumn(line string, column int) int {
	if column < 0 {
		return 0
	}
	visualColumn := 0
	for i, ch := range line {
		if i+1 == column {
			break
		}
		if ch == '\t' {
			visualColumn += tabWidth - (visualColumn % tabWidth)
		} else {
			visualColumn++
		}
	}
	return visualColumn
}

// findCommonIndent finds the common indent in the code snippet.
func findCommonIndent(lines []string) string {
	var indent []rune
	found := false
	for _, line := range lines {
		trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
		if trimmed == "" {
			continue
		}
		current := []rune(line[:len(line)-len(trimmed)])
		if !found {
			indent, found = current, true
			continue
		}
		indent = commonPrefix(indent, current)
		if len(indent) == 0 {
			break
		}
	}
	return string(indent)
}

// commonPrefix finds the common prefix of two strings.
func commonPrefix(a, b []rune) []rune {
	minLen := min(len(a), len(b))
	for i := 0; i < minLen; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:minLen]
}
