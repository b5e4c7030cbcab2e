package macro

import (
	"errors"
	"go/token"
	"strings"
)

// Error kinds. Every one of them aborts the transformation of the file it was
// found in; the caller never receives a partially rewritten tree.
var (
	ErrRecursiveMacro      = errors.New("recursive macro")
	ErrAmbiguousDefinition = errors.New("ambiguous macro definition")
	ErrArityMismatch       = errors.New("argument count mismatch")
	ErrUnsupportedBody     = errors.New("unsupported macro body")
	ErrUnsupportedMacro    = errors.New("unsupported macro declaration")
	ErrUnsupportedBinding  = errors.New("unsupported argument binding")
	ErrUnsupportedCallSite = errors.New("unsupported call site")
	ErrDanglingReference   = errors.New("dangling macro reference")
)

var ruleNames = map[error]string{
	ErrRecursiveMacro:      "recursive-macro",
	ErrAmbiguousDefinition: "ambiguous-definition",
	ErrArityMismatch:       "arity-mismatch",
	ErrUnsupportedBody:     "unsupported-body",
	ErrUnsupportedMacro:    "unsupported-macro",
	ErrUnsupportedBinding:  "unsupported-binding",
	ErrUnsupportedCallSite: "unsupported-call-site",
	ErrDanglingReference:   "dangling-reference",
}

// Error describes a macro that could not be expanded.
type Error struct {
	Kind   error
	Macro  string
	Pos    token.Position
	Detail string
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Pos.IsValid() {
		b.WriteString(e.Pos.String())
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Macro != "" {
		b.WriteString(" " + e.Macro)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Rule returns the short kebab-case name of the error kind.
func (e *Error) Rule() string {
	if name, ok := ruleNames[e.Kind]; ok {
		return name
	}
	return "macro-error"
}

// Message returns the error text without the position prefix.
func (e *Error) Message() string {
	withoutPos := *e
	withoutPos.Pos = token.Position{}
	return withoutPos.Error()
}
