// Package macro implements the expansion engine behind goinline.
//
// A macro is a top-level function whose body starts with a call of the
// marker function (by default Inline from github.com/gnolang/goinline/inline).
// The marker is recognized through the file's imports, so an aliased import
// (il.Inline()) and a dot import (Inline()) are honoured as well.
//
// A transformation runs the following passes over one *ast.File:
//
// Discovery: Discover registers the marked declarations in declaration order.
// Two marked declarations with the same name are rejected.
//
// Rewrite: every call whose callee name matches a definition is replaced by an
// expansion. A call forming a whole statement is replaced by the body
// statement (single statement, no arguments), by the body statements spliced
// in place (simple statements only) or by a block holding the body (the body
// opens a scope of its own). A call standing inside an expression is replaced
// by the result of a body made of a single return.
//
// Hygiene: the names a body declares are renamed per expansion to
// <prefix><macro>_<name>_<n>, so an expansion neither captures nor shadows a
// name of the caller and two expansions in one scope do not clash.
//
// Binding: every parameter occurrence is replaced by a copy of its argument;
// basic literals are substituted as constants and any other argument is
// aliased. No temporary is introduced, so an argument with side effects is
// evaluated once per occurrence.
//
// Cleanup: the macro declarations and the marker import are removed.
//
// Usage:
//
//	fset := token.NewFileSet()
//	file, err := parser.ParseFile(fset, "main.go", src, parser.ParseComments)
//	if err != nil {
//	    // handle error
//	}
//
//	engine := macro.NewEngine(macro.Options{})
//	if _, err := engine.Transform(fset, file); err != nil {
//	    // the file holds a partial rewrite; discard it
//	}
//
// Errors are reported as *Error values wrapping one of the Err* kinds.
package macro
