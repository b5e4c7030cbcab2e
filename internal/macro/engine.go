package macro

import (
	"fmt"
	"go/ast"
	"go/token"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/tools/go/ast/astutil"
)

// Options configures an Engine. Zero fields take their defaults.
type Options struct {
	Marker       Marker
	ManglePrefix string
	Logger       *zap.Logger
}

// Engine expands macros in Go and Gno files.
//
// An Engine keeps no state between transformations, so one value may be used
// by several goroutines as long as each transforms its own file.
type Engine struct {
	marker Marker
	prefix string
	logger *zap.Logger
}

// NewEngine creates an engine, filling unset options with their defaults.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		marker: opts.Marker,
		prefix: opts.ManglePrefix,
		logger: opts.Logger,
	}
	if e.marker.Module == "" {
		e.marker.Module = DefaultMarker.Module
	}
	if e.marker.Name == "" {
		e.marker.Name = DefaultMarker.Name
	}
	if e.prefix == "" {
		e.prefix = DefaultManglePrefix
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// Marker returns the marker the engine recognizes.
func (e *Engine) Marker() Marker {
	return e.marker
}

// Diagnostic is a remark about a transformation that did not stop it.
type Diagnostic struct {
	Pos     token.Position
	Message string
}

// Result summarizes one transformation.
type Result struct {
	Registry    *Registry
	Expansions  int
	Diagnostics []Diagnostic
}

// Transform expands every macro call in file, then removes the macro
// declarations and the marker import. The file is rewritten in place.
//
// On error the file may hold a partial rewrite and must be discarded.
func (e *Engine) Transform(fset *token.FileSet, file *ast.File) (*Result, error) {
	reg, err := Discover(fset, file, e.marker)
	if err != nil {
		return nil, err
	}

	r := &run{
		fset:      fset,
		file:      file,
		registry:  reg,
		prefix:    e.prefix,
		logger:    e.logger.With(zap.String("file", fset.Position(file.Package).Filename)),
	}

	if reg.Len() > 0 {
		if err := r.validate(); err != nil {
			return nil, err
		}
		if _, err := r.rewrite(file); err != nil {
			return nil, err
		}
		if err := r.checkDangling(); err != nil {
			return nil, err
		}
	}
	r.cleanup()

	for _, d := range r.diags {
		r.logger.Warn(d.Message, zap.String("pos", d.Pos.String()))
	}

	return &Result{
		Registry:    reg,
		Expansions:  r.expansions,
		Diagnostics: r.diags,
	}, nil
}

// Summary describes a discovered macro.
type Summary struct {
	Name   string
	Params []string
	Pos    token.Position
	// Shape is the statement-level shape of a call passing every parameter.
	Shape Shape
	// Expr is set when calls may also stand in expression position.
	Expr bool
}

// Inspect discovers and validates the macros of file without rewriting it.
func (e *Engine) Inspect(fset *token.FileSet, file *ast.File) ([]Summary, error) {
	reg, err := Discover(fset, file, e.marker)
	if err != nil {
		return nil, err
	}
	r := &run{fset: fset, file: file, registry: reg, prefix: e.prefix, logger: e.logger}
	if err := r.validate(); err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, reg.Len())
	for _, def := range reg.Definitions() {
		shape, err := Classify(def.Body, len(def.Params))
		if err != nil {
			return nil, r.errorf(ErrUnsupportedBody, def.Name, def.Decl.Pos(), "%v", err)
		}
		_, expr := returnedExpr(def.Body)
		summaries = append(summaries, Summary{
			Name:   def.Name,
			Params: def.Params,
			Pos:    fset.Position(def.Decl.Pos()),
			Shape:  shape,
			Expr:   expr,
		})
	}
	return summaries, nil
}

// run is the state of one transformation. It is never shared between files.
type run struct {
	fset     *token.FileSet
	file     *ast.File
	registry *Registry
	prefix   string
	logger   *zap.Logger

	// instance numbers the expansions of the run. Mangled names carry it, so
	// two expansions never share a name whatever the macro names look like.
	instance int
	// chain holds the IDs of the definitions being expanded, outermost first.
	chain []int
	// site is the outermost call being expanded. Nodes cloned from a macro
	// body are positioned there.
	site token.Pos

	expansions int
	diags      []Diagnostic
}

func (r *run) errorf(kind error, macro string, pos token.Pos, format string, args ...any) *Error {
	if !pos.IsValid() {
		pos = r.site
	}
	return &Error{
		Kind:   kind,
		Macro:  macro,
		Pos:    r.fset.Position(pos),
		Detail: fmt.Sprintf(format, args...),
	}
}

// validate rejects unusable definitions before anything is rewritten, so a
// bad macro fails the file even when it is never called.
func (r *run) validate() error {
	for _, def := range r.registry.Definitions() {
		if refersTo(def.Body, def.Name) {
			return r.errorf(ErrRecursiveMacro, def.Name, def.Decl.Pos(), "body refers to %s", def.Name)
		}
		if err := checkBody(def.Body); err != nil {
			return r.errorf(ErrUnsupportedBody, def.Name, def.Decl.Pos(), "%v", err)
		}
		if id := outerReference(def); id != nil {
			return r.errorf(ErrUnsupportedBody, def.Name, id.Pos(),
				"%s refers to a name declared outside the macro and again in its body", id.Name)
		}
		if id := r.macroValue(def.Body); id != nil {
			return r.errorf(ErrDanglingReference, id.Name, id.Pos(), "macro used as a value in the body of %s", def.Name)
		}
	}
	return nil
}

func (r *run) match(call *ast.CallExpr) (*Definition, bool) {
	name := qualifiedName(call.Fun)
	if name == "" {
		return nil, false
	}
	return r.registry.Lookup(name)
}

// rewrite expands the macro calls under root. The arguments of a matched call
// are not searched for further macro calls.
func (r *run) rewrite(root ast.Node) (ast.Node, error) {
	var err error
	out := astutil.Apply(root, func(c *astutil.Cursor) bool {
		if err != nil {
			return false
		}
		switch n := c.Node().(type) {
		case *ast.FuncDecl:
			// definitions are removed by the cleanup pass
			return !r.registry.owns(n)
		case *ast.ExprStmt:
			call, ok := n.X.(*ast.CallExpr)
			if !ok {
				return true
			}
			def, ok := r.match(call)
			if !ok {
				return true
			}
			err = r.replaceStmt(c, def, call)
			return false
		case *ast.CallExpr:
			def, ok := r.match(n)
			if !ok {
				return true
			}
			err = r.replaceExpr(c, def, n)
			return false
		}
		return true
	}, nil)
	return out, err
}

// replaceStmt expands a call that forms a whole statement.
func (r *run) replaceStmt(c *astutil.Cursor, def *Definition, call *ast.CallExpr) error {
	exp, err := r.expandStmt(def, call)
	if err != nil {
		return err
	}
	stmts := exp.Stmts

	if c.Index() < 0 {
		switch c.Parent().(type) {
		case *ast.LabeledStmt:
			if len(stmts) != 1 {
				stmts = []ast.Stmt{&ast.BlockStmt{List: stmts}}
			}
		default:
			if len(stmts) != 1 || !isGoSimpleStmt(stmts[0]) {
				return r.errorf(ErrUnsupportedCallSite, def.Name, call.Pos(),
					"the expansion is not a simple statement and cannot stand in %s position", c.Name())
			}
		}
		c.Replace(stmts[0])
		return nil
	}

	if len(stmts) == 0 {
		c.Delete()
		return nil
	}
	for _, stmt := range stmts[:len(stmts)-1] {
		c.InsertBefore(stmt)
	}
	c.Replace(stmts[len(stmts)-1])
	return nil
}

// replaceExpr expands a call standing in expression position.
func (r *run) replaceExpr(c *astutil.Cursor, def *Definition, call *ast.CallExpr) error {
	switch c.Parent().(type) {
	case *ast.GoStmt, *ast.DeferStmt:
		return r.errorf(ErrUnsupportedCallSite, def.Name, call.Pos(), "macros cannot be called by go or defer")
	}
	if _, ok := returnedExpr(def.Body); !ok {
		return r.errorf(ErrUnsupportedCallSite, def.Name, call.Pos(),
			"only a macro made of a single one-value return can be used as an expression")
	}

	body, err := r.instantiate(def, call)
	if err != nil {
		return err
	}
	result, ok := returnedExpr(body)
	if !ok {
		return r.errorf(ErrUnsupportedCallSite, def.Name, call.Pos(),
			"the expansion is no longer a single return")
	}
	if needsParens(result, c.Parent(), c.Name()) {
		result = &ast.ParenExpr{X: result}
	}
	c.Replace(result)

	r.logger.Debug("Replacing function call",
		zap.String("macro", def.Name),
		zap.Stringer("shape", ShapeExpr),
		zap.String("pos", r.fset.Position(r.site).String()))
	return nil
}

// expandStmt synthesizes the expansion of a statement-level call.
func (r *run) expandStmt(def *Definition, call *ast.CallExpr) (*Expansion, error) {
	shape, err := Classify(def.Body, len(call.Args))
	if err != nil {
		return nil, r.errorf(ErrUnsupportedBody, def.Name, def.Decl.Pos(), "%v", err)
	}

	body, err := r.instantiate(def, call)
	if err != nil {
		return nil, err
	}

	exp := &Expansion{Shape: shape, Stmts: body}
	if shape == ShapeBlock {
		exp.Stmts = []ast.Stmt{&ast.BlockStmt{List: body}}
	}

	r.logger.Debug("Replacing function call",
		zap.String("macro", def.Name),
		zap.Stringer("shape", shape),
		zap.String("pos", r.fset.Position(r.site).String()))
	return exp, nil
}

// instantiate produces a fresh copy of the body of def bound to the
// arguments of call: hygiene first, then the macro calls the body makes,
// then argument binding.
func (r *run) instantiate(def *Definition, call *ast.CallExpr) ([]ast.Stmt, error) {
	if len(r.chain) == 0 {
		r.site = call.Pos()
	}
	for _, id := range r.chain {
		if id == def.ID {
			return nil, r.errorf(ErrRecursiveMacro, def.Name, call.Pos(), "expansion cycle %s", r.cycle(def))
		}
	}

	plan, err := r.planBindings(def, call)
	if err != nil {
		return nil, err
	}

	r.instance++
	body := cloneStmts(def.Body, r.site)
	if _, err := r.hygiene(def, body, r.instance); err != nil {
		return nil, err
	}

	r.chain = append(r.chain, def.ID)
	root, err := r.rewrite(&ast.BlockStmt{List: body})
	r.chain = r.chain[:len(r.chain)-1]
	if err != nil {
		return nil, err
	}

	body, err = r.apply(def, call, plan, root.(*ast.BlockStmt).List)
	if err != nil {
		return nil, err
	}
	r.expansions++
	return body, nil
}

func (r *run) cycle(def *Definition) string {
	names := make([]string, 0, len(r.chain)+1)
	for _, id := range r.chain {
		names = append(names, r.registry.defs[id].Name)
	}
	names = append(names, def.Name)
	return strings.Join(names, " -> ")
}

// macroValue returns the first identifier of body that names a macro
// without calling it. Expansions lose the declaration such a value needs.
func (r *run) macroValue(body []ast.Stmt) *ast.Ident {
	var found *ast.Ident
	callees := make(map[*ast.Ident]bool)
	ast.Inspect(&ast.BlockStmt{List: body}, func(n ast.Node) bool {
		if found != nil {
			return false
		}
		switch x := n.(type) {
		case *ast.CallExpr:
			if id, ok := astutil.Unparen(x.Fun).(*ast.Ident); ok {
				callees[id] = true
			}
		case *ast.Ident:
			if callees[x] || x.Obj == nil {
				return true
			}
			if fn, ok := x.Obj.Decl.(*ast.FuncDecl); ok && r.registry.owns(fn) {
				found = x
			}
		}
		return true
	})
	return found
}

// checkDangling fails when a removed macro is still referenced: a call left in
// the arguments of another macro call, or a macro used as a function value.
func (r *run) checkDangling() error {
	var (
		err  error
		last token.Pos
	)
	ast.Inspect(r.file, func(n ast.Node) bool {
		if err != nil || n == nil {
			return false
		}
		if n.Pos().IsValid() {
			last = n.Pos()
		}
		switch x := n.(type) {
		case *ast.FuncDecl:
			return !r.registry.owns(x)
		case *ast.CallExpr:
			if def, ok := r.match(x); ok {
				err = r.errorf(ErrDanglingReference, def.Name, last,
					"call nested in the arguments of another macro call is not expanded")
			}
		case *ast.Ident:
			if x.Obj == nil {
				return true
			}
			if fn, ok := x.Obj.Decl.(*ast.FuncDecl); ok && r.registry.owns(fn) {
				err = r.errorf(ErrDanglingReference, fn.Name.Name, last, "macro used as a value")
			}
		}
		return true
	})
	return err
}
