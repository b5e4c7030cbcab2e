package macro

import (
	"go/ast"
	"go/token"

	"golang.org/x/tools/go/ast/astutil"
)

// Binding pairs a formal parameter with the argument of one call site.
type Binding struct {
	Param string
	Arg   ast.Expr
	// Literal is set when Arg is a basic literal that is substituted as a
	// constant. Otherwise every occurrence of Param aliases Arg.
	Literal bool
}

// BindingPlan holds the bindings of one call site, in parameter order.
type BindingPlan []Binding

// planBindings pairs the parameters of def with the arguments of call.
func (r *run) planBindings(def *Definition, call *ast.CallExpr) (BindingPlan, error) {
	if call.Ellipsis.IsValid() {
		return nil, r.errorf(ErrArityMismatch, def.Name, call.Pos(), "spread arguments cannot be bound")
	}
	if len(call.Args) != len(def.Params) {
		return nil, r.errorf(ErrArityMismatch, def.Name, call.Pos(),
			"want %d arguments, got %d", len(def.Params), len(call.Args))
	}

	plan := make(BindingPlan, len(def.Params))
	for i, param := range def.Params {
		_, literal := call.Args[i].(*ast.BasicLit)
		plan[i] = Binding{
			Param:   param,
			Arg:     call.Args[i],
			Literal: literal,
		}
	}
	return plan, nil
}

// apply substitutes every parameter occurrence in body. Each occurrence gets
// its own copy of the argument; nothing is evaluated once into a temporary, so
// an argument with side effects runs as many times as the parameter appears.
func (r *run) apply(def *Definition, call *ast.CallExpr, plan BindingPlan, body []ast.Stmt) ([]ast.Stmt, error) {
	if len(plan) == 0 {
		return body, nil
	}

	byParam := make(map[string]Binding, len(plan))
	for _, b := range plan {
		byParam[b.Param] = b
	}

	assigned := assignedNames(body)
	for _, b := range plan {
		if !assigned[b.Param] || isAddressable(b.Arg) {
			continue
		}
		return nil, r.errorf(ErrUnsupportedBinding, def.Name, call.Pos(),
			"parameter %s is assigned in the body and cannot be bound to a non-addressable argument", b.Param)
	}

	root := &ast.BlockStmt{List: body}
	skip := nonReferences(root)
	astutil.Apply(root, func(c *astutil.Cursor) bool {
		id, ok := c.Node().(*ast.Ident)
		if !ok || skip[id] || !exprSlot(c) {
			return true
		}
		b, ok := byParam[id.Name]
		if !ok {
			return true
		}
		c.Replace(substitute(b.Arg, r.site, c.Parent(), c.Name()))
		// the copy holds caller names only; it must not be bound again
		return false
	}, nil)
	return root.List, nil
}

// exprSlot reports whether the identifier under the cursor sits where any
// expression may stand, so that replacing it keeps the tree well typed.
func exprSlot(c *astutil.Cursor) bool {
	switch c.Parent().(type) {
	case *ast.Field, *ast.ValueSpec, *ast.TypeSpec, *ast.LabeledStmt,
		*ast.BranchStmt, *ast.ImportSpec, *ast.FuncDecl:
		return false
	case *ast.SelectorExpr:
		return c.Name() == "X"
	}
	return true
}

// substitute returns a fresh copy of arg for the parent slot it replaces,
// parenthesized when the slot binds tighter than arg.
func substitute(arg ast.Expr, pos token.Pos, parent ast.Node, slot string) ast.Expr {
	e := clone(arg, pos)
	if needsParens(e, parent, slot) {
		return &ast.ParenExpr{X: e}
	}
	return e
}

func needsParens(e ast.Expr, parent ast.Node, slot string) bool {
	var prec int
	switch x := e.(type) {
	case *ast.BinaryExpr:
		prec = x.Op.Precedence()
	case *ast.UnaryExpr, *ast.StarExpr:
		prec = token.UnaryPrec
	case *ast.FuncLit, *ast.CompositeLit:
		_, callee := parent.(*ast.CallExpr)
		return callee && slot == "Fun"
	default:
		return false
	}

	switch p := parent.(type) {
	case *ast.BinaryExpr:
		return prec <= p.Op.Precedence()
	case *ast.UnaryExpr, *ast.StarExpr:
		return prec < token.UnaryPrec
	case *ast.SelectorExpr, *ast.IndexExpr, *ast.IndexListExpr,
		*ast.SliceExpr, *ast.TypeAssertExpr:
		return slot == "X"
	case *ast.CallExpr:
		return slot == "Fun"
	}
	return false
}

// isAddressable reports whether expr may appear on the left of an assignment.
func isAddressable(expr ast.Expr) bool {
	switch e := expr.(type) {
	case *ast.Ident, *ast.SelectorExpr, *ast.IndexExpr, *ast.StarExpr:
		return true
	case *ast.ParenExpr:
		return isAddressable(e.X)
	}
	return false
}
