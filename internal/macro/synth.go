package macro

import (
	"fmt"
	"go/ast"
	"go/token"
)

// Shape is the syntactic form an expansion takes at its call site.
type Shape int

const (
	// ShapeShortcut replaces the call statement with the single body statement.
	ShapeShortcut Shape = iota
	// ShapeFlat splices the body statements in place of the call statement.
	ShapeFlat
	// ShapeBlock replaces the call statement with a block holding the body.
	ShapeBlock
	// ShapeExpr replaces a call expression with the returned expression.
	ShapeExpr
)

func (s Shape) String() string {
	switch s {
	case ShapeShortcut:
		return "shortcut"
	case ShapeFlat:
		return "flat"
	case ShapeBlock:
		return "block"
	case ShapeExpr:
		return "expr"
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// Expansion is the fragment that replaces one call site.
type Expansion struct {
	Shape Shape
	// Stmts holds the replacement statements of the statement shapes. A block
	// expansion holds exactly one *ast.BlockStmt.
	Stmts []ast.Stmt
	// Expr holds the replacement of an expression-level call.
	Expr ast.Expr
}

// Classify decides the shape of a statement-level expansion of body called
// with nargs arguments. The choice depends on statement kinds only.
func Classify(body []ast.Stmt, nargs int) (Shape, error) {
	if err := checkBody(body); err != nil {
		return 0, err
	}
	if len(body) == 1 && nargs == 0 {
		return ShapeShortcut, nil
	}
	for _, stmt := range body {
		if !isSimple(stmt) {
			return ShapeBlock, nil
		}
	}
	return ShapeFlat, nil
}

// returnedExpr returns the result of a body made of a single one-value return
// statement, the only body an expression-level call can be expanded from.
func returnedExpr(body []ast.Stmt) (ast.Expr, bool) {
	if len(body) != 1 {
		return nil, false
	}
	ret, ok := body[0].(*ast.ReturnStmt)
	if !ok || len(ret.Results) != 1 {
		return nil, false
	}
	return ret.Results[0], true
}

// isSimple reports whether stmt can be spliced into the caller's statement
// list without a scope of its own.
func isSimple(stmt ast.Stmt) bool {
	switch s := stmt.(type) {
	case *ast.ExprStmt, *ast.AssignStmt, *ast.IncDecStmt, *ast.SendStmt,
		*ast.ReturnStmt, *ast.GoStmt, *ast.DeferStmt, *ast.EmptyStmt:
		return true
	case *ast.BranchStmt:
		return s.Tok == token.BREAK || s.Tok == token.CONTINUE
	case *ast.DeclStmt:
		gd, ok := s.Decl.(*ast.GenDecl)
		return ok && (gd.Tok == token.VAR || gd.Tok == token.CONST)
	}
	return false
}

// isGoSimpleStmt reports whether stmt may stand in an init or post position
// (the SimpleStmt production of the Go grammar).
func isGoSimpleStmt(stmt ast.Stmt) bool {
	switch stmt.(type) {
	case *ast.ExprStmt, *ast.AssignStmt, *ast.IncDecStmt, *ast.SendStmt, *ast.EmptyStmt:
		return true
	}
	return false
}

// checkBody rejects constructs that cannot be duplicated at several call
// sites of one function: labels and the jumps that target them.
func checkBody(body []ast.Stmt) error {
	var err error
	for _, stmt := range body {
		ast.Inspect(stmt, func(n ast.Node) bool {
			if err != nil {
				return false
			}
			switch s := n.(type) {
			case *ast.FuncLit:
				// labels inside a function literal belong to that literal
				return false
			case *ast.LabeledStmt:
				err = fmt.Errorf("labeled statement %s", s.Label.Name)
			case *ast.BranchStmt:
				switch {
				case s.Tok == token.GOTO:
					err = fmt.Errorf("goto statement")
				case s.Label != nil:
					err = fmt.Errorf("labeled %s", s.Tok)
				}
			case *ast.BadStmt:
				err = fmt.Errorf("malformed statement")
			}
			return true
		})
		if err != nil {
			return err
		}
	}
	return nil
}
