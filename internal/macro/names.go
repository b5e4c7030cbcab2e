package macro

import (
	"go/ast"
	"go/token"
)

// qualifiedName returns the dotted path of an identifier or selector chain
// ("log", "pkg.logError"). It returns "" for any other expression.
func qualifiedName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.SelectorExpr:
		x := qualifiedName(e.X)
		if x == "" {
			return ""
		}
		return x + "." + e.Sel.Name
	case *ast.ParenExpr:
		return qualifiedName(e.X)
	}
	return ""
}

// nonReferences collects the identifiers under root that name something
// other than a value in scope: selected fields, struct literal keys and labels.
// Renaming must leave them alone.
func nonReferences(root ast.Node) map[*ast.Ident]bool {
	skip := make(map[*ast.Ident]bool)
	ast.Inspect(root, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.SelectorExpr:
			skip[x.Sel] = true
		case *ast.CompositeLit:
			if _, isMap := x.Type.(*ast.MapType); isMap {
				return true
			}
			for _, elt := range x.Elts {
				kv, ok := elt.(*ast.KeyValueExpr)
				if !ok {
					continue
				}
				if key, ok := kv.Key.(*ast.Ident); ok {
					skip[key] = true
				}
			}
		case *ast.LabeledStmt:
			skip[x.Label] = true
		case *ast.BranchStmt:
			if x.Label != nil {
				skip[x.Label] = true
			}
		}
		return true
	})
	return skip
}

// references calls fn for every identifier under root that refers to a value
// or type by name.
func references(root ast.Node, fn func(id *ast.Ident)) {
	skip := nonReferences(root)
	ast.Inspect(root, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok && !skip[id] {
			fn(id)
		}
		return true
	})
}

// declaredNames returns the names a statement list introduces for itself:
// short variable declarations, var and const specs, range variables and the
// parameters and results of function literals.
func declaredNames(body []ast.Stmt) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(id *ast.Ident) {
		if id == nil || id.Name == "_" || seen[id.Name] {
			return
		}
		seen[id.Name] = true
		names = append(names, id.Name)
	}
	addFields := func(fl *ast.FieldList) {
		if fl == nil {
			return
		}
		for _, f := range fl.List {
			for _, id := range f.Names {
				add(id)
			}
		}
	}

	for _, stmt := range body {
		ast.Inspect(stmt, func(n ast.Node) bool {
			switch x := n.(type) {
			case *ast.AssignStmt:
				if x.Tok != token.DEFINE {
					return true
				}
				for _, lhs := range x.Lhs {
					if id, ok := lhs.(*ast.Ident); ok {
						add(id)
					}
				}
			case *ast.ValueSpec:
				for _, id := range x.Names {
					add(id)
				}
			case *ast.RangeStmt:
				if x.Tok != token.DEFINE {
					return true
				}
				if id, ok := x.Key.(*ast.Ident); ok {
					add(id)
				}
				if id, ok := x.Value.(*ast.Ident); ok {
					add(id)
				}
			case *ast.FuncLit:
				addFields(x.Type.Params)
				addFields(x.Type.Results)
			}
			return true
		})
	}
	return names
}

// assignedNames returns the set of names that are written to by plain
// assignment, increment/decrement or whose address is taken.
func assignedNames(body []ast.Stmt) map[string]bool {
	assigned := make(map[string]bool)
	mark := func(expr ast.Expr) {
		if id, ok := expr.(*ast.Ident); ok {
			assigned[id.Name] = true
		}
	}
	for _, stmt := range body {
		ast.Inspect(stmt, func(n ast.Node) bool {
			switch x := n.(type) {
			case *ast.AssignStmt:
				if x.Tok == token.DEFINE {
					return true
				}
				for _, lhs := range x.Lhs {
					mark(lhs)
				}
			case *ast.IncDecStmt:
				mark(x.X)
			case *ast.UnaryExpr:
				if x.Op == token.AND {
					mark(x.X)
				}
			case *ast.RangeStmt:
				if x.Tok == token.ASSIGN {
					mark(x.Key)
					mark(x.Value)
				}
			}
			return true
		})
	}
	return assigned
}

// refersTo reports whether body refers to the qualified name, either as a
// plain identifier or as a selector chain.
func refersTo(body []ast.Stmt, name string) bool {
	root := &ast.BlockStmt{List: body}
	found := false
	references(root, func(id *ast.Ident) {
		if id.Name == name {
			found = true
		}
	})
	ast.Inspect(root, func(n ast.Node) bool {
		if sel, ok := n.(*ast.SelectorExpr); ok && qualifiedName(sel) == name {
			found = true
		}
		return !found
	})
	return found
}
