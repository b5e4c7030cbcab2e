package macro

import (
	"fmt"
	"go/ast"

	"golang.org/x/tools/go/ast/astutil"
)

// cleanup removes the macro declarations with their comments, then every
// marker import the file no longer refers to.
func (r *run) cleanup() {
	var removed []*ast.FuncDecl
	decls := make([]ast.Decl, 0, len(r.file.Decls))
	for _, decl := range r.file.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok && r.registry.owns(fn) {
			removed = append(removed, fn)
			continue
		}
		decls = append(decls, decl)
	}
	r.file.Decls = decls
	if len(removed) > 0 {
		r.file.Comments = dropComments(r.file.Comments, removed)
	}

	scope := r.registry.scope
	for _, imp := range scope.imports {
		name := ""
		if imp.Name != nil {
			name = imp.Name.Name
		}
		if r.usesImport(scope, name) {
			// the marker package is used for more than marking; keep it
			r.diags = append(r.diags, Diagnostic{
				Pos:     r.fset.Position(imp.Pos()),
				Message: fmt.Sprintf("marker import %s is still referenced and was kept", imp.Path.Value),
			})
			continue
		}
		astutil.DeleteNamedImport(r.fset, r.file, name, scope.marker.Module)
	}
}

// usesImport reports whether the file still refers to the marker package
// through the import with the given local name. A dot import only counts as
// used while the marker name itself is referenced.
func (r *run) usesImport(scope *markerScope, name string) bool {
	used := false
	switch name {
	case ".":
		references(r.file, func(id *ast.Ident) {
			if id.Name == scope.marker.Name && id.Obj == nil {
				used = true
			}
		})
	default:
		if name == "" {
			name = defaultImportName(scope.marker.Module)
		}
		ast.Inspect(r.file, func(n ast.Node) bool {
			if sel, ok := n.(*ast.SelectorExpr); ok {
				if pkg, ok := sel.X.(*ast.Ident); ok && pkg.Name == name && pkg.Obj == nil {
					used = true
				}
			}
			return !used
		})
	}
	return used
}

// dropComments removes the comment groups written inside or right above a
// removed declaration.
func dropComments(groups []*ast.CommentGroup, removed []*ast.FuncDecl) []*ast.CommentGroup {
	kept := make([]*ast.CommentGroup, 0, len(groups))
	for _, cg := range groups {
		if !insideAny(cg, removed) {
			kept = append(kept, cg)
		}
	}
	return kept
}

func insideAny(cg *ast.CommentGroup, decls []*ast.FuncDecl) bool {
	for _, fn := range decls {
		start := fn.Pos()
		if fn.Doc != nil {
			start = fn.Doc.Pos()
		}
		if cg.Pos() >= start && cg.End() <= fn.End() {
			return true
		}
	}
	return false
}
