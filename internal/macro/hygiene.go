package macro

import (
	"fmt"
	"go/ast"
	"strings"
)

// DefaultManglePrefix starts every name produced by the hygiene pass.
const DefaultManglePrefix = "_inline_"

// MangleMap maps the names a macro body declares to the names they take in
// one expansion.
type MangleMap map[string]string

func mangledName(prefix, macro, name string, instance int) string {
	return fmt.Sprintf("%s%s_%s_%d", prefix, strings.ReplaceAll(macro, ".", "_"), name, instance)
}

// hygiene renames every name that body declares for itself so the expansion
// cannot capture or shadow a name of the caller. body must be a fresh clone of
// the definition body; it is renamed in place.
//
// A reference to the macro's own name fails with ErrRecursiveMacro.
func (r *run) hygiene(def *Definition, body []ast.Stmt, instance int) (MangleMap, error) {
	if refersTo(body, def.Name) {
		return nil, r.errorf(ErrRecursiveMacro, def.Name, def.Decl.Pos(), "body refers to %s", def.Name)
	}

	params := make(map[string]bool, len(def.Params))
	for _, p := range def.Params {
		params[p] = true
	}

	mm := make(MangleMap)
	for _, name := range declaredNames(body) {
		if params[name] {
			return nil, r.errorf(ErrUnsupportedBody, def.Name, def.Decl.Pos(), "parameter %s is redeclared in the body", name)
		}
		mm[name] = mangledName(r.prefix, def.Name, name, instance)
	}
	if len(mm) == 0 {
		return mm, nil
	}

	references(&ast.BlockStmt{List: body}, func(id *ast.Ident) {
		if mangled, ok := mm[id.Name]; ok {
			id.Name = mangled
		}
	})
	return mm, nil
}

// outerReference returns the first identifier of the body of def that names
// something outside the macro while the body also declares that name, as in
// "println(v); v := 2" or "v := v". Renaming by name would capture it.
// It relies on the object resolution of the parser, which cloned bodies lack.
func outerReference(def *Definition) *ast.Ident {
	declared := make(map[string]bool)
	for _, name := range declaredNames(def.Body) {
		declared[name] = true
	}
	if len(declared) == 0 {
		return nil
	}

	scope := def.Decl.Body
	var found *ast.Ident
	references(&ast.BlockStmt{List: def.Body}, func(id *ast.Ident) {
		if found != nil || !declared[id.Name] {
			return
		}
		if id.Obj != nil {
			if decl, ok := id.Obj.Decl.(ast.Node); ok && decl.Pos() >= scope.Pos() && decl.Pos() < scope.End() {
				return
			}
		}
		found = id
	})
	return found
}
