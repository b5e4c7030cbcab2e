package macro

import (
	"fmt"
	"go/ast"
	"go/token"
)

// Definition is a function declaration tagged with the marker.
type Definition struct {
	// ID is the position of the definition in discovery order.
	ID     int
	Name   string
	Params []string
	// Body holds the statements of the declaration without the leading
	// marker calls. It is never modified; expansions work on clones.
	Body []ast.Stmt
	Decl *ast.FuncDecl
}

// Registry holds the definitions discovered in one file.
type Registry struct {
	defs   []*Definition
	byName map[string]int
	scope  *markerScope
}

// Lookup returns the definition registered under the qualified name.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	id, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.defs[id], true
}

// Definitions returns the definitions in declaration order.
func (r *Registry) Definitions() []*Definition {
	return r.defs
}

func (r *Registry) Len() int {
	return len(r.defs)
}

// owns reports whether decl is the declaration of a registered definition.
func (r *Registry) owns(decl *ast.FuncDecl) bool {
	def, ok := r.Lookup(decl.Name.Name)
	return ok && def.Decl == decl
}

// Discover walks the top-level function declarations of file in order and
// registers every one whose body starts with a call of the marker.
func Discover(fset *token.FileSet, file *ast.File, marker Marker) (*Registry, error) {
	reg := &Registry{
		byName: make(map[string]int),
		scope:  resolveMarker(file, marker),
	}
	if len(reg.scope.imports) == 0 {
		return reg, nil
	}

	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}
		n := reg.scope.leadingMarkers(fn.Body.List)
		if n == 0 {
			continue
		}

		name := fn.Name.Name
		params, err := macroParams(fn)
		if err != nil {
			return nil, &Error{
				Kind:   ErrUnsupportedMacro,
				Macro:  name,
				Pos:    fset.Position(fn.Pos()),
				Detail: err.Error(),
			}
		}

		if prev, dup := reg.Lookup(name); dup {
			return nil, &Error{
				Kind:   ErrAmbiguousDefinition,
				Macro:  name,
				Pos:    fset.Position(fn.Pos()),
				Detail: fmt.Sprintf("already declared at %s", fset.Position(prev.Decl.Pos())),
			}
		}

		def := &Definition{
			ID:     len(reg.defs),
			Name:   name,
			Params: params,
			Body:   fn.Body.List[n:],
			Decl:   fn,
		}
		reg.byName[name] = def.ID
		reg.defs = append(reg.defs, def)
	}

	return reg, nil
}

// macroParams validates the signature of a marked declaration and returns its
// parameter names.
func macroParams(fn *ast.FuncDecl) ([]string, error) {
	if fn.Recv != nil {
		return nil, fmt.Errorf("methods cannot be macros")
	}
	if fn.Type.TypeParams != nil && len(fn.Type.TypeParams.List) > 0 {
		return nil, fmt.Errorf("generic functions cannot be macros")
	}
	if res := fn.Type.Results; res != nil {
		for _, f := range res.List {
			if len(f.Names) > 0 {
				return nil, fmt.Errorf("named results are not supported")
			}
		}
	}

	var params []string
	for _, f := range fn.Type.Params.List {
		if _, variadic := f.Type.(*ast.Ellipsis); variadic {
			return nil, fmt.Errorf("variadic parameters are not supported")
		}
		if len(f.Names) == 0 {
			return nil, fmt.Errorf("unnamed parameters are not supported")
		}
		for _, id := range f.Names {
			if id.Name == "_" {
				return nil, fmt.Errorf("blank parameters are not supported")
			}
			params = append(params, id.Name)
		}
	}
	return params, nil
}
