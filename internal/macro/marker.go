package macro

import (
	"go/ast"
	"strconv"
	"strings"
)

// Marker identifies the reserved function whose call, placed as the first
// statement of a function body, tags that function as a macro.
type Marker struct {
	// Module is the import path of the package that declares the marker.
	Module string
	// Name is the exported name of the marker function.
	Name string
}

// DefaultMarker is the marker provided by the inline package of this module.
var DefaultMarker = Marker{
	Module: "github.com/gnolang/goinline/inline",
	Name:   "Inline",
}

// markerScope records how one file refers to the marker package.
type markerScope struct {
	marker Marker
	// names holds the local package names bound to the marker module.
	names map[string]bool
	// dot is set when the marker module is dot-imported.
	dot     bool
	imports []*ast.ImportSpec
}

func resolveMarker(file *ast.File, m Marker) *markerScope {
	scope := &markerScope{
		marker: m,
		names:  make(map[string]bool),
	}

	for _, imp := range file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil || path != m.Module {
			continue
		}

		name := defaultImportName(path)
		if imp.Name != nil {
			name = imp.Name.Name
		}

		switch name {
		case "_":
			continue
		case ".":
			scope.dot = true
		default:
			scope.names[name] = true
		}
		scope.imports = append(scope.imports, imp)
	}

	return scope
}

func defaultImportName(path string) string {
	parts := strings.Split(path, "/")
	return parts[len(parts)-1]
}

// resolve maps a marker reference to the import path and name it denotes.
// It returns ok=false when expr does not go through the marker imports.
func (s *markerScope) resolve(expr ast.Expr) (path, name string, ok bool) {
	switch e := expr.(type) {
	case *ast.Ident:
		if s.dot {
			return s.marker.Module, e.Name, true
		}
	case *ast.SelectorExpr:
		if pkg, isIdent := e.X.(*ast.Ident); isIdent && s.names[pkg.Name] {
			return s.marker.Module, e.Sel.Name, true
		}
	case *ast.ParenExpr:
		return s.resolve(e.X)
	}
	return "", "", false
}

// isMarker reports whether stmt is a bare call of the marker function.
func (s *markerScope) isMarker(stmt ast.Stmt) bool {
	es, ok := stmt.(*ast.ExprStmt)
	if !ok {
		return false
	}
	call, ok := es.X.(*ast.CallExpr)
	if !ok || len(call.Args) != 0 {
		return false
	}
	path, name, ok := s.resolve(call.Fun)
	return ok && path == s.marker.Module && name == s.marker.Name
}

// leadingMarkers returns how many statements at the start of body are marker calls.
func (s *markerScope) leadingMarkers(body []ast.Stmt) int {
	n := 0
	for n < len(body) && s.isMarker(body[n]) {
		n++
	}
	return n
}
