package macro

import (
	"go/ast"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClone(t *testing.T) {
	t.Parallel()
	body := parseBody(t, "x := f(a, b)\nprintln(x)")
	site := token.Pos(1000)

	copied := cloneStmts(body, site)
	require.Len(t, copied, 2)

	orig := body[0].(*ast.AssignStmt)
	dup := copied[0].(*ast.AssignStmt)
	assert.NotSame(t, orig, dup)
	assert.NotSame(t, orig.Lhs[0], dup.Lhs[0])

	dup.Lhs[0].(*ast.Ident).Name = "y"
	assert.Equal(t, "x", orig.Lhs[0].(*ast.Ident).Name)

	call := dup.Rhs[0].(*ast.CallExpr)
	assert.Equal(t, site, call.Lparen)
	assert.Equal(t, site, call.Fun.Pos())
	assert.False(t, call.Ellipsis.IsValid(), "an unset position must stay unset")
	assert.Nil(t, dup.Lhs[0].(*ast.Ident).Obj)
}

func TestCloneKeepsEllipsis(t *testing.T) {
	t.Parallel()
	call := mustExpr(t, "f(xs...)").(*ast.CallExpr)
	dup := clone(call, token.Pos(42))
	assert.Equal(t, token.Pos(42), dup.Ellipsis)
}
