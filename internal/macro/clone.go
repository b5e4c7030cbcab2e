package macro

import (
	"go/ast"
	"go/token"
	"reflect"
)

var (
	posType          = reflect.TypeOf(token.NoPos)
	objectType       = reflect.TypeOf((*ast.Object)(nil))
	scopeType        = reflect.TypeOf((*ast.Scope)(nil))
	commentGroupType = reflect.TypeOf((*ast.CommentGroup)(nil))
)

// clone returns a deep copy of n in which every valid position is moved to
// pos, the call site the copy is spliced into. Positions that are unset keep
// their meaning (a CallExpr without Ellipsis stays one). Comments and resolver
// objects are dropped.
func clone[T ast.Node](n T, pos token.Pos) T {
	return cloneValue(reflect.ValueOf(n), pos).Interface().(T)
}

func cloneStmts(list []ast.Stmt, pos token.Pos) []ast.Stmt {
	out := make([]ast.Stmt, len(list))
	for i, stmt := range list {
		out[i] = clone(stmt, pos)
	}
	return out
}

func cloneValue(v reflect.Value, pos token.Pos) reflect.Value {
	if v.Type() == posType {
		if token.Pos(v.Int()).IsValid() {
			return reflect.ValueOf(pos)
		}
		return reflect.Zero(posType)
	}

	switch v.Kind() {
	case reflect.Pointer:
		switch v.Type() {
		case objectType, scopeType, commentGroupType:
			return reflect.Zero(v.Type())
		}
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		c := reflect.New(v.Type().Elem())
		c.Elem().Set(cloneValue(v.Elem(), pos))
		return c

	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		c := reflect.New(v.Type()).Elem()
		c.Set(cloneValue(v.Elem(), pos))
		return c

	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		c := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			c.Index(i).Set(cloneValue(v.Index(i), pos))
		}
		return c

	case reflect.Struct:
		c := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			if !c.Field(i).CanSet() {
				continue
			}
			c.Field(i).Set(cloneValue(v.Field(i), pos))
		}
		return c
	}

	return v
}
