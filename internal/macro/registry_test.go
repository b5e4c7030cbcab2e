package macro

import (
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discover(t *testing.T, src string) (*Registry, error) {
	t.Helper()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "test.go", src, parser.ParseComments)
	require.NoError(t, err)
	return Discover(fset, file, DefaultMarker)
}

func TestDiscover(t *testing.T) {
	t.Parallel()
	reg, err := discover(t, `package main

import "github.com/gnolang/goinline/inline"

func first(a, b int) {
	inline.Inline()
	inline.Inline()
	println(a, b)
}

func notMarked() {
	println("plain")
	inline.Inline()
}

func second() {
	inline.Inline()
}
`)
	require.NoError(t, err)
	require.Equal(t, 2, reg.Len())

	first, ok := reg.Lookup("first")
	require.True(t, ok)
	assert.Equal(t, 0, first.ID)
	assert.Equal(t, []string{"a", "b"}, first.Params)
	assert.Len(t, first.Body, 1, "leading marker calls are stripped")

	second, ok := reg.Lookup("second")
	require.True(t, ok)
	assert.Equal(t, 1, second.ID)
	assert.Empty(t, second.Body)

	_, ok = reg.Lookup("notMarked")
	assert.False(t, ok)

	names := make([]string, 0, reg.Len())
	for _, def := range reg.Definitions() {
		names = append(names, def.Name)
	}
	assert.Equal(t, []string{"first", "second"}, names)
}

func TestDiscoverWithoutMarkerImport(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
	}{
		{
			name: "no import",
			src: `package main

func f() {
	inline.Inline()
}
`,
		},
		{
			name: "blank import",
			src: `package main

import _ "github.com/gnolang/goinline/inline"

func f() {
	inline.Inline()
}
`,
		},
		{
			name: "other package with the same name",
			src: `package main

import "example.com/inline"

func f() {
	inline.Inline()
}
`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reg, err := discover(t, tt.src)
			require.NoError(t, err)
			assert.Zero(t, reg.Len())
		})
	}
}

func TestDiscoverRejectsSignatures(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		signature string
		detail    string
	}{
		{"generic", "func f[T any](x T)", "generic"},
		{"named results", "func f() (n int)", "named results"},
		{"variadic", "func f(xs ...int)", "variadic"},
		{"unnamed parameter", "func f(int)", "unnamed"},
		{"blank parameter", "func f(_ int)", "blank"},
		{"method", "func (s *S) f()", "methods"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			src := "package main\n\nimport \"github.com/gnolang/goinline/inline\"\n\n" +
				tt.signature + " {\n\tinline.Inline()\n}\n"
			_, err := discover(t, src)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnsupportedMacro)
			assert.Contains(t, err.Error(), tt.detail)
		})
	}
}
