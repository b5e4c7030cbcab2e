package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gnolang/goinline/inliner"
	"github.com/gnolang/goinline/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const macroSource = `package main

import "github.com/gnolang/goinline/inline"

func greet(name string) {
	inline.Inline()
	println("hello", name)
}

func main() {
	greet("gno")
}
`

const expandedSource = `package main

func main() {
	println("hello", "gno")
}
`

const recursiveSource = `package main

import "github.com/gnolang/goinline/inline"

func loop() {
	inline.Inline()
	loop()
}
`

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestEngine() *inliner.Engine {
	return inliner.NewWithConfig(config.Default(), zap.NewNop())
}

func TestSelectMode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		diff, write bool
		expected    expandMode
		wantErr     bool
	}{
		{false, false, modePrint, false},
		{true, false, modeDiff, false},
		{false, true, modeWrite, false},
		{true, true, modePrint, true},
	}
	for _, tt := range tests {
		mode, err := selectMode(tt.diff, tt.write)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.expected, mode)
	}
}

func TestRunExpandPrint(t *testing.T) {
	t.Parallel()
	path := writeTemp(t, t.TempDir(), "main.go", macroSource)

	var stdout, stderr bytes.Buffer
	err := runExpand(context.Background(), &stdout, &stderr, zap.NewNop(), newTestEngine(), []string{path}, modePrint)
	require.NoError(t, err)
	assert.Equal(t, expandedSource, stdout.String())
	assert.Empty(t, stderr.String())

	// the file is not modified
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, macroSource, string(content))
}

func TestRunExpandDiff(t *testing.T) {
	t.Parallel()
	path := writeTemp(t, t.TempDir(), "main.go", macroSource)

	var stdout, stderr bytes.Buffer
	err := runExpand(context.Background(), &stdout, &stderr, zap.NewNop(), newTestEngine(), []string{path}, modeDiff)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "--- a/"+path)
	assert.Contains(t, stdout.String(), "+++ b/"+path)
	assert.Contains(t, stdout.String(), "-\tgreet(\"gno\")\n")
	assert.Contains(t, stdout.String(), "+\tprintln(\"hello\", \"gno\")\n")
}

// Not parallel: it replaces the diff renderer.
func TestRunExpandDiffKeepsGoingAfterRenderError(t *testing.T) {
	dir := t.TempDir()
	first := writeTemp(t, dir, "a.go", macroSource)
	second := writeTemp(t, dir, "b.go", macroSource)
	writeTemp(t, dir, "c.go", recursiveSource)

	original := formatDiff
	t.Cleanup(func() { formatDiff = original })
	formatDiff = func(filename string, before, after []byte) (string, error) {
		if filename == first {
			return "", errors.New("diff writer closed")
		}
		return original(filename, before, after)
	}

	var stdout, stderr bytes.Buffer
	err := runExpand(context.Background(), &stdout, &stderr, zap.NewNop(), newTestEngine(), []string{dir}, modeDiff)
	require.Error(t, err)
	assert.ErrorIs(t, err, errExpansionFailed)
	assert.Contains(t, err.Error(), "2 failure(s)")

	assert.NotContains(t, stdout.String(), "a/"+first)
	assert.Contains(t, stdout.String(), "--- a/"+second)
	assert.Contains(t, stderr.String(), "diff writer closed")
	assert.Contains(t, stderr.String(), "recursive-macro")
}

func TestRunExpandWrite(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeTemp(t, dir, "main.gno", macroSource)
	writeTemp(t, dir, "plain.go", "package main\n")

	var stdout, stderr bytes.Buffer
	err := runExpand(context.Background(), &stdout, &stderr, zap.NewNop(), newTestEngine(), []string{dir}, modeWrite)
	require.NoError(t, err)
	assert.Equal(t, "expanded 1 call(s) in 1 file(s)\n", stdout.String())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, expandedSource, string(content))
}

func TestRunExpandReportsFailures(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	bad := writeTemp(t, dir, "bad.go", recursiveSource)
	good := writeTemp(t, dir, "good.go", macroSource)

	var stdout, stderr bytes.Buffer
	err := runExpand(context.Background(), &stdout, &stderr, zap.NewNop(), newTestEngine(), []string{dir}, modeWrite)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errExpansionFailed))
	assert.Contains(t, err.Error(), "1 failure(s)")

	assert.Contains(t, stderr.String(), "error: recursive-macro")
	assert.Contains(t, stderr.String(), fmt.Sprintf("--> %s:5:1", bad))
	assert.Contains(t, stderr.String(), "func loop() {")

	// the failing file is untouched, the other one is written
	content, err := os.ReadFile(bad)
	require.NoError(t, err)
	assert.Equal(t, recursiveSource, string(content))
	content, err = os.ReadFile(good)
	require.NoError(t, err)
	assert.Equal(t, expandedSource, string(content))
}

func TestRunExpandReportsKeptImport(t *testing.T) {
	t.Parallel()
	path := writeTemp(t, t.TempDir(), "main.go", `package main

import "github.com/gnolang/goinline/inline"

func hello() {
	inline.Inline()
	println("hello")
}

func main() {
	hello()
	inline.Inline()
}
`)

	var stdout, stderr bytes.Buffer
	err := runExpand(context.Background(), &stdout, &stderr, zap.NewNop(), newTestEngine(), []string{path}, modePrint)
	require.NoError(t, err)
	assert.Contains(t, stderr.String(), "warning: marker-import")
}

func TestRunMacros(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeTemp(t, dir, "main.go", macroSource)

	var stdout, stderr bytes.Buffer
	require.NoError(t, runMacros(&stdout, &stderr, newTestEngine(), []string{dir}, false))
	assert.Equal(t, fmt.Sprintf("%s:5  greet(name)  flat\n", path), stdout.String())

	stdout.Reset()
	require.NoError(t, runMacros(&stdout, &stderr, newTestEngine(), []string{path}, true))

	var entries []macroEntry
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, macroEntry{
		File:   path,
		Line:   5,
		Name:   "greet",
		Params: []string{"name"},
		Shape:  "flat",
	}, entries[0])
}

func TestRunMacrosFailure(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTemp(t, dir, "bad.go", recursiveSource)

	var stdout, stderr bytes.Buffer
	err := runMacros(&stdout, &stderr, newTestEngine(), []string{dir}, false)
	assert.ErrorIs(t, err, errExpansionFailed)
	assert.Contains(t, stderr.String(), "recursive-macro")
}

func TestInitConfigurationFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), ".goinline.yaml")

	written, err := initConfigurationFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, written)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestWatchReporter(t *testing.T) {
	t.Parallel()
	var stdout, stderr bytes.Buffer
	report := watchReporter(&stdout, &stderr)

	report("main.go", &inliner.Output{Filename: "main.go", Expansions: 2}, nil)
	assert.Equal(t, "main.go: expanded 2 call(s)\n", stdout.String())

	report("bad.go", nil, errors.New("boom"))
	assert.Contains(t, stderr.String(), "boom")
}

func TestFlattenErrors(t *testing.T) {
	t.Parallel()
	a, b, c := errors.New("a"), errors.New("b"), errors.New("c")
	err := errors.Join(a, errors.Join(b, c))
	assert.Equal(t, []error{a, b, c}, flattenErrors(err))
	assert.Equal(t, []error{a}, flattenErrors(a))
}
