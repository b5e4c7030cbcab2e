package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gnolang/goinline/internal/macro"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		file     string
		content  string
		expected Config
	}{
		{
			name: "yaml",
			file: ".goinline.yaml",
			content: `name: realm
marker:
  module: example.com/macros
  name: Expand
mangle_prefix: m_
extensions: [".gno"]
`,
			expected: Config{
				Name:         "realm",
				Marker:       Marker{Module: "example.com/macros", Name: "Expand"},
				ManglePrefix: "m_",
				Extensions:   []string{".gno"},
			},
		},
		{
			name: "toml",
			file: "goinline.toml",
			content: `name = "realm"
mangle_prefix = "m_"

[marker]
module = "example.com/macros"
`,
			expected: Config{
				Name:         "realm",
				Marker:       Marker{Module: "example.com/macros", Name: macro.DefaultMarker.Name},
				ManglePrefix: "m_",
				Extensions:   []string{".go", ".gno"},
			},
		},
		{
			name:     "empty yaml",
			file:     ".goinline.yaml",
			content:  "",
			expected: Default(),
		},
		{
			name:    "partial yaml",
			file:    ".goinline.yaml",
			content: "mangle_prefix: _x_\n",
			expected: Config{
				Name:         "goinline",
				Marker:       Marker{Module: macro.DefaultMarker.Module, Name: macro.DefaultMarker.Name},
				ManglePrefix: "_x_",
				Extensions:   []string{".go", ".gno"},
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg, err := Load(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadInvalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"malformed yaml", ".goinline.yaml", "marker: [\n"},
		{"malformed toml", "goinline.toml", "name = \n"},
		{"bad marker name", ".goinline.yaml", "marker:\n  name: not-an-ident\n"},
		{"bad prefix", ".goinline.yaml", "mangle_prefix: 1x\n"},
		{"bad extension", ".goinline.yaml", "extensions: [go]\n"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeFile(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, Write(path, Default()))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestMacroOptions(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.ManglePrefix = "m_"

	opts := cfg.MacroOptions(nil)
	assert.Equal(t, macro.DefaultMarker, opts.Marker)
	assert.Equal(t, "m_", opts.ManglePrefix)
	assert.Nil(t, opts.Logger)
}
