package config

import (
	"errors"
	"fmt"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gnolang/goinline/internal/macro"
	"github.com/gnolang/goinline/internal/source"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = ".goinline.yaml"

// Marker names the function whose call tags a macro.
type Marker struct {
	Module string `yaml:"module" toml:"module"`
	Name   string `yaml:"name" toml:"name"`
}

// Config represents the configuration of an expansion run.
type Config struct {
	Name         string   `yaml:"name" toml:"name"`
	Marker       Marker   `yaml:"marker" toml:"marker"`
	ManglePrefix string   `yaml:"mangle_prefix" toml:"mangle_prefix"`
	Extensions   []string `yaml:"extensions" toml:"extensions"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Name: "goinline",
		Marker: Marker{
			Module: macro.DefaultMarker.Module,
			Name:   macro.DefaultMarker.Name,
		},
		ManglePrefix: macro.DefaultManglePrefix,
		Extensions:   append([]string(nil), source.DefaultExtensions...),
	}
}

// Load reads the configuration file at path. A path ending in .toml is decoded
// as TOML, anything else as YAML. Unset fields keep their default value and a
// missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()

	var loaded Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.NewDecoder(f).Decode(&loaded); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&loaded); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	cfg.merge(loaded)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) merge(o Config) {
	if o.Name != "" {
		c.Name = o.Name
	}
	if o.Marker.Module != "" {
		c.Marker.Module = o.Marker.Module
	}
	if o.Marker.Name != "" {
		c.Marker.Name = o.Marker.Name
	}
	if o.ManglePrefix != "" {
		c.ManglePrefix = o.ManglePrefix
	}
	if len(o.Extensions) > 0 {
		c.Extensions = o.Extensions
	}
}

// Validate checks that the configured names can be used in Go source.
func (c Config) Validate() error {
	if !token.IsIdentifier(c.Marker.Name) {
		return fmt.Errorf("marker name %q is not an identifier", c.Marker.Name)
	}
	if !token.IsIdentifier(c.ManglePrefix) {
		return fmt.Errorf("mangle prefix %q cannot start an identifier", c.ManglePrefix)
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension %q must start with a dot", ext)
		}
	}
	return nil
}

// MacroOptions converts the configuration into options of the expansion engine.
func (c Config) MacroOptions(logger *zap.Logger) macro.Options {
	return macro.Options{
		Marker: macro.Marker{
			Module: c.Marker.Module,
			Name:   c.Marker.Name,
		},
		ManglePrefix: c.ManglePrefix,
		Logger:       logger,
	}
}

// Write stores cfg as YAML at path.
func Write(path string, cfg Config) error {
	d, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(d)
	return err
}
