package inliner

import (
	"bytes"
	"fmt"
	"os"

	"github.com/gnolang/goinline/internal/config"
	"github.com/gnolang/goinline/internal/macro"
	"github.com/gnolang/goinline/internal/source"
	"go.uber.org/zap"
)

type ExpandEngine interface {
	Expand(filename string, src []byte) (*Output, error)
	Macros(filename string, src []byte) ([]macro.Summary, error)
	Extensions() []string
}

// Output is the result of expanding one file.
type Output struct {
	Filename    string
	Original    []byte
	Expanded    []byte
	Expansions  int
	Macros      int
	Diagnostics []macro.Diagnostic
}

// Changed reports whether the expansion differs from the original source.
func (o *Output) Changed() bool {
	return !bytes.Equal(o.Original, o.Expanded)
}

// Engine expands the macros of Go and Gno files according to a configuration.
type Engine struct {
	cfg    config.Config
	macros *macro.Engine
	logger *zap.Logger
}

// New creates an engine from the configuration file at configurationPath.
// A missing file yields the default configuration.
func New(configurationPath string, logger *zap.Logger) (*Engine, error) {
	cfg, err := config.Load(configurationPath)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg, logger), nil
}

func NewWithConfig(cfg config.Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:    cfg,
		macros: macro.NewEngine(cfg.MacroOptions(logger)),
		logger: logger,
	}
}

func (e *Engine) Config() config.Config {
	return e.cfg
}

func (e *Engine) Extensions() []string {
	return e.cfg.Extensions
}

// Expand expands the macros of one file. When src is nil the file is read from
// filename. On error no output is returned: a file is either fully expanded or
// left alone.
func (e *Engine) Expand(filename string, src []byte) (*Output, error) {
	src, err := readSource(filename, src)
	if err != nil {
		return nil, err
	}

	file, fset, err := source.Parse(filename, src)
	if err != nil {
		return nil, fmt.Errorf("error parsing file %s: %w", filename, err)
	}

	res, err := e.macros.Transform(fset, file)
	if err != nil {
		return nil, err
	}

	expanded, err := source.Format(fset, file)
	if err != nil {
		return nil, fmt.Errorf("error printing file %s: %w", filename, err)
	}

	e.logger.Debug("Expanded file",
		zap.String("file", filename),
		zap.Int("macros", res.Registry.Len()),
		zap.Int("expansions", res.Expansions))

	return &Output{
		Filename:    filename,
		Original:    src,
		Expanded:    expanded,
		Expansions:  res.Expansions,
		Macros:      res.Registry.Len(),
		Diagnostics: res.Diagnostics,
	}, nil
}

// Macros lists the macros declared in one file without expanding them.
func (e *Engine) Macros(filename string, src []byte) ([]macro.Summary, error) {
	src, err := readSource(filename, src)
	if err != nil {
		return nil, err
	}

	file, fset, err := source.Parse(filename, src)
	if err != nil {
		return nil, fmt.Errorf("error parsing file %s: %w", filename, err)
	}
	return e.macros.Inspect(fset, file)
}

func readSource(filename string, src []byte) ([]byte, error) {
	if src != nil {
		return src, nil
	}
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading file %s: %w", filename, err)
	}
	return content, nil
}
