package inliner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/gnolang/goinline/internal/source"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ProcessFunc handles one file and returns its expansion.
type ProcessFunc func(ctx context.Context, engine ExpandEngine, path string) (*Output, error)

// ExpandFile expands a file without touching it.
func ExpandFile(_ context.Context, engine ExpandEngine, path string) (*Output, error) {
	return engine.Expand(path, nil)
}

// WriteFile expands a file and writes the result back in place when it changed.
func WriteFile(_ context.Context, engine ExpandEngine, path string) (*Output, error) {
	out, err := engine.Expand(path, nil)
	if err != nil {
		return nil, err
	}
	if err := WriteOutput(out, path); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteOutput stores the expansion of out at path, keeping the permissions
// of an existing file. Nothing is written when the expansion changed nothing
// and path is the file it was read from.
func WriteOutput(out *Output, path string) error {
	if path == out.Filename && !out.Changed() {
		return nil
	}

	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, out.Expanded, mode); err != nil {
		return fmt.Errorf("error writing file %s: %w", path, err)
	}
	return nil
}

// ProcessFiles processes every path in order. Errors of single files do not
// stop the others; they are joined into the returned error.
func ProcessFiles(
	ctx context.Context,
	logger *zap.Logger,
	engine ExpandEngine,
	paths []string,
	processor ProcessFunc,
) ([]*Output, error) {
	var (
		outputs []*Output
		errs    []error
	)
	for _, path := range paths {
		out, err := ProcessPath(ctx, logger, engine, path, processor)
		outputs = append(outputs, out...)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing path", zap.String("path", path), zap.Error(err))
			}
			errs = append(errs, err)
		}
	}

	return outputs, errors.Join(errs...)
}

// ProcessPath processes a file, or every file with a configured extension
// below a directory. Files of a directory are processed in parallel; the
// outputs keep the lexical order of the walk.
func ProcessPath(
	ctx context.Context,
	logger *zap.Logger,
	engine ExpandEngine,
	path string,
	processor ProcessFunc,
) ([]*Output, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing %s: %w", path, err)
	}

	if !info.IsDir() {
		if !source.HasExtension(path, engine.Extensions()) {
			return nil, nil
		}
		out, err := processor(ctx, engine, path)
		if err != nil {
			return nil, err
		}
		return []*Output{out}, nil
	}

	files, err := collectFiles(path, engine.Extensions())
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(path),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))

	outputs := make([]*Output, len(files))
	errs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			out, err := processor(gctx, engine, file)
			if err != nil {
				if logger != nil {
					logger.Error("Error processing file", zap.String("file", file), zap.Error(err))
				}
				errs[i] = err
			}
			outputs[i] = out
			_ = bar.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	result := make([]*Output, 0, len(files))
	for _, out := range outputs {
		if out != nil {
			result = append(result, out)
		}
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, errors.Join(errs...)
}

// CollectFiles expands paths into the files with one of exts. Directories are
// walked recursively; files named explicitly are kept only with a matching
// extension.
func CollectFiles(paths []string, exts []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing %s: %w", path, err)
		}
		if !info.IsDir() {
			if source.HasExtension(path, exts) {
				files = append(files, path)
			}
			continue
		}
		found, err := collectFiles(path, exts)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

func collectFiles(root string, exts []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && source.HasExtension(path, exts) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking %s: %w", root, err)
	}
	return files, nil
}
