// Package localstorage adapts the local filesystem to the batch pipeline's
// Source/Sink contracts. It is what the CLI runs the engine against.
package localstorage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"photomark/internal/model"
)

type LocalStorage struct {
	dir string
}

// New validates and creates the output directory.
func New(outputDir string) (*LocalStorage, error) {
	if strings.TrimSpace(outputDir) == "" {
		return nil, model.ErrNoOutputDir
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %q: %w", outputDir, err)
	}
	return &LocalStorage{dir: outputDir}, nil
}

func (s *LocalStorage) Open(_ context.Context, path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Write stores the result to a temporary file in the output directory and
// renames it into place, so an interrupted export never leaves a
// half-written output behind.
func (s *LocalStorage) Write(_ context.Context, name, _ string, _ int64, r io.Reader) error {
	tmp, err := os.CreateTemp(s.dir, ".photomark-*")
	if err != nil {
		return err
	}

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, name))
}
