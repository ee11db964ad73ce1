// Package templatestore persists named watermark templates and the active
// export rule as a single JSON file, for standalone/CLI usage.
package templatestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"photomark/internal/model"
)

type fileLayout struct {
	Templates  map[string]model.WatermarkSpec `json:"templates"`
	ExportRule *model.ExportRule              `json:"export_rule,omitempty"`
}

// Store is a file-backed template collection. Zero value is not usable,
// construct with Open.
type Store struct {
	path string
	data fileLayout
}

// Open loads the store file, or starts an empty store if the file does not
// exist yet.
func Open(path string) (*Store, error) {
	s := &Store{
		path: path,
		data: fileLayout{Templates: map[string]model.WatermarkSpec{}},
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read template store %q: %w", path, err)
	}

	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("parse template store %q: %w", path, err)
	}
	if s.data.Templates == nil {
		s.data.Templates = map[string]model.WatermarkSpec{}
	}
	return s, nil
}

// Get returns a template spec by name.
func (s *Store) Get(name string) (model.WatermarkSpec, error) {
	spec, ok := s.data.Templates[name]
	if !ok {
		return model.WatermarkSpec{}, model.ErrTemplateNotFound
	}
	return spec, nil
}

// Put saves a template spec under a name, overwriting an existing one.
func (s *Store) Put(name string, spec model.WatermarkSpec) {
	s.data.Templates[name] = spec
}

// Delete removes a template by name.
func (s *Store) Delete(name string) error {
	if _, ok := s.data.Templates[name]; !ok {
		return model.ErrTemplateNotFound
	}
	delete(s.data.Templates, name)
	return nil
}

// Names lists stored template names in sorted order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.data.Templates))
	for name := range s.data.Templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExportRule returns the persisted export rule, if any.
func (s *Store) ExportRule() (model.ExportRule, bool) {
	if s.data.ExportRule == nil {
		return model.ExportRule{}, false
	}
	return *s.data.ExportRule, true
}

// SetExportRule replaces the persisted export rule.
func (s *Store) SetExportRule(rule model.ExportRule) {
	s.data.ExportRule = &rule
}

// Save writes the store back to disk via a temp file and rename.
func (s *Store) Save() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".templates-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
