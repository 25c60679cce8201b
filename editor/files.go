package editor

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/stepseq/stepseq"
)

// ReadProject reads a project in JSON or YAML and loads it, discarding the
// history. If r is a file, the model remembers its path.
func (m *Model) ReadProject(r io.ReadCloser) error {
	b, err := io.ReadAll(r)
	if err != nil {
		r.Close()
		return fmt.Errorf("error reading a project file: %w", err)
	}
	if err := r.Close(); err != nil {
		return fmt.Errorf("error closing a project file: %w", err)
	}
	p, err := stepseq.ParseProject(b)
	if err != nil {
		return err
	}
	m.LoadProject(p)
	if f, ok := r.(*os.File); ok {
		m.filePath = f.Name()
	}
	return nil
}

// WriteProject writes the project: as JSON if w is a file ending in .json, as
// YAML otherwise.
func (m *Model) WriteProject(w io.WriteCloser) error {
	path := ""
	if f, ok := w.(*os.File); ok {
		path = f.Name()
	}
	contents, err := MarshalProject(m.Project(), path)
	if err != nil {
		w.Close()
		return err
	}
	if _, err := w.Write(contents); err != nil {
		w.Close()
		return fmt.Errorf("error writing to file: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("error closing file: %w", err)
	}
	if path != "" {
		m.filePath = path
		m.changedSinceSave = false
	}
	return nil
}

// MarshalProject encodes p in the format implied by the extension of path.
func MarshalProject(p stepseq.Project, path string) ([]byte, error) {
	var contents []byte
	var err error
	if filepath.Ext(path) == ".json" {
		contents, err = json.MarshalIndent(p, "", "  ")
	} else {
		contents, err = yaml.Marshal(p)
	}
	if err != nil {
		return nil, fmt.Errorf("error marshaling a project: %w", err)
	}
	return contents, nil
}

// Open reads the project file at path.
func (m *Model) Open(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return m.ReadProject(f)
}

// Save writes the project to path, or to the path it was opened from if path
// is empty.
func (m *Model) Save(path string) error {
	if path == "" {
		path = m.filePath
	}
	if path == "" {
		return fmt.Errorf("no file path to save to")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	return m.WriteProject(f)
}
