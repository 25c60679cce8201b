// Package storage keeps saved projects in a directory, one YAML file per
// project.
package storage

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/stepseq/stepseq"
)

type (
	// Info describes a saved project without its contents.
	Info struct {
		ID           string    `yaml:"id" json:"id"`
		Name         string    `yaml:"name" json:"name"`
		CreatedAt    time.Time `yaml:"createdAt" json:"createdAt"`
		LastModified time.Time `yaml:"lastModified" json:"lastModified"`
	}

	Record struct {
		Info    `yaml:",inline"`
		Project stepseq.Project `yaml:"project" json:"project"`
	}

	// Store is a directory of project records. It is safe to use from
	// several goroutines as long as they don't write the same record at the
	// same time.
	Store struct {
		dir string
		now func() time.Time
	}
)

const (
	ext         = ".yml"
	DefaultName = "Untitled Project"
)

var (
	ErrNotFound  = errors.New("project not found")
	ErrInvalidID = errors.New("invalid project id")
)

// Open returns the Store in dir, creating the directory if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create project directory: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

func (s *Store) Dir() string { return s.dir }

// Create saves p as a new project and returns its record.
func (s *Store) Create(ctx context.Context, name string, p stepseq.Project) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if strings.TrimSpace(name) == "" {
		name = DefaultName
	}
	now := s.now().UTC()
	r := Record{Info: Info{ID: uuid.New().String(), Name: name, CreatedAt: now, LastModified: now}, Project: p}
	if err := s.write(r); err != nil {
		return Record{}, err
	}
	return r, nil
}

// List returns every saved project, the most recently modified first.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("could not list projects: %w", err)
	}
	var ret []Info
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id, ok := strings.CutSuffix(e.Name(), ext)
		if e.IsDir() || !ok || uuid.Validate(id) != nil {
			continue
		}
		r, err := s.read(id)
		if err != nil {
			return nil, err
		}
		ret = append(ret, r.Info)
	}
	slices.SortFunc(ret, func(a, b Info) int {
		if c := b.LastModified.Compare(a.LastModified); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return ret, nil
}

// Load returns the saved project with the given id.
func (s *Store) Load(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	return s.read(id)
}

// Save replaces the contents of an existing project.
func (s *Store) Save(ctx context.Context, id string, p stepseq.Project) (Record, error) {
	return s.update(ctx, id, func(r *Record) { r.Project = p })
}

// Rename changes the name of an existing project.
func (s *Store) Rename(ctx context.Context, id, name string) (Record, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultName
	}
	return s.update(ctx, id, func(r *Record) { r.Name = name })
}

// Delete removes a project.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("could not delete project: %w", err)
	}
	return nil
}

// DeleteAll removes every project and returns how many there were.
func (s *Store) DeleteAll(ctx context.Context) (int, error) {
	infos, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	for i, info := range infos {
		if err := s.Delete(ctx, info.ID); err != nil {
			return i, err
		}
	}
	return len(infos), nil
}

func (s *Store) update(ctx context.Context, id string, f func(*Record)) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	r, err := s.read(id)
	if err != nil {
		return Record{}, err
	}
	f(&r)
	r.LastModified = s.now().UTC()
	if err := s.write(r); err != nil {
		return Record{}, err
	}
	return r, nil
}

func (s *Store) path(id string) (string, error) {
	if uuid.Validate(id) != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(s.dir, id+ext), nil
}

func (s *Store) read(id string) (Record, error) {
	path, err := s.path(id)
	if err != nil {
		return Record{}, err
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("could not read project: %w", err)
	}
	var r Record
	if err := yaml.Unmarshal(b, &r); err != nil {
		return Record{}, fmt.Errorf("could not parse project %s: %w", id, err)
	}
	r.ID = id
	return r, nil
}

// write replaces the file of a record by renaming a temporary file over it.
func (s *Store) write(r Record) error {
	path, err := s.path(r.ID)
	if err != nil {
		return err
	}
	b, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("could not marshal project: %w", err)
	}
	f, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("could not save project: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(b); err != nil {
		f.Close()
		return fmt.Errorf("could not save project: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("could not save project: %w", err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("could not save project: %w", err)
	}
	return nil
}
