// Package store persists normalizing tables under simple string names, so a table built
// once can be shared across many posterior computations and processes.
package store

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/astrostat/fasthr/fasthr/table"
	"github.com/pkg/errors"
)

const tableFileExt = ".fhrt"

var (
	// ErrInvalidName indicates a table name that cannot be used as a filename.
	ErrInvalidName = errors.New("table name must be non-empty and contain no path separators")
)

// Storer stores a table to durable storage.
type Storer interface {
	// Store saves a table under the given name, replacing any existing table of that name.
	Store(name string, t *table.Table) error
}

// Loader loads a table from durable storage.
type Loader interface {
	// Load reads the table with the given name.
	Load(name string) (*table.Table, error)
}

// StorerLoader can both store and load tables.
type StorerLoader interface {
	Storer
	Loader
}

type fileSL struct {
	dir string
}

// NewFileStorerLoader returns a StorerLoader keeping each table in its own file under dir,
// creating dir if needed.
func NewFileStorerLoader(dir string) (StorerLoader, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return &fileSL{dir: dir}, nil
}

func (sl *fileSL) Store(name string, t *table.Table) error {
	path, err := sl.path(name)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err = t.WriteTo(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (sl *fileSL) Load(name string) (*table.Table, error) {
	path, err := sl.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return table.Read(f)
}

func (sl *fileSL) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", ErrInvalidName
	}
	return filepath.Join(sl.dir, name+tableFileExt), nil
}
