// Database: the directory that holds one object file per object type.
package sky

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Database is a namespace for object files rooted at one directory. It
// holds no event data and does no I/O until an object file is opened.
type Database struct {
	path   string
	config Config
}

// NewDatabase returns a database rooted at path. Zero Config fields take
// their defaults.
func NewDatabase(path string, config Config) *Database {
	return &Database{path: path, config: config.withDefaults()}
}

// Path returns the database root directory.
func (db *Database) Path() string { return db.path }

// Config returns the effective configuration.
func (db *Database) Config() Config { return db.config }

// ObjectFile returns an unopened handle on the object file for name.
// Names become directory names, so they must be non-empty and free of path
// separators.
func (db *Database) ObjectFile(name string) (*ObjectFile, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("%w: object type %q", ErrInvalidName, name)
	}
	return newObjectFile(db.path, name, db.config), nil
}

// ObjectTypes lists the object files that exist under the root, sorted.
// A directory counts once its meta file has been written.
func (db *Database) ObjectTypes() ([]string, error) {
	entries, err := os.ReadDir(db.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read database: %w", ErrIO, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ok, err := exists(filepath.Join(db.path, e.Name(), metaFile))
		if err != nil {
			return nil, err
		}
		if ok {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
