package sky

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestDatabaseCreate(t *testing.T) {
	db := NewDatabase("/etc/sky/data", Config{})
	if db.Path() != "/etc/sky/data" {
		t.Errorf("Path = %q", db.Path())
	}
	cfg := db.Config()
	if cfg.MaxBlockSize != DefaultMaxBlockSize || cfg.BlockRangeWidth != DefaultBlockRangeWidth || cfg.Checksum != AlgXXHash3 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.Logger == nil {
		t.Error("Logger is nil")
	}
}

func TestDatabaseObjectFileNames(t *testing.T) {
	db := NewDatabase(t.TempDir(), Config{})
	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		if _, err := db.ObjectFile(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("ObjectFile(%q) err = %v, want ErrInvalidName", name, err)
		}
	}
	of, err := db.ObjectFile("users")
	if err != nil {
		t.Fatalf("ObjectFile: %v", err)
	}
	if of.Name() != "users" || of.Path() != filepath.Join(db.Path(), "users") {
		t.Errorf("handle = %q at %q", of.Name(), of.Path())
	}
	if of.IsOpen() {
		t.Error("new handle is open")
	}
}

func TestDatabaseObjectTypes(t *testing.T) {
	dir := t.TempDir()
	db := NewDatabase(dir, Config{})

	types, err := db.ObjectTypes()
	if err != nil || len(types) != 0 {
		t.Fatalf("ObjectTypes = %v, %v", types, err)
	}

	for _, name := range []string{"users", "accounts"} {
		of, _ := db.ObjectFile(name)
		if err := of.Open(); err != nil {
			t.Fatal(err)
		}
		of.Close()
	}
	os.Mkdir(filepath.Join(dir, "scratch"), 0755)

	types, err = db.ObjectTypes()
	if err != nil {
		t.Fatalf("ObjectTypes: %v", err)
	}
	if !slices.Equal(types, []string{"accounts", "users"}) {
		t.Errorf("ObjectTypes = %v", types)
	}

	missing := NewDatabase(filepath.Join(dir, "nope"), Config{})
	if types, err := missing.ObjectTypes(); err != nil || types != nil {
		t.Errorf("missing root = %v, %v", types, err)
	}
}
