package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/skylandlabs/sky"
)

func seed(t *testing.T, dir, name string, events int) {
	t.Helper()
	db := sky.NewDatabase(dir, sky.Config{MaxBlockSize: 256})
	of, err := db.ObjectFile(name)
	if err != nil {
		t.Fatalf("ObjectFile: %v", err)
	}
	if err := of.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	id, _ := of.Actions().FindOrCreate("view")
	for i := range events {
		e := sky.Event{ObjectID: uint64(i % 7), Timestamp: int64(i), ActionID: id}
		if err := of.AddEvent(e); err != nil {
			t.Fatalf("AddEvent: %v", err)
		}
	}
	if err := of.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func execute(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBenchCountsEvents(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, "users", 50)

	out, err := execute("-o", "users", "-i", "3", dir)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "Total events processed:") || !strings.Contains(out, " 150\n") {
		t.Errorf("output = %q, want 150 events", out)
	}
	if !strings.Contains(out, "Elapsed Time:") {
		t.Errorf("output missing elapsed time: %q", out)
	}

	// The lock must be gone once the benchmark returns.
	if _, err := os.Stat(filepath.Join(dir, "users", "lock")); !os.IsNotExist(err) {
		t.Errorf("lock file left behind: %v", err)
	}
}

func TestBenchIterationsDefault(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, "users", 10)

	out, err := execute("-o", "users", "-i", "0", dir)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, " 10\n") {
		t.Errorf("output = %q, want 10 events", out)
	}
}

func TestBenchRequiresObjectType(t *testing.T) {
	if _, err := execute(t.TempDir()); err == nil {
		t.Fatal("expected error without --object-type")
	}
}

func TestBenchRequiresPath(t *testing.T) {
	if _, err := execute("-o", "users"); err == nil {
		t.Fatal("expected error without PATH")
	}
}

func TestBenchMissingObjectType(t *testing.T) {
	_, err := execute("-o", "nope", t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing object type")
	}
	if !strings.Contains(err.Error(), "nope") {
		t.Errorf("error = %v, want it to name the object type", err)
	}
}

func TestBenchLockConflict(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, "users", 5)

	db := sky.NewDatabase(dir, sky.Config{})
	of, _ := db.ObjectFile("users")
	if err := of.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer of.Close()

	_, err := execute("-o", "users", dir)
	if err == nil || !strings.Contains(err.Error(), "unable to open object file") {
		t.Errorf("err = %v, want open failure", err)
	}
}

func TestBenchConfigFile(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, "users", 20)

	cfg := filepath.Join(t.TempDir(), "sky.yaml")
	if err := os.WriteFile(cfg, []byte("max_block_size: 1024\nchecksum: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out, err := execute("-o", "users", "--config", cfg, dir)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, " 20\n") {
		t.Errorf("output = %q, want 20 events", out)
	}
}
