package testsupport

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-omerofilepicker/pkg/draft"
)

// SeedFile describes a draft file to create. Content is Size filler bytes
// unless Data is set.
type SeedFile struct {
	Name     string
	MimeType string
	Size     int
	Data     []byte
}

// Seed allocates a draft item for scope and puts files into it in order, so
// the last file is the newest. It fails the test on any store error.
func Seed(t *testing.T, store draft.Store, scope draft.Scope, files ...SeedFile) (draft.ItemID, []draft.File) {
	t.Helper()

	item, err := store.Allocate(Context(), scope)
	if err != nil {
		t.Fatalf("seed: allocate: %v", err)
	}
	return item, SeedInto(t, store, scope, item, files...)
}

// SeedInto puts files into an existing item.
func SeedInto(t *testing.T, store draft.Store, scope draft.Scope, item draft.ItemID, files ...SeedFile) []draft.File {
	t.Helper()

	out := make([]draft.File, 0, len(files))
	for _, file := range files {
		data := file.Data
		if data == nil {
			data = bytes.Repeat([]byte{'x'}, file.Size)
		}
		mimeType := file.MimeType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		stored, err := store.Put(Context(), scope, item, file.Name, mimeType, bytes.NewReader(data))
		if err != nil {
			t.Fatalf("seed: put %q: %v", file.Name, err)
		}
		out = append(out, stored)
	}
	return out
}

// FileNames lists the names of files in the item, newest first.
func FileNames(t *testing.T, svc draft.Service, scope draft.Scope, item draft.ItemID) []string {
	t.Helper()

	files, err := svc.Files(Context(), scope, item, draft.NewestFirst)
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	names := make([]string, 0, len(files))
	for _, file := range files {
		names = append(names, file.Name)
	}
	return names
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
