package blob

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDiskStorePutGet(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore() error = %v", err)
	}
	ctx := context.Background()

	payload := []byte("calculus notes content")
	ref, err := store.Put(ctx, payload, "application/pdf", "Calculus Notes.pdf")
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if ref == "" {
		t.Fatal("Put() returned empty ref")
	}
	if strings.ContainsAny(ref, "/\\") {
		t.Errorf("ref %q leaks path separators", ref)
	}

	got, err := store.Get(ctx, ref)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got.Data) != string(payload) {
		t.Errorf("Get() data = %q, want %q", got.Data, payload)
	}
	if got.ContentType != "application/pdf" {
		t.Errorf("Get() content type = %q, want application/pdf", got.ContentType)
	}
	if got.Filename != "Calculus Notes.pdf" {
		t.Errorf("Get() filename = %q, want Calculus Notes.pdf", got.Filename)
	}
	if got.Size != int64(len(payload)) {
		t.Errorf("Get() size = %d, want %d", got.Size, len(payload))
	}
}

func TestDiskStoreNoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir)
	if err != nil {
		t.Fatalf("NewDiskStore() error = %v", err)
	}

	if _, err := store.Put(context.Background(), []byte("x"), "text/plain", "a.txt"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestDiskStoreGetMissing(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore() error = %v", err)
	}

	tests := []struct {
		name string
		ref  string
	}{
		{"unknown ref", "1234_deadbeef.pdf"},
		{"empty ref", ""},
		{"traversal ref", "../../../etc/passwd"},
		{"nested ref", "sub/dir.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Get(context.Background(), tt.ref)
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(%q) error = %v, want ErrNotFound", tt.ref, err)
			}
		})
	}
}

func TestDiskStoreDelete(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore() error = %v", err)
	}
	ctx := context.Background()

	ref, err := store.Put(ctx, []byte("bye"), "text/plain", "bye.txt")
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if err := store.Delete(ctx, ref); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, ref); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}

	// Delete of an already-gone ref must not fail
	if err := store.Delete(ctx, ref); err != nil {
		t.Errorf("Delete() of missing ref error = %v, want nil", err)
	}
}

func TestDiskStoreDeleteOrphans(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore() error = %v", err)
	}
	ctx := context.Background()

	kept, err := store.Put(ctx, []byte("referenced"), "text/plain", "kept.txt")
	if err != nil {
		t.Fatal(err)
	}
	orphan, err := store.Put(ctx, []byte("unreferenced"), "text/plain", "orphan.txt")
	if err != nil {
		t.Fatal(err)
	}

	// Negative minAge makes every file eligible regardless of mtime
	deleted, err := store.DeleteOrphans(ctx, map[string]bool{kept: true}, -time.Hour)
	if err != nil {
		t.Fatalf("DeleteOrphans() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("DeleteOrphans() = %d, want 1", deleted)
	}

	if _, err := store.Get(ctx, kept); err != nil {
		t.Errorf("referenced blob was removed: %v", err)
	}
	if _, err := store.Get(ctx, orphan); !errors.Is(err, ErrNotFound) {
		t.Errorf("orphan Get() error = %v, want ErrNotFound", err)
	}
}

func TestNewDiskStoreCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	if _, err := NewDiskStore(dir); err != nil {
		t.Fatalf("NewDiskStore() error = %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("blob dir not created: %v", err)
	}
}
