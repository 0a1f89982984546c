package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/kacper-wojtaszczyk/jackfruit/bucketsync-go/internal/model"
)

func TestFSStore_PutListDelete(t *testing.T) {
	ctx := context.Background()
	s := NewFSStore(t.TempDir())

	for _, key := range []string{"t/cow_2.json", "t/cow_1.json", "u/raw"} {
		if err := s.Put(ctx, key, strings.NewReader("x")); err != nil {
			t.Fatalf("Put(%q) error = %v", key, err)
		}
	}

	keys, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if want := []string{"t/cow_1.json", "t/cow_2.json", "u/raw"}; !slices.Equal(keys, want) {
		t.Fatalf("List() = %v, want %v", keys, want)
	}

	if err := s.Delete(ctx, "t/cow_1.json"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, "t/cow_1.json"); err != nil {
		t.Fatalf("Delete() of a missing key error = %v", err)
	}

	keys, _ = s.List(ctx)
	if want := []string{"t/cow_2.json", "u/raw"}; !slices.Equal(keys, want) {
		t.Fatalf("List() after delete = %v, want %v", keys, want)
	}
}

func TestFSStore_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := NewFSStore(root)

	if err := s.Put(ctx, "t/cow_1.json", strings.NewReader("first\nfirst\n")); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "t/cow_1.json", strings.NewReader("second\n")); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(filepath.Join(root, "t", "cow_1.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "second\n" {
		t.Fatalf("content = %q, want second write only", b)
	}

	entries, err := os.ReadDir(filepath.Join(root, "t"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected no leftover temp files, found %d entries", len(entries))
	}
}

func TestFSStore_ListMissingRoot(t *testing.T) {
	s := NewFSStore(filepath.Join(t.TempDir(), "nope"))

	keys, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("List() = %v, want empty", keys)
	}
}

func TestFSStore_WithClient(t *testing.T) {
	ctx := context.Background()
	fs := NewFSStore(t.TempDir())
	client := NewClient(StaticProvider{}, fs.Opener(), RoleChain{}, "local")

	for _, key := range []string{"t/cow_3.json", "t/cow_11.json", "t/cow_7.json"} {
		if err := fs.Put(ctx, key, strings.NewReader("")); err != nil {
			t.Fatal(err)
		}
	}

	got, err := client.LastSyncBlock(ctx, "t")
	if err != nil {
		t.Fatalf("LastSyncBlock() error = %v", err)
	}
	if got != 11 {
		t.Fatalf("LastSyncBlock() = %d, want 11", got)
	}

	n, err := client.DeleteAll(ctx, "t")
	if err != nil || n != 3 {
		t.Fatalf("DeleteAll() = %d, %v, want 3, nil", n, err)
	}
	if keys, _ := fs.List(ctx); len(keys) != 0 {
		t.Fatalf("List() after DeleteAll = %v", keys)
	}
}

func TestFSStore_RejectsKeysOutsideRoot(t *testing.T) {
	ctx := context.Background()
	parent := t.TempDir()
	s := NewFSStore(filepath.Join(parent, "bucket"))

	for _, key := range []string{"../cow_1.json", BlockKey("..", "cow", 1).Key(), "t/../../x", "/etc/passwd", ""} {
		if err := s.Put(ctx, key, strings.NewReader("x")); err == nil {
			t.Errorf("Put(%q) succeeded, want error", key)
		}
		if err := s.Delete(ctx, key); err == nil {
			t.Errorf("Delete(%q) succeeded, want error", key)
		}
		if err := s.DownloadFile(ctx, key, filepath.Join(parent, "out")); err == nil {
			t.Errorf("DownloadFile(%q) succeeded, want error", key)
		}
	}

	if _, err := os.Stat(filepath.Join(parent, "cow_1.json")); !os.IsNotExist(err) {
		t.Fatalf("file written outside the store root (stat err = %v)", err)
	}
}

func TestFSStore_WithClient_PutRowsOutsideRoot(t *testing.T) {
	parent := t.TempDir()
	fs := NewFSStore(filepath.Join(parent, "bucket"))
	client := NewClient(StaticProvider{}, fs.Opener(), RoleChain{}, "local")

	err := client.PutRows(context.Background(), []model.Row{{"a": 1}}, BlockKey("..", "cow", 1).Key())

	var te *TransferError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransferError, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(parent, "cow_1.json")); !os.IsNotExist(err) {
		t.Fatalf("file written outside the store root (stat err = %v)", err)
	}
}
