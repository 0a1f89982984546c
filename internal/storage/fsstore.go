package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const fsTempPrefix = ".bucketsync-"

// FSStore implements ObjectStore on the local filesystem.
// Keys are mapped to file paths under a root directory. Useful for local runs and tests.
type FSStore struct {
	root string
}

var _ ObjectStore = (*FSStore)(nil)

// NewFSStore creates a filesystem-backed store rooted at the given directory.
func NewFSStore(root string) *FSStore {
	return &FSStore{root: root}
}

// Opener returns a SessionOpener that ignores credentials and always serves s.
func (s *FSStore) Opener() SessionOpener {
	return func(context.Context, Credentials) (ObjectStore, error) {
		return s, nil
	}
}

// path maps key to a file under root. Keys that would resolve outside root are rejected.
func (s *FSStore) path(key string) (string, error) {
	rel := filepath.FromSlash(key)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("key %q escapes store root", key)
	}
	return filepath.Join(s.root, rel), nil
}

func (s *FSStore) List(ctx context.Context) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == s.root {
				return fs.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), fsTempPrefix) {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", s.root, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Put writes to a temporary file and renames it over key, so readers never see a
// partially written object.
func (s *FSStore) Put(ctx context.Context, key string, data io.Reader) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir for key %q: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), fsTempPrefix+"*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		return fmt.Errorf("write key %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Delete removes the object at key. Deleting a missing key is not an error, as in S3.
func (s *FSStore) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *FSStore) UploadFile(ctx context.Context, key, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.Put(ctx, key, f)
}

func (s *FSStore) DownloadFile(_ context.Context, key, localPath string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
