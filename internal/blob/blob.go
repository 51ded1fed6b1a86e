// Package blob stores uploaded artifacts on local disk under random names.
package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("blob: not found")

// Store is durable byte storage keyed by an opaque path.
type Store interface {
	Write(ctx context.Context, ext string, data []byte) (string, error)
	Exists(path string) bool
	Read(path string) ([]byte, error)
}

// Local writes each blob once into dir; names are never reused.
type Local struct {
	dir string
}

func NewLocal(dir string) (*Local, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("blob: resolve dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blob: create dir: %w", err)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) Dir() string {
	return l.dir
}

// Write stores data under a fresh token name with the given extension and
// returns the path. The file is fsynced before Write returns.
func (l *Local) Write(ctx context.Context, ext string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ToLower(ext)
	path := filepath.Join(l.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("blob: create %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("blob: write %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("blob: sync %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("blob: close %s: %w", name, err)
	}
	return path, nil
}

func (l *Local) Exists(path string) bool {
	if !l.owns(path) {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (l *Local) Read(path string) ([]byte, error) {
	if !l.owns(path) {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("blob: read: %w", err)
	}
	return data, nil
}

// owns rejects paths that escape the storage directory.
func (l *Local) owns(path string) bool {
	rel, err := filepath.Rel(l.dir, path)
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel)
}
