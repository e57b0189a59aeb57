package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const DefaultStaticURLBase = "/static/uploads"

// Local stores blobs under baseDir and serves them from staticBase.
type Local struct {
	baseDir    string
	staticBase string
}

func NewLocal(baseDir, staticBase string) *Local {
	if staticBase == "" {
		staticBase = DefaultStaticURLBase
	}
	return &Local{baseDir: baseDir, staticBase: strings.TrimRight(staticBase, "/")}
}

func (l *Local) BaseDir() string    { return l.baseDir }
func (l *Local) StaticBase() string { return l.staticBase }

func (l *Local) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	absPath := filepath.Join(l.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: create directory: %w", err)
	}

	dst, err := os.Create(absPath)
	if err != nil {
		return "", fmt.Errorf("storage: create file: %w", err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		_ = dst.Close()
		_ = os.Remove(absPath)
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(absPath)
		return "", fmt.Errorf("storage: close file: %w", err)
	}
	return l.staticBase + "/" + key, nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(l.baseDir, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: remove file: %w", err)
	}
	return nil
}

var _ Store = (*Local)(nil)
