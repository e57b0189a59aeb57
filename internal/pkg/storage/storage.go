// Package storage keeps image blobs on local disk or in an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrEmptyKey = errors.New("storage: object key is required")

// Store writes and removes blobs addressed by object key.
// Delete of a missing object is not an error.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (publicURL string, err error)
	Delete(ctx context.Context, key string) error
}

// NewObjectKey builds "<prefix>/YYYY/MM/DD/<uuid>_<name><ext>".
func NewObjectKey(prefix, originalName, contentType string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = mimeToExt(contentType)
	}
	name := fmt.Sprintf("%s_%s%s", uuid.NewString(), sanitizeName(originalName), ext)
	dir := fmt.Sprintf("%d/%02d/%02d", now.Year(), now.Month(), now.Day())
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return dir + "/" + name
	}
	return prefix + "/" + dir + "/" + name
}

func cleanKey(key string) (string, error) {
	key = strings.Trim(strings.TrimSpace(strings.ReplaceAll(key, "\\", "/")), "/")
	if key == "" {
		return "", ErrEmptyKey
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("storage: invalid object key %q", key)
	}
	return key, nil
}

func sanitizeName(name string) string {
	name = filepath.Base(name)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return '_'
	}, name)
	if len(name) > 40 {
		name = name[:40]
	}
	if name == "" || name == "." || name == "_" {
		return "file"
	}
	return name
}

func mimeToExt(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
