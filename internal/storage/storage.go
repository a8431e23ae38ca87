// Package storage uploads user media to object storage and hands out
// time-limited retrieval links for it.
package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/vedran77/agora/internal/domain"
)

// ObjectStore is the object storage backend.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// File is one uploaded file as received from a client.
type File struct {
	Filename    string
	Size        int64
	ContentType string
	Body        io.Reader
}

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".mp3":  true,
	".wav":  true,
}

// ValidateExtension returns the lower-cased extension of filename, or
// domain.ErrExtensionNotAllowed when it is not on the allow-list.
func ValidateExtension(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", domain.ErrExtensionNotAllowed
	}
	return ext, nil
}
