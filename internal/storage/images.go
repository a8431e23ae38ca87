package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/vedran77/agora/internal/config"
	"github.com/vedran77/agora/internal/domain"
)

// Images maps profile and board uploads onto object keys.
type Images struct {
	store      ObjectStore
	presignTTL time.Duration
	maxBytes   int64
	defaultKey string
	presets    int
}

func NewImages(store ObjectStore, cfg config.StorageConfig) *Images {
	return &Images{
		store:      store,
		presignTTL: cfg.PresignTTL,
		maxBytes:   cfg.MaxUploadBytes,
		defaultKey: cfg.DefaultProfileKey,
		presets:    cfg.ProfilePresets,
	}
}

// DefaultProfileKey is the key assigned to users without a picture.
func (i *Images) DefaultProfileKey() string {
	return i.defaultKey
}

// PresetProfileKey returns the key of stock picture n, numbered from 1.
func (i *Images) PresetProfileKey(n int) (string, error) {
	if n < 1 || n > i.presets {
		return "", domain.ErrProfilePreset
	}
	return "profileImg/" + strconv.Itoa(n) + ".png", nil
}

// UploadProfile stores file as the user's profile picture and returns its key.
// Without a file the existing key is kept, falling back to the default picture.
func (i *Images) UploadProfile(ctx context.Context, userID int64, file *File, existingKey string) (string, error) {
	if file == nil {
		if existingKey != "" {
			return existingKey, nil
		}
		return i.defaultKey, nil
	}

	ext, err := i.check(file)
	if err != nil {
		return "", err
	}

	key := "profileImg/" + strconv.FormatInt(userID, 10) + ext
	if err := i.store.Put(ctx, key, file.Body, file.Size, file.ContentType); err != nil {
		return "", err
	}
	return key, nil
}

// UploadBoard stores the images attached to a post under board/{postID}/,
// numbering them from first. Every file is validated before the first upload
// starts.
func (i *Images) UploadBoard(ctx context.Context, postID int64, first int, files []File) ([]string, error) {
	exts := make([]string, len(files))
	for n := range files {
		ext, err := i.check(&files[n])
		if err != nil {
			return nil, err
		}
		exts[n] = ext
	}

	keys := make([]string, 0, len(files))
	for n, f := range files {
		key := fmt.Sprintf("board/%d/%d%s", postID, first+n, exts[n])
		if err := i.store.Put(ctx, key, f.Body, f.Size, f.ContentType); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// URL presigns key. An empty key yields an empty URL.
func (i *Images) URL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	return i.store.PresignGet(ctx, key, i.presignTTL)
}

// URLs presigns every key in order.
func (i *Images) URLs(ctx context.Context, keys []string) ([]string, error) {
	urls := make([]string, 0, len(keys))
	for _, k := range keys {
		u, err := i.URL(ctx, k)
		if err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, nil
}

func (i *Images) check(f *File) (string, error) {
	ext, err := ValidateExtension(f.Filename)
	if err != nil {
		return "", err
	}
	if i.maxBytes > 0 && f.Size > i.maxBytes {
		return "", domain.ErrFileTooLarge
	}
	return ext, nil
}
