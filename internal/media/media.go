// Package media stores complaint attachments and classifies them for the
// staff panels. Files land either on local disk or in a MinIO bucket,
// selected at startup.
package media

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"civicdesk/api/internal/store"
)

// Upload is one file received from a submission or completion form.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Storage persists file bytes and returns a public URL plus the key needed
// to delete the object later.
type Storage interface {
	Save(ctx context.Context, filename, contentType string, data []byte) (url, key string, err error)
	Remove(ctx context.Context, key string) error
}

// Service wraps a storage backend and produces typed media items.
type Service struct {
	storage Storage
}

func NewService(storage Storage) *Service {
	return &Service{storage: storage}
}

// Store saves one upload and returns its media item with the given origin.
func (s *Service) Store(ctx context.Context, up Upload, origin store.MediaOrigin) (store.MediaItem, error) {
	url, key, err := s.storage.Save(ctx, up.Filename, up.ContentType, up.Data)
	if err != nil {
		return store.MediaItem{}, fmt.Errorf("store media: %w", err)
	}
	return store.MediaItem{
		URL:        url,
		Type:       Classify(up.Filename, up.ContentType),
		Origin:     origin,
		StorageKey: key,
	}, nil
}

// StoreAll saves every upload, aborting on the first failure. Nothing is
// rolled back; orphaned objects are harmless and cheaper than a partial
// media list on the complaint.
func (s *Service) StoreAll(ctx context.Context, ups []Upload, origin store.MediaOrigin) ([]store.MediaItem, error) {
	items := make([]store.MediaItem, 0, len(ups))
	for _, up := range ups {
		item, err := s.Store(ctx, up, origin)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Remove deletes the stored object behind a media item. Items without a
// storage key (imported or external URLs) are skipped.
func (s *Service) Remove(ctx context.Context, item store.MediaItem) error {
	if item.StorageKey == "" {
		return nil
	}
	return s.storage.Remove(ctx, item.StorageKey)
}

// Classify buckets a file into image, video or other based on its declared
// content type, falling back to the filename extension.
func Classify(filename, contentType string) store.MediaType {
	ct := contentType
	if ct == "" || ct == "application/octet-stream" {
		ct = mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	}
	switch {
	case strings.HasPrefix(ct, "image/"):
		return store.MediaImage
	case strings.HasPrefix(ct, "video/"):
		return store.MediaVideo
	default:
		return store.MediaOther
	}
}
