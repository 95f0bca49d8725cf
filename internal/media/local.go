package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"civicdesk/api/internal/util"
)

// LocalStorage writes uploads to a directory served under /uploads/.
type LocalStorage struct {
	dir string
}

func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStorage{dir: dir}, nil
}

// Dir returns the directory uploads are written to.
func (l *LocalStorage) Dir() string {
	return l.dir
}

func (l *LocalStorage) Save(ctx context.Context, filename, contentType string, data []byte) (string, string, error) {
	name := objectName(filename)
	path := filepath.Join(l.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", "", fmt.Errorf("write upload: %w", err)
	}
	return "/uploads/" + name, name, nil
}

func (l *LocalStorage) Remove(ctx context.Context, key string) error {
	// Keys are generated names, but guard against traversal anyway.
	if key == "" || strings.Contains(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("invalid storage key %q", key)
	}
	err := os.Remove(filepath.Join(l.dir, key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

// objectName builds a unique stored name that keeps the original extension
// so content types can still be inferred when serving.
func objectName(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 10 {
		ext = ""
	}
	return util.NewID("") + ext
}
