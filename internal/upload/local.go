package upload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var extensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/bmp":     ".bmp",
	"image/x-icon":  ".ico",
	"image/svg+xml": ".svg",
}

// LocalStore writes images under a directory served at baseURL.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	return &LocalStore{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Dir is the directory the images live in.
func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Put(_ context.Context, data []byte, contentType string) (*Image, error) {
	id := uuid.NewString()
	name := id + extension(contentType)

	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return nil, fmt.Errorf("write image: %w", err)
	}

	return &Image{URL: s.baseURL + "/" + name, PublicID: id}, nil
}

func (s *LocalStore) Delete(_ context.Context, rawURL string) error {
	name, ok := strings.CutPrefix(rawURL, s.baseURL+"/")
	if !ok || name != path.Base(name) {
		return ErrUnknownImage
	}
	if _, err := uuid.Parse(strings.TrimSuffix(name, path.Ext(name))); err != nil {
		return ErrUnknownImage
	}

	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrUnknownImage
		}

		return fmt.Errorf("remove image: %w", err)
	}

	return nil
}

func extension(contentType string) string {
	if ext, ok := extensions[contentType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}

	return ""
}
