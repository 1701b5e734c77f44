// Package upload accepts cover images and hands them to an image host.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	ErrNoFile       = errors.New("no file uploaded")
	ErrNotImage     = errors.New("only image files are allowed")
	ErrTooLarge     = errors.New("file is too large")
	ErrUnknownImage = errors.New("image not found on this host")
)

// Image is a stored image.
type Image struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

// ImageStore is an image host.
type ImageStore interface {
	Put(ctx context.Context, data []byte, contentType string) (*Image, error)
	// Delete removes the image served at url. Urls the host did not hand
	// out yield ErrUnknownImage.
	Delete(ctx context.Context, url string) error
}

// Result describes an accepted upload.
type Result struct {
	Image
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimetype"`
}

// Uploader checks incoming files before they reach the store.
type Uploader struct {
	store    ImageStore
	maxBytes int64
}

func NewUploader(store ImageStore, maxBytes int64) *Uploader {
	return &Uploader{store: store, maxBytes: maxBytes}
}

// MaxBytes is the largest accepted file.
func (u *Uploader) MaxBytes() int64 {
	return u.maxBytes
}

// Upload reads at most MaxBytes from r, checks the content is an image and
// stores it. The content type is sniffed, the client's claim is ignored.
func (u *Uploader) Upload(ctx context.Context, r io.Reader, filename string) (*Result, error) {
	data, err := io.ReadAll(io.LimitReader(r, u.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNoFile
	}
	if int64(len(data)) > u.maxBytes {
		return nil, ErrTooLarge
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, ErrNotImage
	}

	img, err := u.store.Put(ctx, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}

	return &Result{Image: *img, Filename: filename, Size: int64(len(data)), MimeType: contentType}, nil
}

// Delete removes an uploaded image by its url.
func (u *Uploader) Delete(ctx context.Context, url string) error {
	if strings.TrimSpace(url) == "" {
		return ErrUnknownImage
	}

	return u.store.Delete(ctx, url)
}
