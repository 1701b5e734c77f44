package upload

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/SergeyParamoshkin/blogcms/internal/config"
)

// CloudinaryStore keeps images on Cloudinary under one folder.
type CloudinaryStore struct {
	cld       *cloudinary.Cloudinary
	cloudName string
	folder    string
}

func NewCloudinaryStore(cfg config.CloudinaryConfig) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("configure cloudinary: %w", err)
	}

	return &CloudinaryStore{cld: cld, cloudName: cfg.CloudName, folder: cfg.Folder}, nil
}

func (s *CloudinaryStore) Put(ctx context.Context, data []byte, _ string) (*Image, error) {
	resp, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{Folder: s.folder})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload: %s", resp.Error.Message)
	}

	return &Image{URL: resp.SecureURL, PublicID: resp.PublicID}, nil
}

func (s *CloudinaryStore) Delete(ctx context.Context, rawURL string) error {
	publicID, err := PublicIDFromURL(s.cloudName, rawURL)
	if err != nil {
		return err
	}

	resp, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if resp.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy: %s", resp.Error.Message)
	}
	if resp.Result == "not found" {
		return ErrUnknownImage
	}

	return nil
}

var versionSegment = regexp.MustCompile(`^v\d+$`)

// PublicIDFromURL extracts the public id from a delivery url such as
// https://res.cloudinary.com/demo/image/upload/v1712/uploads/cat.jpg.
func PublicIDFromURL(cloudName, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host != "res.cloudinary.com" {
		return "", ErrUnknownImage
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	// cloud, resource type, delivery type, [version], public id...
	if len(parts) < 4 || parts[0] != cloudName || parts[2] != "upload" {
		return "", ErrUnknownImage
	}
	rest := parts[3:]
	if versionSegment.MatchString(rest[0]) {
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return "", ErrUnknownImage
	}

	id := strings.Join(rest, "/")
	id = strings.TrimSuffix(id, path.Ext(id))
	if id == "" {
		return "", ErrUnknownImage
	}

	return id, nil
}
