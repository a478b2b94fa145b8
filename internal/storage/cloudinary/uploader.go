package cloudinary

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	cld "github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Uploader stores documents in Cloudinary and returns their durable URL.
type Uploader struct {
	cld *cld.Cloudinary
}

// New builds an uploader from CLOUDINARY_URL-style credentials.
func New(cloudinaryURL string) (*Uploader, error) {
	c, err := cld.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary client: %w", err)
	}
	return &Uploader{cld: c}, nil
}

// Upload stores data under the given key. The key's directory part becomes
// the folder and the file name the public ID, so retried uploads with the
// same key overwrite the previous object.
func (u *Uploader) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	folder, publicID := splitKey(key)

	res, err := u.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:       folder,
		PublicID:     publicID,
		ResourceType: "raw",
		Overwrite:    api.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("upload %q: %w", key, err)
	}
	return res.SecureURL, nil
}

func splitKey(key string) (folder, publicID string) {
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[:i], key[i+1:]
	}
	return "", key
}
