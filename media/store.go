// Package media stores project images with an external object host.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

const (
	MaxFileSize   = 5 << 20
	MaxFiles      = 10
	DefaultFolder = "demohub/projects"
)

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("image exceeds maximum size")
	ErrEmpty           = errors.New("image is empty")
	ErrNotConfigured   = errors.New("media store is not configured")
)

var allowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Upload is one image on its way to the store.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Object is a stored image. PublicID is what Delete takes.
type Object struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

type Store interface {
	Upload(ctx context.Context, u Upload) (*Object, error)
	Delete(ctx context.Context, publicID string) error
	DeleteMany(ctx context.Context, publicIDs []string) error
}

// ValidateUpload enforces the accepted image types and size.
func ValidateUpload(u Upload) error {
	if _, ok := allowedContentTypes[normalizeContentType(u.ContentType)]; !ok {
		return fmt.Errorf("%w: %q, allowed: jpeg, jpg, png, webp", ErrUnsupportedType, u.ContentType)
	}
	if u.Size <= 0 {
		return ErrEmpty
	}
	if u.Size > MaxFileSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, u.Size, MaxFileSize)
	}
	return nil
}

func normalizeContentType(contentType string) string {
	ct, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}

// objectKey builds folder/<id>-<slug><ext> from the client supplied name.
func objectKey(folder, id, filename, contentType string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	ext := strings.ToLower(path.Ext(base))
	base = strings.TrimSuffix(base, path.Ext(base))

	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-', r == '_', r == ' ', r == '.':
			b.WriteByte('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > 48 {
		slug = slug[:48]
	}

	if fromType, ok := allowedContentTypes[normalizeContentType(contentType)]; ok {
		ext = fromType
	}

	name := id
	if slug != "" {
		name += "-" + slug
	}
	return path.Join(folder, name+ext)
}

// Unconfigured is the store used when no bucket is set. Uploads fail and
// deleting nothing succeeds, so projects without images stay manageable.
type Unconfigured struct{}

func (Unconfigured) Upload(context.Context, Upload) (*Object, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) Delete(context.Context, string) error {
	return ErrNotConfigured
}

func (Unconfigured) DeleteMany(_ context.Context, publicIDs []string) error {
	if len(publicIDs) == 0 {
		return nil
	}
	return ErrNotConfigured
}
