package app

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// uploadMarker is the path segment that precedes the version segment in every
// locator handed out by MediaDelegate.
const uploadMarker = "upload"

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// MediaDelegate stores story images in the object store and hands out
// locators of the form
//
//	{publicURL}/images/upload/v{unix}/{folder}/{id}.{ext}
//
// The object key is the public id, "{folder}/{id}", recovered from a locator
// by PublicIDFromLocator.
type MediaDelegate struct {
	store      *MinioS3Client
	publicURL  string
	folder     string
	presignTTL time.Duration
	now        func() time.Time
	newID      func() string
}

func NewMediaDelegate(store *MinioS3Client, publicURL, folder string, presignTTL time.Duration) *MediaDelegate {
	return &MediaDelegate{
		store:      store,
		publicURL:  strings.TrimRight(publicURL, "/"),
		folder:     strings.Trim(folder, "/"),
		presignTTL: presignTTL,
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
	}
}

// Upload stores an image and returns its locator. The declared MIME type must
// name an image and the content itself must sniff as an allowed format.
func (m *MediaDelegate) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/") {
		return "", fmt.Errorf("declared type %q: %w", mimeType, ErrUnsupportedMediaType)
	}
	detected := mimetype.Detect(data)
	if !isAllowedImage(detected) {
		return "", fmt.Errorf("detected type %q: %w", detected.String(), ErrUnsupportedMediaType)
	}

	publicID := m.newID()
	if m.folder != "" {
		publicID = m.folder + "/" + publicID
	}
	if err := m.store.UploadFile(ctx, publicID, bytes.NewReader(data), int64(len(data)), detected.String()); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/images/%s/v%d/%s%s",
		m.publicURL, uploadMarker, m.now().Unix(), publicID, detected.Extension()), nil
}

// Delete removes the image behind a locator. Locators without the upload
// marker fail with ErrInvalidLocator before the object store is contacted.
func (m *MediaDelegate) Delete(ctx context.Context, locator string) error {
	publicID, err := PublicIDFromLocator(locator)
	if err != nil {
		return err
	}
	return m.store.DeleteFile(ctx, publicID)
}

// Resolve returns a short lived download URL for the image behind a public id.
func (m *MediaDelegate) Resolve(ctx context.Context, publicID string) (*url.URL, error) {
	return m.store.PresignedURL(ctx, publicID, m.presignTTL)
}

// PublicIDFromLocator strips everything up to and including the version
// segment that follows the upload marker, then strips the file extension.
func PublicIDFromLocator(locator string) (string, error) {
	p := locator
	if u, err := url.Parse(locator); err == nil && u.Path != "" {
		p = u.Path
	}

	parts := strings.Split(p, "/")
	idx := -1
	for i, part := range parts {
		if part == uploadMarker {
			idx = i
			break
		}
	}
	if idx == -1 || len(parts) <= idx+2 {
		return "", fmt.Errorf("%q: %w", locator, ErrInvalidLocator)
	}

	rest := strings.Join(parts[idx+2:], "/")
	rest = strings.TrimSuffix(rest, path.Ext(rest))
	if rest == "" || strings.Contains(rest, "..") {
		return "", fmt.Errorf("%q: %w", locator, ErrInvalidLocator)
	}
	return rest, nil
}

func isAllowedImage(detected *mimetype.MIME) bool {
	for _, allowed := range allowedImageTypes {
		if detected.Is(allowed) {
			return true
		}
	}
	return false
}
