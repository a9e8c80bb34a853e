package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"videotube/api/internal/ids"
	"videotube/api/internal/media/sniffer"
	"videotube/api/internal/media/svg"
)

var ErrEmptyFile = errors.New("empty file")

type UploadedMedia struct {
	URL         string
	Key         string
	ContentType string
	Size        int64
}

// MediaUploader pushes local image files to the media host and returns
// their public URL. It never removes the local file; the upload middleware
// owns temp files.
type MediaUploader struct {
	backend       Backend
	endpoint      string
	publicBaseURL string
	now           func() time.Time
}

func NewMediaUploader(backend Backend, endpoint string, publicBaseURL string) *MediaUploader {
	return &MediaUploader{
		backend:       backend,
		endpoint:      endpoint,
		publicBaseURL: publicBaseURL,
		now:           time.Now,
	}
}

func (u *MediaUploader) Upload(ctx context.Context, localPath string) (UploadedMedia, error) {
	if localPath == "" {
		return UploadedMedia{}, errors.New("no file path")
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return UploadedMedia{}, fmt.Errorf("read %s: %w", localPath, err)
	}
	if len(data) == 0 {
		return UploadedMedia{}, ErrEmptyFile
	}

	kind, err := sniffer.DetectHead(data)
	if err != nil {
		return UploadedMedia{}, fmt.Errorf("detect type: %w", err)
	}

	if kind.Type == sniffer.TypeSVG {
		data, err = svg.Sanitize(data)
		if err != nil {
			return UploadedMedia{}, fmt.Errorf("sanitize svg: %w", err)
		}
	}

	key := u.buildObjectKey(kind.Ext())
	if err := u.backend.PutObject(ctx, key, bytes.NewReader(data), int64(len(data)), kind.MIME); err != nil {
		return UploadedMedia{}, err
	}

	return UploadedMedia{
		URL:         u.buildPublicURL(key),
		Key:         key,
		ContentType: kind.MIME,
		Size:        int64(len(data)),
	}, nil
}

func (u *MediaUploader) buildObjectKey(ext string) string {
	datePrefix := u.now().UTC().Format("2006/01/02")
	return path.Join("images", datePrefix, fmt.Sprintf("%s.%s", ids.New(), ext))
}

func (u *MediaUploader) buildPublicURL(key string) string {
	if u.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(u.publicBaseURL, "/"), key)
	}
	base := strings.TrimSuffix(u.endpoint, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return fmt.Sprintf("%s/%s/%s", base, u.backend.Bucket(), key)
}
