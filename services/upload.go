package services

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"food-delivery/metrics"

	"github.com/google/uuid"
)

// Uploader stores menu images under a public directory and hands back the URL path
// the web server exposes them at. Files are never deduplicated or removed.
type Uploader struct {
	dir       string
	urlPrefix string
}

func NewUploader(dir, urlPrefix string) (*Uploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	if urlPrefix == "" {
		urlPrefix = "/uploads"
	}
	return &Uploader{dir: dir, urlPrefix: urlPrefix}, nil
}

// ImageExt returns the lower-cased extension of name when it maps to a raster image
// type, and "" otherwise. SVG is excluded because browsers run scripts inside it.
func ImageExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	ctype, _, _ := strings.Cut(mime.TypeByExtension(ext), ";")
	if !strings.HasPrefix(ctype, "image/") || ctype == "image/svg+xml" {
		return ""
	}
	return ext
}

// Store writes r to a freshly named file and returns its reference path,
// e.g. "/uploads/5f0c...e1.jpg". The original name only contributes its extension,
// and only when it is an image extension.
func (u *Uploader) Store(r io.Reader, originalName string) (string, error) {
	name := uuid.NewString() + ImageExt(originalName)

	f, err := os.OpenFile(filepath.Join(u.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(filepath.Join(u.dir, name))
		return "", fmt.Errorf("write upload %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close upload %s: %w", name, err)
	}
	metrics.RecordUpload()
	return path.Join(u.urlPrefix, name), nil
}

func (u *Uploader) StoreFileHeader(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()
	return u.Store(src, fh.Filename)
}
