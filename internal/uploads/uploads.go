// Package uploads stores multipart file fields in a temp directory for the
// duration of a request, so handlers deal in local paths rather than
// multipart streams.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"videotube/api/internal/apperr"
)

const (
	filesKey   = "uploaded_files"
	tempPrefix = "upload-"
)

// File is one stored multipart part.
type File struct {
	Field    string
	Path     string
	Filename string
	Size     int64
}

// Files holds the first file of each accepted field.
type Files map[string]File

// Path returns the local path stored for field, or "" if none was sent.
func (f Files) Path(field string) string {
	if file, ok := f[field]; ok {
		return file.Path
	}
	return ""
}

type Config struct {
	Dir      string
	MaxBytes int64
}

// Fields accepts the named file fields, writes each to cfg.Dir and removes
// them once the handler chain returns. Requests that are not multipart pass
// through with no files.
func Fields(cfg Config, fields ...string) gin.HandlerFunc {
	bodyLimit := cfg.MaxBytes*int64(len(fields)) + 1<<20

	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, bodyLimit)

		files := Files{}
		defer func() {
			for _, f := range files {
				_ = os.Remove(f.Path)
			}
			if c.Request.MultipartForm != nil {
				_ = c.Request.MultipartForm.RemoveAll()
			}
		}()

		if err := c.Request.ParseMultipartForm(cfg.MaxBytes); err != nil {
			if !errors.Is(err, http.ErrNotMultipart) {
				_ = c.Error(apperr.Validation("invalid multipart body").WithCause(err))
				c.Abort()
				return
			}
		}

		if form := c.Request.MultipartForm; form != nil {
			for _, field := range fields {
				headers := form.File[field]
				if len(headers) == 0 {
					continue
				}
				header := headers[0]
				if cfg.MaxBytes > 0 && header.Size > cfg.MaxBytes {
					_ = c.Error(apperr.Validation(fmt.Sprintf("%s file is too large", field)))
					c.Abort()
					return
				}
				stored, err := save(cfg.Dir, field, header)
				if err != nil {
					_ = c.Error(apperr.Internal("could not store uploaded file").WithCause(err))
					c.Abort()
					return
				}
				files[field] = stored
			}
		}

		c.Set(filesKey, files)
		c.Next()
	}
}

// FromContext returns the files stored by Fields for this request.
func FromContext(c *gin.Context) Files {
	if v, ok := c.Get(filesKey); ok {
		if files, ok := v.(Files); ok {
			return files
		}
	}
	return Files{}
}

func save(dir string, field string, header *multipart.FileHeader) (File, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return File{}, fmt.Errorf("create temp dir: %w", err)
	}

	src, err := header.Open()
	if err != nil {
		return File{}, fmt.Errorf("open part: %w", err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	dst, err := os.CreateTemp(dir, tempPrefix+"*"+ext)
	if err != nil {
		return File{}, fmt.Errorf("create temp file: %w", err)
	}
	defer dst.Close()

	n, err := io.Copy(dst, src)
	if err != nil {
		_ = os.Remove(dst.Name())
		return File{}, fmt.Errorf("write temp file: %w", err)
	}

	return File{
		Field:    field,
		Path:     dst.Name(),
		Filename: filepath.Base(header.Filename),
		Size:     n,
	}, nil
}
