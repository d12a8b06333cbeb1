// Package storage keeps company logo assets and serves them as static files.
package storage

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// DefaultMaxBytes is the largest logo accepted.
const DefaultMaxBytes = 5 << 20

// imageExtensions lists the accepted raster types. SVG is excluded since it
// can carry script that would run on the API origin.
var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// assetPolicy forbids stored assets from running script or loading anything.
const assetPolicy = "default-src 'none'; style-src 'unsafe-inline'; sandbox"

// LocalStore writes logos into a directory. Stored references are relative
// URLs under Prefix, e.g. "/uploads/logo-<uuid>.png".
type LocalStore struct {
	fs       afero.Fs
	prefix   string
	maxBytes int64
}

// NewLocalStore roots the store at dir on the OS filesystem.
func NewLocalStore(dir, prefix string, maxBytes int64) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return NewStore(afero.NewBasePathFs(afero.NewOsFs(), dir), prefix, maxBytes), nil
}

// NewStore uses fs as the upload root.
func NewStore(fs afero.Fs, prefix string, maxBytes int64) *LocalStore {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &LocalStore{
		fs:       fs,
		prefix:   "/" + strings.Trim(prefix, "/"),
		maxBytes: maxBytes,
	}
}

// Prefix is the public path the assets are served under.
func (s *LocalStore) Prefix() string {
	return s.prefix
}

// Save stores an image and returns its public reference.
func (s *LocalStore) Save(_ context.Context, logo *models.LogoUpload) (string, error) {
	br := bufio.NewReaderSize(logo.Content, 512)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return "", fmt.Errorf("read logo: %w", err)
	}

	contentType := http.DetectContentType(head)
	ext, ok := imageExtensions[strings.SplitN(contentType, ";", 2)[0]]
	if !ok {
		return "", fmt.Errorf("%w: only image files are allowed", e.ErrInvalidInput)
	}

	name := "logo-" + uuid.NewString() + ext
	f, err := s.fs.Create("/" + name)
	if err != nil {
		return "", fmt.Errorf("create logo file: %w", err)
	}
	written, err := io.Copy(f, io.LimitReader(br, s.maxBytes+1))
	closeErr := f.Close()
	if err == nil && written > s.maxBytes {
		err = fmt.Errorf("%w: logo exceeds %d bytes", e.ErrInvalidInput, s.maxBytes)
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = s.fs.Remove("/" + name)
		return "", err
	}
	return s.prefix + "/" + name, nil
}

// Delete removes the asset behind ref. A missing asset is not an error.
func (s *LocalStore) Delete(_ context.Context, ref string) error {
	name, ok := s.nameOf(ref)
	if !ok {
		return fmt.Errorf("reference %q is outside %s", ref, s.prefix)
	}
	if err := s.fs.Remove("/" + name); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Exists reports whether the asset behind ref is stored.
func (s *LocalStore) Exists(ref string) bool {
	name, ok := s.nameOf(ref)
	if !ok {
		return false
	}
	exists, _ := afero.Exists(s.fs, "/"+name)
	return exists
}

func (s *LocalStore) nameOf(ref string) (string, bool) {
	if !strings.HasPrefix(ref, s.prefix+"/") {
		return "", false
	}
	name := strings.TrimPrefix(ref, s.prefix+"/")
	if name == "" || name != path.Base(name) || name == ".." {
		return "", false
	}
	return name, true
}

// Handler serves stored assets under the store prefix. Responses are
// sandboxed and never sniffed, whatever a file turns out to contain.
func (s *LocalStore) Handler() http.Handler {
	files := http.StripPrefix(s.prefix, http.FileServer(afero.NewHttpFs(s.fs).Dir("/")))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", assetPolicy)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		files.ServeHTTP(w, r)
	})
}
