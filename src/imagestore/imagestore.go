// Package imagestore writes provider image results to a local cache
// directory and hands back file:// references that become message content.
package imagestore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/mkoskin/chatter/src/chatsdk"
)

// imagesSubdir is the cache subdirectory images land in.
const imagesSubdir = "images"

// Saver persists image bytes under a lazily-resolved writable base
// directory. The primary location is tried first; the fallback is used when
// the primary cannot be created.
type Saver struct {
	fs       afero.Fs
	primary  string
	fallback string
	logger   *slog.Logger

	mu       sync.Mutex
	resolved string
}

// NewSaver creates a saver. fs is usually afero.NewOsFs(); tests pass an
// in-memory filesystem.
func NewSaver(fs afero.Fs, primary, fallback string, logger *slog.Logger) *Saver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Saver{
		fs:       fs,
		primary:  primary,
		fallback: fallback,
		logger:   logger.With("component", "imagestore"),
	}
}

// Save writes image bytes to the cache and returns a file:// reference.
// Directory creation is idempotent.
func (s *Saver) Save(data []byte, mime string) (string, error) {
	dir, err := s.baseDir()
	if err != nil {
		return "", err
	}

	name := uuid.New().String() + extForMIME(mime)
	path := filepath.Join(dir, name)

	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	s.logger.Debug("saved image", "path", path, "bytes", len(data))
	return chatsdk.FileURI(path), nil
}

// Cleanup removes the image files referenced by a deleted chat's message
// contents. Best-effort: non-image contents are skipped, paths outside the
// managed image directories are left alone, and removal failures are logged
// and swallowed.
func (s *Saver) Cleanup(contents []string) {
	for _, raw := range contents {
		c := chatsdk.DecodeContent(raw)
		if c.Kind != chatsdk.ContentImageFile {
			continue
		}
		if !s.managed(c.Path) {
			s.logger.Warn("not removing file outside image directories", "path", c.Path)
			continue
		}
		if err := s.fs.Remove(c.Path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove image file", "path", c.Path, "error", err)
		}
	}
}

// managed reports whether path sits directly in one of the image directories
// this saver writes to. Persisted content is user-reachable data; only files
// we created are ever deleted.
func (s *Saver) managed(path string) bool {
	dir := filepath.Dir(path)
	for _, base := range []string{s.primary, s.fallback} {
		if base != "" && dir == filepath.Join(base, imagesSubdir) {
			return true
		}
	}
	return false
}

// baseDir resolves the writable images directory once and caches it.
func (s *Saver) baseDir() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resolved != "" {
		return s.resolved, nil
	}

	for _, base := range []string{s.primary, s.fallback} {
		if base == "" {
			continue
		}
		dir := filepath.Join(base, imagesSubdir)
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			s.logger.Warn("image directory unavailable", "dir", dir, "error", err)
			continue
		}
		s.resolved = dir
		return dir, nil
	}

	return "", fmt.Errorf("no writable image directory (tried %q, %q)", s.primary, s.fallback)
}

// extForMIME maps an image MIME type to a file extension.
func extForMIME(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".img"
	}
}
