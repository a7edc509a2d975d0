package assets

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

//go:embed *.glb
var assetsFS embed.FS

const (
	// Dir is the conventional directory part assets live in.
	Dir = "assets"
	// Ext is the extension of part assets (binary glTF).
	Ext = ".glb"
)

// ErrNotFound is returned when an asset exists neither on disk nor embedded.
var ErrNotFound = errors.New("assets: not found")

// PartPath returns the asset path for a part identifier, e.g. "bun" -> "assets/bun.glb".
func PartPath(id string) string {
	return path.Join(Dir, id+Ext)
}

// IDFromPath returns the part identifier for an asset path, or "" when the
// path is not a part asset.
func IDFromPath(p string) string {
	base := filepath.Base(filepath.ToSlash(p))
	if !strings.EqualFold(filepath.Ext(base), Ext) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Source finds asset files on disk first, then in an embedded file system.
type Source struct {
	// Disk is the on-disk asset directory. Empty skips the disk lookup.
	Disk string
	// Embedded is the fallback file system. Nil skips it.
	Embedded fs.FS
}

// DefaultSource looks in dir, then in the assets compiled into the binary.
func DefaultSource(dir string) Source {
	return Source{Disk: dir, Embedded: assetsFS}
}

// Open opens an asset by assets-relative path and reports its size.
func (s Source) Open(name string) (io.ReadCloser, int64, error) {
	clean := cleanAssetPath(name)
	if clean == "" {
		return nil, 0, fmt.Errorf("%w: empty path", ErrNotFound)
	}

	if s.Disk != "" {
		f, err := os.Open(filepath.Join(s.Disk, filepath.FromSlash(clean)))
		if err == nil {
			info, err := f.Stat()
			if err != nil {
				_ = f.Close()
				return nil, 0, fmt.Errorf("assets: stat %s: %w", name, err)
			}
			return f, info.Size(), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, 0, fmt.Errorf("assets: open %s: %w", name, err)
		}
	}

	if s.Embedded != nil {
		f, err := s.Embedded.Open(clean)
		if err == nil {
			info, err := f.Stat()
			if err != nil {
				_ = f.Close()
				return nil, 0, fmt.Errorf("assets: stat %s: %w", name, err)
			}
			return f, info.Size(), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, 0, fmt.Errorf("assets: open %s: %w", name, err)
		}
	}

	return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, name)
}


func cleanAssetPath(path string) string {
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) {
		s := filepath.ToSlash(path)
		if idx := strings.LastIndex(s, "/assets/"); idx >= 0 {
			return s[idx+len("/assets/"):]
		}
		return filepath.Base(path)
	}
	s := filepath.ToSlash(path)
	if strings.HasPrefix(s, "assets/") {
		return strings.TrimPrefix(s, "assets/")
	}
	return s
}
