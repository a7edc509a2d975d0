package parts

import (
	"embed"
	"os"
	"path/filepath"
	"strings"
	"time"
)

//go:embed *.yaml
var PartsFS embed.FS

// CatalogFile is the default catalog name.
const CatalogFile = "parts.yaml"

// Load reads a catalog file from dir on disk, falling back to the embedded copy.
func Load(dir, name string) ([]byte, error) {
	clean := cleanPartsPath(name)
	if data, err := os.ReadFile(diskPartsPath(dir, clean)); err == nil {
		return data, nil
	}
	return PartsFS.ReadFile(clean)
}

func ModTime(dir, name string) (time.Time, bool) {
	clean := cleanPartsPath(name)
	info, err := os.Stat(diskPartsPath(dir, clean))
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

func cleanPartsPath(path string) string {
	if path == "" {
		return ""
	}
	s := filepath.ToSlash(path)
	if after, ok := strings.CutPrefix(s, "parts/"); ok {
		return after
	}
	return filepath.Base(s)
}

func diskPartsPath(dir, clean string) string {
	if dir == "" {
		dir = "parts"
	}
	return filepath.Join(dir, filepath.FromSlash(clean))
}
