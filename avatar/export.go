package avatar

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/milk9111/avatar-customizer/model"
	"github.com/milk9111/avatar-customizer/scene"
)

// DefaultFilename is the name of the exported avatar file.
const DefaultFilename = "custom_avatar.glb"

// Exporter writes the merged avatar either as a .glb file or, in diagnostic
// mode, as glTF JSON to the log.
type Exporter struct {
	// Dir receives the exported file. Empty means the working directory.
	Dir string
	// Filename defaults to DefaultFilename.
	Filename string
	// Binary selects the .glb file output; false logs the JSON document instead.
	Binary bool
	// Preview, when set, writes a WebP preview of the merged avatar next to the .glb.
	Preview func(root *scene.Node, w io.Writer) error
	// Clipboard, when set, receives the JSON document in diagnostic mode.
	Clipboard func(data []byte)
}

// Export merges group and serializes it. It returns the written path, or ""
// in diagnostic mode.
func (e *Exporter) Export(group *scene.Node) (string, error) {
	merged, err := Merge(group)
	if err != nil {
		return "", err
	}
	doc, err := model.Export(merged)
	if err != nil {
		return "", fmt.Errorf("avatar: export: %w", err)
	}

	if !e.Binary {
		var buf bytes.Buffer
		if err := model.Encode(&buf, doc, false); err != nil {
			return "", fmt.Errorf("avatar: export: %w", err)
		}
		log.Printf("avatar: exported document (%d nodes, %d skins):\n%s", len(doc.Nodes), len(doc.Skins), buf.String())
		if e.Clipboard != nil {
			e.Clipboard(buf.Bytes())
		}
		return "", nil
	}

	name := e.Filename
	if name == "" {
		name = DefaultFilename
	}
	if e.Dir != "" {
		if err := os.MkdirAll(e.Dir, 0755); err != nil {
			return "", fmt.Errorf("avatar: export: %w", err)
		}
	}
	out := filepath.Join(e.Dir, name)
	if err := writeFile(out, func(w io.Writer) error { return model.Encode(w, doc, true) }); err != nil {
		return "", fmt.Errorf("avatar: export %s: %w", out, err)
	}
	log.Printf("avatar: exported %s", out)

	if e.Preview != nil {
		preview := strings.TrimSuffix(out, filepath.Ext(out)) + ".webp"
		if err := writeFile(preview, func(w io.Writer) error { return e.Preview(merged, w) }); err != nil {
			log.Printf("avatar: preview %s failed: %v", preview, err)
		}
	}
	return out, nil
}

func writeFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
