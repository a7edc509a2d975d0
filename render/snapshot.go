package render

import (
	"fmt"
	"image"
	"io"

	"github.com/HugoSmits86/nativewebp"
	"github.com/milk9111/avatar-customizer/scene"
)

// Snapshot renders root once into a new w×h image.
func Snapshot(root *scene.Node, cam *scene.Camera, w, h int) *image.RGBA {
	r := NewRenderer(w, h)
	r.Render(root, cam)
	return r.Image()
}

// EncodeWebP writes img as a lossless WebP.
func EncodeWebP(w io.Writer, img image.Image) error {
	if err := nativewebp.Encode(w, img, nil); err != nil {
		return fmt.Errorf("render: encode webp: %w", err)
	}
	return nil
}

// Preview returns a function that renders a node from cam and writes it as WebP.
// The camera's aspect is set from w and h.
func Preview(cam scene.Camera, w, h int) func(root *scene.Node, out io.Writer) error {
	if h < 1 {
		h = 1
	}
	cam.Aspect = float64(w) / float64(h)
	cam.UpdateProjection()
	return func(root *scene.Node, out io.Writer) error {
		return EncodeWebP(out, Snapshot(root, &cam, w, h))
	}
}
