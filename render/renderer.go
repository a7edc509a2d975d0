// Package render is a small software rasterizer for the avatar scene:
// flat-shaded triangles, a z-buffer, CPU skinning and one directional light.
package render

import (
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/avatar-customizer/scene"
	"golang.org/x/image/colornames"
)

// Renderer draws a scene into an RGBA image of a fixed size.
type Renderer struct {
	// Background fills pixels no triangle covers.
	Background color.RGBA

	fb        *FrameBuffer
	img       *image.RGBA
	triangles int
}

// NewRenderer creates a renderer with a w×h target.
func NewRenderer(w, h int) *Renderer {
	r := &Renderer{Background: colornames.Black}
	r.SetSize(w, h)
	return r
}

// SetSize resizes the target. Sizes below one pixel are clamped.
func (r *Renderer) SetSize(w, h int) {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if r.fb != nil && r.fb.Width == w && r.fb.Height == h {
		return
	}
	r.fb = NewFrameBuffer(w, h)
	r.img = image.NewRGBA(image.Rect(0, 0, w, h))
}

// Size returns the target dimensions.
func (r *Renderer) Size() (int, int) {
	return r.fb.Width, r.fb.Height
}

// Image returns the last rendered frame. The image is reused between frames.
func (r *Renderer) Image() *image.RGBA {
	return r.img
}

// Triangles reports how many triangles the last Render drew.
func (r *Renderer) Triangles() int {
	return r.triangles
}

// Render draws every mesh under root as seen from cam.
func (r *Renderer) Render(root *scene.Node, cam *scene.Camera) {
	r.fb.Clear(r.Background)
	r.triangles = 0
	if root != nil && cam != nil {
		lighting := SceneLighting(root)
		vp := cam.ViewProjection()
		root.Traverse(func(n *scene.Node) {
			if n.Geometry == nil {
				return
			}
			if n.Kind() != scene.KindMesh && n.Kind() != scene.KindSkinnedMesh {
				return
			}
			r.drawMesh(n, vp, &lighting)
		})
	}
	copy(r.img.Pix, r.fb.Color)
}

func (r *Renderer) drawMesh(n *scene.Node, vp mgl64.Mat4, lighting *Lighting) {
	g := n.Geometry
	world := worldPositions(n)

	w, h := float64(r.fb.Width), float64(r.fb.Height)
	proj := make([]vertex, len(world))
	visible := make([]bool, len(world))
	for i, p := range world {
		clip := vp.Mul4x1(p.Vec4(1))
		cw := clip[3]
		if cw <= 1e-9 {
			continue
		}
		ndc := clip.Vec3().Mul(1 / cw)
		if ndc[2] < -1 || ndc[2] > 1 {
			continue
		}
		proj[i] = vertex{
			x: (ndc[0] + 1) * 0.5 * w,
			y: (1 - ndc[1]) * 0.5 * h,
			z: -ndc[2],
		}
		visible[i] = true
	}

	base := g.Color
	if base == [4]float32{} {
		base = [4]float32{1, 1, 1, 1}
	}

	count := len(g.Indices)
	if count == 0 {
		count = len(world)
	}
	for t := 0; t+2 < count; t += 3 {
		i0, i1, i2 := t, t+1, t+2
		if len(g.Indices) > 0 {
			i0, i1, i2 = int(g.Indices[t]), int(g.Indices[t+1]), int(g.Indices[t+2])
		}
		if i0 >= len(world) || i1 >= len(world) || i2 >= len(world) {
			continue
		}
		if !visible[i0] || !visible[i1] || !visible[i2] {
			continue
		}

		normal := world[i1].Sub(world[i0]).Cross(world[i2].Sub(world[i0]))
		if normal.Len() < 1e-12 {
			continue
		}
		shade := lighting.Shade(normal.Normalize())

		rasterizeTriangle(r.fb, proj[i0], proj[i1], proj[i2],
			clamp255(float64(base[0])*shade[0]*255),
			clamp255(float64(base[1])*shade[1]*255),
			clamp255(float64(base[2])*shade[2]*255),
			clamp255(float64(base[3])*255))
		r.triangles++
	}
}

// worldPositions returns the mesh vertices in world space. Skinned meshes are
// posed by their skeleton's current bone transforms.
func worldPositions(n *scene.Node) []mgl64.Vec3 {
	g := n.Geometry
	out := make([]mgl64.Vec3, len(g.Positions))

	var joints []mgl64.Mat4
	if n.Kind() == scene.KindSkinnedMesh && n.Skeleton != nil && len(g.Joints) == len(g.Positions) && len(g.Weights) == len(g.Positions) {
		s := n.Skeleton
		joints = make([]mgl64.Mat4, len(s.Bones))
		for i, b := range s.Bones {
			ibm := mgl64.Ident4()
			if i < len(s.InverseBind) {
				ibm = s.InverseBind[i]
			}
			joints[i] = b.WorldMatrix().Mul4(ibm)
		}
	}
	model := n.WorldMatrix()

	for i, p := range g.Positions {
		v := mgl64.Vec4{float64(p[0]), float64(p[1]), float64(p[2]), 1}
		if joints == nil {
			out[i] = model.Mul4x1(v).Vec3()
			continue
		}
		var sum mgl64.Vec3
		total := 0.0
		for k := 0; k < 4; k++ {
			wt := float64(g.Weights[i][k])
			j := int(g.Joints[i][k])
			if wt == 0 || j >= len(joints) {
				continue
			}
			sum = sum.Add(joints[j].Mul4x1(v).Vec3().Mul(wt))
			total += wt
		}
		if total == 0 {
			out[i] = model.Mul4x1(v).Vec3()
			continue
		}
		out[i] = sum.Mul(1 / total)
	}
	return out
}
