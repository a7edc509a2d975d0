package render

import (
	"bytes"
	"image/color"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/avatar-customizer/scene"
	"github.com/milk9111/avatar-customizer/scene/scenetest"
)

func testCamera(aspect float64) *scene.Camera {
	cam := scene.NewCamera(75, aspect, 0.1, 1000)
	cam.Position = mgl64.Vec3{0, 0, 1.5}
	return cam
}

func triangleAt(name string, z float64, c [4]float32) *scene.Node {
	n := scene.NewNode(scene.KindMesh, name)
	n.Geometry = scenetest.Triangle(c)
	n.Transform.Translation = mgl64.Vec3{0, 0, z}
	return n
}

func pixel(r *Renderer, x, y int) color.RGBA {
	return r.Image().RGBAAt(x, y)
}

func TestRenderEmptyScene(t *testing.T) {
	r := NewRenderer(16, 8)
	r.Background = color.RGBA{10, 20, 30, 255}
	r.Render(scene.NewGroup("root"), testCamera(2))

	if r.Triangles() != 0 {
		t.Fatalf("expected no triangles, got %d", r.Triangles())
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			if got := pixel(r, x, y); got != r.Background {
				t.Fatalf("pixel (%d,%d) = %v, want background", x, y, got)
			}
		}
	}
}

func TestRenderDepthOrder(t *testing.T) {
	root := scene.NewGroup("root")
	root.Add(
		triangleAt("far", 0, [4]float32{0, 0, 1, 1}),
		triangleAt("near", 0.5, [4]float32{1, 0, 0, 1}),
	)
	r := NewRenderer(64, 64)
	r.Render(root, testCamera(1))

	if r.Triangles() != 2 {
		t.Fatalf("expected 2 triangles, got %d", r.Triangles())
	}
	c := pixel(r, 32, 32)
	if c.R == 0 || c.B != 0 {
		t.Fatalf("center pixel should be the near red triangle, got %v", c)
	}
	if corner := pixel(r, 0, 0); corner != colorBlack() {
		t.Fatalf("corner should stay background, got %v", corner)
	}
}

func TestRenderSkipsGeometryBehindCamera(t *testing.T) {
	root := scene.NewGroup("root")
	root.Add(triangleAt("behind", 3, [4]float32{1, 1, 1, 1}))
	r := NewRenderer(32, 32)
	r.Render(root, testCamera(1))
	if r.Triangles() != 0 {
		t.Fatalf("triangle behind the camera was drawn")
	}
}

func TestSetSize(t *testing.T) {
	r := NewRenderer(10, 10)
	img := r.Image()
	r.SetSize(10, 10)
	if r.Image() != img {
		t.Fatalf("same size should keep the target")
	}
	r.SetSize(0, 20)
	if w, h := r.Size(); w != 1 || h != 20 {
		t.Fatalf("expected 1x20, got %dx%d", w, h)
	}
	if b := r.Image().Bounds(); b.Dx() != 1 || b.Dy() != 20 {
		t.Fatalf("image not resized: %v", b)
	}
}

func TestSkinnedMeshFollowsBones(t *testing.T) {
	part := scenetest.RiggedPart("body")
	var mesh, hips *scene.Node
	part.Traverse(func(n *scene.Node) {
		switch {
		case n.Kind() == scene.KindSkinnedMesh:
			mesh = n
		case n.Name == "Hips":
			hips = n
		}
	})

	before := worldPositions(mesh)
	hips.Transform.Translation = mgl64.Vec3{1, 0, 0}
	after := worldPositions(mesh)

	for i := range before {
		d := after[i].Sub(before[i])
		if math.Abs(d[0]-1) > 1e-9 || math.Abs(d[1]) > 1e-9 || math.Abs(d[2]) > 1e-9 {
			t.Fatalf("vertex %d moved by %v, want (1,0,0)", i, d)
		}
	}
}

func TestSceneLighting(t *testing.T) {
	cases := []struct {
		name    string
		lights  []*scene.Node
		ambient float64
		direct  float64
	}{
		{"default", nil, 0.5, 0.8},
		{"ambient only", []*scene.Node{scene.NewLight(scene.LightAmbient, 0xffffff, 0.25)}, 0.25, 0},
		{"both", []*scene.Node{
			scene.NewLight(scene.LightAmbient, 0xffffff, 0.5),
			scene.NewLight(scene.LightDirectional, 0xffffff, 1),
		}, 0.5, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			root := scene.NewGroup("root")
			root.Add(c.lights...)
			l := SceneLighting(root)
			if math.Abs(l.Ambient[0]-c.ambient) > 1e-9 {
				t.Fatalf("ambient = %v, want %v", l.Ambient[0], c.ambient)
			}
			if math.Abs(l.Direct[0]-c.direct) > 1e-9 {
				t.Fatalf("direct = %v, want %v", l.Direct[0], c.direct)
			}
		})
	}
}

func TestEncodeWebP(t *testing.T) {
	root := scene.NewGroup("root")
	root.Add(triangleAt("tri", 0, [4]float32{0.8, 0.6, 0.5, 1}))

	var buf bytes.Buffer
	if err := Preview(*testCamera(1), 32, 32)(root, &buf); err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	b := buf.Bytes()
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WEBP" {
		t.Fatalf("output is not a WebP container")
	}
}

func colorBlack() color.RGBA {
	return color.RGBA{0, 0, 0, 255}
}
