package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/avatar-customizer/scene"
)

// Lighting is the flat-shading model: an ambient term plus one directional light.
type Lighting struct {
	Ambient [3]float64 // color * intensity
	Direct  [3]float64 // color * intensity
	Dir     mgl64.Vec3 // unit vector pointing towards the light
}

// DefaultLighting matches the lights the customizer adds on init.
func DefaultLighting() Lighting {
	return Lighting{
		Ambient: scaled(0xffffff, 0.5),
		Direct:  scaled(0xffffff, 0.8),
		Dir:     mgl64.Vec3{0, 2, 1}.Normalize(),
	}
}

// SceneLighting sums the ambient lights under root and takes the first
// directional light. With no lights at all it returns DefaultLighting.
func SceneLighting(root *scene.Node) Lighting {
	var l Lighting
	found, directional := false, false
	root.Traverse(func(n *scene.Node) {
		if n.Kind() != scene.KindLight || n.Light == nil {
			return
		}
		found = true
		c := scaled(n.Light.Color, n.Light.Intensity)
		switch n.Light.Kind {
		case scene.LightAmbient:
			for i := range c {
				l.Ambient[i] += c[i]
			}
		case scene.LightDirectional:
			if directional {
				return
			}
			directional = true
			l.Direct = c
			pos := n.WorldMatrix().Col(3).Vec3()
			if pos.Len() < 1e-9 {
				pos = mgl64.Vec3{0, 1, 0}
			}
			l.Dir = pos.Normalize()
		}
	})
	if !found {
		return DefaultLighting()
	}
	return l
}

// Shade returns the per-channel light reaching a face with the given normal.
// Faces are lit from both sides.
func (l *Lighting) Shade(normal mgl64.Vec3) [3]float64 {
	ndl := math.Abs(normal.Dot(l.Dir))
	return [3]float64{
		l.Ambient[0] + ndl*l.Direct[0],
		l.Ambient[1] + ndl*l.Direct[1],
		l.Ambient[2] + ndl*l.Direct[2],
	}
}

func scaled(rgb uint32, intensity float64) [3]float64 {
	return [3]float64{
		float64(rgb>>16&0xff) / 255 * intensity,
		float64(rgb>>8&0xff) / 255 * intensity,
		float64(rgb&0xff) / 255 * intensity,
	}
}
