package render

import "math"

// vertex is a projected vertex: pixel coordinates plus depth (larger is closer).
type vertex struct {
	x, y, z float64
}

// rasterizeTriangle fills one flat-colored triangle with a z-buffer test.
func rasterizeTriangle(fb *FrameBuffer, a, b, c vertex, cr, cg, cb, ca uint8) {
	minX := int(math.Floor(math.Min(math.Min(a.x, b.x), c.x)))
	maxX := int(math.Ceil(math.Max(math.Max(a.x, b.x), c.x)))
	minY := int(math.Floor(math.Min(math.Min(a.y, b.y), c.y)))
	maxY := int(math.Ceil(math.Max(math.Max(a.y, b.y), c.y)))

	if minX < 0 {
		minX = 0
	}
	if maxX >= fb.Width {
		maxX = fb.Width - 1
	}
	if minY < 0 {
		minY = 0
	}
	if maxY >= fb.Height {
		maxY = fb.Height - 1
	}
	if minX > maxX || minY > maxY {
		return
	}

	det := (b.y-c.y)*(a.x-c.x) + (c.x-b.x)*(a.y-c.y)
	if det > -1e-8 && det < 1e-8 {
		return
	}
	invDet := 1.0 / det

	dy12 := b.y - c.y
	dx21 := c.x - b.x
	dy20 := c.y - a.y
	dx02 := a.x - c.x

	for sy := minY; sy <= maxY; sy++ {
		// sample at pixel centers
		dsy := float64(sy) + 0.5 - c.y
		rowOff := sy * fb.Width
		for sx := minX; sx <= maxX; sx++ {
			dsx := float64(sx) + 0.5 - c.x
			w0 := (dy12*dsx + dx21*dsy) * invDet
			w1 := (dy20*dsx + dx02*dsy) * invDet
			w2 := 1.0 - w0 - w1
			if w0 < -0.001 || w1 < -0.001 || w2 < -0.001 {
				continue
			}

			z := w0*a.z + w1*b.z + w2*c.z
			zIdx := rowOff + sx
			if z <= fb.ZBuf[zIdx] {
				continue
			}
			fb.ZBuf[zIdx] = z

			px := zIdx * 4
			fb.Color[px] = cr
			fb.Color[px+1] = cg
			fb.Color[px+2] = cb
			fb.Color[px+3] = ca
		}
	}
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
