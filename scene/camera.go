package scene

import "github.com/go-gl/mathgl/mgl64"

// Camera is a perspective camera looking down -Z from Position.
type Camera struct {
	FOV      float64 // vertical, degrees
	Aspect   float64
	Near     float64
	Far      float64
	Position mgl64.Vec3

	projection mgl64.Mat4
}

// NewCamera creates a camera and computes its projection.
func NewCamera(fov, aspect, near, far float64) *Camera {
	c := &Camera{FOV: fov, Aspect: aspect, Near: near, Far: far}
	c.UpdateProjection()
	return c
}

// UpdateProjection recomputes the projection after FOV, Aspect, Near or Far change.
func (c *Camera) UpdateProjection() {
	aspect := c.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	c.projection = mgl64.Perspective(mgl64.DegToRad(c.FOV), aspect, c.Near, c.Far)
}

// Projection returns the matrix computed by the last UpdateProjection.
func (c *Camera) Projection() mgl64.Mat4 {
	return c.projection
}

// View returns the world-to-camera matrix.
func (c *Camera) View() mgl64.Mat4 {
	return mgl64.Translate3D(-c.Position[0], -c.Position[1], -c.Position[2])
}

// ViewProjection returns Projection * View.
func (c *Camera) ViewProjection() mgl64.Mat4 {
	return c.projection.Mul4(c.View())
}
