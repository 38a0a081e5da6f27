package badge

import "math"

// Camera is a perspective camera looking down -Z from Position.
type Camera struct {
	Position Vec3

	// FOV is the vertical field of view in degrees.
	FOV    float64
	Aspect float64
	Near   float64
	Far    float64
}

// DefaultCamera matches the scene the badge is rendered in.
func DefaultCamera(aspect float64) Camera {
	if !(aspect > 0) || math.IsInf(aspect, 0) {
		aspect = 1
	}
	return Camera{
		Position: Vec3{Z: 13},
		FOV:      25,
		Aspect:   aspect,
		Near:     0.1,
		Far:      1000,
	}
}

// Unproject maps normalised device coordinates to world space.
func (c Camera) Unproject(ndcX, ndcY, ndcZ float64) Vec3 {
	// Invert the OpenGL perspective depth mapping to get the view-space z.
	viewZ := 2 * c.Far * c.Near / ((c.Far-c.Near)*ndcZ - (c.Far + c.Near))
	halfHeight := math.Tan(c.FOV * math.Pi / 360)
	view := Vec3{
		X: ndcX * -viewZ * halfHeight * c.Aspect,
		Y: ndcY * -viewZ * halfHeight,
		Z: viewZ,
	}
	return c.Position.Add(view)
}

// PointerTarget returns the world point a pointer at (ndcX, ndcY) drags
// toward: the ray through the pointer, pushed out by the camera's distance
// from the origin so it lands near the plane the badge hangs in.
func (c Camera) PointerTarget(ndcX, ndcY float64) Vec3 {
	p := c.Unproject(ndcX, ndcY, 0.5)
	dir := p.Sub(c.Position).Normalize()
	return p.Add(dir.Scale(c.Position.Len()))
}
