package badge

import "math"

// CatmullRom samples a centripetal Catmull-Rom spline through points at
// segments+1 evenly spaced parameter values. The first and last samples are
// the first and last control points.
func CatmullRom(points []Vec3, segments int) []Vec3 {
	if len(points) == 0 || segments <= 0 {
		return nil
	}
	out := make([]Vec3, segments+1)
	for i := range out {
		out[i] = curvePoint(points, float64(i)/float64(segments))
	}
	return out
}

// curvePoint evaluates the open spline at t in [0, 1]. Missing neighbours at
// the ends are mirrored.
func curvePoint(points []Vec3, t float64) Vec3 {
	l := len(points)
	if l == 1 {
		return points[0]
	}

	p := float64(l-1) * t
	idx := int(math.Floor(p))
	weight := p - float64(idx)
	if idx >= l-1 {
		idx = l - 2
		weight = 1
	}

	p1, p2 := points[idx], points[idx+1]

	var p0, p3 Vec3
	if idx > 0 {
		p0 = points[idx-1]
	} else {
		p0 = p1.Sub(p2).Add(p1)
	}
	if idx+2 < l {
		p3 = points[idx+2]
	} else {
		p3 = p2.Sub(p1).Add(p2)
	}

	// Centripetal parameterisation: knot spacing is the square root of the
	// chord length.
	dt0 := math.Pow(p0.DistSq(p1), 0.25)
	dt1 := math.Pow(p1.DistSq(p2), 0.25)
	dt2 := math.Pow(p2.DistSq(p3), 0.25)
	if dt1 < 1e-4 {
		dt1 = 1
	}
	if dt0 < 1e-4 {
		dt0 = dt1
	}
	if dt2 < 1e-4 {
		dt2 = dt1
	}

	return Vec3{
		X: nonuniform(p0.X, p1.X, p2.X, p3.X, dt0, dt1, dt2).at(weight),
		Y: nonuniform(p0.Y, p1.Y, p2.Y, p3.Y, dt0, dt1, dt2).at(weight),
		Z: nonuniform(p0.Z, p1.Z, p2.Z, p3.Z, dt0, dt1, dt2).at(weight),
	}
}

// cubic holds the coefficients of c0 + c1 t + c2 t^2 + c3 t^3.
type cubic struct {
	c0, c1, c2, c3 float64
}

func (c cubic) at(t float64) float64 {
	t2 := t * t
	return c.c0 + c.c1*t + c.c2*t2 + c.c3*t2*t
}

// nonuniform builds the Hermite segment from x1 to x2 with tangents derived
// from non-uniform knot spacing, rescaled to the [0, 1] parameter range.
func nonuniform(x0, x1, x2, x3, dt0, dt1, dt2 float64) cubic {
	t1 := (x1-x0)/dt0 - (x2-x0)/(dt0+dt1) + (x2-x1)/dt1
	t2 := (x2-x1)/dt1 - (x3-x1)/(dt1+dt2) + (x3-x2)/dt2
	t1 *= dt1
	t2 *= dt1
	return cubic{
		c0: x1,
		c1: t1,
		c2: -3*x1 + 3*x2 - 2*t1 - t2,
		c3: 2*x1 - 2*x2 + t1 + t2,
	}
}
