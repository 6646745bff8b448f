package math

import m "math"

// Frustum holds six clip planes in (A, B, C, D) form, Ax+By+Cz+D >= 0 inside.
// Plane order: left, right, bottom, top, near, far. This is the exact layout
// the GPU culling pass consumes as its uniform block.
type Frustum [6]Vec4

// ExtractFrustum derives the six planes from a row-major view-projection
// matrix (Gribb/Hartmann method).
func ExtractFrustum(vp Mat4) Frustum {
	row := func(r int) Vec4 {
		return Vec4{vp[r*4+0], vp[r*4+1], vp[r*4+2], vp[r*4+3]}
	}
	add := func(a, b Vec4) Vec4 {
		return Vec4{a.X + b.X, a.Y + b.Y, a.Z + b.Z, a.W + b.W}
	}
	sub := func(a, b Vec4) Vec4 {
		return Vec4{a.X - b.X, a.Y - b.Y, a.Z - b.Z, a.W - b.W}
	}

	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)
	f := Frustum{
		add(r3, r0), // left
		sub(r3, r0), // right
		add(r3, r1), // bottom
		sub(r3, r1), // top
		add(r3, r2), // near
		sub(r3, r2), // far
	}
	for i := range f {
		f[i] = normalizePlane(f[i])
	}
	return f
}

func normalizePlane(p Vec4) Vec4 {
	l := float32(m.Sqrt(float64(p.X*p.X + p.Y*p.Y + p.Z*p.Z)))
	if l == 0 {
		return p
	}
	return Vec4{p.X / l, p.Y / l, p.Z / l, p.W / l}
}

// ContainsSphere reports whether a bounding sphere intersects the frustum:
// the same signed-distance plane test the culling shader runs per instance.
func (f Frustum) ContainsSphere(center Vec3, radius float32) bool {
	for _, p := range f {
		if p.X*center.X+p.Y*center.Y+p.Z*center.Z+p.W < -radius {
			return false
		}
	}
	return true
}
