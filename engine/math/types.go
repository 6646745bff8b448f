package math

import m "math"

type Vec3 struct {
	X, Y, Z float32
}

type Vec4 struct {
	X, Y, Z, W float32
}

// Mat4 is a 4x4 matrix stored row-major: element (row r, col c) lives at
// index r*4+c. This is also the layout of the 64-byte transform block in the
// GPU-driven instance stream, so a Mat4 can be written to it verbatim.
type Mat4 [16]float32

func NewMat4Identity() Mat4 {
	var out Mat4
	out[0] = 1
	out[5] = 1
	out[10] = 1
	out[15] = 1
	return out
}

// Mul returns a * b.
func (a Mat4) Mul(b Mat4) Mat4 {
	var out Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[r*4+k] * b[k*4+c]
			}
			out[r*4+c] = sum
		}
	}
	return out
}

// NewMat4Translation returns a row-major translation matrix.
func NewMat4Translation(v Vec3) Mat4 {
	out := NewMat4Identity()
	out[3] = v.X
	out[7] = v.Y
	out[11] = v.Z
	return out
}

// NewMat4Perspective builds a right-handed perspective projection.
// fovRadians is the vertical field of view.
func NewMat4Perspective(fovRadians, aspect, near, far float32) Mat4 {
	f := float32(1.0 / m.Tan(float64(fovRadians)*0.5))
	var out Mat4
	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = (near * far) / (near - far)
	out[14] = -1
	return out
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) Dot(o Vec3) float32 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) Normalized() Vec3 {
	l := float32(m.Sqrt(float64(v.Dot(v))))
	if l == 0 {
		return v
	}
	return Vec3{v.X / l, v.Y / l, v.Z / l}
}

// NewMat4LookAt builds a right-handed view matrix.
func NewMat4LookAt(eye, center, up Vec3) Mat4 {
	f := center.Sub(eye).Normalized()
	s := f.Cross(up).Normalized()
	u := s.Cross(f)

	out := NewMat4Identity()
	out[0], out[1], out[2] = s.X, s.Y, s.Z
	out[4], out[5], out[6] = u.X, u.Y, u.Z
	out[8], out[9], out[10] = -f.X, -f.Y, -f.Z
	out[3] = -s.Dot(eye)
	out[7] = -u.Dot(eye)
	out[11] = f.Dot(eye)
	return out
}
