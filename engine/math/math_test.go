package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, Clamp(5, 0, 10))
	assert.Equal(t, 0, Clamp(-3, 0, 10))
	assert.Equal(t, 10, Clamp(42, 0, 10))
	assert.Equal(t, float32(1.5), Clamp(float32(1.5), 1.0, 2.0))
}

func TestMinMax(t *testing.T) {
	assert.Equal(t, 2, Min(2, 7))
	assert.Equal(t, 7, Max(2, 7))
	assert.Equal(t, uint32(3), Min(uint32(3), 3))
}

func TestCeilDiv(t *testing.T) {
	assert.Equal(t, uint32(1), CeilDiv(uint32(1), 64))
	assert.Equal(t, uint32(1), CeilDiv(uint32(64), 64))
	assert.Equal(t, uint32(2), CeilDiv(uint32(65), 64))
	assert.Equal(t, uint32(0), CeilDiv(uint32(0), 64))
	assert.Equal(t, uint32(3), CeilDiv(uint32(20), 8))
}

func TestMat4IdentityMul(t *testing.T) {
	id := NewMat4Identity()
	m := NewMat4Translation(Vec3{X: 1, Y: 2, Z: 3})
	assert.Equal(t, m, id.Mul(m))
	assert.Equal(t, m, m.Mul(id))
}

func TestFrustumContainsSphere(t *testing.T) {
	eye := Vec3{Z: 10}
	vp := NewMat4Perspective(1.0472, 1, 0.1, 100).
		Mul(NewMat4LookAt(eye, Vec3{}, Vec3{Y: 1}))
	f := ExtractFrustum(vp)

	// The look-at target sits inside the frustum.
	assert.True(t, f.ContainsSphere(Vec3{}, 1))

	// Far behind the camera.
	assert.False(t, f.ContainsSphere(Vec3{Z: 200}, 1))

	// Way off to the side.
	assert.False(t, f.ContainsSphere(Vec3{X: 500}, 1))

	// A sphere centered just behind the near plane still intersects.
	assert.True(t, f.ContainsSphere(Vec3{Z: 12}, 5))
}

func TestExtractFrustumPlanesNormalized(t *testing.T) {
	vp := NewMat4Perspective(1.2, 16.0/9.0, 0.5, 50).
		Mul(NewMat4LookAt(Vec3{X: 3, Y: 4, Z: 5}, Vec3{}, Vec3{Y: 1}))
	f := ExtractFrustum(vp)
	for i, p := range f {
		length := p.X*p.X + p.Y*p.Y + p.Z*p.Z
		assert.InDelta(t, 1.0, length, 1e-4, "plane %d", i)
	}
}
