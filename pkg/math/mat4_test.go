package math

import (
	"math"
	"testing"
)

func TestIdentity(t *testing.T) {
	m := Identity()
	// Diagonal should be 1
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	// Off-diagonal should be 0
	if m[1] != 0 || m[4] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
}

func TestMulIdentity(t *testing.T) {
	m := Translate(1, 2, 3)
	result := m.Mul(Identity())

	for i := 0; i < 16; i++ {
		if result[i] != m[i] {
			t.Errorf("M * I should equal M, element %d: got %f, want %f", i, result[i], m[i])
		}
	}
}

func TestTransformPoint(t *testing.T) {
	m := Translate(10, 20, 30)
	result := m.TransformPoint(Vec3{1, 2, 3})

	expected := Vec3{11, 22, 33}
	if result != expected {
		t.Errorf("TransformPoint: got %v, want %v", result, expected)
	}
}

func TestTransformPointScaleTranslate(t *testing.T) {
	// Scale first, then translate
	m := Translate(1, 1, 1).Mul(Scale(2, 2, 2))
	result := m.TransformPoint(Vec3{1, 2, 3})

	expected := Vec3{3, 5, 7}
	if result != expected {
		t.Errorf("TransformPoint: got %v, want %v", result, expected)
	}
}

func TestRotateY90(t *testing.T) {
	m := RotateY(float32(math.Pi / 2))
	result := m.TransformPoint(Vec3{1, 0, 0})

	// After 90 degree Y rotation, (1,0,0) should become approximately (0,0,-1)
	if abs(result.X) > 0.001 || abs(result.Y) > 0.001 || abs(result.Z+1) > 0.001 {
		t.Errorf("RotateY 90: got %v, want (0, 0, -1)", result)
	}
}

func TestRotateXYZOrder(t *testing.T) {
	// X first moves +Y to +Z, then Z rotation leaves it alone.
	m := RotateXYZ(float32(math.Pi/2), 0, float32(math.Pi/2))
	result := m.TransformPoint(Vec3{0, 1, 0})

	if abs(result.X) > 0.001 || abs(result.Y) > 0.001 || abs(result.Z-1) > 0.001 {
		t.Errorf("RotateXYZ: got %v, want (0, 0, 1)", result)
	}
}

func TestTransposeInvertsRotation(t *testing.T) {
	r := RotateXYZ(0.3, 0.7, 1.1)
	p := Vec3{1, 2, 3}
	back := r.Transpose().TransformPoint(r.TransformPoint(p))

	if back.Distance(p) > 0.001 {
		t.Errorf("R^T * R * p = %v, want %v", back, p)
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
