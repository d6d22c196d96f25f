package core

import (
	"math"
	"testing"
)

func TestVec3_AngleBetween(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Vec3
		expected float64
	}{
		{
			name:     "Identical directions",
			a:        NewVec3(0, 0, 1),
			b:        NewVec3(0, 0, 1),
			expected: 0,
		},
		{
			name:     "Orthogonal directions",
			a:        NewVec3(1, 0, 0),
			b:        NewVec3(0, 1, 0),
			expected: math.Pi / 2,
		},
		{
			name:     "Opposite directions",
			a:        NewVec3(0, 0, 1),
			b:        NewVec3(0, 0, -1),
			expected: math.Pi,
		},
		{
			name:     "Small deflection",
			a:        NewVec3(0, 0, 1),
			b:        NewVec3(1e-6, 0, 1).Normalize(),
			expected: 1e-6,
		},
		{
			name:     "Magnitude independent",
			a:        NewVec3(3, 0, 0),
			b:        NewVec3(0, 0, 7),
			expected: math.Pi / 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.a.AngleBetween(tt.b)

			const tolerance = 1e-12
			if math.Abs(result-tt.expected) > tolerance {
				t.Errorf("Expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestVec3_CrossOrthogonality(t *testing.T) {
	a := NewVec3(1, 2, 3)
	b := NewVec3(-4, 0.5, 2)
	c := a.Cross(b)

	if math.Abs(c.Dot(a)) > 1e-12 || math.Abs(c.Dot(b)) > 1e-12 {
		t.Errorf("Cross product %v is not orthogonal to its factors", c)
	}
}

func TestVec3_NormalizeZero(t *testing.T) {
	zero := NewVec3(0, 0, 0)
	if got := zero.Normalize(); got != zero {
		t.Errorf("Expected zero vector to normalize to itself, got %v", got)
	}
}

func TestRay_At(t *testing.T) {
	ray := NewRay(NewVec3(0, 0, 100), NewVec3(0, 0, -2))

	// Direction is normalized at construction
	if math.Abs(ray.Direction.Length()-1.0) > 1e-12 {
		t.Errorf("Expected unit direction, got length %v", ray.Direction.Length())
	}

	got := ray.At(50)
	want := NewVec3(0, 0, 50)
	if got.Subtract(want).Length() > 1e-12 {
		t.Errorf("Expected %v at t=50, got %v", want, got)
	}
}
