package trackball

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

const eps = 1e-4

func near(a, b float32) bool { return mgl32.FloatEqualThreshold(a, b, eps) }

func TestNewIsIdentity(t *testing.T) {
	m := New()
	if m.TransformMatrix() != mgl32.Ident4() {
		t.Errorf("not identity: %v", m.TransformMatrix())
	}
	if m.Radius() != 1 {
		t.Errorf("wrong radius %v", m.Radius())
	}
}

func TestDolly(t *testing.T) {
	m := New()
	m.Dolly(2.5)
	if !near(m.DollyDistance(), -2.5) {
		t.Errorf("wrong dolly %v", m.DollyDistance())
	}
	p := m.TransformMatrix().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if !near(p.Z(), -2.5) || !near(p.X(), 0) || !near(p.Y(), 0) {
		t.Errorf("origin moved to %v", p)
	}

	m.Dolly(-1)
	if !near(m.DollyDistance(), -1.5) {
		t.Errorf("wrong dolly %v", m.DollyDistance())
	}
}

func TestRotationSamePointIsNoop(t *testing.T) {
	m := New()
	m.Dolly(2.5)
	before := m.TransformMatrix()
	m.Rotation(0.3, 0.2, 0.3, 0.2)
	if m.TransformMatrix() != before {
		t.Errorf("matrix changed: %v", m.TransformMatrix())
	}
}

func TestRotationAngle(t *testing.T) {
	m := New()
	// (0,0) -> (0.5,0) on the unit sphere is a 30 degree turn about +y
	m.Rotation(0, 0, 0.5, 0)
	p := m.TransformMatrix().Mul4x1(mgl32.Vec4{0, 0, 1, 1})
	want := mgl32.Vec3{0.5, 0, float32(math.Sqrt(3) / 2)}
	if !p.Vec3().ApproxEqualThreshold(want, eps) {
		t.Errorf("got %v, want %v", p.Vec3(), want)
	}
}

func TestRotationKeepsPivot(t *testing.T) {
	m := New()
	m.Dolly(2.5)
	m.Rotation(-0.2, 0.1, 0.4, -0.3)
	m.Rotation(0.6, 0.6, 0.9, 0.1)

	p := m.TransformMatrix().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if !p.Vec3().ApproxEqualThreshold(mgl32.Vec3{0, 0, -2.5}, eps) {
		t.Errorf("pivot moved to %v", p)
	}

	rot := m.TransformMatrix().Mat3()
	for i := 0; i < 3; i++ {
		if l := rot.Col(i).Len(); !near(l, 1) {
			t.Errorf("column %d is not unit length: %v", i, l)
		}
	}
}

func TestTranslationScalesWithDolly(t *testing.T) {
	tests := []struct {
		name  string
		dolly float32
		x, y  float32
		want  mgl32.Vec3
	}{
		{name: "no dolly", x: 0.1, y: -0.2, want: mgl32.Vec3{0.1, -0.2, 0}},
		{name: "dolly", dolly: 2.5, x: 0.1, y: 0, want: mgl32.Vec3{0.35, 0, -2.5}},
		{name: "negative dolly", dolly: -1, x: 0, y: 0.5, want: mgl32.Vec3{0, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			if tt.dolly != 0 {
				m.Dolly(tt.dolly)
			}
			m.Translation(tt.x, tt.y)
			p := m.TransformMatrix().Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3()
			if !p.ApproxEqualThreshold(tt.want, eps) {
				t.Errorf("got %v, want %v", p, tt.want)
			}
		})
	}
}

func TestProjectToSphere(t *testing.T) {
	m := New()
	tests := []struct {
		x, y, want float32
	}{
		{0, 0, 1},
		{0.6, 0, 0.8},
		{2, 0, 0.25},
		{0, -4, 0.125},
	}
	for _, tt := range tests {
		if got := m.projectToSphere(tt.x, tt.y); !near(got, tt.want) {
			t.Errorf("projectToSphere(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}

	// sphere and hyperbola meet at r/sqrt(2)
	edge := float32(1 / math.Sqrt2)
	inside := m.projectToSphere(edge-1e-4, 0)
	outside := m.projectToSphere(edge+1e-4, 0)
	if !mgl32.FloatEqualThreshold(inside, outside, 1e-3) {
		t.Errorf("discontinuity at the edge: %v vs %v", inside, outside)
	}
}

func TestReset(t *testing.T) {
	m := New()
	m.Dolly(3)
	m.Rotation(0, 0, 0.2, 0.2)
	m.Reset()
	if m.TransformMatrix() != mgl32.Ident4() || m.DollyDistance() != 0 {
		t.Errorf("reset left %v / %v", m.TransformMatrix(), m.DollyDistance())
	}
}
