// Package trackball implements a virtual trackball camera.
//
// Mouse positions are given in normalized device coordinates (-1..1 on
// both axes). The manipulator keeps a view transform that orbits around a
// pivot placed at the current dolly distance in front of the eye.
package trackball

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const defaultRadius = 1.0

type Manipulator struct {
	matrix mgl32.Mat4
	radius float32
	dolly  float32
}

func New() *Manipulator {
	return &Manipulator{matrix: mgl32.Ident4(), radius: defaultRadius}
}

// Reset drops all accumulated rotation, translation and dolly.
func (m *Manipulator) Reset() {
	m.matrix = mgl32.Ident4()
	m.dolly = 0
}

// TransformMatrix returns the current view matrix.
func (m *Manipulator) TransformMatrix() mgl32.Mat4 { return m.matrix }

// DollyDistance is the signed eye-space z of the rotation pivot.
func (m *Manipulator) DollyDistance() float32 { return m.dolly }

func (m *Manipulator) Radius() float32 { return m.radius }

// Rotation rotates the view by dragging from (fx, fy) to (tx, ty).
func (m *Manipulator) Rotation(fx, fy, tx, ty float32) {
	start := mgl32.Vec3{fx, fy, m.projectToSphere(fx, fy)}
	end := mgl32.Vec3{tx, ty, m.projectToSphere(tx, ty)}

	axis := start.Cross(end)
	if axis.Len() <= 1e-7 {
		return
	}
	t := mgl32.Clamp(end.Sub(start).Len()/(2*m.radius), -1, 1)
	angle := 2 * float32(math.Asin(float64(t)))

	rot := mgl32.HomogRotate3D(angle, axis.Normalize())
	pivot := mgl32.Translate3D(0, 0, m.dolly)
	pivotInv := mgl32.Translate3D(0, 0, -m.dolly)
	m.matrix = pivot.Mul4(rot).Mul4(pivotInv).Mul4(m.matrix)
}

// Translation pans the view. The pan distance grows with the dolly
// distance so panning feels the same at any zoom.
func (m *Manipulator) Translation(x, y float32) {
	const nearDist = 1.0
	scale := nearDist + abs(m.dolly)
	m.matrix = mgl32.Translate3D(x*scale, y*scale, 0).Mul4(m.matrix)
}

// Dolly moves the eye along its view axis. Positive values move away
// from the pivot.
func (m *Manipulator) Dolly(y float32) {
	m.dolly -= y
	m.matrix = mgl32.Translate3D(0, 0, -y).Mul4(m.matrix)
}

// projectToSphere maps a point onto the trackball sphere, or onto a
// hyperbolic sheet outside of radius/sqrt(2).
func (m *Manipulator) projectToSphere(x, y float32) float32 {
	lenSqr := x*x + y*y
	l := float32(math.Sqrt(float64(lenSqr)))
	if l < m.radius/math.Sqrt2 {
		return float32(math.Sqrt(float64(m.radius*m.radius - lenSqr)))
	}
	return m.radius * m.radius / (2 * l)
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
