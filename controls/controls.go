// Package controls maps mouse input onto the trackball camera.
package controls

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/asyncgl/trackball"
)

type Button int

const (
	ButtonLeft Button = iota
	ButtonRight
	ButtonMiddle
)

// Mouse keeps the button state and the last normalized cursor position.
// Event methods are called from the window thread, View from the render
// thread.
type Mouse struct {
	mu sync.Mutex

	manip *trackball.Manipulator
	sens  float32

	width, height int

	lbDown, mbDown, rbDown bool
	initX, initY           float32
}

func New(manip *trackball.Manipulator, dollySens float32, width, height int) *Mouse {
	return &Mouse{manip: manip, sens: dollySens, width: width, height: height}
}

// Normalize maps window coordinates (origin top-left) to -1..1 with y up.
func Normalize(x, y float64, width, height int) (float32, float32) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	nx := 2 * float32(x-float64(width/2)) / float32(width)
	ny := 2 * float32(float64(height)-y-float64(height/2)) / float32(height)
	return nx, ny
}

// Resize records the new window size used for normalization.
func (m *Mouse) Resize(width, height int) {
	m.mu.Lock()
	m.width, m.height = width, height
	m.mu.Unlock()
}

func (m *Mouse) MouseButton(b Button, pressed bool, x, y float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch b {
	case ButtonLeft:
		m.lbDown = pressed
	case ButtonMiddle:
		m.mbDown = pressed
	case ButtonRight:
		m.rbDown = pressed
	}
	m.initX, m.initY = Normalize(x, y, m.width, m.height)
}

func (m *Mouse) CursorMoved(x, y float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	nx, ny := Normalize(x, y, m.width, m.height)

	if m.lbDown {
		m.manip.Rotation(m.initX, m.initY, nx, ny)
	}
	if m.rbDown {
		m.manip.Dolly(m.sens * (ny - m.initY))
	}
	if m.mbDown {
		m.manip.Translation(nx-m.initX, ny-m.initY)
	}
	m.initX, m.initY = nx, ny
}

// Reset puts the camera back at the given dolly distance.
func (m *Mouse) Reset(dolly float32) {
	m.mu.Lock()
	m.manip.Reset()
	m.manip.Dolly(dolly)
	m.mu.Unlock()
}

// View returns a snapshot of the camera transform.
func (m *Mouse) View() mgl32.Mat4 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.manip.TransformMatrix()
}

func (m *Mouse) Pressed(b Button) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch b {
	case ButtonLeft:
		return m.lbDown
	case ButtonMiddle:
		return m.mbDown
	case ButtonRight:
		return m.rbDown
	}
	return false
}
