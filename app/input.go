package app

import (
	"sync"

	"github.com/richinsley/asyncgl/controls"
)

// pendingSize hands the latest framebuffer size from the event callbacks,
// which run on the main thread without a current context, to the render
// thread.
type pendingSize struct {
	mu            sync.Mutex
	width, height int
	set           bool
}

func (p *pendingSize) Store(width, height int) {
	p.mu.Lock()
	p.width, p.height, p.set = width, height, true
	p.mu.Unlock()
}

// Take returns the stored size once.
func (p *pendingSize) Take() (width, height int, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.set {
		return 0, 0, false
	}
	p.set = false
	return p.width, p.height, true
}

// inputHandler routes window events to the camera controls.
type inputHandler struct {
	mouse  *controls.Mouse
	resize *pendingSize
}

func (h *inputHandler) MouseButton(button int, pressed bool, x, y float64) {
	h.mouse.MouseButton(controls.Button(button), pressed, x, y)
}

func (h *inputHandler) CursorMoved(x, y float64) { h.mouse.CursorMoved(x, y) }

func (h *inputHandler) WindowResized(width, height int) { h.mouse.Resize(width, height) }

func (h *inputHandler) FramebufferResized(width, height int) { h.resize.Store(width, height) }
