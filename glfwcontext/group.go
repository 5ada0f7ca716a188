package glfwcontext

import (
	"errors"
	"sync"

	"github.com/richinsley/asyncgl/logger"
)

const offscreenTitle = "Async Rendering Offscreen"

// ErrNoWindow is returned when the offscreen window is requested before
// the visible window it shares objects with exists.
var ErrNoWindow = errors.New("visible window does not exist")

// WindowGroup is the pair of windows shared by the fast and the slow
// client. The offscreen window is hidden and shares GL objects with the
// visible one.
type WindowGroup struct {
	mu        sync.Mutex
	window    *Context
	offscreen *Context
}

func NewWindowGroup() *WindowGroup { return &WindowGroup{} }

func (g *WindowGroup) Window() *Context {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.window
}

func (g *WindowGroup) Offscreen() *Context {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.offscreen
}

// InitWindow creates the visible window unless it exists. Must run on the
// main thread.
func (g *WindowGroup) InitWindow(conf WindowConfig, h InputHandler, log *logger.Logger) (*Context, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.window != nil {
		return g.window, nil
	}
	conf.Visible = true
	conf.Share = nil
	win, err := New(conf)
	if err != nil {
		log.Error().Err(err).Msg("Initialize fast client window failed.")
		return nil, err
	}
	if h != nil {
		win.SetInputHandler(h)
	}
	log.Info().Msg("Initialize fast client window succeed.")
	g.window = win
	return win, nil
}

// InitOffscreen creates the hidden window sharing objects with the visible
// one. Must run on the main thread.
func (g *WindowGroup) InitOffscreen(conf WindowConfig, log *logger.Logger) (*Context, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.window == nil {
		return nil, ErrNoWindow
	}
	if g.offscreen != nil {
		return g.offscreen, nil
	}
	conf.Visible = false
	conf.Share = g.window
	conf.Title = offscreenTitle
	win, err := New(conf)
	if err != nil {
		log.Error().Err(err).Msg("Initialize slow client window failed.")
		return nil, err
	}
	log.Info().Msg("Initialize slow client window succeed.")
	g.offscreen = win
	return win, nil
}

// Destroy releases both windows, offscreen first. Must run on the main
// thread.
func (g *WindowGroup) Destroy() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.offscreen != nil {
		g.offscreen.Destroy()
		g.offscreen = nil
	}
	if g.window != nil {
		g.window.Destroy()
		g.window = nil
	}
}
