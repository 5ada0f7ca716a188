package glfwcontext

import (
	"fmt"
	"sync"

	glfw "github.com/go-gl/glfw/v3.3/glfw"
	"github.com/richinsley/asyncgl/logger"
	"github.com/richinsley/asyncgl/thread"
)

// Mouse buttons as reported to InputHandler.
const (
	MouseLeft   = int(glfw.MouseButtonLeft)
	MouseRight  = int(glfw.MouseButtonRight)
	MouseMiddle = int(glfw.MouseButtonMiddle)
)

// InputHandler receives window events. All methods run on the main
// thread while events are polled.
type InputHandler interface {
	MouseButton(button int, pressed bool, x, y float64)
	CursorMoved(x, y float64)
	WindowResized(width, height int)
	FramebufferResized(width, height int)
}

// Context wraps a GLFW window and its OpenGL context. Methods that GLFW
// restricts to the main thread are dispatched there, so they may be
// called from the render goroutines but not from inside a callback.
type Context struct {
	window *glfw.Window

	mu           sync.Mutex
	keyCallbacks map[glfw.Key]func()
}

// WindowConfig describes a window to create.
type WindowConfig struct {
	Width, Height int
	Title         string
	Visible       bool
	// Share is the context whose objects the new context shares.
	Share *Context
}

// New creates a window with a GL 4.1 core context. Must run on the main
// thread.
func New(conf WindowConfig) (*Context, error) {
	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	if conf.Visible {
		glfw.WindowHint(glfw.Resizable, glfw.True)
	} else {
		glfw.WindowHint(glfw.Visible, glfw.False)
	}

	var share *glfw.Window
	if conf.Share != nil {
		share = conf.Share.window
	}
	win, err := glfw.CreateWindow(conf.Width, conf.Height, conf.Title, nil, share)
	if err != nil {
		return nil, err
	}

	c := &Context{
		window:       win,
		keyCallbacks: make(map[glfw.Key]func()),
	}
	win.SetKeyCallback(c.glfwKeyCallback)
	return c, nil
}

// SetInputHandler routes mouse and size events of the window to h. Must
// run on the main thread.
func (c *Context) SetInputHandler(h InputHandler) {
	c.window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		if action == glfw.Repeat {
			return
		}
		x, y := w.GetCursorPos()
		h.MouseButton(int(button), action == glfw.Press, x, y)
	})
	c.window.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		h.CursorMoved(x, y)
	})
	c.window.SetSizeCallback(func(_ *glfw.Window, width, height int) {
		h.WindowResized(width, height)
	})
	c.window.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		h.FramebufferResized(width, height)
	})
}

// RegisterKeyCallback allows the main application to register a function to be
// called when a specific key is pressed.
func (c *Context) RegisterKeyCallback(key glfw.Key, f func()) {
	c.mu.Lock()
	c.keyCallbacks[key] = f
	c.mu.Unlock()
}

func (c *Context) glfwKeyCallback(w *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	if action != glfw.Press {
		return
	}
	if key == glfw.KeyEscape {
		w.SetShouldClose(true)
	}
	c.mu.Lock()
	callback, ok := c.keyCallbacks[key]
	c.mu.Unlock()
	if ok {
		callback()
	}
}

// MakeCurrent makes the context current on the calling thread. The caller
// must have locked its goroutine to the OS thread.
func (c *Context) MakeCurrent() { c.window.MakeContextCurrent() }

// DetachCurrent makes no context current on the calling thread.
func (c *Context) DetachCurrent() { glfw.DetachCurrentContext() }

func (c *Context) ShouldClose() bool { return c.window.ShouldClose() }

func (c *Context) SetShouldClose(v bool) { c.window.SetShouldClose(v) }

func (c *Context) SwapBuffers() { c.window.SwapBuffers() }

func (c *Context) GetFramebufferSize() (width, height int) {
	thread.Call(func() { width, height = c.window.GetFramebufferSize() })
	return
}

func (c *Context) GetSize() (width, height int) {
	thread.Call(func() { width, height = c.window.GetSize() })
	return
}

func (c *Context) Time() float64 { return glfw.GetTime() }

// Destroy releases the window. Must run on the main thread.
func (c *Context) Destroy() { c.window.Destroy() }

// Window returns the underlying *glfw.Window.
func (c *Context) Window() *glfw.Window { return c.window }

// PollEvents processes pending window events on the main thread.
func PollEvents() { thread.Call(glfw.PollEvents) }

// InitGraphics initializes GLFW. Must be called from the main thread.
func InitGraphics(log *logger.Logger) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to init GLFW: %w", err)
	}
	major, minor, rev := glfw.GetVersion()
	log.Info().Msgf("GLFW %d.%d.%d initialized", major, minor, rev)
	return nil
}

// TerminateGraphics shuts GLFW down. Must be called from the main thread.
func TerminateGraphics(log *logger.Logger) {
	glfw.Terminate()
	log.Info().Msg("GLFW terminated")
}
