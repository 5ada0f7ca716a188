package graphics

// Context defines the interface for an OpenGL context bound to a window.
type Context interface {
	MakeCurrent()
	DetachCurrent()
	ShouldClose() bool
	SetShouldClose(bool)
	SwapBuffers()
	GetFramebufferSize() (int, int)
	GetSize() (int, int)
	Time() float64
}
