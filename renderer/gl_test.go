package renderer

import (
	"io"
	"os"
	"runtime"
	"testing"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/asyncgl/glfwcontext"
	"github.com/richinsley/asyncgl/logger"
	"github.com/richinsley/asyncgl/options"
	"github.com/richinsley/asyncgl/shader"
	"github.com/richinsley/asyncgl/thread"
)

// GLFW must be driven from the main thread, so the tests run beside the
// main thread executor.
func TestMain(m *testing.M) {
	code := 0
	thread.Run(func() { code = m.Run() })
	os.Exit(code)
}

type fixedCamera mgl32.Mat4

func (c fixedCamera) View() mgl32.Mat4 { return mgl32.Mat4(c) }

// hiddenContext makes a hidden GL 4.1 core window current on the calling
// goroutine's thread. The test is skipped without a display or driver.
func hiddenContext(t *testing.T, width, height int) *glfwcontext.Context {
	t.Helper()
	log := logger.NewWriter(io.Discard)
	if err := thread.CallErr(func() error { return glfwcontext.InitGraphics(log) }); err != nil {
		t.Skipf("no display: %v", err)
	}
	var c *glfwcontext.Context
	err := thread.CallErr(func() (err error) {
		c, err = glfwcontext.New(glfwcontext.WindowConfig{Width: width, Height: height, Title: "renderer test"})
		return err
	})
	if err != nil {
		thread.Call(func() { glfwcontext.TerminateGraphics(log) })
		t.Skipf("no OpenGL 4.1 core context: %v", err)
	}
	t.Cleanup(func() {
		thread.Call(func() {
			c.Destroy()
			glfwcontext.TerminateGraphics(log)
		})
	})

	runtime.LockOSThread()
	c.MakeCurrent()
	t.Cleanup(func() {
		c.DetachCurrent()
		runtime.UnlockOSThread()
	})
	if err := gl.Init(); err != nil {
		t.Skipf("gl init: %v", err)
	}
	return c
}

func pixelAt(pixels []byte, width, x, y int) [4]byte {
	i := (y*width + x) * 4
	return [4]byte{pixels[i], pixels[i+1], pixels[i+2], pixels[i+3]}
}

func TestRendererPipeline(t *testing.T) {
	c := hiddenContext(t, 64, 64)

	opts := options.Default()
	opts.Resources = "../res"
	opts.ShaderDir = t.TempDir()
	opts.Samples = 4
	r := NewRenderer(&opts, fixedCamera(mgl32.Translate3D(0, 0, -2.5)), logger.NewWriter(io.Discard))
	width, height := c.GetFramebufferSize()
	if err := r.Initialize(width, height); err != nil {
		t.Fatal(err)
	}
	defer r.Shutdown()

	// subtests would run on other threads, where the context is not current
	checkFrame(t, r, width, height)
	checkResize(t, r, width, height)
	checkReload(t, r, opts.ShaderDir)
}

func checkFrame(t *testing.T, r *Renderer, width, height int) {
	t.Helper()
	r.Frame()
	if e := gl.GetError(); e != gl.NO_ERROR {
		t.Fatalf("GL error 0x%x after frame", e)
	}
	f := r.ReadPresented(7)
	if f.Width != width || f.Height != height || f.PTS != 7 || len(f.Pixels) != width*height*4 {
		t.Fatalf("unexpected frame %dx%d pts=%d len=%d", f.Width, f.Height, f.PTS, len(f.Pixels))
	}
	bg := [4]byte{51, 51, 51, 255}
	if got := pixelAt(f.Pixels, width, 0, 0); got != bg {
		t.Errorf("corner %v, want the clear colour %v", got, bg)
	}
	if got := pixelAt(f.Pixels, width, width/2, height/2); got == bg {
		t.Error("the model was not presented in the middle of the window")
	}
	if r.FrameBuffer().Levels() < 2 {
		t.Errorf("resolved texture has %d levels", r.FrameBuffer().Levels())
	}
}

func checkResize(t *testing.T, r *Renderer, width, height int) {
	t.Helper()
	fb := r.FrameBuffer()
	if err := r.Resize(width, height); err != nil {
		t.Fatal(err)
	}
	if r.FrameBuffer() != fb {
		t.Error("framebuffer recreated for an unchanged size")
	}
	if err := r.Resize(0, 0); err != nil || r.FrameBuffer() != fb {
		t.Errorf("minimized resize changed the framebuffer: %v", err)
	}
	if err := r.Resize(width/2, height/2); err != nil {
		t.Fatal(err)
	}
	if w, h := r.FrameBuffer().Size(); w != width/2 || h != height/2 {
		t.Errorf("framebuffer %dx%d, want %dx%d", w, h, width/2, height/2)
	}
	r.Frame()
	if e := gl.GetError(); e != gl.NO_ERROR {
		t.Errorf("GL error 0x%x after resize", e)
	}
}

func checkReload(t *testing.T, r *Renderer, dir string) {
	t.Helper()
	broken := shader.Path(dir, shader.PhongLighting, shader.Fragment)
	if err := os.WriteFile(broken, []byte("#version 410 core\nvoid main() { nope }\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	id := r.phong.ID()
	if err := r.ReloadProgram(shader.PhongLighting); err == nil {
		t.Fatal("broken fragment shader built")
	}
	if r.phong.ID() != id {
		t.Error("failed reload replaced the program")
	}
	if v, ok := r.phong.Value("material_shininess"); !ok || v != materialShininess {
		t.Errorf("material_shininess = %v, %v after failed reload", v, ok)
	}

	if err := os.Remove(broken); err != nil {
		t.Fatal(err)
	}
	if err := r.ReloadProgram(shader.PhongLighting); err != nil {
		t.Fatal(err)
	}
	loc := gl.GetUniformLocation(r.phong.ID(), gl.Str("material_shininess\x00"))
	var got float32
	gl.GetUniformfv(r.phong.ID(), loc, &got)
	if got != materialShininess {
		t.Errorf("reloaded program has material_shininess %v, want %v", got, materialShininess)
	}
	r.Frame()
	if e := gl.GetError(); e != gl.NO_ERROR {
		t.Errorf("GL error 0x%x after reload", e)
	}

	if err := r.ReloadProgram("unknown"); err == nil {
		t.Error("unknown program reloaded")
	}
}
