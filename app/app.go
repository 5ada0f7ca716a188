// Package app runs the two render clients. The fast client owns the
// visible window and renders every frame. The slow client owns a hidden
// window whose context shares objects with the visible one.
package app

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/richinsley/asyncgl/controls"
	"github.com/richinsley/asyncgl/glfwcontext"
	"github.com/richinsley/asyncgl/graphics"
	"github.com/richinsley/asyncgl/logger"
	"github.com/richinsley/asyncgl/metrics"
	"github.com/richinsley/asyncgl/options"
	"github.com/richinsley/asyncgl/recorder"
	"github.com/richinsley/asyncgl/renderer"
	"github.com/richinsley/asyncgl/shader"
	"github.com/richinsley/asyncgl/thread"
	"github.com/richinsley/asyncgl/trackball"
	"golang.org/x/sync/errgroup"
)

const (
	offscreenRetry = 10 * time.Millisecond
	statsEvery     = 600
)

var (
	glInitOnce sync.Once
	glInitErr  error
)

func initGL() error {
	glInitOnce.Do(func() { glInitErr = gl.Init() })
	return glInitErr
}

type App struct {
	opts    *options.Options
	log     *logger.Logger
	windows *glfwcontext.WindowGroup
	mouse   *controls.Mouse
	metrics *metrics.Frame
	timer   *metrics.AccumTimer

	resize  pendingSize
	reloads chan string

	resetCamera atomic.Bool
	screenshot  atomic.Bool
	sizeWarned  bool

	// textureMu guards the shared texture once the slow client writes to it.
	textureMu sync.Mutex

	cancel context.CancelFunc
}

// frameRenderer is what a frame of the fast client drives.
type frameRenderer interface {
	Resize(width, height int) error
	ReloadProgram(name string) error
	Frame()
	ReadPresented(pts int64) *recorder.Frame
}

// frameSink takes presented frames, a *recorder.Recorder in practice.
type frameSink interface {
	Push(f *recorder.Frame) error
}

func New(opts *options.Options, log *logger.Logger) *App {
	mouse := controls.New(trackball.New(), opts.DollySens, opts.Width, opts.Height)
	mouse.Reset(opts.InitialDolly)
	return &App{
		opts:    opts,
		log:     log,
		windows: glfwcontext.NewWindowGroup(),
		mouse:   mouse,
		metrics: metrics.NewFrame(),
		timer:   metrics.NewAccumTimer(),
		reloads: make(chan string, len(shader.Names())),
		cancel:  func() {},
	}
}

func (a *App) Metrics() *metrics.Frame { return a.metrics }

func (a *App) windowConfig() glfwcontext.WindowConfig {
	return glfwcontext.WindowConfig{Width: a.opts.Width, Height: a.opts.Height, Title: a.opts.Title}
}

func (a *App) handler() glfwcontext.InputHandler {
	return &inputHandler{mouse: a.mouse, resize: &a.resize}
}

// initWindow creates the visible window and its key bindings on the main
// thread.
func (a *App) initWindow() (*glfwcontext.Context, error) {
	var win *glfwcontext.Context
	err := thread.CallErr(func() (err error) {
		win, err = a.windows.InitWindow(a.windowConfig(), a.handler(), a.log)
		return err
	})
	if err != nil {
		return nil, err
	}
	win.RegisterKeyCallback(glfw.KeyR, func() { a.resetCamera.Store(true) })
	win.RegisterKeyCallback(glfw.KeyP, func() { a.screenshot.Store(true) })
	return win, nil
}

// Run initializes GLFW, creates both windows and runs the clients until
// the window is closed or ctx is cancelled. It must be called from the
// function passed to thread.Run.
func (a *App) Run(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)
	defer a.cancel()

	if err := thread.CallErr(func() error { return glfwcontext.InitGraphics(a.log) }); err != nil {
		return err
	}
	defer thread.Call(func() { glfwcontext.TerminateGraphics(a.log) })

	if _, err := a.initWindow(); err != nil {
		return err
	}
	defer thread.Call(a.windows.Destroy)
	if err := thread.CallErr(func() error {
		_, err := a.windows.InitOffscreen(a.windowConfig(), a.log)
		return err
	}); err != nil {
		return err
	}

	if a.opts.MetricsAddr != "" {
		srv := metrics.NewServer(a.opts.MetricsAddr, a.metrics.Registry, a.log.Component("metric"))
		l, err := srv.Listen()
		if err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		go srv.Serve(l)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	if a.opts.WatchShader && a.opts.ShaderDir != "" {
		w, err := shader.NewWatcher(a.opts.ShaderDir, 0, a.log.Component("shader"))
		if err != nil {
			a.log.Warn().Err(err).Msg("Shader hot reload disabled")
		} else {
			go w.Run(ctx)
			go a.forwardReloads(ctx, w.Changes())
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.FastClient(gctx) })
	g.Go(func() error { return a.SlowClient(gctx) })
	return g.Wait()
}

func (a *App) forwardReloads(ctx context.Context, changes <-chan string) {
	for name := range changes {
		select {
		case a.reloads <- name:
		case <-ctx.Done():
			return
		}
	}
}

// FastClient renders into the visible window until it is closed.
func (a *App) FastClient(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	// the slow client has nothing to do once the window is gone
	defer a.cancel()

	log := a.log.Component("fast")

	win := a.windows.Window()
	if win == nil {
		var err error
		if win, err = a.initWindow(); err != nil {
			return err
		}
	}

	win.MakeCurrent()
	defer win.DetachCurrent()
	if err := initGL(); err != nil {
		log.Error().Err(err).Msg("error initializing gl context")
		return fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	r := renderer.NewRenderer(a.opts, a.mouse, a.log.Component("render"))
	width, height := win.GetFramebufferSize()
	if err := r.Initialize(width, height); err != nil {
		return fmt.Errorf("failed to initialize renderer: %w", err)
	}
	defer r.Shutdown()
	a.mouse.Resize(win.GetSize())

	var sink frameSink
	if a.opts.Record != "" {
		rec, err := recorder.New(recorder.Config{
			Output:     a.opts.Record,
			Width:      width,
			Height:     height,
			FPS:        a.opts.RecordFPS,
			FFMPEGPath: a.opts.FFMPEGPath,
		}, a.log.Component("record"))
		if err != nil {
			return err
		}
		rec.OnDrop(a.metrics.Dropped.Inc)
		defer func() {
			if err := rec.Close(); err != nil {
				log.Error().Err(err).Msg("Recording failed")
			}
		}()
		sink = rec
	}

	log.Info().Msg("Render loop started")
	var pts int64
	renderLoop(ctx, win, func() {
		a.frame(r, sink, pts, log)
		pts++
	}, glfwcontext.PollEvents)
	log.Info().Int64("frames", pts).Msg("Render loop finished")
	return nil
}

// renderLoop runs step, presents and polls events until the window wants
// to close or ctx is done.
func renderLoop(ctx context.Context, win graphics.Context, step func(), poll func()) {
	for !win.ShouldClose() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		step()
		win.SwapBuffers()
		poll()
	}
}

// frame applies the pending resize, shader reloads and camera reset, renders
// and then hands the presented image to the recorder and screenshot.
func (a *App) frame(r frameRenderer, rec frameSink, pts int64, log *logger.Logger) {
	if w, h, ok := a.resize.Take(); ok {
		if err := r.Resize(w, h); err != nil {
			log.Error().Err(err).Msg("Resize failed")
		}
		a.metrics.Resizes.Inc()
	}
	a.applyReloads(r, log)
	if a.resetCamera.Swap(false) {
		a.mouse.Reset(a.opts.InitialDolly)
	}

	a.textureMu.Lock()
	a.timer.Start()
	r.Frame()
	d := a.timer.Stop()
	a.textureMu.Unlock()
	a.metrics.ObserveFrame(d)

	if a.timer.Count() >= statsEvery {
		log.Debug().
			Dur("avg", a.timer.Average()).
			Dur("last", a.timer.Last()).
			Int("frames", a.timer.Count()).
			Msg("Frame time")
		a.timer.Reset()
	}

	shot := a.screenshot.Swap(false)
	if rec == nil && !shot {
		return
	}
	f := r.ReadPresented(pts)
	if rec != nil {
		err := rec.Push(f)
		switch {
		case errors.Is(err, recorder.ErrSizeMismatch):
			if !a.sizeWarned {
				log.Warn().Err(err).Msg("Window resized, frames are no longer recorded")
				a.sizeWarned = true
			}
		case err != nil:
			log.Warn().Err(err).Msg("Frame not recorded")
		}
	}
	if shot {
		go func() {
			path, err := recorder.SavePNG(a.opts.Screenshot, f, time.Now())
			if err != nil {
				log.Error().Err(err).Msg("Screenshot failed")
				return
			}
			log.Info().Str("path", path).Msg("Screenshot saved")
		}()
	}
}

func (a *App) applyReloads(r frameRenderer, log *logger.Logger) {
	for {
		select {
		case name := <-a.reloads:
			err := r.ReloadProgram(name)
			a.metrics.Reload(name, err)
			if err != nil {
				log.Error().Err(err).Str("program", name).Msg("Shader reload failed")
			} else {
				log.Info().Str("program", name).Msg("Shader reloaded")
			}
		default:
			return
		}
	}
}

// SlowClient waits for the offscreen window, makes its context current on
// its own thread and idles until ctx is done.
func (a *App) SlowClient(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	log := a.log.Component("slow")
	off, err := waitOffscreen(ctx, func() (graphics.Context, error) {
		var c *glfwcontext.Context
		err := thread.CallErr(func() (err error) {
			c, err = a.windows.InitOffscreen(a.windowConfig(), a.log)
			return err
		})
		return c, err
	}, offscreenRetry)
	if err != nil || off == nil {
		return err
	}
	idle(ctx, off, a.opts.SlowTick, &a.textureMu, log)
	return nil
}

// waitOffscreen retries init while the visible window does not exist yet.
// A nil context and nil error mean ctx ended first.
func waitOffscreen(ctx context.Context, init func() (graphics.Context, error), retry time.Duration) (graphics.Context, error) {
	for {
		c, err := init()
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, glfwcontext.ErrNoWindow) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(retry):
		}
	}
}

func idle(ctx context.Context, c graphics.Context, tick time.Duration, mu sync.Locker, log *logger.Logger) {
	c.MakeCurrent()
	defer c.DetachCurrent()

	if tick <= 0 {
		tick = time.Second
	}
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			mu.Lock()
			log.Debug().Msg("Slow client tick")
			mu.Unlock()
		}
	}
}
