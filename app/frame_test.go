package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/richinsley/asyncgl/controls"
	"github.com/richinsley/asyncgl/logger"
	"github.com/richinsley/asyncgl/options"
	"github.com/richinsley/asyncgl/recorder"
	"github.com/richinsley/asyncgl/shader"
)

type fakeRenderer struct {
	calls     []string
	width     int
	height    int
	reloadErr map[string]error
	onFrame   func()
}

var _ frameRenderer = (*fakeRenderer)(nil)

func newFakeRenderer() *fakeRenderer { return &fakeRenderer{width: 4, height: 2} }

func (r *fakeRenderer) Resize(width, height int) error {
	r.calls = append(r.calls, fmt.Sprintf("resize %dx%d", width, height))
	r.width, r.height = width, height
	return nil
}

func (r *fakeRenderer) ReloadProgram(name string) error {
	r.calls = append(r.calls, "reload "+name)
	return r.reloadErr[name]
}

func (r *fakeRenderer) Frame() {
	r.calls = append(r.calls, "frame")
	if r.onFrame != nil {
		r.onFrame()
	}
}

func (r *fakeRenderer) ReadPresented(pts int64) *recorder.Frame {
	r.calls = append(r.calls, fmt.Sprintf("read %d", pts))
	return &recorder.Frame{
		Pixels: make([]byte, r.width*r.height*4),
		Width:  r.width,
		Height: r.height,
		PTS:    pts,
	}
}

type fakeSink struct {
	frames []*recorder.Frame
	err    error
}

func (s *fakeSink) Push(f *recorder.Frame) error {
	s.frames = append(s.frames, f)
	return s.err
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	opts := options.Default()
	opts.Screenshot = t.TempDir()
	return New(&opts, logger.NewWriter(io.Discard))
}

func TestFrameOrder(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(a *App)
		record  bool
		shot    bool
		want    []string
	}{
		{
			name: "nothing pending",
			want: []string{"frame"},
		},
		{
			name: "latest resize only",
			prepare: func(a *App) {
				a.resize.Store(100, 50)
				a.resize.Store(320, 240)
			},
			want: []string{"resize 320x240", "frame"},
		},
		{
			name: "resize before reloads",
			prepare: func(a *App) {
				a.resize.Store(320, 240)
				a.reloads <- shader.PhongLighting
				a.reloads <- shader.TextureProgram
			},
			want: []string{"resize 320x240", "reload phong_lighting", "reload texture_program", "frame"},
		},
		{
			name:   "recording reads after the frame",
			record: true,
			want:   []string{"frame", "read 3"},
		},
		{
			name: "screenshot reads after the frame",
			prepare: func(a *App) {
				a.screenshot.Store(true)
			},
			shot: true,
			want: []string{"frame", "read 3"},
		},
		{
			name: "recording and screenshot read once",
			prepare: func(a *App) {
				a.reloads <- shader.PhongLighting
				a.screenshot.Store(true)
			},
			record: true,
			shot:   true,
			want:   []string{"reload phong_lighting", "frame", "read 3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestApp(t)
			if tt.prepare != nil {
				tt.prepare(a)
			}
			r := newFakeRenderer()
			var sink frameSink
			var fs *fakeSink
			if tt.record {
				fs = &fakeSink{}
				sink = fs
			}
			a.frame(r, sink, 3, a.log)
			if !reflect.DeepEqual(r.calls, tt.want) {
				t.Errorf("calls %q, want %q", r.calls, tt.want)
			}
			if fs != nil && (len(fs.frames) != 1 || fs.frames[0].PTS != 3) {
				t.Errorf("recorded %d frames", len(fs.frames))
			}
			if a.screenshot.Load() {
				t.Error("screenshot request not consumed")
			}
			if tt.shot {
				waitForScreenshot(t, a.opts.Screenshot)
			}
			if len(a.reloads) != 0 {
				t.Errorf("%d reloads left in the queue", len(a.reloads))
			}
		})
	}
}

func TestFrameMetrics(t *testing.T) {
	a := newTestApp(t)
	r := newFakeRenderer()
	r.reloadErr = map[string]error{shader.TextureProgram: errors.New("link failed")}

	a.resize.Store(10, 10)
	a.reloads <- shader.PhongLighting
	a.reloads <- shader.TextureProgram
	a.frame(r, nil, 0, a.log)
	a.frame(r, nil, 1, a.log)

	if got := testutil.ToFloat64(a.metrics.Frames); got != 2 {
		t.Errorf("frames = %v, want 2", got)
	}
	if got := testutil.ToFloat64(a.metrics.Resizes); got != 1 {
		t.Errorf("resizes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(a.metrics.Reloads.WithLabelValues(shader.PhongLighting, "ok")); got != 1 {
		t.Errorf("ok reloads = %v, want 1", got)
	}
	if got := testutil.ToFloat64(a.metrics.Reloads.WithLabelValues(shader.TextureProgram, "failed")); got != 1 {
		t.Errorf("failed reloads = %v, want 1", got)
	}
}

func TestFrameResetsCameraBeforeRendering(t *testing.T) {
	a := newTestApp(t)
	home := a.mouse.View()

	a.mouse.MouseButton(controls.ButtonRight, true, 10, 10)
	a.mouse.CursorMoved(10, 60)
	a.mouse.MouseButton(controls.ButtonRight, false, 10, 60)
	if a.mouse.View() == home {
		t.Fatal("camera did not move")
	}

	a.resetCamera.Store(true)
	r := newFakeRenderer()
	var seen [16]float32
	r.onFrame = func() { seen = a.mouse.View() }
	a.frame(r, nil, 0, a.log)
	if seen != home {
		t.Errorf("frame rendered with view %v, want %v", seen, home)
	}
	if a.resetCamera.Load() {
		t.Error("reset request not consumed")
	}
}

func TestFrameWarnsOnceAboutSizeMismatch(t *testing.T) {
	a := newTestApp(t)
	var buf bytes.Buffer
	log := logger.NewWriter(&buf)
	sink := &fakeSink{err: fmt.Errorf("%w: 8x8, want 4x2", recorder.ErrSizeMismatch)}
	r := newFakeRenderer()
	for i := int64(0); i < 3; i++ {
		a.frame(r, sink, i, log)
	}
	if len(sink.frames) != 3 {
		t.Errorf("pushed %d frames, want 3", len(sink.frames))
	}
	if n := strings.Count(buf.String(), "no longer recorded"); n != 1 {
		t.Errorf("size warning logged %d times, want 1", n)
	}
}

func TestFrameSavesScreenshot(t *testing.T) {
	a := newTestApp(t)
	a.screenshot.Store(true)
	a.frame(newFakeRenderer(), nil, 0, a.log)
	waitForScreenshot(t, a.opts.Screenshot)
}

// waitForScreenshot waits for the PNG written in the background.
func waitForScreenshot(t *testing.T, dir string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) == 1 && strings.HasSuffix(entries[0].Name(), ".png") {
			info, err := entries[0].Info()
			if err == nil && info.Size() > 0 {
				return
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("no screenshot in %s", dir)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
