// Package recorder streams presented frames to ffmpeg and writes
// screenshots.
package recorder

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/richinsley/asyncgl/logger"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

const queueSize = 4

// Frame is a bottom-up RGBA image as read back from the GPU.
type Frame struct {
	Pixels []byte
	Width  int
	Height int
	PTS    int64
}

// Config of a recording session.
type Config struct {
	Output     string
	Width      int
	Height     int
	FPS        int
	FFMPEGPath string
}

// Recorder is the consumer side of the render loop. Push never blocks
// the render thread: when ffmpeg lags behind frames are dropped.
type Recorder struct {
	conf   Config
	frames chan *Frame
	done   chan error
	log    *logger.Logger

	mu      sync.Mutex
	closed  bool
	dropped int
	onDrop  func()
}

// ErrSizeMismatch is returned by Push for frames of another size than
// the recording, e.g. after the window was resized.
var ErrSizeMismatch = errors.New("frame size does not match recording size")

// runner starts ffmpeg reading raw frames from r.
type runner func(conf Config, r io.Reader) error

func New(conf Config, log *logger.Logger) (*Recorder, error) {
	return start(conf, log, runFFmpeg)
}

func start(conf Config, log *logger.Logger, run runner) (*Recorder, error) {
	if conf.Width <= 0 || conf.Height <= 0 {
		return nil, fmt.Errorf("invalid recording size %dx%d", conf.Width, conf.Height)
	}
	if conf.FPS <= 0 {
		return nil, fmt.Errorf("invalid recording frame rate %d", conf.FPS)
	}
	rec := &Recorder{
		conf:   conf,
		frames: make(chan *Frame, queueSize),
		done:   make(chan error, 1),
		log:    log,
	}

	pipeReader, pipeWriter := io.Pipe()
	errc := make(chan error, 1)
	go func() {
		err := run(conf, pipeReader)
		// unblock the writer if ffmpeg exits early
		_ = pipeReader.CloseWithError(io.ErrClosedPipe)
		errc <- err
	}()
	go rec.consume(pipeWriter, errc)

	log.Info().Str("file", conf.Output).Int("w", conf.Width).Int("h", conf.Height).Int("fps", conf.FPS).
		Msg("Recording started")
	return rec, nil
}

// OnDrop registers a callback for dropped frames.
func (r *Recorder) OnDrop(f func()) { r.onDrop = f }

func (r *Recorder) Size() (int, int) { return r.conf.Width, r.conf.Height }

// Push queues a frame. Frames with a different size than the recording
// are rejected.
func (r *Recorder) Push(f *Frame) error {
	if f.Width != r.conf.Width || f.Height != r.conf.Height {
		return fmt.Errorf("%w: %dx%d, want %dx%d", ErrSizeMismatch,
			f.Width, f.Height, r.conf.Width, r.conf.Height)
	}
	if len(f.Pixels) != f.Width*f.Height*4 {
		return fmt.Errorf("frame has %d bytes, want %d", len(f.Pixels), f.Width*f.Height*4)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("recorder is closed")
	}
	select {
	case r.frames <- f:
	default:
		r.dropped++
		if r.onDrop != nil {
			r.onDrop()
		}
		r.log.Warn().Int64("pts", f.PTS).Msg("Recorder queue is full. Dropping frame.")
	}
	return nil
}

func (r *Recorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close flushes queued frames and waits for ffmpeg to finish.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.frames)
	r.mu.Unlock()

	err := <-r.done
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	r.log.Info().Str("file", r.conf.Output).Msg("Recording finished")
	return nil
}

func (r *Recorder) consume(w *io.PipeWriter, errc <-chan error) {
	var writeErr error
	for frame := range r.frames {
		if writeErr != nil {
			continue
		}
		if _, err := w.Write(frame.Pixels); err != nil {
			r.log.Error().Err(err).Int64("pts", frame.PTS).Msg("Error writing frame to ffmpeg")
			writeErr = err
		}
	}
	_ = w.Close()
	err := <-errc
	if err == nil {
		err = writeErr
	}
	r.done <- err
}

// InputArgs describe the raw frames on ffmpeg's stdin.
func InputArgs(conf Config) ffmpeg.KwArgs {
	return ffmpeg.KwArgs{
		"format":    "rawvideo",
		"pix_fmt":   "rgba",
		"s":         fmt.Sprintf("%dx%d", conf.Width, conf.Height),
		"framerate": conf.FPS,
	}
}

// OutputArgs encode to H.264. Frames are read back bottom-up, so they
// are flipped on the way.
func OutputArgs(conf Config) ffmpeg.KwArgs {
	return ffmpeg.KwArgs{
		"vf":      "vflip",
		"c:v":     "libx264",
		"pix_fmt": "yuv420p",
		"r":       conf.FPS,
	}
}

func runFFmpeg(conf Config, r io.Reader) error {
	cmd := ffmpeg.Input("pipe:", InputArgs(conf)).
		Output(conf.Output, OutputArgs(conf)).
		OverWriteOutput().WithInput(r).ErrorToStdOut()
	if conf.FFMPEGPath != "" {
		cmd = cmd.SetFfmpegPath(conf.FFMPEGPath)
	}
	return cmd.Run()
}
