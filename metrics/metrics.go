// Package metrics exposes frame statistics of the render loop.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/richinsley/asyncgl/logger"
)

const namespace = "asyncgl"

// Frame collects per-frame counters. Each App owns its own registry so
// that tests can build several of them.
type Frame struct {
	Registry *prometheus.Registry

	Frames        prometheus.Counter
	FrameDuration prometheus.Histogram
	Resizes       prometheus.Counter
	Reloads       *prometheus.CounterVec
	Dropped       prometheus.Counter
}

func NewFrame() *Frame {
	f := &Frame{
		Registry: prometheus.NewRegistry(),
		Frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_total",
			Help: "Frames presented by the fast client.",
		}),
		FrameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "frame_duration_seconds",
			Help:    "CPU time spent issuing the render, resolve and present passes.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 10),
		}),
		Resizes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "resizes_total",
			Help: "Framebuffer reallocations caused by window resizes.",
		}),
		Reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "shader_reloads_total",
			Help: "Shader program reloads by result.",
		}, []string{"program", "result"}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "recorder_dropped_frames_total",
			Help: "Frames the recorder could not keep up with.",
		}),
	}
	f.Registry.MustRegister(f.Frames, f.FrameDuration, f.Resizes, f.Reloads, f.Dropped)
	return f
}

func (f *Frame) ObserveFrame(d time.Duration) {
	f.Frames.Inc()
	f.FrameDuration.Observe(d.Seconds())
}

func (f *Frame) Reload(program string, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	f.Reloads.WithLabelValues(program, result).Inc()
}

// Server serves /metrics.
type Server struct {
	srv *http.Server
	log *logger.Logger
}

func NewServer(addr string, reg *prometheus.Registry, log *logger.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &Server{
		srv: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		log: log,
	}
}

// Listen binds the address, so the caller learns about a busy port before
// serving in the background.
func (s *Server) Listen() (net.Listener, error) {
	return net.Listen("tcp", s.srv.Addr)
}

func (s *Server) Serve(l net.Listener) {
	s.log.Info().Str("addr", l.Addr().String()).Msg("Prometheus metrics are enabled at /metrics")
	if err := s.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error().Err(err).Msg("Metrics server failed")
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Debug().Msg("Shutting down metrics server")
	return s.srv.Shutdown(ctx)
}
