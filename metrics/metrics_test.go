package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/richinsley/asyncgl/logger"
)

func TestAccumTimer(t *testing.T) {
	clock := time.Duration(0)
	timer := &AccumTimer{now: func() time.Duration { return clock }}

	if timer.Stop() != 0 || timer.Count() != 0 {
		t.Fatal("stop without start must not count")
	}

	for _, d := range []time.Duration{10 * time.Millisecond, 30 * time.Millisecond} {
		timer.Start()
		clock += d
		if got := timer.Stop(); got != d {
			t.Errorf("Stop() = %v, want %v", got, d)
		}
	}
	if timer.Count() != 2 || timer.Total() != 40*time.Millisecond {
		t.Errorf("wrong totals %d/%v", timer.Count(), timer.Total())
	}
	if timer.Average() != 20*time.Millisecond || timer.Last() != 30*time.Millisecond {
		t.Errorf("wrong average/last %v/%v", timer.Average(), timer.Last())
	}

	timer.Reset()
	if timer.Count() != 0 || timer.Average() != 0 {
		t.Errorf("reset left %d/%v", timer.Count(), timer.Average())
	}
}

func TestAccumTimerRealClock(t *testing.T) {
	timer := NewAccumTimer()
	timer.Start()
	time.Sleep(time.Millisecond)
	if d := timer.Stop(); d <= 0 {
		t.Errorf("non-positive interval %v", d)
	}
}

func TestFrameCounters(t *testing.T) {
	f := NewFrame()
	f.ObserveFrame(2 * time.Millisecond)
	f.ObserveFrame(3 * time.Millisecond)
	f.Reload("phong_lighting", nil)
	f.Reload("phong_lighting", errors.New("compile"))
	f.Reload("phong_lighting", errors.New("compile"))

	if got := testutil.ToFloat64(f.Frames); got != 2 {
		t.Errorf("frames = %v", got)
	}
	if got := testutil.ToFloat64(f.Reloads.WithLabelValues("phong_lighting", "failed")); got != 2 {
		t.Errorf("failed reloads = %v", got)
	}
	if got := testutil.CollectAndCount(f.FrameDuration); got != 1 {
		t.Errorf("histogram series = %v", got)
	}
}

func TestServer(t *testing.T) {
	f := NewFrame()
	f.Resizes.Inc()
	s := NewServer("127.0.0.1:0", f.Registry, logger.NewWriter(io.Discard))
	l, err := s.Listen()
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		s.Serve(l)
		close(done)
	}()

	resp, err := http.Get("http://" + l.Addr().String() + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), "asyncgl_resizes_total 1") {
		t.Errorf("metric missing from output:\n%s", body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	<-done
}
