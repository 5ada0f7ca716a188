package metrics

import (
	"time"

	"github.com/loov/hrtime"
)

// AccumTimer accumulates durations of repeated Start/Stop intervals using
// the high resolution clock.
type AccumTimer struct {
	start   time.Duration
	running bool

	last  time.Duration
	total time.Duration
	count int

	now func() time.Duration
}

func NewAccumTimer() *AccumTimer { return &AccumTimer{now: hrtime.Now} }

func (t *AccumTimer) Start() {
	t.start = t.now()
	t.running = true
}

// Stop ends the current interval and returns its duration.
func (t *AccumTimer) Stop() time.Duration {
	if !t.running {
		return 0
	}
	t.running = false
	t.last = t.now() - t.start
	t.total += t.last
	t.count++
	return t.last
}

func (t *AccumTimer) Last() time.Duration { return t.last }

func (t *AccumTimer) Total() time.Duration { return t.total }

func (t *AccumTimer) Count() int { return t.count }

func (t *AccumTimer) Average() time.Duration {
	if t.count == 0 {
		return 0
	}
	return t.total / time.Duration(t.count)
}

func (t *AccumTimer) Reset() {
	t.last, t.total, t.count, t.running = 0, 0, 0, false
}
