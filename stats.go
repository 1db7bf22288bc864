package vgplay

import "sync"

// RollingAverage tracks a sliding window of samples for smoothed
// performance metrics (frame times, render times).
//
// RollingAverage is safe for concurrent use: samples are added on the
// scheduler tick while Stats snapshots may be read from any goroutine.
type RollingAverage struct {
	mu     sync.Mutex
	values []float64
	next   int
}

// NewRollingAverage creates a rolling average over the given window size.
// A window of 30 samples is roughly half a second at 60 ticks per second.
func NewRollingAverage(window int) *RollingAverage {
	if window <= 0 {
		window = 30
	}
	return &RollingAverage{values: make([]float64, 0, window)}
}

// Add appends a sample, evicting the oldest once the window is full.
func (r *RollingAverage) Add(v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) < cap(r.values) {
		r.values = append(r.values, v)
		return
	}
	r.values[r.next] = v
	r.next = (r.next + 1) % len(r.values)
}

// Average returns the mean of the window, or 0 with no samples.
func (r *RollingAverage) Average() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range r.values {
		sum += v
	}
	return sum / float64(len(r.values))
}

// Last returns the most recent sample, or 0 with no samples.
func (r *RollingAverage) Last() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case len(r.values) == 0:
		return 0
	case len(r.values) < cap(r.values) || r.next == 0:
		return r.values[len(r.values)-1]
	default:
		return r.values[r.next-1]
	}
}

// Count returns the number of samples currently in the window.
func (r *RollingAverage) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

// Reset discards all samples.
func (r *RollingAverage) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = r.values[:0]
	r.next = 0
}

// Stats is a point-in-time snapshot of pipeline health.
//
// HitRatePercent is the core metric: the ratio of ticks that delivered a
// genuinely new rendered frame to total ticks attempted. FramesSkipped is
// diagnostic only; skipping is intentional, correct behavior under load.
type Stats struct {
	// FPS is the effective delivered-frame rate since the last reset.
	FPS float64

	// AvgRenderTimeMillis is the rolling average time the render
	// goroutine spent producing a frame.
	AvgRenderTimeMillis float64

	// DisplayCycles counts scheduler ticks.
	DisplayCycles uint64

	// FramesDelivered counts ticks that consumed a genuinely new frame.
	FramesDelivered uint64

	// FramesSkipped counts frame indices passed over because rendering
	// lagged the clock. Diagnostic only.
	FramesSkipped uint64

	// DroppedFrames counts frames the render goroutine produced but
	// could not publish (timeouts and resize races).
	DroppedFrames uint64

	// TimeoutCount counts renders abandoned by the watchdog.
	TimeoutCount uint64

	// HitRatePercent is 100 * FramesDelivered / DisplayCycles.
	HitRatePercent float64

	// BufferedFrames is the number of ready frames in the pre-buffer.
	BufferedFrames int

	// Mode is the current pre-buffer mode.
	Mode Mode

	// Workers is the pre-buffer worker count (0 when the pool is off).
	Workers int
}
