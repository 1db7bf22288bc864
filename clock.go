package vgplay

import (
	"math"
	"sync"
	"time"
)

// Clock maps monotonic instants to animation frame indices.
//
// The frame shown at any moment is determined solely by elapsed wall-clock
// time; slow rendering skips frames rather than stretching playback. All
// arithmetic uses the monotonic reading carried by time.Time values from
// time.Now, so system clock adjustments never perturb playback.
//
// Pause and resume are implemented as an origin shift: on resume the origin
// becomes now minus the frozen offset, so elapsed-time computation stays a
// single subtraction with no special-casing elsewhere.
//
// Clock is safe for concurrent use.
type Clock struct {
	mu           sync.Mutex
	origin       time.Time
	paused       bool
	pausedOffset float64 // elapsed seconds frozen while paused

	timeline Timeline
	looping  bool
}

// NewClock creates a clock for the given timeline, with the origin at now.
func NewClock(tl Timeline, looping bool, now time.Time) *Clock {
	return &Clock{origin: now, timeline: tl, looping: looping}
}

// Restart rebases the clock on a new timeline, resetting elapsed time to
// zero and unpausing. Called when a new document is loaded.
func (c *Clock) Restart(tl Timeline, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeline = tl
	c.origin = now
	c.paused = false
	c.pausedOffset = 0
}

// Pause freezes the playhead at its current position.
func (c *Clock) Pause(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return
	}
	c.pausedOffset = now.Sub(c.origin).Seconds()
	c.paused = true
}

// Resume continues playback from the frozen position.
func (c *Clock) Resume(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return
	}
	c.origin = now.Add(-time.Duration(c.pausedOffset * float64(time.Second)))
	c.paused = false
}

// Timeline returns the timeline the clock is currently mapping.
func (c *Clock) Timeline() Timeline {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeline
}

// Paused reports whether the clock is paused.
func (c *Clock) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Seek moves the playhead to the given elapsed time, clamped to
// [0, duration]. Seeking while paused keeps the clock paused.
func (c *Clock) Seek(seconds float64, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	if d := c.timeline.Duration; seconds > d {
		seconds = d
	}
	if c.paused {
		c.pausedOffset = seconds
		return
	}
	c.origin = now.Add(-time.Duration(seconds * float64(time.Second)))
}

// FrameAt returns the elapsed animation time and the frame index that
// should be visible at the given instant. finished is true only for
// non-looping playback once elapsed reaches the timeline duration.
func (c *Clock) FrameAt(now time.Time) (elapsed float64, index int, finished bool) {
	c.mu.Lock()
	origin, paused, offset := c.origin, c.paused, c.pausedOffset
	tl, looping := c.timeline, c.looping
	c.mu.Unlock()

	if paused {
		elapsed = offset
	} else {
		elapsed = now.Sub(origin).Seconds()
	}
	index, finished = FrameIndexAt(elapsed, tl.Duration, tl.FrameCount, looping)
	return elapsed, index, finished
}

// FrameIndexAt maps an elapsed time to a frame index.
//
// Looping playback wraps via ratio - floor(ratio); non-looping playback
// clamps to frameCount-1 once elapsed reaches the duration and reports
// finished. This is the single time-to-frame formula in the pipeline: the
// speculative pre-buffer path and the direct render path must both resolve
// frames through it (or its inverse, FrameTime), or cache hits and direct
// renders would disagree about which frame belongs to which instant.
func FrameIndexAt(elapsed, duration float64, frameCount int, looping bool) (index int, finished bool) {
	if frameCount <= 1 || duration <= 0 {
		return 0, !looping && elapsed >= duration
	}
	if elapsed < 0 {
		elapsed = 0
	}
	ratio := elapsed / duration
	if looping {
		ratio -= math.Floor(ratio)
	} else if ratio >= 1 {
		return frameCount - 1, true
	}
	index = int(math.Floor(ratio * float64(frameCount)))
	if index >= frameCount {
		index = frameCount - 1
	}
	return index, false
}

// FrameTime is the inverse of FrameIndexAt: the elapsed time at which a
// frame index begins. Pre-buffer workers evaluate animation tracks at this
// time so that a speculative render of frame N is byte-identical to a
// direct render requested while frame N is current.
func FrameTime(index, frameCount int, duration float64) float64 {
	if frameCount <= 0 {
		return 0
	}
	return float64(index) / float64(frameCount) * duration
}
