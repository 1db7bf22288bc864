package vgplay

import (
	"context"
	"time"
)

// freezeWarnTicks is how many consecutive ticks without a delivered frame
// during active playback trigger a stall warning: two seconds at the
// default 60 ticks per second.
const freezeWarnTicks = 120

// FrameScheduler drives playback from the interactive thread. Each tick it
// asks the clock which frame should be visible now, wakes the render
// thread for it, and consumes whatever completed frame is waiting in the
// double buffer. A tick never blocks: if rendering lags, the clock keeps
// advancing and intermediate frame indices are simply skipped.
//
// FrameScheduler methods are not safe for concurrent use; Player serializes
// access to them.
type FrameScheduler struct {
	clock     *Clock
	render    *RenderThread
	buffer    *doubleBuffer
	presenter Presenter

	lastRequested int
	scratch       []byte

	displayCycles   uint64
	framesDelivered uint64
	framesSkipped   uint64

	lastDelivery   time.Time
	deliveryGaps   *RollingAverage
	ticksSinceLast int
	stallWarned    bool
}

// NewFrameScheduler wires the scheduler to its collaborators. presenter may
// be nil, in which case delivered frames are counted but not handed off.
func NewFrameScheduler(clock *Clock, render *RenderThread, buffer *doubleBuffer, presenter Presenter) *FrameScheduler {
	return &FrameScheduler{
		clock:         clock,
		render:        render,
		buffer:        buffer,
		presenter:     presenter,
		lastRequested: -1,
		deliveryGaps:  NewRollingAverage(30),
	}
}

// Tick advances the pipeline by one display cycle at the given wall time.
// It returns true when a newly rendered frame was delivered this cycle.
func (s *FrameScheduler) Tick(now time.Time) bool {
	s.displayCycles++

	tl := s.clock.Timeline()
	if tl.FrameCount > 0 {
		_, index, _ := s.clock.FrameAt(now)
		if !s.clock.Paused() || index != s.lastRequested {
			s.accountSkips(index, tl.FrameCount)
			s.render.RequestFrame(index, tl.FrameCount)
			s.lastRequested = index
		}
	}

	pixels, width, height, ok := s.buffer.tryConsume(s.scratch)
	s.scratch = pixels
	if !ok {
		s.noteMiss()
		return false
	}

	s.framesDelivered++
	s.ticksSinceLast = 0
	s.stallWarned = false
	if !s.lastDelivery.IsZero() {
		s.deliveryGaps.Add(now.Sub(s.lastDelivery).Seconds() * 1000)
	}
	s.lastDelivery = now

	if s.presenter != nil {
		if err := s.presenter.Present(pixels, width, height, width*4); err != nil {
			Logger().Warn("present failed", "error", err)
		}
	}
	return true
}

// accountSkips records frame indices the playhead jumped over since the
// last request. The modular difference handles loop wraparound: advancing
// from frame 9 of 10 to frame 1 skips exactly frame 0, not minus eight
// frames.
func (s *FrameScheduler) accountSkips(index, totalFrames int) {
	if s.lastRequested < 0 || index == s.lastRequested || s.clock.Paused() {
		return
	}
	delta := ((index - s.lastRequested) % totalFrames + totalFrames) % totalFrames
	if delta > 1 {
		skipped := uint64(delta - 1)
		s.framesSkipped += skipped
		Logger().Debug("frames skipped", "count", skipped, "at", index)
	}
}

// noteMiss tracks consecutive frameless ticks and warns once if playback
// appears stalled while the clock is running.
func (s *FrameScheduler) noteMiss() {
	if s.clock.Paused() {
		s.ticksSinceLast = 0
		return
	}
	s.ticksSinceLast++
	if s.ticksSinceLast >= freezeWarnTicks && !s.stallWarned {
		s.stallWarned = true
		Logger().Warn("no frame delivered", "ticks", s.ticksSinceLast)
	}
}

// Run ticks the scheduler at the given interval until ctx is cancelled.
// This is the headless drive loop; interactive hosts call Tick from their
// own display loop instead.
func (s *FrameScheduler) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second / 60
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.Tick(now)
		}
	}
}

// ResetCounters zeroes the cycle, delivery, and skip counters. Called on
// load and on demand for benchmark windows.
func (s *FrameScheduler) ResetCounters() {
	s.displayCycles = 0
	s.framesDelivered = 0
	s.framesSkipped = 0
	s.lastRequested = -1
	s.ticksSinceLast = 0
	s.stallWarned = false
	s.lastDelivery = time.Time{}
	s.deliveryGaps.Reset()
}

// DisplayCycles, FramesDelivered, and FramesSkipped expose the raw
// counters for stats snapshots.
func (s *FrameScheduler) DisplayCycles() uint64   { return s.displayCycles }
func (s *FrameScheduler) FramesDelivered() uint64 { return s.framesDelivered }
func (s *FrameScheduler) FramesSkipped() uint64   { return s.framesSkipped }

// HitRatePercent is the share of display cycles that consumed a genuinely
// new frame.
func (s *FrameScheduler) HitRatePercent() float64 {
	if s.displayCycles == 0 {
		return 0
	}
	return 100 * float64(s.framesDelivered) / float64(s.displayCycles)
}

// FPS estimates the delivered-frame rate from the rolling average gap
// between deliveries.
func (s *FrameScheduler) FPS() float64 {
	gap := s.deliveryGaps.Average()
	if gap <= 0 {
		return 0
	}
	return 1000 / gap
}
