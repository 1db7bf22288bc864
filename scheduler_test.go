package vgplay

import (
	"context"
	"testing"
	"time"
)

func newTestScheduler(t *testing.T, parser *fakeParser, presenter Presenter) (*FrameScheduler, *Clock, *doubleBuffer, time.Time) {
	t.Helper()
	base := time.Now()
	tl := NewTimeline(parser.anims)
	clock := NewClock(tl, true, base)
	buffer := newDoubleBuffer(8, 8)

	pool := NewPreBufferPool(parser, 2, 30, 5)
	t.Cleanup(pool.Stop)
	rt := NewRenderThread(parser, pool, buffer, 0)
	t.Cleanup(rt.Stop)
	pool.Configure([]byte("doc"), 8, 8, parser.anims, tl)
	rt.Configure([]byte("doc"), 8, 8, parser.anims, tl)
	rt.Start()

	return NewFrameScheduler(clock, rt, buffer, presenter), clock, buffer, base
}

func TestSchedulerDeliversFrames(t *testing.T) {
	var presented int
	sink := PresenterFunc(func(pixels []byte, width, height, stride int) error {
		if width != 8 || height != 8 || stride != 32 {
			t.Errorf("presented %dx%d stride %d", width, height, stride)
		}
		presented++
		return nil
	})
	s, clock, buffer, base := newTestScheduler(t, newFakeParser(), sink)

	// Freeze the playhead so exactly one frame gets requested and the
	// tick counts stay deterministic.
	clock.Pause(base)

	s.Tick(base)
	if !waitUntil(t, time.Second, func() bool { return buffer.frameReady.Load() }) {
		t.Fatal("render never completed")
	}
	s.Tick(base.Add(time.Millisecond))

	if presented != 1 {
		t.Fatalf("presented %d frames, want 1", presented)
	}
	if s.FramesDelivered() != 1 {
		t.Errorf("FramesDelivered = %d, want 1", s.FramesDelivered())
	}
	if s.DisplayCycles() != 2 {
		t.Errorf("DisplayCycles = %d, want 2", s.DisplayCycles())
	}
	if got := s.HitRatePercent(); got != 50 {
		t.Errorf("HitRatePercent = %v, want 50", got)
	}

	// No new render between ticks: the same frame is never presented twice.
	s.Tick(base.Add(2 * time.Millisecond))
	if presented != 1 {
		t.Errorf("presented %d frames after idle tick, want 1", presented)
	}
}

func TestSchedulerSkipAccounting(t *testing.T) {
	s, _, _, base := newTestScheduler(t, newFakeParser(), nil)

	// Timeline is 2s over 10 frames. Jumping the clock simulates slow
	// ticks; skipped counts the frame indices passed over.
	s.Tick(base)                              // index 0
	s.Tick(base.Add(600 * time.Millisecond))  // index 3, skips 1-2
	s.Tick(base.Add(1990 * time.Millisecond)) // index 9, skips 4-8
	if got := s.FramesSkipped(); got != 7 {
		t.Fatalf("FramesSkipped = %d, want 7", got)
	}

	// Wraparound: 9 -> 1 crosses the loop seam and skips only frame 0.
	s.Tick(base.Add(2200 * time.Millisecond)) // index 1
	if got := s.FramesSkipped(); got != 8 {
		t.Errorf("FramesSkipped after wrap = %d, want 8", got)
	}
}

func TestSchedulerNoSkipsWhilePaused(t *testing.T) {
	s, clock, _, base := newTestScheduler(t, newFakeParser(), nil)

	s.Tick(base)
	clock.Pause(base.Add(100 * time.Millisecond))
	s.Tick(base.Add(10 * time.Second))
	s.Tick(base.Add(20 * time.Second))
	if got := s.FramesSkipped(); got != 0 {
		t.Errorf("FramesSkipped while paused = %d, want 0", got)
	}
}

func TestSchedulerTickNeverBlocks(t *testing.T) {
	parser := newFakeParser()
	s, _, _, base := newTestScheduler(t, parser, nil)

	// Stall rendering; ticks must still return immediately.
	parser.renderDelay.Store(int64(100 * time.Millisecond))
	start := time.Now()
	for i := 0; i < 50; i++ {
		s.Tick(base.Add(time.Duration(i) * 16 * time.Millisecond))
	}
	if took := time.Since(start); took > 500*time.Millisecond {
		t.Errorf("50 ticks took %v against a stalled renderer", took)
	}
}

func TestSchedulerPresentErrorNonFatal(t *testing.T) {
	calls := 0
	sink := PresenterFunc(func(pixels []byte, width, height, stride int) error {
		calls++
		return context.DeadlineExceeded
	})
	s, _, buffer, base := newTestScheduler(t, newFakeParser(), sink)

	s.Tick(base)
	waitUntil(t, time.Second, func() bool { return buffer.frameReady.Load() })
	s.Tick(base.Add(time.Millisecond))
	if calls != 1 {
		t.Fatalf("presenter called %d times, want 1", calls)
	}
	// Delivery still counts; the presenter error is logged, not returned.
	if s.FramesDelivered() != 1 {
		t.Errorf("FramesDelivered = %d, want 1", s.FramesDelivered())
	}
}

func TestSchedulerResetCounters(t *testing.T) {
	s, _, buffer, base := newTestScheduler(t, newFakeParser(), nil)
	s.Tick(base)
	waitUntil(t, time.Second, func() bool { return buffer.frameReady.Load() })
	s.Tick(base.Add(time.Millisecond))

	s.ResetCounters()
	if s.DisplayCycles() != 0 || s.FramesDelivered() != 0 || s.FramesSkipped() != 0 {
		t.Error("counters survived ResetCounters")
	}
	if s.HitRatePercent() != 0 || s.FPS() != 0 {
		t.Error("derived metrics survived ResetCounters")
	}
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	s, _, _, _ := newTestScheduler(t, newFakeParser(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := s.Run(ctx, 5*time.Millisecond)
	if err != context.DeadlineExceeded {
		t.Errorf("Run returned %v", err)
	}
	if s.DisplayCycles() == 0 {
		t.Error("Run never ticked")
	}
}
