package vgplay

import (
	"bytes"
	"testing"
	"time"
)

func newTestRenderThread(t *testing.T, parser *fakeParser, buffer *doubleBuffer, timeout time.Duration) (*RenderThread, *PreBufferPool) {
	t.Helper()
	pool := NewPreBufferPool(parser, 2, 30, 5)
	t.Cleanup(pool.Stop)
	rt := NewRenderThread(parser, pool, buffer, timeout)
	t.Cleanup(rt.Stop)

	tl := NewTimeline(parser.anims)
	pool.Configure([]byte("doc"), 8, 8, parser.anims, tl)
	rt.Configure([]byte("doc"), 8, 8, parser.anims, tl)
	rt.Start()
	return rt, pool
}

func expectedShade(index int) byte {
	return byte(int(FrameTime(index, 10, 2.0)*1000) % 256)
}

func TestRenderThreadDirectRender(t *testing.T) {
	buffer := newDoubleBuffer(8, 8)
	rt, _ := newTestRenderThread(t, newFakeParser(), buffer, 0)

	rt.RequestFrame(2, 10)

	var pixels []byte
	if !waitUntil(t, time.Second, func() bool {
		p, _, _, ok := buffer.tryConsume(nil)
		if ok {
			pixels = p
		}
		return ok
	}) {
		t.Fatal("no frame delivered")
	}
	if pixels[0] != expectedShade(2) {
		t.Errorf("shade = %d, want %d", pixels[0], expectedShade(2))
	}
}

func TestRenderThreadCacheHitMatchesDirect(t *testing.T) {
	buffer := newDoubleBuffer(8, 8)
	parser := newFakeParser()
	rt, pool := newTestRenderThread(t, parser, buffer, 0)

	// Render frame 3 directly first.
	rt.RequestFrame(3, 10)
	var direct []byte
	if !waitUntil(t, time.Second, func() bool {
		p, _, _, ok := buffer.tryConsume(nil)
		if ok {
			direct = append([]byte(nil), p...)
		}
		return ok
	}) {
		t.Fatal("no direct frame delivered")
	}

	// Now pre-buffer the same frame and serve it from cache.
	pool.Start(ModePreBuffer)
	pool.RequestFrame(3)
	if !waitUntil(t, time.Second, func() bool {
		_, ok := pool.Frame(3, 8, 8)
		return ok
	}) {
		t.Fatal("frame 3 never cached")
	}

	rt.RequestFrame(3, 10)
	var hit []byte
	if !waitUntil(t, time.Second, func() bool {
		p, _, _, ok := buffer.tryConsume(nil)
		if ok {
			hit = append([]byte(nil), p...)
		}
		return ok
	}) {
		t.Fatal("no cache-hit frame delivered")
	}

	// Same frame index, same evaluation time, same pixels: the two paths
	// must be indistinguishable.
	if !bytes.Equal(direct, hit) {
		t.Error("cache-hit pixels differ from direct-render pixels")
	}
}

func TestRenderThreadPiggybacksLookahead(t *testing.T) {
	buffer := newDoubleBuffer(8, 8)
	rt, pool := newTestRenderThread(t, newFakeParser(), buffer, 0)
	pool.Start(ModePreBuffer)

	// A single frame request must fan out into speculative lookahead.
	rt.RequestFrame(0, 10)
	if !waitUntil(t, time.Second, func() bool { return pool.BufferedCount() == 5 }) {
		t.Errorf("buffered %d frames after one request, want 5", pool.BufferedCount())
	}
}

func TestRenderThreadTimeout(t *testing.T) {
	buffer := newDoubleBuffer(8, 8)
	parser := newFakeParser()
	rt, _ := newTestRenderThread(t, parser, buffer, 5*time.Millisecond)

	parser.renderDelay.Store(int64(30 * time.Millisecond))
	rt.RequestFrame(1, 10)

	if !waitUntil(t, time.Second, func() bool { return rt.Timeouts() == 1 }) {
		t.Fatalf("Timeouts = %d, want 1", rt.Timeouts())
	}
	// The over-budget frame must be withheld, not published late.
	if _, _, _, ok := buffer.tryConsume(nil); ok {
		t.Error("timed-out frame was published")
	}
	if rt.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", rt.Dropped())
	}

	// Timeouts are not fatal: once renders are fast again, playback
	// recovers on the next request.
	parser.renderDelay.Store(0)
	rt.RequestFrame(2, 10)
	if !waitUntil(t, time.Second, func() bool {
		_, _, _, ok := buffer.tryConsume(nil)
		return ok
	}) {
		t.Error("no frame delivered after recovery")
	}
}

func TestRenderThreadResizeRaceDropsFrame(t *testing.T) {
	// Buffer at one size, render parameters at another: the completed
	// frame must be dropped at the swap, never written into mismatched
	// buffers.
	buffer := newDoubleBuffer(4, 4)
	rt, _ := newTestRenderThread(t, newFakeParser(), buffer, 0)

	rt.RequestFrame(1, 10)
	if !waitUntil(t, time.Second, func() bool { return rt.Dropped() == 1 }) {
		t.Fatalf("Dropped = %d, want 1", rt.Dropped())
	}
	if _, _, _, ok := buffer.tryConsume(nil); ok {
		t.Error("stale-size frame was published")
	}
}

func TestRenderThreadRequestNeverBlocks(t *testing.T) {
	buffer := newDoubleBuffer(8, 8)
	parser := newFakeParser()
	rt, _ := newTestRenderThread(t, parser, buffer, 0)

	// Stall the render goroutine, then flood it with requests. Requests
	// must coalesce, not queue or block.
	parser.renderDelay.Store(int64(50 * time.Millisecond))
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			rt.RequestFrame(i%10, 10)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RequestFrame blocked")
	}
}

func TestRenderThreadCall(t *testing.T) {
	buffer := newDoubleBuffer(8, 8)
	rt, _ := newTestRenderThread(t, newFakeParser(), buffer, 0)

	ran := false
	if !rt.Call(func() { ran = true }) {
		t.Fatal("Call returned false on a running thread")
	}
	if !ran {
		t.Fatal("Call returned before fn ran")
	}

	rt.Stop()
	if rt.Call(func() {}) {
		t.Error("Call returned true after Stop")
	}
}

func TestRenderThreadParseErrorKeepsQuiet(t *testing.T) {
	buffer := newDoubleBuffer(8, 8)
	parser := newFakeParser()
	rt, _ := newTestRenderThread(t, parser, buffer, 0)

	parser.failParse.Store(true)
	rt.RequestFrame(1, 10)
	time.Sleep(20 * time.Millisecond)
	if _, _, _, ok := buffer.tryConsume(nil); ok {
		t.Error("frame delivered from an unparseable document")
	}
}
