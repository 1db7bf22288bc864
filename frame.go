package vgplay

import "sync/atomic"

// RenderedFrame is one completed (or in-flight) speculative render.
//
// A frame is inserted into the pre-buffer cache before its pixels exist so
// that duplicate requests for the same index are suppressed. The worker
// fills Pixels and then calls publish, an atomic release: a concurrent
// reader either sees Ready() false and treats the frame as a miss, or sees
// true and a fully valid pixel buffer. Partial frames are never observable.
type RenderedFrame struct {
	// Index is the frame index this render corresponds to.
	Index int

	// ElapsedSeconds is the animation time the frame was evaluated at,
	// always FrameTime(Index, frameCount, duration).
	ElapsedSeconds float64

	// Width and Height are the dimensions the frame was rendered at.
	// They are checked against the current output size before the frame
	// is served, so stale-size frames rendered across a resize are
	// treated as misses.
	Width  int
	Height int

	// Pixels holds Width*Height*4 premultiplied RGBA bytes once ready.
	Pixels []byte

	ready atomic.Bool
}

// Ready reports whether the frame's pixels are complete and safe to read.
func (f *RenderedFrame) Ready() bool {
	return f.ready.Load()
}

// publish installs the pixel buffer and marks the frame ready.
// The atomic store orders after the Pixels write, so readers that observe
// ready=true observe the complete buffer.
func (f *RenderedFrame) publish(pixels []byte) {
	f.Pixels = pixels
	f.ready.Store(true)
}
