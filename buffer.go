package vgplay

import (
	"sync"
	"sync/atomic"
)

// doubleBuffer is the handoff point between the render goroutine and the
// interactive thread: the render goroutine writes the back buffer, swaps,
// and raises frameReady; the interactive thread consumes with an atomic
// exchange-and-clear so a frame is never double-counted and never read
// mid-swap.
//
// Readiness and the swap are deliberately bundled: frameReady is only set
// under the same lock that performs the swap, so there is no window where
// the flag says ready but the front buffer still holds the previous frame.
type doubleBuffer struct {
	mu     sync.Mutex
	front  []byte // interactive thread reads this
	back   []byte // render goroutine writes this
	width  int
	height int

	frameReady atomic.Bool
}

// backgroundPixel is the RGBA byte pattern both buffers are reinitialized
// to on allocation and resize (opaque white).
var backgroundPixel = [4]byte{0xFF, 0xFF, 0xFF, 0xFF}

func newDoubleBuffer(width, height int) *doubleBuffer {
	b := &doubleBuffer{}
	b.resize(width, height)
	return b
}

func fillBackground(dst []byte) {
	for i := 0; i < len(dst); i += 4 {
		copy(dst[i:i+4], backgroundPixel[:])
	}
}

// resize reallocates both buffers at the new dimensions. Any pending frame
// at the old size is dropped: in-flight renders that captured the old
// dimensions fail the size check in writeBack and are discarded.
func (b *doubleBuffer) resize(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	size := width * height * 4
	b.front = make([]byte, size)
	b.back = make([]byte, size)
	fillBackground(b.front)
	fillBackground(b.back)
	b.width = width
	b.height = height
	b.frameReady.Store(false)
}

// size returns the current buffer dimensions.
func (b *doubleBuffer) size() (width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.width, b.height
}

// writeBack copies a completed frame into the back buffer and swaps it to
// the front. Returns false and drops the frame when its dimensions no
// longer match the buffers: the resize-race case, where the render
// completed against dimensions that have since been reallocated.
func (b *doubleBuffer) writeBack(pixels []byte, width, height int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if width != b.width || height != b.height || len(pixels) != len(b.back) {
		return false
	}
	copy(b.back, pixels)
	b.front, b.back = b.back, b.front
	b.frameReady.Store(true)
	return true
}

// tryConsume atomically checks and clears the ready flag; when a new frame
// was pending it copies the front buffer into dst (reallocating as needed)
// and returns it with the frame dimensions. Two consecutive calls with no
// intervening render report a new frame at most once.
func (b *doubleBuffer) tryConsume(dst []byte) (pixels []byte, width, height int, ok bool) {
	if !b.frameReady.CompareAndSwap(true, false) {
		return dst, 0, 0, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if cap(dst) < len(b.front) {
		dst = make([]byte, len(b.front))
	}
	dst = dst[:len(b.front)]
	copy(dst, b.front)
	return dst, b.width, b.height, true
}
