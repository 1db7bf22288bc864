// Package nullsink provides a presenter that discards frames.
//
// It exists for benchmarks and tests that exercise the playback pipeline
// without an output device: frames are counted, then dropped.
package nullsink

import "sync/atomic"

// Sink counts presented frames and discards the pixels.
// The zero value is ready to use and safe for concurrent use.
type Sink struct {
	frames atomic.Uint64
	bytes  atomic.Uint64
}

// Present records the frame and returns nil.
func (s *Sink) Present(pixels []byte, width, height, stride int) error {
	s.frames.Add(1)
	s.bytes.Add(uint64(len(pixels)))
	return nil
}

// Frames returns the number of frames presented so far.
func (s *Sink) Frames() uint64 {
	return s.frames.Load()
}

// Bytes returns the total pixel bytes presented so far.
func (s *Sink) Bytes() uint64 {
	return s.bytes.Load()
}
