// Package pngsink provides a presenter that writes frames to numbered PNG
// files, for capturing playback output or eyeballing a headless run.
package pngsink

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"
)

// Sink writes each presented frame as dir/frame-NNNNN.png.
//
// Sink is not safe for concurrent use; the pipeline presents frames from a
// single goroutine.
type Sink struct {
	dir    string
	outW   int
	outH   int
	scaler xdraw.Scaler
	n      int
}

// Option configures a Sink.
type Option func(*Sink)

// WithScale resizes every frame to the given dimensions before encoding.
func WithScale(width, height int) Option {
	return func(s *Sink) {
		if width > 0 && height > 0 {
			s.outW = width
			s.outH = height
		}
	}
}

// New creates a sink writing into dir, creating it if needed.
func New(dir string, opts ...Option) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pngsink: %w", err)
	}
	s := &Sink{dir: dir, scaler: xdraw.ApproxBiLinear}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Present encodes the frame and writes it to the next numbered file.
func (s *Sink) Present(pixels []byte, width, height, stride int) error {
	img := &image.RGBA{
		Pix:    pixels,
		Stride: stride,
		Rect:   image.Rect(0, 0, width, height),
	}

	var out image.Image = img
	if s.outW > 0 && (s.outW != width || s.outH != height) {
		dst := image.NewRGBA(image.Rect(0, 0, s.outW, s.outH))
		s.scaler.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
		out = dst
	}

	path := filepath.Join(s.dir, fmt.Sprintf("frame-%05d.png", s.n))
	s.n++

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("pngsink: %w", err)
	}
	if err := png.Encode(f, out); err != nil {
		f.Close()
		return fmt.Errorf("pngsink: encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("pngsink: %w", err)
	}
	return nil
}

// Written returns how many frames have been written.
func (s *Sink) Written() int {
	return s.n
}
