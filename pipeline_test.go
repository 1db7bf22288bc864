package vgplay

import (
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/gg"
)

// stubAnim is a minimal Animation for timeline tests.
type stubAnim struct {
	duration float64
	frames   int
}

func (a *stubAnim) TargetID() string               { return "" }
func (a *stubAnim) AttributeName() string          { return "" }
func (a *stubAnim) ValueAt(seconds float64) string { return "" }
func (a *stubAnim) FrameCountHint() int            { return a.frames }
func (a *stubAnim) DurationSeconds() float64       { return a.duration }

// shadeAnim drives the "shade" attribute of fakeScene deterministically
// from elapsed time, so two renders at the same time point must produce
// identical pixels.
type shadeAnim struct {
	duration float64
	frames   int
}

func (a *shadeAnim) TargetID() string      { return "box" }
func (a *shadeAnim) AttributeName() string { return "shade" }
func (a *shadeAnim) ValueAt(seconds float64) string {
	return strconv.Itoa(int(seconds*1000) % 256)
}
func (a *shadeAnim) FrameCountHint() int      { return a.frames }
func (a *shadeAnim) DurationSeconds() float64 { return a.duration }

// fakeScene fills the whole pixmap with its current shade byte. Renders
// are counted and optionally slowed down to provoke timeouts.
type fakeScene struct {
	parser *fakeParser
	shade  byte
	w, h   int
}

func (s *fakeScene) SetOutputSize(width, height int) {
	s.w, s.h = width, height
}

func (s *fakeScene) Render(pm *gg.Pixmap) error {
	if d := s.parser.renderDelay.Load(); d > 0 {
		time.Sleep(time.Duration(d))
	}
	if s.parser.renderErr.Load() {
		return errors.New("render failed")
	}
	data := pm.Data()
	for i := range data {
		data[i] = s.shade
	}
	s.parser.renders.Add(1)
	return nil
}

func (s *fakeScene) FindElement(id string) (Element, bool) {
	if id != "box" {
		return nil, false
	}
	return (*fakeElement)(s), true
}

type fakeElement fakeScene

func (e *fakeElement) SetAttribute(name, value string) error {
	if name != "shade" {
		return fmt.Errorf("unknown attribute %q", name)
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	e.shade = byte(v)
	return nil
}

// fakeParser hands out independent fakeScenes, one per Parse call, the
// way real parsers give each render goroutine its own document.
type fakeParser struct {
	anims       []Animation
	parses      atomic.Int64
	renders     atomic.Int64
	renderDelay atomic.Int64 // nanoseconds
	renderErr   atomic.Bool
	failParse   atomic.Bool
}

func newFakeParser() *fakeParser {
	return &fakeParser{anims: []Animation{&shadeAnim{duration: 2.0, frames: 10}}}
}

func (p *fakeParser) Parse(data []byte) (Scene, []Animation, error) {
	if p.failParse.Load() {
		return nil, nil, errors.New("parse failed")
	}
	p.parses.Add(1)
	return &fakeScene{parser: p}, p.anims, nil
}

// waitUntil polls cond until it holds or the deadline expires.
func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}
