package vgplay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Errors returned by Player operations.
var (
	// ErrNoDocument is returned by playback operations before any document
	// has been loaded successfully.
	ErrNoDocument = errors.New("vgplay: no document loaded")

	// ErrClosed is returned by operations on a closed player.
	ErrClosed = errors.New("vgplay: player closed")
)

// Player assembles the playback pipeline: clock, pre-buffer pool, render
// thread, and scheduler. It is the single entry point hosts use: load a
// document, then either call Tick from a display loop or let Run drive
// playback at a fixed rate.
//
// Player is safe for concurrent use. Collaborators are created once and
// reconfigured in place on load, never replaced.
type Player struct {
	parser Parser

	clock     *Clock
	buffer    *doubleBuffer
	prebuffer *PreBufferPool
	render    *RenderThread
	sched     *FrameScheduler

	mu     sync.Mutex
	cfg    config
	loaded bool
	closed bool
	width  int
	height int
}

// NewPlayer creates a player using parser to interpret documents.
func NewPlayer(parser Parser, opts ...Option) (*Player, error) {
	if parser == nil {
		return nil, errors.New("vgplay: nil parser")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Player{
		parser: parser,
		cfg:    cfg,
		width:  cfg.width,
		height: cfg.height,
	}
	p.clock = NewClock(Timeline{Duration: 1, FrameCount: 1}, cfg.looping, time.Now())
	p.buffer = newDoubleBuffer(cfg.width, cfg.height)
	p.prebuffer = NewPreBufferPool(parser, cfg.workers, cfg.maxBuffered, cfg.lookahead)
	p.render = NewRenderThread(parser, p.prebuffer, p.buffer, cfg.renderTimeout)
	p.sched = NewFrameScheduler(p.clock, p.render, p.buffer, cfg.presenter)

	p.render.Start()
	p.prebuffer.Start(cfg.mode)
	return p, nil
}

// Load parses and installs a new document, restarting playback from frame
// zero. On a parse error the previous document, mode, and playhead are left
// untouched and the error is returned; a failed load never blanks the
// display.
func (p *Player) Load(doc []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	// Validate before touching any state.
	_, anims, err := p.parser.Parse(doc)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	tl := NewTimeline(anims)

	p.prebuffer.Configure(doc, p.width, p.height, anims, tl)
	p.render.Configure(doc, p.width, p.height, anims, tl)
	p.clock.Restart(tl, time.Now())
	p.sched.ResetCounters()
	p.loaded = true

	Logger().Info("document loaded",
		"bytes", len(doc),
		"frames", tl.FrameCount,
		"duration", tl.Duration,
		"tracks", len(anims))

	// Prime the pipeline so the first tick has a frame waiting.
	p.render.RequestFrame(0, tl.FrameCount)
	p.prebuffer.RequestFramesAhead(0, tl.FrameCount)
	return nil
}

// Pause freezes the playhead. The current frame stays visible.
func (p *Player) Pause() {
	p.clock.Pause(time.Now())
}

// Play continues playback from the paused position. Playback starts
// automatically on Load, so Play is only needed after a Pause.
func (p *Player) Play() {
	p.clock.Resume(time.Now())
}

// Resume is an alias for Play.
func (p *Player) Resume() {
	p.Play()
}

// TogglePause flips between playing and paused and reports the new state.
func (p *Player) TogglePause() (paused bool) {
	now := time.Now()
	if p.clock.Paused() {
		p.clock.Resume(now)
		return false
	}
	p.clock.Pause(now)
	return true
}

// Seek moves the playhead to the given elapsed time in seconds, clamped to
// the timeline. Seeking while paused repositions without resuming.
func (p *Player) Seek(seconds float64) {
	p.clock.Seek(seconds, time.Now())
}

// SeekFrame positions the playhead at the start of the given frame.
func (p *Player) SeekFrame(index int) {
	tl := p.clock.Timeline()
	if index < 0 {
		index = 0
	}
	if index >= tl.FrameCount {
		index = tl.FrameCount - 1
	}
	p.clock.Seek(FrameTime(index, tl.FrameCount, tl.Duration), time.Now())
}

// ToggleMode switches between direct rendering and pre-buffered playback
// and returns the new mode. The transition runs on the render goroutine so
// it never overlaps an in-flight direct render.
func (p *Player) ToggleMode() Mode {
	var mode Mode
	if !p.render.Call(func() { mode = p.prebuffer.CycleMode() }) {
		return p.prebuffer.Mode()
	}
	Logger().Info("mode changed", "mode", mode)
	return mode
}

// Mode returns the current playback mode.
func (p *Player) Mode() Mode {
	return p.prebuffer.Mode()
}

// Resize changes the output dimensions. Cached and in-flight frames at the
// old size are invalidated; the next rendered frame fills the new buffers.
func (p *Player) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	p.mu.Lock()
	if p.closed || (width == p.width && height == p.height) {
		p.mu.Unlock()
		return
	}
	p.width = width
	p.height = height
	loaded := p.loaded
	tl := p.clock.Timeline()
	p.mu.Unlock()

	p.buffer.resize(width, height)
	p.prebuffer.Resize(width, height)
	p.render.Resize(width, height)

	if loaded {
		_, index, _ := p.clock.FrameAt(time.Now())
		p.render.RequestFrame(index, tl.FrameCount)
	}
	Logger().Debug("resized", "width", width, "height", height)
}

// Size returns the current output dimensions.
func (p *Player) Size() (width, height int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width, p.height
}

// Tick advances playback by one display cycle. It never blocks; returns
// true when a newly rendered frame was delivered to the presenter.
func (p *Player) Tick(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || !p.loaded {
		return false
	}
	return p.sched.Tick(now)
}

// Run drives playback at the given tick interval until ctx is cancelled.
// An interval of zero selects 60 ticks per second.
func (p *Player) Run(ctx context.Context, interval time.Duration) error {
	p.mu.Lock()
	loaded, closed := p.loaded, p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if !loaded {
		return ErrNoDocument
	}

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
			p.Tick(now)
		}
	}
}

// Finished reports whether non-looping playback has reached the last
// frame. Always false for looping playback.
func (p *Player) Finished() bool {
	_, _, finished := p.clock.FrameAt(time.Now())
	return finished
}

// Stats returns a point-in-time snapshot of pipeline health.
func (p *Player) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		FPS:                 p.sched.FPS(),
		AvgRenderTimeMillis: p.render.AvgRenderMillis(),
		DisplayCycles:       p.sched.DisplayCycles(),
		FramesDelivered:     p.sched.FramesDelivered(),
		FramesSkipped:       p.sched.FramesSkipped(),
		DroppedFrames:       p.render.Dropped(),
		TimeoutCount:        p.render.Timeouts(),
		HitRatePercent:      p.sched.HitRatePercent(),
		BufferedFrames:      p.prebuffer.BufferedCount(),
		Mode:                p.prebuffer.Mode(),
		Workers:             p.prebuffer.ActiveWorkers(),
	}
}

// ResetCounters zeroes the playback counters, typically at the start of a
// measurement window.
func (p *Player) ResetCounters() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sched.ResetCounters()
}

// Close stops the render goroutine and the pre-buffer pool. Safe to call
// more than once.
func (p *Player) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.render.Stop()
	p.prebuffer.Stop()
	Logger().Info("player closed")
	return nil
}
