package vgplay

import "time"

// config holds resolved player configuration.
type config struct {
	width         int
	height        int
	workers       int
	maxBuffered   int
	lookahead     int
	renderTimeout time.Duration
	mode          Mode
	looping       bool
	presenter     Presenter
}

func defaultConfig() config {
	return config{
		width:         800,
		height:        600,
		maxBuffered:   DefaultMaxBuffered,
		lookahead:     DefaultLookahead,
		renderTimeout: DefaultRenderTimeout,
		mode:          ModePreBuffer,
		looping:       true,
	}
}

// Option configures a Player.
type Option func(*config)

// WithSize sets the initial output dimensions in pixels.
func WithSize(width, height int) Option {
	return func(c *config) {
		if width > 0 && height > 0 {
			c.width = width
			c.height = height
		}
	}
}

// WithWorkers sets the pre-buffer worker count. Zero or negative selects
// the default of all cores minus one, never less than one.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithMaxBuffered bounds the speculative frame cache.
func WithMaxBuffered(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxBuffered = n
		}
	}
}

// WithLookahead sets how many frames past the playhead are rendered
// speculatively.
func WithLookahead(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.lookahead = n
		}
	}
}

// WithRenderTimeout sets the per-frame render budget.
func WithRenderTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.renderTimeout = d
		}
	}
}

// WithMode sets the initial playback mode.
func WithMode(m Mode) Option {
	return func(c *config) { c.mode = m }
}

// WithLooping controls whether playback wraps at the end of the timeline
// or stops on the last frame.
func WithLooping(looping bool) Option {
	return func(c *config) { c.looping = looping }
}

// WithPresenter sets the sink delivered frames are handed to.
func WithPresenter(p Presenter) Option {
	return func(c *config) { c.presenter = p }
}
