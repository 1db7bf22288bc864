package vgplay

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/gg"
	"github.com/gogpu/vgplay/internal/parallel"
)

// Mode selects how frames are produced for playback.
type Mode int

const (
	// ModeOff disables speculation; every frame is rendered directly on
	// the render goroutine.
	ModeOff Mode = iota

	// ModePreBuffer renders a lookahead window of future frames on the
	// worker pool so playback consumes cache hits instead of rendering
	// synchronously.
	ModePreBuffer
)

// String returns the display name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "Off"
	case ModePreBuffer:
		return "PreBuffer"
	}
	return "Unknown"
}

// Default capacity limits for the speculative frame cache.
const (
	// DefaultMaxBuffered bounds the cache. 30 frames at 1920x1080 RGBA
	// is roughly 240MB peak memory.
	DefaultMaxBuffered = 30

	// DefaultLookahead is how many frames past the playhead workers
	// render speculatively.
	DefaultLookahead = 10
)

// workerCache is the per-worker lazily initialized rendering state: a
// parsed scene bound to that worker and a reusable output surface sized to
// the current render dimensions. It is owned by exactly one pool worker,
// by construction, and therefore needs no synchronization. The scene is
// re-parsed only when the document generation changes; the surface is
// recreated only when the requested dimensions differ from the cached ones.
type workerCache struct {
	scene    Scene
	sceneGen uint64

	surface  *gg.Pixmap
	surfaceW int
	surfaceH int
}

// renderParams are the shared parameters every speculative render reads:
// the document bytes to parse, the output dimensions, and the timing
// attributes. They are grouped behind one lock and replaced wholesale by
// Configure; per-worker caches self-heal lazily against the generation
// counter rather than being touched from the outside.
type renderParams struct {
	doc      []byte
	gen      uint64
	width    int
	height   int
	anims    []Animation
	timeline Timeline
}

// PreBufferPool is a bounded speculative frame cache backed by a fixed-size
// worker pool. Given a playhead position it renders a lookahead window of
// future frames in the background and serves them as instant cache hits.
//
// Speculation is best-effort, never a hard guarantee: requests are dropped
// when the cache is full, when the pool's queues are full, or while a mode
// transition is in progress.
type PreBufferPool struct {
	parser Parser

	maxBuffered int
	lookahead   int
	workers     int

	// modeChanging suppresses new speculative requests and cache reads
	// while pool state is being torn down and rebuilt for a different
	// mode, so stale in-flight work cannot repopulate a cleared cache.
	modeChanging atomic.Bool

	// stateMu guards mode and pool together; they always change as one.
	stateMu sync.Mutex
	mode    Mode
	pool    *parallel.Pool[workerCache]

	paramsMu sync.Mutex
	params   renderParams

	cacheMu sync.Mutex
	cache   map[int]*RenderedFrame
}

// NewPreBufferPool creates a pool in ModeOff. workers <= 0 selects the
// default of all cores minus one.
func NewPreBufferPool(parser Parser, workers, maxBuffered, lookahead int) *PreBufferPool {
	if workers <= 0 {
		workers = parallel.DefaultWorkers()
	}
	if maxBuffered <= 0 {
		maxBuffered = DefaultMaxBuffered
	}
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}
	return &PreBufferPool{
		parser:      parser,
		maxBuffered: maxBuffered,
		lookahead:   lookahead,
		workers:     workers,
		cache:       map[int]*RenderedFrame{},
	}
}

// Configure replaces the shared render parameters. Cached frames and
// worker scenes belong to the previous document generation; the cache is
// cleared here and worker caches re-parse lazily on their next task.
func (p *PreBufferPool) Configure(doc []byte, width, height int, anims []Animation, tl Timeline) {
	p.paramsMu.Lock()
	p.params = renderParams{
		doc:      doc,
		gen:      p.params.gen + 1,
		width:    width,
		height:   height,
		anims:    anims,
		timeline: tl,
	}
	p.paramsMu.Unlock()

	p.clearCache()
}

// Resize updates the render dimensions and drops every cached frame, since
// they are all the wrong size now.
func (p *PreBufferPool) Resize(width, height int) {
	p.paramsMu.Lock()
	if width == p.params.width && height == p.params.height {
		p.paramsMu.Unlock()
		return
	}
	p.params.width = width
	p.params.height = height
	p.paramsMu.Unlock()

	p.clearCache()
}

// Mode returns the current mode.
func (p *PreBufferPool) Mode() Mode {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.mode
}

// ModeChanging reports whether a mode transition is in progress.
func (p *PreBufferPool) ModeChanging() bool {
	return p.modeChanging.Load()
}

// ActiveWorkers returns the worker count of the running pool, 0 when off.
func (p *PreBufferPool) ActiveWorkers() int {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if p.pool == nil {
		return 0
	}
	return p.pool.Workers()
}

// Start brings the pool into the given mode. No-op when already there.
func (p *PreBufferPool) Start(mode Mode) {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if p.mode == mode {
		return
	}
	p.startLocked(mode)
}

// CycleMode toggles Off -> PreBuffer -> Off and returns the new mode.
//
// The transition guard is raised for the whole cycle: pending speculative
// tasks are allowed to finish inside Close (cancelling mid-task is not
// possible), their results are discarded by the cache clear, and only then
// does the new mode start accepting work.
func (p *PreBufferPool) CycleMode() Mode {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()

	next := ModePreBuffer
	if p.mode == ModePreBuffer {
		next = ModeOff
	}
	p.startLocked(next)
	return p.mode
}

// Stop tears the pool down: joins all workers, then clears the cache.
// Safe to call in any mode.
func (p *PreBufferPool) Stop() {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	p.startLocked(ModeOff)
}

func (p *PreBufferPool) startLocked(mode Mode) {
	p.modeChanging.Store(true)
	defer p.modeChanging.Store(false)

	if p.pool != nil {
		// Close joins every worker before returning, so after this
		// point no task can observe the cache we are about to clear.
		p.pool.Close()
		p.pool = nil
	}
	p.clearCache()

	p.mode = mode
	if mode == ModePreBuffer {
		p.pool = parallel.New(p.workers, func() workerCache { return workerCache{} })
		Logger().Info("pre-buffer pool started", "workers", p.pool.Workers())
	} else {
		Logger().Info("pre-buffer pool stopped")
	}
}

// RequestFramesAhead enqueues speculative renders for the lookahead window
// after currentFrame (mod totalFrames), skipping indices already cached,
// and evicts entries that have fallen behind the playhead. Evicting first
// matters: at capacity, new requests are dropped silently, and without the
// eviction playback would starve once the buffered window ran out.
func (p *PreBufferPool) RequestFramesAhead(currentFrame, totalFrames int) {
	if p.modeChanging.Load() || totalFrames <= 1 {
		return
	}
	if p.Mode() != ModePreBuffer {
		return
	}

	p.evictBehind(currentFrame)

	for i := 1; i <= p.lookahead; i++ {
		p.RequestFrame((currentFrame + i) % totalFrames)
	}
}

// RequestFrame enqueues one speculative render. The request is dropped —
// silently, this is back-pressure, not an error — when the mode is Off, a
// mode transition is in progress, the frame is already cached, or the
// cache is at capacity.
func (p *PreBufferPool) RequestFrame(frameIndex int) {
	if p.modeChanging.Load() {
		return
	}

	p.stateMu.Lock()
	pool := p.pool
	mode := p.mode
	p.stateMu.Unlock()
	if mode != ModePreBuffer || pool == nil {
		return
	}

	p.paramsMu.Lock()
	tl := p.params.timeline
	width, height := p.params.width, p.params.height
	p.paramsMu.Unlock()

	frame := &RenderedFrame{
		Index:          frameIndex,
		ElapsedSeconds: FrameTime(frameIndex, tl.FrameCount, tl.Duration),
		Width:          width,
		Height:         height,
	}

	p.cacheMu.Lock()
	if _, exists := p.cache[frameIndex]; exists {
		p.cacheMu.Unlock()
		return
	}
	if len(p.cache) >= p.maxBuffered {
		// Cache full. Happens during rapid seeking or loop wraparound;
		// the direct-render fallback covers the missing frames.
		p.cacheMu.Unlock()
		return
	}
	p.cache[frameIndex] = frame
	p.cacheMu.Unlock()

	if !pool.TrySubmit(func(wc *workerCache) { p.renderFrame(frame, wc) }) {
		// Queue full or pool closing; drop the placeholder so a later
		// request for this index can try again.
		p.cacheMu.Lock()
		if p.cache[frameIndex] == frame {
			delete(p.cache, frameIndex)
		}
		p.cacheMu.Unlock()
	}
}

// Frame returns the cached pixels for frameIndex, or nil and false on a
// miss. Misses include frames still rendering, frames of a stale size, and
// any lookup during a mode transition; the caller falls back to rendering
// directly.
func (p *PreBufferPool) Frame(frameIndex, width, height int) (*RenderedFrame, bool) {
	if p.modeChanging.Load() || p.Mode() != ModePreBuffer {
		return nil, false
	}

	p.cacheMu.Lock()
	frame := p.cache[frameIndex]
	p.cacheMu.Unlock()

	if frame == nil || !frame.Ready() {
		return nil, false
	}
	if frame.Width != width || frame.Height != height {
		return nil, false
	}
	return frame, true
}

// BufferedCount returns the number of fully rendered frames in the cache.
func (p *PreBufferPool) BufferedCount() int {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	n := 0
	for _, f := range p.cache {
		if f.Ready() {
			n++
		}
	}
	return n
}

// evictBehind removes cached frames more than the lookahead window behind
// the playhead.
func (p *PreBufferPool) evictBehind(currentFrame int) {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	for idx := range p.cache {
		if currentFrame > idx && currentFrame-idx > p.lookahead {
			delete(p.cache, idx)
		}
	}
}

func (p *PreBufferPool) clearCache() {
	p.cacheMu.Lock()
	p.cache = map[int]*RenderedFrame{}
	p.cacheMu.Unlock()
}

// renderFrame runs on a pool worker. It heals the worker's cache against
// the current document generation and surface size, evaluates every
// animation track at the frame's precomputed elapsed time, renders, and
// publishes the pixels.
func (p *PreBufferPool) renderFrame(frame *RenderedFrame, wc *workerCache) {
	// A mode change means the cache this frame would land in is being
	// cleared; the result would be discarded anyway.
	if p.modeChanging.Load() {
		return
	}

	p.paramsMu.Lock()
	doc := p.params.doc
	gen := p.params.gen
	anims := p.params.anims
	p.paramsMu.Unlock()

	if len(doc) == 0 {
		return
	}

	// Parse once per worker per document generation.
	if wc.scene == nil || wc.sceneGen != gen {
		scene, _, err := p.parser.Parse(doc)
		if err != nil {
			Logger().Warn("worker parse failed", "error", err)
			return
		}
		wc.scene = scene
		wc.sceneGen = gen
	}

	// Recreate the surface only when dimensions changed.
	if wc.surface == nil || wc.surfaceW != frame.Width || wc.surfaceH != frame.Height {
		wc.surface = gg.NewPixmap(frame.Width, frame.Height)
		wc.surfaceW = frame.Width
		wc.surfaceH = frame.Height
	}

	// Apply every live track at this frame's time point. Each track
	// resolves its own value from elapsed time, which keeps tracks with
	// different durations and frame counts in sync.
	for _, anim := range anims {
		el, ok := wc.scene.FindElement(anim.TargetID())
		if !ok {
			continue
		}
		_ = el.SetAttribute(anim.AttributeName(), anim.ValueAt(frame.ElapsedSeconds))
	}

	wc.scene.SetOutputSize(frame.Width, frame.Height)
	if err := wc.scene.Render(wc.surface); err != nil {
		Logger().Warn("speculative render failed", "frame", frame.Index, "error", err)
		return
	}

	pixels := make([]byte, len(wc.surface.Data()))
	copy(pixels, wc.surface.Data())
	frame.publish(pixels)
}
