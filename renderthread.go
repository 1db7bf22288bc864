package vgplay

import (
	"sync"
	"time"

	"github.com/gogpu/gg"
)

// DefaultRenderTimeout is the per-frame render budget. A frame that takes
// longer is counted as a timeout and discarded rather than published late.
const DefaultRenderTimeout = 500 * time.Millisecond

// frameRequest asks the render goroutine to produce one frame.
type frameRequest struct {
	index       int
	totalFrames int
}

// RenderThread owns a dedicated goroutine that produces frames on demand
// and hands them to the interactive thread through a double buffer.
//
// Requests are coalesced: the wake channel holds at most one pending
// request and a newer request replaces an older unserviced one, so the
// render goroutine always works on the most recent frame the clock asked
// for and never accumulates a backlog.
//
// For each request it first consults the pre-buffer; on a miss it renders
// directly with its own scene and surface. Either way it piggybacks a
// lookahead request so the pool keeps speculating ahead of the playhead.
type RenderThread struct {
	parser    Parser
	prebuffer *PreBufferPool
	buffer    *doubleBuffer

	renderTimeout time.Duration

	wake     chan frameRequest
	commands chan func()
	done     chan struct{}
	wg       sync.WaitGroup

	paramsMu sync.Mutex
	params   renderParams

	// Render-goroutine-only state; no locks.
	scene    Scene
	sceneGen uint64
	surface  *gg.Pixmap

	renderTimes *RollingAverage

	countersMu sync.Mutex
	dropped    uint64
	timeouts   uint64
}

// NewRenderThread creates a render thread writing into buffer. The
// goroutine is not started until Start.
func NewRenderThread(parser Parser, prebuffer *PreBufferPool, buffer *doubleBuffer, timeout time.Duration) *RenderThread {
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}
	return &RenderThread{
		parser:        parser,
		prebuffer:     prebuffer,
		buffer:        buffer,
		renderTimeout: timeout,
		wake:          make(chan frameRequest, 1),
		commands:      make(chan func(), 8),
		done:          make(chan struct{}),
		renderTimes:   NewRollingAverage(30),
	}
}

// Start launches the render goroutine.
func (r *RenderThread) Start() {
	r.wg.Add(1)
	go r.loop()
}

// Stop signals the render goroutine and joins it. The frame being rendered
// when Stop is called completes; it is simply never published.
func (r *RenderThread) Stop() {
	select {
	case <-r.done:
		return
	default:
	}
	close(r.done)
	r.wg.Wait()
}

// Configure replaces the document and timing parameters. The render
// goroutine re-parses its scene lazily on the next request.
func (r *RenderThread) Configure(doc []byte, width, height int, anims []Animation, tl Timeline) {
	r.paramsMu.Lock()
	r.params = renderParams{
		doc:      doc,
		gen:      r.params.gen + 1,
		width:    width,
		height:   height,
		anims:    anims,
		timeline: tl,
	}
	r.paramsMu.Unlock()
}

// Resize updates the output dimensions for subsequent renders.
func (r *RenderThread) Resize(width, height int) {
	r.paramsMu.Lock()
	r.params.width = width
	r.params.height = height
	r.paramsMu.Unlock()
}

// RequestFrame wakes the render goroutine for the given frame index,
// replacing any unserviced request. Never blocks.
func (r *RenderThread) RequestFrame(index, totalFrames int) {
	req := frameRequest{index: index, totalFrames: totalFrames}
	select {
	case r.wake <- req:
		return
	default:
	}
	// Channel full: discard the stale request and try once more. A
	// concurrent caller may win the freed slot, which is fine; some
	// request newer than the discarded one is pending either way.
	select {
	case <-r.wake:
	default:
	}
	select {
	case r.wake <- req:
	default:
	}
}

// Call runs fn on the render goroutine and waits for it to complete.
// Returns false if the render thread is stopped. Used for operations that
// must not overlap a direct render, such as mode transitions.
func (r *RenderThread) Call(fn func()) bool {
	ran := make(chan struct{})
	select {
	case r.commands <- func() { fn(); close(ran) }:
	case <-r.done:
		return false
	}
	select {
	case <-ran:
		return true
	case <-r.done:
		return false
	}
}

// AvgRenderMillis returns the rolling average direct-render time.
func (r *RenderThread) AvgRenderMillis() float64 {
	return r.renderTimes.Average()
}

// Dropped returns frames produced but never published (timeouts plus
// resize races), and Timeouts the subset abandoned for exceeding the
// render budget.
func (r *RenderThread) Dropped() uint64 {
	r.countersMu.Lock()
	defer r.countersMu.Unlock()
	return r.dropped
}

func (r *RenderThread) Timeouts() uint64 {
	r.countersMu.Lock()
	defer r.countersMu.Unlock()
	return r.timeouts
}

func (r *RenderThread) loop() {
	defer r.wg.Done()
	for {
		select {
		case <-r.done:
			return
		case cmd := <-r.commands:
			cmd()
		case req := <-r.wake:
			r.handle(req)
		}
	}
}

// handle services one frame request: pre-buffer hit, or direct render.
func (r *RenderThread) handle(req frameRequest) {
	r.paramsMu.Lock()
	params := r.params
	r.paramsMu.Unlock()

	if len(params.doc) == 0 || params.width <= 0 || params.height <= 0 {
		return
	}

	if frame, ok := r.prebuffer.Frame(req.index, params.width, params.height); ok {
		if !r.buffer.writeBack(frame.Pixels, frame.Width, frame.Height) {
			r.noteDrop(false)
		}
		r.prebuffer.RequestFramesAhead(req.index, req.totalFrames)
		return
	}

	r.renderDirect(req, params)
	r.prebuffer.RequestFramesAhead(req.index, req.totalFrames)
}

// renderDirect produces the frame on the render goroutine itself. The
// frame's animation values are evaluated at the same quantized frame time
// the pre-buffer workers use, so a direct render and a cache hit for the
// same index are pixel-identical.
func (r *RenderThread) renderDirect(req frameRequest, params renderParams) {
	if r.scene == nil || r.sceneGen != params.gen {
		scene, _, err := r.parser.Parse(params.doc)
		if err != nil {
			Logger().Warn("render parse failed", "error", err)
			return
		}
		r.scene = scene
		r.sceneGen = params.gen
	}
	if r.surface == nil || r.surface.Width() != params.width || r.surface.Height() != params.height {
		r.surface = gg.NewPixmap(params.width, params.height)
	}

	elapsed := FrameTime(req.index, params.timeline.FrameCount, params.timeline.Duration)
	for _, anim := range params.anims {
		el, ok := r.scene.FindElement(anim.TargetID())
		if !ok {
			continue
		}
		_ = el.SetAttribute(anim.AttributeName(), anim.ValueAt(elapsed))
	}

	start := time.Now()
	r.scene.SetOutputSize(params.width, params.height)
	err := r.scene.Render(r.surface)
	took := time.Since(start)
	r.renderTimes.Add(float64(took.Milliseconds()))

	if err != nil {
		Logger().Warn("direct render failed", "frame", req.index, "error", err)
		return
	}

	// The budget check happens after the fact: a running render cannot be
	// interrupted, but its result can be withheld so a stale frame never
	// displaces a fresher pre-buffered one. Timeouts are logged and
	// counted, never fatal; playback continues on the next tick.
	if took > r.renderTimeout {
		r.noteDrop(true)
		Logger().Warn("render exceeded budget",
			"frame", req.index, "took", took, "budget", r.renderTimeout)
		return
	}

	if !r.buffer.writeBack(r.surface.Data(), params.width, params.height) {
		// Resize race: the buffers were reallocated mid-render.
		r.noteDrop(false)
		Logger().Debug("frame dropped on resize", "frame", req.index)
	}
}

func (r *RenderThread) noteDrop(timeout bool) {
	r.countersMu.Lock()
	r.dropped++
	if timeout {
		r.timeouts++
	}
	r.countersMu.Unlock()
}
