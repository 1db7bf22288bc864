// Package vgplay provides a concurrent, time-synchronized playback pipeline
// for vector animations rendered with gogpu/gg.
//
// # Overview
//
// vgplay answers one question at high frequency and under unpredictable
// rendering latency: which animation frame should be visible right now?
// It renders that frame off the interactive thread and hands completed pixel
// buffers to a presentation layer without ever blocking input handling.
//
// The pipeline is built from four cooperating parts:
//
//   - Clock: maps a monotonic instant to an animation frame index.
//     Playback is time-based, never counter-based, so slow renders skip
//     frames instead of stretching time.
//   - PreBufferPool: speculatively renders a lookahead window of future
//     frames on a worker pool and serves them as instant cache hits.
//   - RenderThread: a single dedicated goroutine that owns a front/back
//     pixel buffer pair, consults the pre-buffer first, falls back to
//     direct rendering under a watchdog budget, and publishes frames
//     atomically.
//   - FrameScheduler: the per-tick driver. It computes the desired frame,
//     requests it (fire and forget), and forwards newly completed pixels
//     to a Presenter. A tick with nothing new simply leaves the previous
//     frame on screen.
//
// # Quick Start
//
//	doc, _ := os.ReadFile("spinner.vec")
//	p, err := vgplay.NewPlayer(scene.Parser{},
//	    vgplay.WithSize(800, 600),
//	    vgplay.WithPresenter(sink))
//	if err != nil { ... }
//	defer p.Close()
//
//	if err := p.Load(doc); err != nil { ... }
//	p.Run(ctx, 16*time.Millisecond)
//
// # Collaborators
//
// Scene parsing and attribute evaluation live behind the Parser, Scene and
// Animation interfaces; package scene provides the reference implementation.
// Display lives behind the Presenter interface; package present provides
// headless sinks (PNG sequences, MQTT streams).
//
// # Logging
//
// vgplay produces no log output by default. Call SetLogger to enable it.
package vgplay
