package vgplay

// Timeline holds the immutable timing attributes of a loaded document:
// the total animation duration and the largest frame count across all
// concurrently animating tracks. A Timeline is created when a document is
// loaded and replaced wholesale (never mutated) when a new one is loaded.
type Timeline struct {
	// Duration is the total animation cycle duration in seconds.
	Duration float64

	// FrameCount is the largest frame count across all tracks. It drives
	// the time-to-frame-index mapping and the pre-buffer lookahead.
	FrameCount int
}

// NewTimeline derives a Timeline from a document's animation tracks.
// Documents with no tracks get a single-frame, one-second timeline so the
// pipeline can still display them.
func NewTimeline(anims []Animation) Timeline {
	tl := Timeline{Duration: 1.0, FrameCount: 1}
	for _, a := range anims {
		if d := a.DurationSeconds(); d > tl.Duration {
			tl.Duration = d
		}
		if n := a.FrameCountHint(); n > tl.FrameCount {
			tl.FrameCount = n
		}
	}
	return tl
}

// Animated reports whether the timeline has more than one frame.
func (tl Timeline) Animated() bool {
	return tl.FrameCount > 1
}
