package vgplay

import "github.com/gogpu/gg"

// Scene is a parsed animation document ready for rendering.
//
// A Scene is bound to the goroutine that uses it and is NOT safe for
// concurrent use: the render goroutine and every pre-buffer worker parse
// their own instance from the same document bytes. All slow work (parsing)
// happens once per goroutine; rendering reuses the parsed state.
type Scene interface {
	// SetOutputSize declares the pixel dimensions of the next Render target.
	// Implementations scale the document to fit, preserving aspect ratio.
	SetOutputSize(width, height int)

	// Render rasterizes the scene at its current attribute state into pm.
	// pm must match the dimensions passed to SetOutputSize.
	Render(pm *gg.Pixmap) error

	// FindElement looks up an element by id. The second return value is
	// false when no element with that id exists.
	FindElement(id string) (Element, bool)
}

// Element is a single addressable node of a Scene.
type Element interface {
	// SetAttribute updates a presentation attribute from its string form.
	// Unknown attributes are ignored and return nil, mirroring how SMIL
	// players tolerate attributes they do not understand.
	SetAttribute(name, value string) error
}

// Animation is one attribute value track extracted from a document.
// Implementations must be safe for concurrent reads: value lookups happen
// on the interactive thread and on every worker simultaneously.
type Animation interface {
	// TargetID is the id of the element this track animates.
	TargetID() string

	// AttributeName is the attribute this track animates.
	AttributeName() string

	// ValueAt evaluates the track at the given elapsed time in seconds.
	ValueAt(seconds float64) string

	// FrameCountHint is the number of discrete values in the track.
	FrameCountHint() int

	// DurationSeconds is the duration of one track cycle.
	DurationSeconds() float64
}

// Parser turns raw document bytes into a Scene and its animation tracks.
// Parse is called once per rendering goroutine, so implementations must be
// safe for concurrent calls.
type Parser interface {
	Parse(data []byte) (Scene, []Animation, error)
}

// Presenter receives completed frames from the Scheduler.
//
// Present is called on the scheduler's tick goroutine with a pixel buffer
// of premultiplied RGBA bytes (stride bytes per row). The buffer is only
// valid for the duration of the call; implementations that retain pixels
// must copy them.
type Presenter interface {
	Present(pixels []byte, width, height, stride int) error
}

// PresenterFunc adapts a function to the Presenter interface.
type PresenterFunc func(pixels []byte, width, height, stride int) error

// Present calls f.
func (f PresenterFunc) Present(pixels []byte, width, height, stride int) error {
	return f(pixels, width, height, stride)
}
