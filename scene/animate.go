package scene

import (
	"math"
	"strconv"
	"strings"

	"github.com/fogleman/ease"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// defaultSampleRate is the frame rate continuous tracks are quantized at
// when the document does not specify one.
const defaultSampleRate = 30

// easings maps calc attribute values to easing curves. Anything not
// listed (including "discrete") steps between values with no
// interpolation.
var easings = map[string]ease.Function{
	"linear":      ease.Linear,
	"ease-in":     ease.InQuad,
	"ease-out":    ease.OutQuad,
	"ease-in-out": ease.InOutQuad,
	"bounce":      ease.OutBounce,
	"elastic":     ease.OutElastic,
}

// Track is one <animate> element: a keyframed value sequence for a single
// attribute of a single element. Tracks are immutable after parsing and
// safe to share between goroutines.
type Track struct {
	target    string
	attribute string
	values    []string
	duration  float64
	calc      string
	frames    int
}

// TargetID returns the id of the element the track animates.
func (t *Track) TargetID() string { return t.target }

// AttributeName returns the attribute the track drives.
func (t *Track) AttributeName() string { return t.attribute }

// DurationSeconds returns the length of one animation cycle.
func (t *Track) DurationSeconds() float64 { return t.duration }

// FrameCountHint returns the natural number of distinct frames in one
// cycle: the keyframe count for discrete tracks, the cycle duration at
// the sample rate for interpolated ones.
func (t *Track) FrameCountHint() int { return t.frames }

// ValueAt returns the attribute value at the given elapsed time. Time
// wraps modulo the cycle duration, so looping playback needs no
// special-casing by the caller.
//
// Interpolated tracks divide the cycle evenly between consecutive
// keyframes and blend within each segment after applying the easing
// curve. Numeric values blend numerically; colors blend in Lab space,
// which avoids the muddy midpoints RGB blending produces; anything else
// falls back to stepping.
func (t *Track) ValueAt(seconds float64) string {
	n := len(t.values)
	if n == 0 {
		return ""
	}
	if n == 1 || t.duration <= 0 {
		return t.values[0]
	}

	cycle := seconds / t.duration
	cycle -= math.Floor(cycle)

	fn, interpolated := easings[t.calc]
	if !interpolated {
		idx := int(cycle * float64(n))
		if idx >= n {
			idx = n - 1
		}
		return t.values[idx]
	}

	// n keyframes define n-1 segments spread evenly over the cycle.
	pos := cycle * float64(n-1)
	seg := int(pos)
	if seg >= n-1 {
		seg = n - 2
	}
	local := fn(pos - float64(seg))
	return blend(t.values[seg], t.values[seg+1], local)
}

// blend interpolates between two attribute values. Numbers and colors get
// true interpolation; mixed or unparseable values step at the midpoint.
func blend(a, b string, tt float64) string {
	if av, errA := strconv.ParseFloat(strings.TrimSpace(a), 64); errA == nil {
		if bv, errB := strconv.ParseFloat(strings.TrimSpace(b), 64); errB == nil {
			return strconv.FormatFloat(av+(bv-av)*tt, 'g', -1, 64)
		}
	}
	if ca, errA := parseColorful(a); errA == nil {
		if cb, errB := parseColorful(b); errB == nil {
			return ca.BlendLab(cb, tt).Clamped().Hex()
		}
	}
	if tt < 0.5 {
		return a
	}
	return b
}

// parseColorful parses a hex color, expanding the #rgb shorthand that
// go-colorful does not accept.
func parseColorful(s string) (colorful.Color, error) {
	s = strings.TrimSpace(s)
	if hex, ok := namedColors[strings.ToLower(s)]; ok {
		s = hex
	}
	if len(s) == 4 && s[0] == '#' {
		s = "#" + strings.Repeat(s[1:2], 2) + strings.Repeat(s[2:3], 2) + strings.Repeat(s[3:4], 2)
	}
	return colorful.Hex(s)
}

// newTrack builds a track from <animate> attributes. Returns nil when the
// track can never produce a value (no keyframes, no target, or a
// non-positive duration).
func newTrack(target string, attrs map[string]string) *Track {
	t := &Track{
		target:    target,
		attribute: attrs["attribute"],
		calc:      attrs["calc"],
		duration:  parseDuration(attrs["dur"]),
	}
	if t.attribute == "" {
		t.attribute = attrs["attributeName"]
	}
	if v := attrs["values"]; v != "" {
		for _, part := range strings.Split(v, ";") {
			part = strings.TrimSpace(part)
			if part != "" {
				t.values = append(t.values, part)
			}
		}
	} else if from, to := attrs["from"], attrs["to"]; from != "" && to != "" {
		t.values = []string{from, to}
	}
	if t.target == "" || t.attribute == "" || len(t.values) == 0 || t.duration <= 0 {
		return nil
	}

	if n, err := strconv.Atoi(attrs["frames"]); err == nil && n > 0 {
		t.frames = n
	} else if _, interpolated := easings[t.calc]; !interpolated {
		t.frames = len(t.values)
	} else {
		t.frames = int(math.Round(t.duration * defaultSampleRate))
		if t.frames < 2 {
			t.frames = 2
		}
	}
	return t
}

// parseDuration reads a duration attribute: "2s", "1500ms", or a bare
// number of seconds. Returns 0 on anything unparseable.
func parseDuration(s string) float64 {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return 0
	case strings.HasSuffix(s, "ms"):
		v, err := strconv.ParseFloat(s[:len(s)-2], 64)
		if err != nil {
			return 0
		}
		return v / 1000
	case strings.HasSuffix(s, "s"):
		s = s[:len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
