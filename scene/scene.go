package scene

import (
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/gg"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/gogpu/vgplay"
)

// Element is one node of the document tree. Attribute values are stored as
// strings and parsed at render time, so an animation track can overwrite
// any attribute with SetAttribute and the next render picks it up.
//
// Elements are not safe for concurrent use; the owning Document is bound
// to one goroutine.
type Element struct {
	kind     string
	attrs    map[string]string
	children []*Element
}

// Kind returns the element's tag name (g, rect, circle, ...).
func (e *Element) Kind() string {
	return e.kind
}

// Attribute returns the current value of an attribute, or "" when unset.
func (e *Element) Attribute(name string) string {
	return e.attrs[name]
}

// SetAttribute overwrites an attribute value. This is the mutation hook
// animation tracks drive between renders.
func (e *Element) SetAttribute(name, value string) error {
	if e.attrs == nil {
		e.attrs = map[string]string{}
	}
	e.attrs[name] = value
	return nil
}

func (e *Element) float(name string, def float64) float64 {
	s, ok := e.attrs[name]
	if !ok {
		return def
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return v
}

// Document is a parsed vector drawing. It renders at any output size by
// scaling the intrinsic drawing to fit and centering it.
type Document struct {
	width  float64
	height float64
	root   *Element
	byID   map[string]*Element

	outW int
	outH int
}

// Width and Height return the document's intrinsic size.
func (d *Document) Width() float64  { return d.width }
func (d *Document) Height() float64 { return d.height }

// SetOutputSize sets the pixel dimensions subsequent renders target.
func (d *Document) SetOutputSize(width, height int) {
	d.outW = width
	d.outH = height
}

// FindElement returns the element with the given id attribute.
func (d *Document) FindElement(id string) (vgplay.Element, bool) {
	e, found := d.byID[id]
	if !found {
		return nil, false
	}
	return e, true
}

// Lookup is FindElement with the concrete element type, for direct use.
func (d *Document) Lookup(id string) (*Element, bool) {
	e, ok := d.byID[id]
	return e, ok
}

// Render draws the document into pm, clearing it to white first. The
// drawing is scaled uniformly to fit the output size and centered, so
// aspect ratio is preserved across resizes.
func (d *Document) Render(pm *gg.Pixmap) error {
	ctx := gg.NewContext(pm.Width(), pm.Height(), gg.WithPixmap(pm))
	defer ctx.Close()

	ctx.ClearWithColor(gg.White)

	outW, outH := d.outW, d.outH
	if outW <= 0 || outH <= 0 {
		outW, outH = pm.Width(), pm.Height()
	}
	scale := 1.0
	if d.width > 0 && d.height > 0 {
		sx := float64(outW) / d.width
		sy := float64(outH) / d.height
		scale = sx
		if sy < sx {
			scale = sy
		}
	}
	ctx.Translate((float64(outW)-d.width*scale)/2, (float64(outH)-d.height*scale)/2)
	ctx.Scale(scale, scale)

	return d.renderElement(ctx, d.root, 1.0)
}

// renderElement draws one element and its children. opacity accumulates
// multiplicatively down the tree and is folded into paint alpha, since the
// rasterizer has no group-transparency primitive.
func (d *Document) renderElement(ctx *gg.Context, e *Element, opacity float64) error {
	if e == nil {
		return nil
	}
	if e.attrs["visibility"] == "hidden" || e.attrs["display"] == "none" {
		return nil
	}
	opacity *= e.float("opacity", 1)
	if opacity <= 0 {
		return nil
	}

	ctx.Push()
	defer ctx.Pop()
	applyTransform(ctx, e.attrs["transform"])

	switch e.kind {
	case "vec", "g":
		for _, child := range e.children {
			if err := d.renderElement(ctx, child, opacity); err != nil {
				return err
			}
		}
		return nil
	case "rect":
		ctx.DrawRectangle(e.float("x", 0), e.float("y", 0), e.float("width", 0), e.float("height", 0))
	case "circle":
		ctx.DrawCircle(e.float("cx", 0), e.float("cy", 0), e.float("r", 0))
	case "ellipse":
		ctx.DrawEllipse(e.float("cx", 0), e.float("cy", 0), e.float("rx", 0), e.float("ry", 0))
	case "line":
		ctx.DrawLine(e.float("x1", 0), e.float("y1", 0), e.float("x2", 0), e.float("y2", 0))
	case "polyline", "polygon":
		pts := parsePoints(e.attrs["points"])
		if len(pts) < 2 {
			return nil
		}
		ctx.MoveTo(pts[0][0], pts[0][1])
		for _, p := range pts[1:] {
			ctx.LineTo(p[0], p[1])
		}
		if e.kind == "polygon" {
			ctx.ClosePath()
		}
	default:
		// Unknown elements are ignored, not an error.
		return nil
	}

	return paintShape(ctx, e, opacity)
}

// paintShape fills and strokes the current path from the element's paint
// attributes. Lines and polylines have no interior, so their default paint
// is a stroke; everything else defaults to a black fill like SVG.
func paintShape(ctx *gg.Context, e *Element, opacity float64) error {
	fill := e.attrs["fill"]
	stroke := e.attrs["stroke"]
	open := e.kind == "line" || e.kind == "polyline"
	if open {
		if stroke == "" {
			stroke = "#000000"
		}
		fill = "none"
	} else if fill == "" {
		fill = "#000000"
	}

	if fill != "none" {
		col, ok := parseColor(fill)
		if ok {
			ctx.SetRGBA(col.R, col.G, col.B, col.A*opacity*e.float("fill-opacity", 1))
			if stroke != "" && stroke != "none" {
				if err := ctx.FillPreserve(); err != nil {
					return err
				}
			} else if err := ctx.Fill(); err != nil {
				return err
			}
		}
	}
	if stroke != "" && stroke != "none" {
		col, ok := parseColor(stroke)
		if ok {
			ctx.SetRGBA(col.R, col.G, col.B, col.A*opacity*e.float("stroke-opacity", 1))
			ctx.SetLineWidth(e.float("stroke-width", 1))
			if err := ctx.Stroke(); err != nil {
				return err
			}
		}
	}
	ctx.ClearPath()
	return nil
}

// namedColors covers the handful of keywords documents in the wild use;
// everything else is hex or rgb().
var namedColors = map[string]string{
	"black":   "#000000",
	"white":   "#FFFFFF",
	"red":     "#FF0000",
	"green":   "#008000",
	"blue":    "#0000FF",
	"yellow":  "#FFFF00",
	"gray":    "#808080",
	"grey":    "#808080",
	"orange":  "#FFA500",
	"purple":  "#800080",
	"cyan":    "#00FFFF",
	"magenta": "#FF00FF",
}

// parseColor resolves a paint string to an RGBA color. Supports #rgb,
// #rrggbb, #rrggbbaa, rgb(r,g,b), and a small set of color keywords.
func parseColor(s string) (gg.RGBA, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "none" {
		return gg.RGBA{}, false
	}
	if hex, ok := namedColors[strings.ToLower(s)]; ok {
		s = hex
	}
	if strings.HasPrefix(s, "#") {
		return gg.Hex(s), true
	}
	if strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")") {
		parts := strings.Split(s[4:len(s)-1], ",")
		if len(parts) != 3 {
			return gg.RGBA{}, false
		}
		var ch [3]float64
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return gg.RGBA{}, false
			}
			ch[i] = v / 255
		}
		return gg.RGBA{R: ch[0], G: ch[1], B: ch[2], A: 1}, true
	}
	// Fall back to go-colorful's parser for anything it recognizes.
	if c, err := colorful.Hex(s); err == nil {
		return gg.RGBA{R: c.R, G: c.G, B: c.B, A: 1}, true
	}
	return gg.RGBA{}, false
}

// parsePoints reads a polyline/polygon "x1,y1 x2,y2 ..." list. Commas and
// whitespace both separate coordinates.
func parsePoints(s string) [][2]float64 {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) < 4 {
		return nil
	}
	pts := make([][2]float64, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		x, errX := strconv.ParseFloat(fields[i], 64)
		y, errY := strconv.ParseFloat(fields[i+1], 64)
		if errX != nil || errY != nil {
			return nil
		}
		pts = append(pts, [2]float64{x, y})
	}
	return pts
}

// applyTransform applies a transform list such as
// "translate(10 20) rotate(45) scale(2)" to the context. Unknown functions
// are skipped. rotate takes degrees with an optional center point.
func applyTransform(ctx *gg.Context, s string) {
	s = strings.TrimSpace(s)
	for s != "" {
		open := strings.IndexByte(s, '(')
		end := strings.IndexByte(s, ')')
		if open < 0 || end < open {
			return
		}
		name := strings.TrimSpace(s[:open])
		args := parseNumbers(s[open+1 : end])
		s = strings.TrimSpace(s[end+1:])

		switch name {
		case "translate":
			switch len(args) {
			case 1:
				ctx.Translate(args[0], 0)
			case 2:
				ctx.Translate(args[0], args[1])
			}
		case "scale":
			switch len(args) {
			case 1:
				ctx.Scale(args[0], args[0])
			case 2:
				ctx.Scale(args[0], args[1])
			}
		case "rotate":
			switch len(args) {
			case 1:
				ctx.Rotate(args[0] * math.Pi / 180)
			case 3:
				ctx.RotateAbout(args[0]*math.Pi/180, args[1], args[2])
			}
		}
	}
}

func parseNumbers(s string) []float64 {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}
