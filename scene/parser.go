package scene

import (
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/gogpu/vgplay"
)

// ErrNotVec is returned when the document root is not a <vec> element.
var ErrNotVec = errors.New("scene: root element is not <vec>")

// Parser parses vec documents. The zero value is ready to use; it
// implements the parser contract the playback pipeline consumes, and
// every call produces an independent document tree, so concurrent workers
// can each parse their own copy of the same bytes.
type Parser struct{}

// Parse builds the document tree and extracts its animation tracks.
func (Parser) Parse(data []byte) (vgplay.Scene, []vgplay.Animation, error) {
	doc, tracks, err := ParseDocument(data)
	if err != nil {
		return nil, nil, err
	}
	anims := make([]vgplay.Animation, len(tracks))
	for i, t := range tracks {
		anims[i] = t
	}
	return doc, anims, nil
}

// xmlNode is the generic decoded form; typed elements are built from it.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []xmlNode  `xml:",any"`
}

// ParseDocument parses a vec document with concrete types.
func ParseDocument(data []byte) (*Document, []*Track, error) {
	var root xmlNode
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, nil, fmt.Errorf("scene: parse: %w", err)
	}
	if root.XMLName.Local != "vec" {
		return nil, nil, ErrNotVec
	}

	d := &Document{byID: map[string]*Element{}}
	var tracks []*Track
	d.root = buildElement(root, d, &tracks)
	d.width = d.root.float("width", 100)
	d.height = d.root.float("height", 100)
	if d.width <= 0 || d.height <= 0 {
		return nil, nil, fmt.Errorf("scene: invalid document size %gx%g", d.width, d.height)
	}
	return d, tracks, nil
}

// buildElement converts a decoded node into an Element, registering ids
// and splitting off <animate> children as tracks. An <animate> without an
// explicit target attaches to its parent element.
func buildElement(n xmlNode, d *Document, tracks *[]*Track) *Element {
	e := &Element{
		kind:  n.XMLName.Local,
		attrs: make(map[string]string, len(n.Attrs)),
	}
	for _, a := range n.Attrs {
		e.attrs[a.Name.Local] = a.Value
	}
	if id := e.attrs["id"]; id != "" {
		d.byID[id] = e
	}

	for _, child := range n.Children {
		if child.XMLName.Local == "animate" {
			attrs := make(map[string]string, len(child.Attrs))
			for _, a := range child.Attrs {
				attrs[a.Name.Local] = a.Value
			}
			target := attrs["target"]
			if target == "" {
				target = e.attrs["id"]
			}
			if t := newTrack(target, attrs); t != nil {
				*tracks = append(*tracks, t)
			}
			continue
		}
		e.children = append(e.children, buildElement(child, d, tracks))
	}
	return e
}
