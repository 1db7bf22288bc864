// Package scene parses and renders animated vector documents.
//
// A document is a compact XML dialect with a <vec> root describing a
// fixed-size drawing of groups and primitive shapes. Elements carry paint
// attributes (fill, stroke, stroke-width, opacity), a transform list, and
// optional <animate> tracks that vary an attribute over time.
//
// # Document format
//
//	<vec width="200" height="100">
//	  <g transform="translate(10 10)">
//	    <rect id="bar" x="0" y="0" width="50" height="20" fill="#3366CC">
//	      <animate attribute="fill" values="#3366CC;#CC3333" dur="2s" calc="linear"/>
//	    </rect>
//	    <circle cx="100" cy="50" r="30" fill="none" stroke="#000" stroke-width="2"/>
//	  </g>
//	</vec>
//
// Parsing yields a Document, which renders into a pixmap at any output
// size (the drawing is scaled to fit and centered), plus one animation
// track per <animate> element. A Document is bound to a single goroutine;
// concurrent renderers each parse their own copy.
package scene
