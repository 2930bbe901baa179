// Package engine runs a render plan: it evaluates the plan's dataflow over
// the tables pushed by the host and paints the result onto a Surface as SVG.
//
// Charts are drawn with go-gg. Marker images (invalid specification, no
// data, render failure) are drawn directly with svgo.
package engine
