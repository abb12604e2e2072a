package diagram

import (
	"math"

	"github.com/rendis/flowgraph/pkg/schema"
)

// Point is a position on the canvas in logical units.
type Point struct {
	X float64
	Y float64
}

// Geometry maps grid locations to canvas coordinates. It holds no state
// besides its options.
type Geometry struct {
	opts Options
}

// NewGeometry returns the geometry for opts.
func NewGeometry(opts Options) Geometry {
	return Geometry{opts: opts}
}

// Origin returns the top-left corner of the box at loc.
func (g Geometry) Origin(loc schema.Location) Point {
	return Point{
		X: snap(float64(loc.Column)*g.opts.NodeWidth*g.opts.SpacingFactor + g.opts.Margin),
		Y: snap(float64(loc.Row)*g.opts.NodeHeight*g.opts.SpacingFactor + g.opts.Margin),
	}
}

// LabelAnchor returns the baseline start of the label inside the box at loc.
func (g Geometry) LabelAnchor(loc schema.Location) Point {
	o := g.Origin(loc)
	return Point{X: snap(o.X + g.opts.LabelOffsetX), Y: snap(o.Y + g.opts.LabelOffsetY)}
}

// EdgeAnchors returns the end points of a dependency line: the right-middle
// of the source box and the left-middle of the target box.
func (g Geometry) EdgeAnchors(source, target schema.Location) (Point, Point) {
	s := g.Origin(source)
	t := g.Origin(target)
	half := g.opts.NodeHeight / 2
	return Point{X: snap(s.X + g.opts.NodeWidth), Y: snap(s.Y + half)},
		Point{X: t.X, Y: snap(t.Y + half)}
}

// snap rounds away float noise such as 3*200*1.1 = 660.0000000000001.
func snap(v float64) float64 {
	const precision = 1e6
	return math.Round(v*precision) / precision
}
