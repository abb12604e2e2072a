package diagram

import "github.com/rendis/flowgraph/pkg/schema"

// TimeScale maps task timestamps linearly onto the canvas width. The domain
// runs from the earliest received to the latest succeeded timestamp.
type TimeScale struct {
	Start float64
	End   float64
	Width float64
}

// NewTimeScale builds the scale for nodes. ok is false when no node carries
// a received or succeeded timestamp.
func NewTimeScale(nodes []schema.Node, width float64) (scale TimeScale, ok bool) {
	var haveStart, haveEnd bool
	for _, n := range nodes {
		if n.Received != nil && (!haveStart || *n.Received < scale.Start) {
			scale.Start = *n.Received
			haveStart = true
		}
		if n.Succeeded != nil && (!haveEnd || *n.Succeeded > scale.End) {
			scale.End = *n.Succeeded
			haveEnd = true
		}
	}
	scale.Width = width
	return scale, haveStart && haveEnd
}

// At returns the canvas x for timestamp t. A zero-length domain maps to 0.
func (s TimeScale) At(t float64) float64 {
	span := s.End - s.Start
	if span == 0 {
		return 0
	}
	return snap((t - s.Start) / span * s.Width)
}
