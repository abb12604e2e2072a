package diagram

// Role identifies what a shape depicts.
type Role string

const (
	RoleNode     Role = "node"
	RoleLabel    Role = "label"
	RoleEdge     Role = "edge"
	RoleTimeline Role = "timeline"
)

// Paint carries the presentation of a shape. Stroke and Fill are literal
// colours (empty means unset); Classes are CSS class names.
type Paint struct {
	Stroke  string
	Fill    string
	Classes []string
}

// Shape is anything a Surface can hold.
type Shape interface {
	ShapeKey() string
	ShapeRole() Role
}

// Rect is an axis-aligned box.
type Rect struct {
	Key    string
	Role   Role
	X, Y   float64
	Width  float64
	Height float64
	Paint  Paint
}

// Text is a single-line label anchored at its baseline start.
type Text struct {
	Key     string
	X, Y    float64
	Size    float64
	Content string
	Paint   Paint
}

// Line is a straight segment.
type Line struct {
	Key    string
	X1, Y1 float64
	X2, Y2 float64
	Paint  Paint
}

func (r Rect) ShapeKey() string { return r.Key }
func (r Rect) ShapeRole() Role  { return r.Role }
func (t Text) ShapeKey() string { return t.Key }
func (t Text) ShapeRole() Role  { return RoleLabel }
func (l Line) ShapeKey() string { return l.Key }
func (l Line) ShapeRole() Role  { return RoleEdge }

// Shape keys. A node owns its box, label and timeline bar; an edge owns its line.
func nodeKey(id string) string     { return "node:" + id }
func labelKey(id string) string    { return "label:" + id }
func timelineKey(id string) string { return "timeline:" + id }
func edgeKey(k string) string      { return "edge:" + k }
