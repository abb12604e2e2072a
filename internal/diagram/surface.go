package diagram

import "sync"

// Surface receives draw calls. Implementations may fail, in which case the
// render stops and reports a SURFACE_ERROR.
type Surface interface {
	DrawRect(r Rect) error
	DrawText(t Text) error
	DrawLine(l Line) error
}

// Scene is a retained, ordered Surface. Drawing appends; shapes already
// present are never replaced, so repeated renders onto the same scene
// accumulate. Reset or Remove clear shapes explicitly.
type Scene struct {
	mu     sync.RWMutex
	shapes []Shape
}

// NewScene returns an empty scene.
func NewScene() *Scene {
	return &Scene{}
}

func (s *Scene) DrawRect(r Rect) error { return s.add(r) }
func (s *Scene) DrawText(t Text) error { return s.add(t) }
func (s *Scene) DrawLine(l Line) error { return s.add(l) }

func (s *Scene) add(sh Shape) error {
	s.mu.Lock()
	s.shapes = append(s.shapes, sh)
	s.mu.Unlock()
	return nil
}

// Len returns the number of shapes in the scene.
func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.shapes)
}

// Shapes returns a copy of the shapes in draw order.
func (s *Scene) Shapes() []Shape {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Shape(nil), s.shapes...)
}

// Rects returns the rectangles in draw order.
func (s *Scene) Rects() []Rect { return shapesOf[Rect](s) }

// Texts returns the labels in draw order.
func (s *Scene) Texts() []Text { return shapesOf[Text](s) }

// Lines returns the lines in draw order.
func (s *Scene) Lines() []Line { return shapesOf[Line](s) }

func shapesOf[T Shape](s *Scene) []T {
	var out []T
	for _, sh := range s.Shapes() {
		if v, ok := sh.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// Remove deletes every shape with one of the given keys and returns how many
// were removed.
func (s *Scene) Remove(keys ...string) int {
	if len(keys) == 0 {
		return 0
	}
	drop := make(map[string]bool, len(keys))
	for _, k := range keys {
		drop[k] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.shapes[:0]
	removed := 0
	for _, sh := range s.shapes {
		if drop[sh.ShapeKey()] {
			removed++
			continue
		}
		kept = append(kept, sh)
	}
	clear(s.shapes[len(kept):])
	s.shapes = kept
	return removed
}

// Reset removes every shape.
func (s *Scene) Reset() {
	s.mu.Lock()
	s.shapes = nil
	s.mu.Unlock()
}

var _ Surface = (*Scene)(nil)
