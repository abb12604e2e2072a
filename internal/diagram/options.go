package diagram

import (
	"math"

	"github.com/rendis/flowgraph/internal/style"
	"github.com/rendis/flowgraph/pkg/schema"
)

// Options holds the geometry and presentation settings of a render.
type Options struct {
	NodeWidth     float64    `json:"node_width"`
	NodeHeight    float64    `json:"node_height"`
	CanvasWidth   float64    `json:"canvas_width"`
	CanvasHeight  float64    `json:"canvas_height"`
	SpacingFactor float64    `json:"spacing_factor"`
	TextSize      float64    `json:"text_size"`
	Margin        float64    `json:"margin"`
	LabelOffsetX  float64    `json:"label_offset_x"`
	LabelOffsetY  float64    `json:"label_offset_y"`
	Mode          style.Mode `json:"mode"`

	// Timeline draws a duration bar under every node that has both
	// timestamps, positioned on a canvas-wide time scale.
	Timeline bool `json:"timeline"`

	// ShortenUUIDs labels UUID identities with their first eight characters.
	ShortenUUIDs bool `json:"shorten_uuids"`
}

// DefaultOptions returns the standard 1024×1024 canvas with 200×40 nodes.
func DefaultOptions() Options {
	return Options{
		NodeWidth:     200,
		NodeHeight:    40,
		CanvasWidth:   1024,
		CanvasHeight:  1024,
		SpacingFactor: 1.1,
		TextSize:      14,
		LabelOffsetX:  2.5,
		LabelOffsetY:  14,
		Mode:          style.ModeInline,
	}
}

// Validate rejects geometry that cannot produce a drawing.
func (o Options) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"node_width", o.NodeWidth},
		{"node_height", o.NodeHeight},
		{"canvas_width", o.CanvasWidth},
		{"canvas_height", o.CanvasHeight},
		{"spacing_factor", o.SpacingFactor},
		{"text_size", o.TextSize},
		{"label_offset_x", o.LabelOffsetX},
		{"label_offset_y", o.LabelOffsetY},
		{"margin", o.Margin},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return schema.NewErrorf(schema.ErrCodeConfig, "%s must be a finite number, got %g", f.name, f.v)
		}
	}

	switch {
	case o.NodeWidth <= 0 || o.NodeHeight <= 0:
		return schema.NewErrorf(schema.ErrCodeConfig, "node size must be positive, got %gx%g", o.NodeWidth, o.NodeHeight)
	case o.CanvasWidth <= 0 || o.CanvasHeight <= 0:
		return schema.NewErrorf(schema.ErrCodeConfig, "canvas size must be positive, got %gx%g", o.CanvasWidth, o.CanvasHeight)
	case o.SpacingFactor <= 0:
		return schema.NewErrorf(schema.ErrCodeConfig, "spacing factor must be positive, got %g", o.SpacingFactor)
	case o.TextSize <= 0:
		return schema.NewErrorf(schema.ErrCodeConfig, "text size must be positive, got %g", o.TextSize)
	case o.Margin < 0:
		return schema.NewErrorf(schema.ErrCodeConfig, "margin must not be negative, got %g", o.Margin)
	}
	if _, err := style.ParseMode(string(o.Mode)); err != nil {
		return err
	}
	return nil
}
