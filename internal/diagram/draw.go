package diagram

import (
	"context"

	"github.com/google/uuid"

	"github.com/rendis/flowgraph/internal/logging"
	"github.com/rendis/flowgraph/internal/style"
	"github.com/rendis/flowgraph/pkg/schema"
)

// drawer performs the draw calls of one render pass.
type drawer struct {
	r      *Renderer
	s      Surface
	scale  TimeScale
	timed  bool
	shapes int
}

func (d *drawer) graph(ctx context.Context, g *schema.Graph) error {
	if d.r.opts.Timeline {
		d.scale, d.timed = NewTimeScale(g.Nodes, d.r.opts.CanvasWidth)
	}

	styles := make([]style.Style, len(g.Nodes))
	for i, n := range g.Nodes {
		styles[i] = d.resolve(ctx, g, n.ID)
	}

	for i, n := range g.Nodes {
		if err := d.box(n.ID, g.Locations[n.ID], styles[i]); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return schema.NewError(schema.ErrCodeRender, "render cancelled").WithCause(err)
	}

	for i, n := range g.Nodes {
		if err := d.label(n.ID, g.Locations[n.ID], styles[i]); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return schema.NewError(schema.ErrCodeRender, "render cancelled").WithCause(err)
	}

	for _, l := range g.Links {
		if err := d.link(g, l); err != nil {
			return err
		}
	}

	if d.timed {
		for i, n := range g.Nodes {
			if err := d.bar(n, g.Locations[n.ID], styles[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// node draws every shape a node owns.
func (d *drawer) node(ctx context.Context, g *schema.Graph, n schema.Node) error {
	st := d.resolve(ctx, g, n.ID)
	loc := g.Locations[n.ID]
	if err := d.box(n.ID, loc, st); err != nil {
		return err
	}
	if err := d.label(n.ID, loc, st); err != nil {
		return err
	}
	if d.timed {
		return d.bar(n, loc, st)
	}
	return nil
}

func (d *drawer) resolve(ctx context.Context, g *schema.Graph, id string) style.Style {
	loc := g.Locations[id]
	return d.r.policy.ResolveFor(logging.WithNodeID(ctx, id), g.Status(id),
		style.Subject{ID: id, Row: loc.Row, Column: loc.Column})
}

func (d *drawer) box(id string, loc schema.Location, st style.Style) error {
	o := d.r.geometry.Origin(loc)
	rect := Rect{
		Key:    nodeKey(id),
		Role:   RoleNode,
		X:      o.X,
		Y:      o.Y,
		Width:  d.r.opts.NodeWidth,
		Height: d.r.opts.NodeHeight,
		Paint:  d.paint(RoleNode, st),
	}
	if err := d.s.DrawRect(rect); err != nil {
		return surfaceError("draw node box", err).WithNode(id)
	}
	d.shapes++
	return nil
}

func (d *drawer) label(id string, loc schema.Location, st style.Style) error {
	a := d.r.geometry.LabelAnchor(loc)
	text := Text{
		Key:     labelKey(id),
		X:       a.X,
		Y:       a.Y,
		Size:    d.r.opts.TextSize,
		Content: d.labelText(id),
		Paint:   d.paint(RoleLabel, st),
	}
	if err := d.s.DrawText(text); err != nil {
		return surfaceError("draw node label", err).WithNode(id)
	}
	d.shapes++
	return nil
}

func (d *drawer) link(g *schema.Graph, l schema.Link) error {
	from, to := d.r.geometry.EdgeAnchors(g.Locations[l.Source], g.Locations[l.Target])
	line := Line{
		Key:   edgeKey(l.Key()),
		X1:    from.X,
		Y1:    from.Y,
		X2:    to.X,
		Y2:    to.Y,
		Paint: d.paint(RoleEdge, d.r.policy.Line()),
	}
	if err := d.s.DrawLine(line); err != nil {
		return surfaceError("draw link "+l.Key(), err)
	}
	d.shapes++
	return nil
}

// bar draws the duration of a timed node on the canvas-wide time scale,
// just below the node's box.
func (d *drawer) bar(n schema.Node, loc schema.Location, st style.Style) error {
	if !n.Timed() {
		return nil
	}
	const barHeight = 3
	x0, x1 := d.scale.At(*n.Received), d.scale.At(*n.Succeeded)
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	o := d.r.geometry.Origin(loc)
	rect := Rect{
		Key:    timelineKey(n.ID),
		Role:   RoleTimeline,
		X:      x0,
		Y:      snap(o.Y + d.r.opts.NodeHeight + 1),
		Width:  snap(x1 - x0),
		Height: barHeight,
		Paint:  d.paint(RoleTimeline, st),
	}
	if err := d.s.DrawRect(rect); err != nil {
		return surfaceError("draw timeline bar", err).WithNode(n.ID)
	}
	d.shapes++
	return nil
}

func (d *drawer) labelText(id string) string {
	if d.r.opts.ShortenUUIDs {
		return shortUUID(id)
	}
	return id
}

// shortUUID returns the first eight hex digits of a UUID in any form
// uuid.Parse accepts (plain, urn:uuid:, braced, undashed). Other ids are
// returned unchanged.
func shortUUID(id string) string {
	u, err := uuid.Parse(id)
	if err != nil {
		return id
	}
	return u.String()[:8]
}

// paint applies st to a shape of the given role, inline or through classes.
func (d *drawer) paint(role Role, st style.Style) Paint {
	classMode := d.r.opts.Mode == style.ModeClass
	switch role {
	case RoleNode:
		if classMode {
			return Paint{Fill: "white", Classes: []string{"node", st.StrokeClass()}}
		}
		return Paint{Stroke: st.Color, Fill: "white", Classes: []string{"node"}}
	case RoleLabel:
		if classMode {
			return Paint{Classes: []string{"label", st.StrokeClass(), st.FillClass()}}
		}
		return Paint{Stroke: st.Color, Fill: st.Color, Classes: []string{"label"}}
	case RoleTimeline:
		if classMode {
			return Paint{Classes: []string{"timeline", st.FillClass()}}
		}
		return Paint{Fill: st.Color, Classes: []string{"timeline"}}
	default:
		if classMode {
			return Paint{Classes: []string{"edge"}}
		}
		return Paint{Stroke: st.Color, Classes: []string{"edge"}}
	}
}

func surfaceError(msg string, err error) *schema.Error {
	return schema.NewError(schema.ErrCodeSurface, msg).WithCause(err)
}
