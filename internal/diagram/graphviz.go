package diagram

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/rendis/flowgraph/internal/logging"
	"github.com/rendis/flowgraph/internal/style"
	"github.com/rendis/flowgraph/pkg/schema"
)

// ImageFormat selects the graphviz output.
type ImageFormat string

const (
	ImagePNG ImageFormat = "png"
	ImageSVG ImageFormat = "svg"
)

// RenderImage lays g out with graphviz dot, left to right, and renders it as
// PNG or SVG. Boxes are outlined in the colour of their resolved style and
// links use the policy's line colour. Grid locations are not honoured; dot
// ranks nodes from the links instead.
func RenderImage(ctx context.Context, g *schema.Graph, policy *style.Policy, format ImageFormat) ([]byte, error) {
	if g == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "graph is nil")
	}
	if policy == nil {
		policy = style.Default()
	}

	var gvFormat graphviz.Format
	switch format {
	case ImagePNG, "":
		gvFormat = graphviz.PNG
	case ImageSVG:
		gvFormat = graphviz.SVG
	default:
		return nil, schema.NewErrorf(schema.ErrCodeConfig, "unsupported image format %q", format)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagram: create graphviz: %w", err)
	}
	defer gv.Close()

	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("diagram: create graph: %w", err)
	}
	defer graph.Close()

	graph.SetRankDir(cgraph.LRRank)
	if g.Name != "" {
		graph.SetLabel(g.Name)
	}

	gvNodes := make(map[string]*cgraph.Node, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := gvNodes[n.ID]; dup {
			continue
		}
		gvNode, nErr := graph.CreateNodeByName(n.ID)
		if nErr != nil {
			return nil, schema.NewError(schema.ErrCodeRender, "create graphviz node").WithNode(n.ID).WithCause(nErr)
		}
		loc := g.Locations[n.ID]
		st := policy.ResolveFor(logging.WithNodeID(ctx, n.ID), g.Status(n.ID),
			style.Subject{ID: n.ID, Row: loc.Row, Column: loc.Column})

		gvNode.SetLabel(n.ID)
		gvNode.SetShape(cgraph.BoxShape)
		gvNode.SetStyle(cgraph.FilledNodeStyle)
		gvNode.SetFillColor("white")
		gvNode.SetColor(st.Color)
		gvNode.SetFontColor(st.Color)
		gvNodes[n.ID] = gvNode
	}

	line := policy.Line().Color
	for _, l := range g.Links {
		from, to := gvNodes[l.Source], gvNodes[l.Target]
		if from == nil || to == nil {
			continue
		}
		e, eErr := graph.CreateEdgeByName(l.Key(), from, to)
		if eErr != nil {
			return nil, schema.NewErrorf(schema.ErrCodeRender, "create graphviz edge %s", l.Key()).WithCause(eErr)
		}
		e.SetColor(line)
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, gvFormat, &buf); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeRender, "render %s", format).WithCause(err)
	}
	return buf.Bytes(), nil
}
