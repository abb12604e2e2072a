package diagram

import (
	"context"
	"fmt"
	"strings"

	"github.com/rendis/flowgraph/internal/logging"
	"github.com/rendis/flowgraph/internal/style"
	"github.com/rendis/flowgraph/pkg/schema"
)

// RenderMermaid renders g as a left-to-right Mermaid flowchart. Every node
// gets the class of its resolved style; one classDef is emitted per style in
// use, outlined in the style's colour the same way the SVG boxes are.
func RenderMermaid(ctx context.Context, g *schema.Graph, policy *style.Policy) string {
	if policy == nil {
		policy = style.Default()
	}

	var b strings.Builder
	b.WriteString("graph LR\n")
	if g == nil {
		return b.String()
	}
	if g.Name != "" {
		fmt.Fprintf(&b, "    %%%% %s\n", g.Name)
	}

	ids := newMermaidIDs()
	used := make(map[string]style.Style)
	var order []string
	classes := make([][2]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		fmt.Fprintf(&b, "    %s[%q]\n", ids.get(n.ID), n.ID)

		loc := g.Locations[n.ID]
		st := policy.ResolveFor(logging.WithNodeID(ctx, n.ID), g.Status(n.ID),
			style.Subject{ID: n.ID, Row: loc.Row, Column: loc.Column})
		if _, ok := used[st.Name]; !ok {
			used[st.Name] = st
			order = append(order, st.Name)
		}
		classes = append(classes, [2]string{ids.get(n.ID), st.Name})
	}

	for _, l := range g.Links {
		fmt.Fprintf(&b, "    %s --> %s\n", ids.get(l.Source), ids.get(l.Target))
	}

	if len(order) > 0 {
		b.WriteString("\n")
	}
	for _, name := range order {
		st := used[name]
		fmt.Fprintf(&b, "    classDef %s stroke:%s,stroke-width:2px,fill:#fff,color:%s\n", st.Name, st.Color, st.Color)
	}
	for _, c := range classes {
		fmt.Fprintf(&b, "    class %s %s\n", c[0], c[1])
	}
	if len(g.Links) > 0 {
		fmt.Fprintf(&b, "    linkStyle default stroke:%s\n", policy.Line().Color)
	}
	return b.String()
}

var mermaidReplacer = strings.NewReplacer(".", "_", "-", "_", " ", "_", ":", "_", "/", "_")

// mermaidSafeID converts a node identity to a Mermaid-safe identifier.
func mermaidSafeID(id string) string {
	return mermaidReplacer.Replace(id)
}

// mermaidIDs hands out Mermaid identifiers in first-seen order. Identities
// that sanitize to a name already taken get a numeric suffix, so `a-b` and
// `a_b` stay two nodes.
type mermaidIDs struct {
	byID  map[string]string
	taken map[string]bool
}

func newMermaidIDs() *mermaidIDs {
	return &mermaidIDs{byID: make(map[string]string), taken: make(map[string]bool)}
}

func (m *mermaidIDs) get(id string) string {
	if safe, ok := m.byID[id]; ok {
		return safe
	}
	base := mermaidSafeID(id)
	safe := base
	for n := 2; m.taken[safe]; n++ {
		safe = fmt.Sprintf("%s_%d", base, n)
	}
	m.byID[id] = safe
	m.taken[safe] = true
	return safe
}
