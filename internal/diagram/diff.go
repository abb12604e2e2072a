package diagram

import (
	"context"
	"log/slog"
	"slices"

	"github.com/rendis/flowgraph/pkg/schema"
)

// Patch lists what changed between two graph snapshots.
type Patch struct {
	AddedNodes   []string      `json:"added_nodes,omitempty"`
	RemovedNodes []string      `json:"removed_nodes,omitempty"`
	ChangedNodes []string      `json:"changed_nodes,omitempty"`
	AddedLinks   []schema.Link `json:"added_links,omitempty"`
	RemovedLinks []schema.Link `json:"removed_links,omitempty"`
}

// Empty reports whether the snapshots draw identically.
func (p Patch) Empty() bool {
	return len(p.AddedNodes) == 0 && len(p.RemovedNodes) == 0 && len(p.ChangedNodes) == 0 &&
		len(p.AddedLinks) == 0 && len(p.RemovedLinks) == 0
}

// Diff compares two snapshots. A nil prev yields a patch that adds everything.
// A node has changed when its status, location or timestamps differ. Results
// follow node and link order of the snapshot they come from.
func Diff(prev, next *schema.Graph) Patch {
	if prev == nil {
		prev = &schema.Graph{}
	}
	if next == nil {
		next = &schema.Graph{}
	}

	var p Patch
	before := prev.NodeIndex()
	after := next.NodeIndex()

	for _, n := range next.Nodes {
		old, ok := before[n.ID]
		switch {
		case !ok:
			p.AddedNodes = appendOnce(p.AddedNodes, n.ID)
		case nodeChanged(prev, next, old, n):
			p.ChangedNodes = appendOnce(p.ChangedNodes, n.ID)
		}
	}
	for _, n := range prev.Nodes {
		if _, ok := after[n.ID]; !ok {
			p.RemovedNodes = appendOnce(p.RemovedNodes, n.ID)
		}
	}

	beforeLinks := linkSet(prev.Links)
	afterLinks := linkSet(next.Links)
	for _, l := range next.Links {
		if !beforeLinks[l.Key()] && !slices.Contains(p.AddedLinks, l) {
			p.AddedLinks = append(p.AddedLinks, l)
		}
	}
	for _, l := range prev.Links {
		if !afterLinks[l.Key()] && !slices.Contains(p.RemovedLinks, l) {
			p.RemovedLinks = append(p.RemovedLinks, l)
		}
	}
	return p
}

func nodeChanged(prev, next *schema.Graph, old, cur schema.Node) bool {
	if prev.Status(old.ID) != next.Status(cur.ID) {
		return true
	}
	if prev.Locations[old.ID] != next.Locations[cur.ID] {
		return true
	}
	return !sameTime(old.Received, cur.Received) || !sameTime(old.Succeeded, cur.Succeeded)
}

func sameTime(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func linkSet(links []schema.Link) map[string]bool {
	set := make(map[string]bool, len(links))
	for _, l := range links {
		set[l.Key()] = true
	}
	return set
}

func appendOnce(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

// Apply brings scene from the previous snapshot to next using patch: shapes of
// removed and changed elements are dropped, then changed and added elements
// are drawn from next. Links touching a changed node are redrawn as well, since
// their end points follow the node's location.
//
// With the timeline enabled the time scale depends on every node, so Apply
// falls back to a full redraw.
func (r *Renderer) Apply(ctx context.Context, patch Patch, next *schema.Graph, scene *Scene) error {
	if scene == nil {
		return r.fail(ctx, next, schema.NewError(schema.ErrCodeSurface, "no scene to patch"))
	}
	if r.opts.Timeline {
		scene.Reset()
		return r.Render(ctx, next, scene)
	}

	ctx = r.correlate(ctx, next)
	if err := r.validate(ctx, next); err != nil {
		return r.fail(ctx, next, err)
	}
	if patch.Empty() {
		return nil
	}

	var stale []string
	for _, id := range slices.Concat(patch.RemovedNodes, patch.ChangedNodes) {
		stale = append(stale, nodeKey(id), labelKey(id), timelineKey(id))
	}
	for _, l := range patch.RemovedLinks {
		stale = append(stale, edgeKey(l.Key()))
	}

	redrawLinks := slices.Clone(patch.AddedLinks)
	for _, l := range next.Links {
		if slices.Contains(patch.ChangedNodes, l.Source) || slices.Contains(patch.ChangedNodes, l.Target) {
			if !slices.Contains(redrawLinks, l) {
				stale = append(stale, edgeKey(l.Key()))
				redrawLinks = append(redrawLinks, l)
			}
		}
	}
	removed := scene.Remove(stale...)

	d := &drawer{r: r, s: scene}
	index := next.NodeIndex()
	for _, id := range slices.Concat(patch.ChangedNodes, patch.AddedNodes) {
		if err := d.node(ctx, next, index[id]); err != nil {
			return r.fail(ctx, next, err)
		}
	}
	for _, l := range redrawLinks {
		if err := d.link(next, l); err != nil {
			return r.fail(ctx, next, err)
		}
	}

	r.logger.DebugContext(ctx, "patch applied",
		slog.Int("added_nodes", len(patch.AddedNodes)),
		slog.Int("removed_nodes", len(patch.RemovedNodes)),
		slog.Int("changed_nodes", len(patch.ChangedNodes)),
		slog.Int("shapes_removed", removed),
		slog.Int("shapes_drawn", d.shapes),
	)
	return nil
}
