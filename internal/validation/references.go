package validation

import (
	"fmt"
	"sort"

	"github.com/rendis/flowgraph/pkg/schema"
)

// CheckReferences verifies that a graph can be drawn: identities are unique
// and non-empty, and every node and every link endpoint has a grid location.
// Links to nodes outside the node list and statuses for unknown nodes are
// reported as warnings; they draw correctly as long as a location exists.
func CheckReferences(g *schema.Graph) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if g == nil {
		result.AddError("/", schema.ErrCodeValidation, "graph is nil")
		return result
	}

	nodeIDs := make(map[string]bool, len(g.Nodes))
	for i, n := range g.Nodes {
		path := fmt.Sprintf("nodes[%d]", i)
		if n.ID == "" {
			result.AddError(path+".id", schema.IssueEmptyIdentity, "node has an empty identity")
			continue
		}
		if nodeIDs[n.ID] {
			result.AddError(path+".id", schema.IssueDuplicateNode, fmt.Sprintf("duplicate node %q", n.ID))
			continue
		}
		nodeIDs[n.ID] = true

		if _, ok := g.Locations[n.ID]; !ok {
			result.AddError(path, schema.IssueMissingLocation, fmt.Sprintf("node %q has no location", n.ID))
		}
	}

	for i, l := range g.Links {
		for _, end := range []struct{ field, id string }{{"source", l.Source}, {"target", l.Target}} {
			path := fmt.Sprintf("links[%d].%s", i, end.field)
			if end.id == "" {
				result.AddError(path, schema.IssueEmptyIdentity, "link endpoint has an empty identity")
				continue
			}
			if _, ok := g.Locations[end.id]; !ok {
				result.AddError(path, schema.IssueMissingLocation,
					fmt.Sprintf("link %s references %q which has no location", l.Key(), end.id))
				continue
			}
			if !nodeIDs[end.id] {
				result.AddWarning(path, schema.IssueUnknownNode,
					fmt.Sprintf("link %s references %q which is not in the node list", l.Key(), end.id))
			}
		}
	}

	for _, id := range sortedKeys(g.Locations) {
		loc := g.Locations[id]
		if loc.Row < 0 || loc.Column < 0 {
			result.AddError("locations."+id, schema.IssueNegativeCell,
				fmt.Sprintf("location of %q is outside the grid (row %d, column %d)", id, loc.Row, loc.Column))
		}
	}

	for _, id := range sortedKeys(g.Statuses) {
		if !nodeIDs[id] {
			result.AddWarning("statuses."+id, schema.IssueUnknownNode,
				fmt.Sprintf("status recorded for unknown node %q", id))
		}
	}

	return result
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
