package schema

import (
	"encoding/json"
	"maps"
)

// Graph is the complete input of a single render: the workflow's tasks, the
// dependencies between them, a grid position per task and a status per task.
type Graph struct {
	Name      string              `json:"name,omitempty"`
	Nodes     []Node              `json:"nodes"`
	Links     []Link              `json:"links"`
	Locations map[string]Location `json:"locations"`
	Statuses  map[string]string   `json:"statuses,omitempty"`
}

// Node is a single workflow task. ID is a task name or a UUID.
// Received and Succeeded are optional event timestamps (seconds).
type Node struct {
	ID        string   `json:"id"`
	Received  *float64 `json:"received,omitempty"`
	Succeeded *float64 `json:"succeeded,omitempty"`
}

// UnmarshalJSON accepts "name" as an alias of "id".
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string   `json:"id"`
		Name      string   `json:"name"`
		Received  *float64 `json:"received"`
		Succeeded *float64 `json:"succeeded"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	n.ID = raw.ID
	if n.ID == "" {
		n.ID = raw.Name
	}
	n.Received = raw.Received
	n.Succeeded = raw.Succeeded
	return nil
}

// Timed reports whether both timestamps are present.
func (n Node) Timed() bool {
	return n.Received != nil && n.Succeeded != nil
}

// Link is a directed dependency from Source to Target, both node identities.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Key returns a stable identifier for the link.
func (l Link) Key() string {
	return l.Source + "->" + l.Target
}

// Location is a grid cell. Columns grow to the right, rows grow downwards.
type Location struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// Status returns the status recorded for id, or "" when absent.
func (g *Graph) Status(id string) string {
	if g == nil || g.Statuses == nil {
		return ""
	}
	return g.Statuses[id]
}

// Empty reports whether the graph has nothing to draw.
func (g *Graph) Empty() bool {
	return g == nil || (len(g.Nodes) == 0 && len(g.Links) == 0)
}

// NodeIndex returns the nodes keyed by identity. Later duplicates win.
func (g *Graph) NodeIndex() map[string]Node {
	idx := make(map[string]Node, len(g.Nodes))
	for _, n := range g.Nodes {
		idx[n.ID] = n
	}
	return idx
}

// WithDefaultStatus returns a copy of the graph in which every node without a
// recorded status carries status. Tasks that have not run yet show up this way.
func (g *Graph) WithDefaultStatus(status string) *Graph {
	out := *g
	out.Statuses = make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		out.Statuses[n.ID] = status
	}
	maps.Copy(out.Statuses, g.Statuses)
	return &out
}
