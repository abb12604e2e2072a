package validation

import (
	"testing"

	"github.com/rendis/flowgraph/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoNodeGraph() *schema.Graph {
	return &schema.Graph{
		Nodes: []schema.Node{{ID: "A"}, {ID: "B"}},
		Links: []schema.Link{{Source: "A", Target: "B"}},
		Locations: map[string]schema.Location{
			"A": {Row: 0, Column: 0},
			"B": {Row: 0, Column: 1},
		},
		Statuses: map[string]string{"A": schema.StatusSuccess, "B": schema.StatusError},
	}
}

func issueCodes(issues []schema.ValidationIssue) []string {
	codes := make([]string, 0, len(issues))
	for _, i := range issues {
		codes = append(codes, i.Code)
	}
	return codes
}

func TestCheckReferences_Valid(t *testing.T) {
	result := CheckReferences(twoNodeGraph())
	assert.True(t, result.Valid())
	assert.Empty(t, result.Warnings)
}

func TestCheckReferences_EmptyGraph(t *testing.T) {
	result := CheckReferences(&schema.Graph{})
	assert.True(t, result.Valid())
}

func TestCheckReferences_Nil(t *testing.T) {
	result := CheckReferences(nil)
	assert.False(t, result.Valid())
}

func TestCheckReferences_LinkEndpointWithoutLocation(t *testing.T) {
	g := twoNodeGraph()
	delete(g.Locations, "B")

	result := CheckReferences(g)
	require.False(t, result.Valid())
	assert.Equal(t, []string{schema.IssueMissingLocation, schema.IssueMissingLocation}, issueCodes(result.Errors))
	assert.Equal(t, "nodes[1]", result.Errors[0].Path)
	assert.Equal(t, "links[0].target", result.Errors[1].Path)

	err := result.ToError()
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
}

func TestCheckReferences_Identities(t *testing.T) {
	g := twoNodeGraph()
	g.Nodes = append(g.Nodes, schema.Node{ID: "A"}, schema.Node{})
	g.Links = append(g.Links, schema.Link{Source: "", Target: "B"})

	result := CheckReferences(g)
	assert.ElementsMatch(t,
		[]string{schema.IssueDuplicateNode, schema.IssueEmptyIdentity, schema.IssueEmptyIdentity},
		issueCodes(result.Errors))
}

func TestCheckReferences_Warnings(t *testing.T) {
	g := twoNodeGraph()
	g.Locations["C"] = schema.Location{Row: 1, Column: 1}
	g.Links = append(g.Links, schema.Link{Source: "B", Target: "C"})
	g.Statuses["ghost"] = schema.StatusError

	result := CheckReferences(g)
	assert.True(t, result.Valid())
	require.Len(t, result.Warnings, 2)
	assert.Equal(t, "links[1].target", result.Warnings[0].Path)
	assert.Equal(t, "statuses.ghost", result.Warnings[1].Path)
}

func TestCheckReferences_NegativeCell(t *testing.T) {
	g := twoNodeGraph()
	g.Locations["B"] = schema.Location{Row: -1, Column: 1}

	result := CheckReferences(g)
	assert.Equal(t, []string{schema.IssueNegativeCell}, issueCodes(result.Errors))
}
