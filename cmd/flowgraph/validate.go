package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rendis/flowgraph/internal/style"
	"github.com/rendis/flowgraph/internal/validation"
	"github.com/rendis/flowgraph/pkg/schema"
)

func runValidate(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	s, err := newSession("validate", args, stderr, nil)
	if err != nil {
		return flagExit(err)
	}

	ctx := context.Background()
	g, err := s.load(ctx, stdin)
	if err != nil {
		return fail(stderr, err)
	}
	policy, err := s.policy()
	if err != nil {
		return fail(stderr, err)
	}
	v, err := validation.NewGraphValidator()
	if err != nil {
		return fail(stderr, err)
	}

	result := v.Validate(g)
	result.Merge(unstyledStatuses(ctx, g, policy))
	for _, w := range result.Warnings {
		fmt.Fprintf(stdout, "warning: %s: %s\n", w.Path, w.Message)
	}
	if err := result.ToError(); err != nil {
		return fail(stderr, err)
	}

	fmt.Fprintf(stdout, "ok: %d nodes, %d links\n", len(g.Nodes), len(g.Links))
	return 0
}

// unstyledStatuses warns about nodes that would be drawn in the fallback style.
func unstyledStatuses(ctx context.Context, g *schema.Graph, policy *style.Policy) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	for _, n := range g.Nodes {
		status := g.Status(n.ID)
		if policy.Known(ctx, status) {
			continue
		}
		result.AddWarning("statuses."+n.ID, schema.ErrCodeValidation,
			fmt.Sprintf("status %q has no style, drawn as %s", status, policy.Fallback().Name))
	}
	return result
}
