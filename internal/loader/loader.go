// Package loader reads graph documents: raw JSON, optionally narrowed by a jq
// query, checked against the graph schema and decoded into a schema.Graph.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/rendis/flowgraph/internal/expressions"
	"github.com/rendis/flowgraph/internal/validation"
	"github.com/rendis/flowgraph/pkg/schema"
)

// Options controls a single load.
type Options struct {
	// Query is a jq expression selecting the graph object inside a larger
	// document, e.g. ".data.workflow". Empty means the whole document.
	Query string

	// DefaultStatus is given to every node without a recorded status.
	// Empty leaves such nodes without one.
	DefaultStatus string
}

// Loader decodes and validates graph documents. It is safe for concurrent use.
type Loader struct {
	schemas *validation.SchemaValidator
	jq      *expressions.GoJQEngine
	logger  *slog.Logger
}

// New creates a Loader. A nil logger logs to stderr at info level.
func New(logger *slog.Logger) (*Loader, error) {
	sv, err := validation.NewSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return &Loader{schemas: sv, jq: expressions.NewGoJQEngine(), logger: logger}, nil
}

var shared = sync.OnceValues(func() (*Loader, error) { return New(nil) })

// Load decodes data with a shared Loader.
func Load(ctx context.Context, data []byte, opts Options) (*schema.Graph, error) {
	l, err := shared()
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, data, opts)
}

// LoadFile reads path and decodes it with a shared Loader.
func LoadFile(ctx context.Context, path string, opts Options) (*schema.Graph, error) {
	l, err := shared()
	if err != nil {
		return nil, err
	}
	return l.LoadFile(ctx, path, opts)
}

// LoadFile reads path and decodes it.
func (l *Loader) LoadFile(ctx context.Context, path string, opts Options) (*schema.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, schema.NewErrorf(schema.ErrCodeNotFound, "graph file %s not found", path).WithCause(err)
		}
		return nil, fmt.Errorf("read graph file %s: %w", path, err)
	}
	g, err := l.Load(ctx, data, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Load decodes data into a graph. Schema violations are reported as a single
// VALIDATION_ERROR carrying every violation in its details.
func (l *Loader) Load(ctx context.Context, data []byte, opts Options) (*schema.Graph, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "graph document is not valid JSON").WithCause(err)
	}

	if opts.Query != "" {
		out, err := l.jq.Query(ctx, opts.Query, doc)
		if err != nil {
			return nil, err
		}
		if out == nil {
			return nil, schema.NewErrorf(schema.ErrCodeNotFound, "query %q selected nothing", opts.Query)
		}
		// Several outputs come back as one array and fail the schema below.
		doc = out
	}

	if err := l.schemas.ValidateDocument(doc); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "re-encode graph document").WithCause(err)
	}
	var g schema.Graph
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "decode graph document").WithCause(err)
	}
	if opts.DefaultStatus != "" {
		g = *g.WithDefaultStatus(opts.DefaultStatus)
	}

	l.logger.DebugContext(ctx, "graph loaded",
		slog.String("workflow", g.Name),
		slog.Int("nodes", len(g.Nodes)),
		slog.Int("links", len(g.Links)),
	)
	return &g, nil
}
