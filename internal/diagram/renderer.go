package diagram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/rendis/flowgraph/internal/logging"
	"github.com/rendis/flowgraph/internal/style"
	"github.com/rendis/flowgraph/internal/validation"
	"github.com/rendis/flowgraph/pkg/schema"
)

// Observer is notified about render outcomes. internal/metrics provides a
// Prometheus implementation.
type Observer interface {
	RenderCompleted(workflow string, shapes int, elapsed time.Duration)
	RenderFailed(workflow, code string)
}

// Renderer draws a schema.Graph onto a Surface: one box and one label per
// node, one line per link, coloured by the style policy. It keeps no state
// between calls and is safe for concurrent use with distinct surfaces.
type Renderer struct {
	opts      Options
	geometry  Geometry
	policy    *style.Policy
	validator validation.Validator
	observer  Observer
	logger    *slog.Logger
}

// RendererOption customizes a Renderer.
type RendererOption func(*Renderer)

// WithObserver registers an Observer.
func WithObserver(o Observer) RendererOption {
	return func(r *Renderer) { r.observer = o }
}

// WithRendererLogger sets the renderer's logger.
func WithRendererLogger(l *slog.Logger) RendererOption {
	return func(r *Renderer) { r.logger = l }
}

// NewRenderer creates a Renderer. A nil policy means style.Default().
func NewRenderer(opts Options, policy *style.Policy, ropts ...RendererOption) (*Renderer, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("diagram: %w", err)
	}

	r := &Renderer{
		opts:      opts,
		geometry:  NewGeometry(opts),
		validator: validation.ReferenceValidator{},
	}
	for _, opt := range ropts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if policy == nil {
		policy = style.Default(style.WithLogger(r.logger))
	}
	r.policy = policy
	return r, nil
}

// Options returns the renderer's options.
func (r *Renderer) Options() Options { return r.opts }

// Policy returns the renderer's style policy.
func (r *Renderer) Policy() *style.Policy { return r.policy }

// Render validates g and draws it onto s. Validation failures are reported
// before any shape is drawn. Shapes are appended to whatever s already holds.
func (r *Renderer) Render(ctx context.Context, g *schema.Graph, s Surface) error {
	if s == nil {
		return r.fail(ctx, g, schema.NewError(schema.ErrCodeSurface, "no drawing surface"))
	}

	ctx = r.correlate(ctx, g)
	if err := r.validate(ctx, g); err != nil {
		return r.fail(ctx, g, err)
	}

	start := time.Now()
	d := &drawer{r: r, s: s}
	if err := d.graph(ctx, g); err != nil {
		return r.fail(ctx, g, err)
	}

	elapsed := time.Since(start)
	r.logger.DebugContext(ctx, "graph rendered",
		slog.Int("nodes", len(g.Nodes)),
		slog.Int("links", len(g.Links)),
		slog.Int("shapes", d.shapes),
		slog.Duration("elapsed", elapsed),
	)
	if r.observer != nil {
		r.observer.RenderCompleted(g.Name, d.shapes, elapsed)
	}
	return nil
}

// RenderSVG renders g onto a fresh scene and encodes it as an SVG document.
func (r *Renderer) RenderSVG(ctx context.Context, g *schema.Graph) ([]byte, error) {
	scene := NewScene()
	if err := r.Render(ctx, g, scene); err != nil {
		return nil, err
	}
	return r.EncodeSVG(scene, g.Name)
}

// EncodeSVG encodes scene with the renderer's options and policy.
func (r *Renderer) EncodeSVG(scene *Scene, title string) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeSVG(&buf, scene, r.opts, r.policy, title); err != nil {
		return nil, schema.NewError(schema.ErrCodeRender, "encode svg").WithCause(err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) correlate(ctx context.Context, g *schema.Graph) context.Context {
	ctx = logging.WithRenderID(ctx, uuid.NewString())
	if g != nil && g.Name != "" {
		ctx = logging.WithWorkflow(ctx, g.Name)
	}
	return ctx
}

func (r *Renderer) validate(ctx context.Context, g *schema.Graph) error {
	if g == nil {
		return schema.NewError(schema.ErrCodeValidation, "graph is nil")
	}
	result := r.validator.Validate(g)
	for _, w := range result.Warnings {
		r.logger.WarnContext(ctx, "graph warning", slog.String("path", w.Path), slog.String("message", w.Message))
	}
	return result.ToError()
}

func (r *Renderer) fail(ctx context.Context, g *schema.Graph, err error) error {
	code := schema.ErrCodeRender
	var e *schema.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	name := ""
	if g != nil {
		name = g.Name
	}
	r.logger.DebugContext(ctx, "render failed", slog.String("code", code), slog.String("error", err.Error()))
	if r.observer != nil {
		r.observer.RenderFailed(name, code)
	}
	return err
}
