// Package style maps task states to the colours and CSS classes used to draw them.
package style

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/rendis/flowgraph/internal/expressions"
	"github.com/rendis/flowgraph/pkg/schema"
)

// Mode selects how a style reaches the drawing.
type Mode string

const (
	// ModeInline writes stroke and fill attributes on every shape.
	ModeInline Mode = "inline"
	// ModeClass writes stroke-<name> / fill-<name> classes plus a stylesheet.
	ModeClass Mode = "class"
)

// ParseMode converts a config string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case "", ModeInline:
		return ModeInline, nil
	case ModeClass:
		return ModeClass, nil
	default:
		return "", schema.NewErrorf(schema.ErrCodeConfig, "unknown style mode %q", s)
	}
}

// Style is a named colour. Name doubles as the CSS class suffix.
type Style struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// StrokeClass returns the class name that colours outlines.
func (s Style) StrokeClass() string { return "stroke-" + s.Name }

// FillClass returns the class name that colours interiors.
func (s Style) FillClass() string { return "fill-" + s.Name }

// Rule styles every status for which When evaluates to true.
type Rule struct {
	When  string `json:"when"`
	Style Style  `json:"style"`
}

// Config is the declarative form of a Policy.
type Config struct {
	Engine   string           `json:"engine,omitempty"`
	Statuses map[string]Style `json:"statuses,omitempty"`
	Rules    []Rule           `json:"rules,omitempty"`
	Fallback Style            `json:"fallback"`
	Line     Style            `json:"line"`
}

// Palette from http://clrs.cc.
var (
	Green  = Style{Name: "green", Color: "#2ECC40"}
	Aqua   = Style{Name: "aqua", Color: "#7FDBFF"}
	Blue   = Style{Name: "blue", Color: "#0074D9"}
	Red    = Style{Name: "red", Color: "#FF4136"}
	Orange = Style{Name: "orange", Color: "#FF851B"}
	Navy   = Style{Name: "navy", Color: "#001F3F"}
	Pink   = Style{Name: "pink", Color: "#FFC0CB"}
	Grey   = Style{Name: "grey", Color: "#808080"}
)

// DefaultConfig returns the built-in status table.
func DefaultConfig() Config {
	return Config{
		Engine: "expr",
		Statuses: map[string]Style{
			schema.StatusSuccess:    Green,
			schema.StatusStopped:    Aqua,
			schema.StatusAborted:    Blue,
			schema.StatusError:      Red,
			schema.StatusNotRunning: Navy,
		},
		Rules: []Rule{
			{When: `status endsWith "-STARTED"`, Style: Orange},
		},
		Fallback: Pink,
		Line:     Grey,
	}
}

// Subject carries the node a status belongs to, for rules that look at it.
type Subject struct {
	ID     string
	Row    int
	Column int
}

func (s Subject) toMap() map[string]any {
	return map[string]any{"id": s.ID, "row": s.Row, "column": s.Column}
}

// Policy resolves task states to styles. It is safe for concurrent use.
type Policy struct {
	table     map[string]Style
	rules     []Rule
	engine    expressions.Engine
	fallback  Style
	line      Style
	logger    *slog.Logger
	onUnknown func(status string)
}

// Option customizes a Policy.
type Option func(*Policy)

// WithLogger sets the logger that receives unknown-status diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(p *Policy) { p.logger = l }
}

// WithUnknownHook registers fn to be called once per unknown status lookup.
func WithUnknownHook(fn func(status string)) Option {
	return func(p *Policy) { p.onUnknown = fn }
}

// NewPolicy builds a Policy from cfg, compiling every rule up front.
func NewPolicy(cfg Config, opts ...Option) (*Policy, error) {
	if cfg.Fallback.Name == "" || cfg.Fallback.Color == "" {
		return nil, schema.NewError(schema.ErrCodeConfig, "fallback style needs a name and a color")
	}
	if cfg.Line.Name == "" {
		cfg.Line = Grey
	}

	engine, err := expressions.New(cfg.Engine)
	if err != nil {
		return nil, err
	}

	p := &Policy{
		table:    make(map[string]Style, len(cfg.Statuses)),
		rules:    append([]Rule(nil), cfg.Rules...),
		engine:   engine,
		fallback: cfg.Fallback,
		line:     cfg.Line,
	}
	for status, st := range cfg.Statuses {
		if st.Name == "" || st.Color == "" {
			return nil, schema.NewErrorf(schema.ErrCodeConfig, "style for status %q needs a name and a color", status)
		}
		p.table[status] = st
	}

	type compiler interface{ Compile(string) error }
	for i, r := range p.rules {
		if r.When == "" {
			return nil, schema.NewErrorf(schema.ErrCodeConfig, "rule %d has an empty condition", i)
		}
		if c, ok := engine.(compiler); ok {
			if err := c.Compile(r.When); err != nil {
				return nil, fmt.Errorf("style: rule %d: %w", i, err)
			}
		}
	}

	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return p, nil
}

// Default returns a Policy built from DefaultConfig.
func Default(opts ...Option) *Policy {
	p, err := NewPolicy(DefaultConfig(), opts...)
	if err != nil {
		panic(fmt.Sprintf("style: default policy: %v", err))
	}
	return p
}

// Resolve returns the style for status. Unknown or empty states get the
// fallback style and emit one warning.
func (p *Policy) Resolve(ctx context.Context, status string) Style {
	return p.ResolveFor(ctx, status, Subject{})
}

// ResolveFor is Resolve with the node exposed to rules as `node`.
func (p *Policy) ResolveFor(ctx context.Context, status string, subject Subject) Style {
	if st, ok := p.lookup(ctx, status, subject); ok {
		return st
	}

	p.logger.WarnContext(ctx, "unknown status, using fallback style",
		slog.String("status", status),
		slog.String("node", subject.ID),
		slog.String("fallback", p.fallback.Name),
	)
	if p.onUnknown != nil {
		p.onUnknown(status)
	}
	return p.fallback
}

// Known reports whether status resolves without falling back. It never logs.
func (p *Policy) Known(ctx context.Context, status string) bool {
	_, ok := p.lookup(ctx, status, Subject{})
	return ok
}

func (p *Policy) lookup(ctx context.Context, status string, subject Subject) (Style, bool) {
	if status == "" {
		return Style{}, false
	}
	if st, ok := p.table[status]; ok {
		return st, true
	}

	data := map[string]any{"status": status, "node": subject.toMap()}
	for _, r := range p.rules {
		ok, err := expressions.Predicate(ctx, p.engine, r.When, data)
		if err != nil {
			p.logger.DebugContext(ctx, "style rule failed", slog.String("rule", r.When), slog.String("error", err.Error()))
			continue
		}
		if ok {
			return r.Style, true
		}
	}
	return Style{}, false
}

// Fallback returns the style used for unknown states.
func (p *Policy) Fallback() Style { return p.fallback }

// Line returns the neutral style for dependency lines.
func (p *Policy) Line() Style { return p.line }

// Styles returns every distinct style the policy can produce, ordered by name.
func (p *Policy) Styles() []Style {
	seen := map[string]Style{p.fallback.Name: p.fallback}
	for _, st := range p.table {
		seen[st.Name] = st
	}
	for _, r := range p.rules {
		seen[r.Style.Name] = r.Style
	}

	out := make([]Style, 0, len(seen))
	for _, st := range seen {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Stylesheet returns the CSS rules backing ModeClass.
func (p *Policy) Stylesheet() string {
	var b strings.Builder
	for _, st := range p.Styles() {
		fmt.Fprintf(&b, ".%s { stroke: %s; }\n", st.StrokeClass(), st.Color)
		fmt.Fprintf(&b, ".%s { fill: %s; }\n", st.FillClass(), st.Color)
	}
	fmt.Fprintf(&b, ".edge { stroke: %s; }\n", p.line.Color)
	return b.String()
}
