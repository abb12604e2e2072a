package diagram

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowgraph/internal/style"
	"github.com/rendis/flowgraph/pkg/schema"
)

// --- Helpers ---

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRenderer(t *testing.T, opts Options, ropts ...RendererOption) *Renderer {
	t.Helper()
	policy := style.Default(style.WithLogger(quietLogger()))
	ropts = append([]RendererOption{WithRendererLogger(quietLogger())}, ropts...)
	r, err := NewRenderer(opts, policy, ropts...)
	require.NoError(t, err)
	return r
}

func ptr(v float64) *float64 { return &v }

// abGraph is two tasks side by side: A succeeded, B failed, A feeds B.
func abGraph() *schema.Graph {
	return &schema.Graph{
		Name:  "ab",
		Nodes: []schema.Node{{ID: "A"}, {ID: "B"}},
		Links: []schema.Link{{Source: "A", Target: "B"}},
		Locations: map[string]schema.Location{
			"A": {Row: 0, Column: 0},
			"B": {Row: 0, Column: 1},
		},
		Statuses: map[string]string{
			"A": schema.StatusSuccess,
			"B": schema.StatusError,
		},
	}
}

type failingSurface struct {
	Scene
	failAfter int
	calls     int
}

var errBroken = errors.New("surface broken")

func (f *failingSurface) tick() error {
	f.calls++
	if f.calls > f.failAfter {
		return errBroken
	}
	return nil
}

func (f *failingSurface) DrawRect(r Rect) error {
	if err := f.tick(); err != nil {
		return err
	}
	return f.Scene.DrawRect(r)
}

func (f *failingSurface) DrawText(t Text) error {
	if err := f.tick(); err != nil {
		return err
	}
	return f.Scene.DrawText(t)
}

func (f *failingSurface) DrawLine(l Line) error {
	if err := f.tick(); err != nil {
		return err
	}
	return f.Scene.DrawLine(l)
}

type recordingObserver struct {
	mu        sync.Mutex
	completed []int
	failed    []string
}

func (o *recordingObserver) RenderCompleted(_ string, shapes int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completed = append(o.completed, shapes)
}

func (o *recordingObserver) RenderFailed(_, code string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, code)
}

// --- Tests ---

func TestRenderTwoNodes(t *testing.T) {
	r := newTestRenderer(t, DefaultOptions())
	scene := NewScene()

	require.NoError(t, r.Render(context.Background(), abGraph(), scene))

	rects := scene.Rects()
	require.Len(t, rects, 2)
	assert.Equal(t, Rect{
		Key: "node:A", Role: RoleNode, X: 0, Y: 0, Width: 200, Height: 40,
		Paint: Paint{Stroke: "#2ECC40", Fill: "white", Classes: []string{"node"}},
	}, rects[0])
	assert.Equal(t, 220.0, rects[1].X)
	assert.Equal(t, 0.0, rects[1].Y)
	assert.Equal(t, "#FF4136", rects[1].Paint.Stroke)

	texts := scene.Texts()
	require.Len(t, texts, 2)
	assert.Equal(t, "A", texts[0].Content)
	assert.Equal(t, 2.5, texts[0].X)
	assert.Equal(t, 14.0, texts[0].Y)
	assert.Equal(t, "#2ECC40", texts[0].Paint.Fill)
	assert.Equal(t, 222.5, texts[1].X)

	lines := scene.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, Line{
		Key: "edge:A->B", X1: 200, Y1: 20, X2: 220, Y2: 20,
		Paint: Paint{Stroke: "#808080", Classes: []string{"edge"}},
	}, lines[0])
}

func TestRenderDrawOrder(t *testing.T) {
	r := newTestRenderer(t, DefaultOptions())
	scene := NewScene()
	require.NoError(t, r.Render(context.Background(), abGraph(), scene))

	var keys []string
	for _, sh := range scene.Shapes() {
		keys = append(keys, sh.ShapeKey())
	}
	assert.Equal(t, []string{"node:A", "node:B", "label:A", "label:B", "edge:A->B"}, keys)
}

func TestRenderEmptyGraph(t *testing.T) {
	r := newTestRenderer(t, DefaultOptions())
	scene := NewScene()

	require.NoError(t, r.Render(context.Background(), &schema.Graph{}, scene))
	assert.Zero(t, scene.Len())
}

func TestRenderRejectsMissingLocation(t *testing.T) {
	r := newTestRenderer(t, DefaultOptions())
	g := abGraph()
	delete(g.Locations, "B")
	scene := NewScene()

	err := r.Render(context.Background(), g, scene)
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
	assert.Zero(t, scene.Len(), "nothing is drawn when validation fails")
}

func TestRenderRejectsNilGraph(t *testing.T) {
	r := newTestRenderer(t, DefaultOptions())
	err := r.Render(context.Background(), nil, NewScene())
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
}

func TestRenderNilSurface(t *testing.T) {
	r := newTestRenderer(t, DefaultOptions())
	err := r.Render(context.Background(), abGraph(), nil)
	assert.True(t, schema.HasCode(err, schema.ErrCodeSurface))
}

func TestRenderSurfaceFailure(t *testing.T) {
	obs := &recordingObserver{}
	r := newTestRenderer(t, DefaultOptions(), WithObserver(obs))
	surface := &failingSurface{failAfter: 1}

	err := r.Render(context.Background(), abGraph(), surface)
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeSurface))
	assert.ErrorIs(t, err, errBroken)

	var se *schema.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "B", se.NodeID)
	assert.Equal(t, 1, surface.Len())
	assert.Equal(t, []string{schema.ErrCodeSurface}, obs.failed)
}

func TestRenderObserverCompleted(t *testing.T) {
	obs := &recordingObserver{}
	r := newTestRenderer(t, DefaultOptions(), WithObserver(obs))

	require.NoError(t, r.Render(context.Background(), abGraph(), NewScene()))
	assert.Equal(t, []int{5}, obs.completed)
	assert.Empty(t, obs.failed)
}

func TestRenderAccumulates(t *testing.T) {
	r := newTestRenderer(t, DefaultOptions())
	scene := NewScene()

	require.NoError(t, r.Render(context.Background(), abGraph(), scene))
	require.NoError(t, r.Render(context.Background(), abGraph(), scene))
	assert.Equal(t, 10, scene.Len())
}

func TestRenderUnknownStatusFallsBack(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	var unknown []string
	policy := style.Default(style.WithLogger(logger), style.WithUnknownHook(func(s string) {
		unknown = append(unknown, s)
	}))
	r, err := NewRenderer(DefaultOptions(), policy, WithRendererLogger(quietLogger()))
	require.NoError(t, err)

	g := abGraph()
	g.Statuses["B"] = "PAUSED"
	scene := NewScene()
	require.NoError(t, r.Render(context.Background(), g, scene))

	assert.Equal(t, style.Pink.Color, scene.Rects()[1].Paint.Stroke)
	assert.Equal(t, []string{"PAUSED"}, unknown)
	assert.Equal(t, 1, strings.Count(logs.String(), "unknown status"))
}

func TestRenderStartedStatus(t *testing.T) {
	r := newTestRenderer(t, DefaultOptions())
	g := abGraph()
	g.Statuses["B"] = schema.StartedStatus("lightflow")
	scene := NewScene()

	require.NoError(t, r.Render(context.Background(), g, scene))
	assert.Equal(t, style.Orange.Color, scene.Rects()[1].Paint.Stroke)
}

func TestRenderClassMode(t *testing.T) {
	opts := DefaultOptions()
	opts.Mode = style.ModeClass
	r := newTestRenderer(t, opts)
	scene := NewScene()

	require.NoError(t, r.Render(context.Background(), abGraph(), scene))

	rect := scene.Rects()[0]
	assert.Empty(t, rect.Paint.Stroke)
	assert.Equal(t, []string{"node", "stroke-green"}, rect.Paint.Classes)

	text := scene.Texts()[1]
	assert.Equal(t, []string{"label", "stroke-red", "fill-red"}, text.Paint.Classes)

	line := scene.Lines()[0]
	assert.Equal(t, Paint{Classes: []string{"edge"}}, line.Paint)
}

func TestRenderShortensUUIDs(t *testing.T) {
	opts := DefaultOptions()
	opts.ShortenUUIDs = true
	r := newTestRenderer(t, opts)

	id := "3f2504e0-4f89-11d3-9a0c-0305e82c3301"
	g := &schema.Graph{
		Nodes:     []schema.Node{{ID: id}, {ID: "plain"}},
		Locations: map[string]schema.Location{id: {}, "plain": {Row: 1}},
	}
	scene := NewScene()
	require.NoError(t, r.Render(context.Background(), g, scene))

	texts := scene.Texts()
	assert.Equal(t, "3f2504e0", texts[0].Content)
	assert.Equal(t, "plain", texts[1].Content)
	assert.Equal(t, "node:"+id, scene.Rects()[0].Key)
}

func TestShortUUIDForms(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"3f2504e0-4f89-11d3-9a0c-0305e82c3301", "3f2504e0"},
		{"urn:uuid:3f2504e0-4f89-11d3-9a0c-0305e82c3301", "3f2504e0"},
		{"{3f2504e0-4f89-11d3-9a0c-0305e82c3301}", "3f2504e0"},
		{"3f2504e04f8911d39a0c0305e82c3301", "3f2504e0"},
		{"3F2504E0-4F89-11D3-9A0C-0305E82C3301", "3f2504e0"},
		{"extract", "extract"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, shortUUID(tt.id))
		})
	}
}

func TestRenderTimelineDisabledByDefault(t *testing.T) {
	r := newTestRenderer(t, DefaultOptions())
	g := abGraph()
	g.Nodes[0].Received, g.Nodes[0].Succeeded = ptr(0), ptr(5)
	scene := NewScene()

	require.NoError(t, r.Render(context.Background(), g, scene))
	assert.Len(t, scene.Rects(), 2)
}

func TestRenderTimelineBars(t *testing.T) {
	opts := DefaultOptions()
	opts.Timeline = true
	r := newTestRenderer(t, opts)

	g := abGraph()
	g.Nodes[0].Received, g.Nodes[0].Succeeded = ptr(0), ptr(5)
	g.Nodes[1].Received, g.Nodes[1].Succeeded = ptr(10), ptr(20)
	scene := NewScene()
	require.NoError(t, r.Render(context.Background(), g, scene))

	var bars []Rect
	for _, rect := range scene.Rects() {
		if rect.Role == RoleTimeline {
			bars = append(bars, rect)
		}
	}
	require.Len(t, bars, 2)
	assert.Equal(t, Rect{
		Key: "timeline:A", Role: RoleTimeline, X: 0, Y: 41, Width: 256, Height: 3,
		Paint: Paint{Fill: "#2ECC40", Classes: []string{"timeline"}},
	}, bars[0])
	assert.Equal(t, 512.0, bars[1].X)
	assert.Equal(t, 512.0, bars[1].Width)
}

func TestRenderCancelled(t *testing.T) {
	r := newTestRenderer(t, DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Render(ctx, abGraph(), NewScene())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRendererRejectsBadOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.NodeWidth = 0
	_, err := NewRenderer(opts, nil)
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeConfig))
}

func TestRenderSVG(t *testing.T) {
	r := newTestRenderer(t, DefaultOptions())

	out, err := r.RenderSVG(context.Background(), abGraph())
	require.NoError(t, err)

	svg := string(out)
	assert.True(t, strings.HasPrefix(svg, `<svg xmlns="http://www.w3.org/2000/svg" width="1024" height="1024"`))
	assert.Contains(t, svg, "<title>ab</title>")
	assert.Contains(t, svg, `<rect data-key="node:B" x="220" y="0" width="200" height="40" class="node" stroke="#FF4136" fill="white"/>`)
	assert.Contains(t, svg, `<text data-key="label:A" x="2.5" y="14" font-size="14" class="label" stroke="#2ECC40" fill="#2ECC40">A</text>`)
	assert.Contains(t, svg, `<line data-key="edge:A-&gt;B" x1="200" y1="20" x2="220" y2="20" class="edge" stroke="#808080"/>`)
	assert.NotContains(t, svg, "<style>")
	assert.True(t, strings.HasSuffix(svg, "</svg>\n"))
}

func TestRenderSVGClassMode(t *testing.T) {
	opts := DefaultOptions()
	opts.Mode = style.ModeClass
	r := newTestRenderer(t, opts)

	out, err := r.RenderSVG(context.Background(), abGraph())
	require.NoError(t, err)

	svg := string(out)
	assert.Contains(t, svg, "<style>")
	assert.Contains(t, svg, ".stroke-green { stroke: #2ECC40; }")
	assert.Contains(t, svg, `class="node stroke-green" fill="white"`)
}
