package metrics

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowgraph/internal/diagram"
	"github.com/rendis/flowgraph/internal/style"
	"github.com/rendis/flowgraph/pkg/schema"
)

func TestRecorderCounts(t *testing.T) {
	rec := New(prometheus.NewRegistry())

	rec.RenderCompleted("etl", 5, 2*time.Millisecond)
	rec.RenderCompleted("etl", 3, time.Millisecond)
	rec.RenderFailed("etl", schema.ErrCodeValidation)
	rec.UnknownStatus("PAUSED")
	rec.UnknownStatus("")
	rec.PatchApplied()

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.renders.WithLabelValues("etl")))
	assert.Equal(t, 8.0, testutil.ToFloat64(rec.shapes))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.failures.WithLabelValues(schema.ErrCodeValidation)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.unknown.WithLabelValues("PAUSED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.unknown.WithLabelValues("none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.patches))
	assert.Equal(t, 1, testutil.CollectAndCount(rec.duration))
}

func TestRecorderWiredIntoRenderer(t *testing.T) {
	rec := New(nil)
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	policy := style.Default(style.WithLogger(quiet), style.WithUnknownHook(rec.UnknownStatus))
	r, err := diagram.NewRenderer(diagram.DefaultOptions(), policy,
		diagram.WithObserver(rec), diagram.WithRendererLogger(quiet))
	require.NoError(t, err)

	g := &schema.Graph{
		Name:      "wired",
		Nodes:     []schema.Node{{ID: "A"}},
		Locations: map[string]schema.Location{"A": {}},
	}
	require.NoError(t, r.Render(context.Background(), g, diagram.NewScene()))
	require.Error(t, r.Render(context.Background(), &schema.Graph{Name: "wired", Nodes: []schema.Node{{ID: "B"}}}, diagram.NewScene()))

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.renders.WithLabelValues("wired")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.shapes))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.unknown.WithLabelValues("none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.failures.WithLabelValues(schema.ErrCodeValidation)))
}

func TestRecorderHandler(t *testing.T) {
	rec := New(nil)
	rec.RenderCompleted("etl", 1, time.Millisecond)

	srv := httptest.NewServer(rec.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `flowgraph_renders_total{workflow="etl"} 1`))
}
