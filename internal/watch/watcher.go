// Package watch keeps an SVG rendering of a graph snapshot file up to date.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rendis/flowgraph/internal/diagram"
	"github.com/rendis/flowgraph/internal/loader"
	"github.com/rendis/flowgraph/internal/streaming"
	"github.com/rendis/flowgraph/pkg/schema"
)

// DefaultSchedule re-reads the snapshot every five seconds.
const DefaultSchedule = "@every 5s"

// PatchRecorder is told about every patch written out.
type PatchRecorder interface {
	PatchApplied()
}

// Config describes what to watch and where to write.
type Config struct {
	Input    string
	Output   string
	Schedule string
	Load     loader.Options
}

// Watcher re-reads Input on a cron schedule, diffs it against the previous
// snapshot, patches a retained scene and rewrites Output only when something
// changed.
type Watcher struct {
	cfg      Config
	renderer *diagram.Renderer
	loader   *loader.Loader
	schedule cron.Schedule
	recorder PatchRecorder
	hub      streaming.EventHub
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex

	tickMu   sync.Mutex
	scene    *diagram.Scene
	prev     *schema.Graph
	workflow string
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithRecorder registers a PatchRecorder.
func WithRecorder(r PatchRecorder) Option {
	return func(w *Watcher) { w.recorder = r }
}

// WithHub publishes every written patch, and every failed tick, to hub.
func WithHub(hub streaming.EventHub) Option {
	return func(w *Watcher) { w.hub = hub }
}

// WithLogger sets the watcher's logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// ParseSchedule accepts a five-field cron spec or a descriptor such as
// "@every 5s" or "@hourly".
func ParseSchedule(spec string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeConfig, "parse schedule %q", spec).WithCause(err)
	}
	return schedule, nil
}

// New creates a Watcher. An empty schedule means DefaultSchedule.
func New(cfg Config, r *diagram.Renderer, l *loader.Loader, opts ...Option) (*Watcher, error) {
	if cfg.Input == "" || cfg.Output == "" {
		return nil, schema.NewError(schema.ErrCodeConfig, "watch needs an input and an output path")
	}
	if r == nil || l == nil {
		return nil, schema.NewError(schema.ErrCodeConfig, "watch needs a renderer and a loader")
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	schedule, err := ParseSchedule(cfg.Schedule)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		cfg:      cfg,
		renderer: r,
		loader:   l,
		schedule: schedule,
		scene:    diagram.NewScene(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return w, nil
}

// Start launches the background loop. The first tick runs immediately.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.done != nil {
		w.mu.Unlock()
		return fmt.Errorf("watcher already started")
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.loop(watchCtx)
	w.logger.Info("watcher started",
		slog.String("input", w.cfg.Input),
		slog.String("output", w.cfg.Output),
		slog.String("schedule", w.cfg.Schedule),
	)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	w.tick(ctx)

	for {
		now := time.Now()
		timer := time.NewTimer(w.schedule.Next(now).Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			w.tick(ctx)
		}
	}
}

func (w *Watcher) tick(ctx context.Context) {
	if _, err := w.Tick(ctx); err != nil {
		w.logger.ErrorContext(ctx, "watch tick failed", slog.String("error", err.Error()))
		w.publish(ctx, streaming.Event{
			Workflow: w.lastWorkflow(),
			Type:     streaming.EventFailed,
			Payload:  map[string]any{"error": err.Error()},
		})
	}
}

// lastWorkflow names the most recently loaded workflow, or the input path
// before anything has loaded.
func (w *Watcher) lastWorkflow() string {
	w.tickMu.Lock()
	defer w.tickMu.Unlock()
	if w.workflow != "" {
		return w.workflow
	}
	return w.cfg.Input
}

func (w *Watcher) publish(ctx context.Context, ev streaming.Event) {
	if w.hub == nil {
		return
	}
	if err := w.hub.Publish(ctx, ev); err != nil {
		w.logger.DebugContext(ctx, "publish skipped", slog.String("error", err.Error()))
	}
}

// Tick reads the snapshot once and brings Output up to date. It reports
// whether Output was rewritten. A snapshot that fails to load or validate
// leaves the previous output in place. A patch that fails halfway, or an
// output that cannot be written, forces a full redraw on the next tick.
func (w *Watcher) Tick(ctx context.Context) (bool, error) {
	w.tickMu.Lock()
	defer w.tickMu.Unlock()

	g, err := w.loader.LoadFile(ctx, w.cfg.Input, w.cfg.Load)
	if err != nil {
		return false, err
	}
	if g.Name != "" {
		w.workflow = g.Name
	}

	patch := diagram.Diff(w.prev, g)
	if w.prev != nil && patch.Empty() {
		return false, nil
	}

	if w.prev == nil {
		scene := diagram.NewScene()
		if err := w.renderer.Render(ctx, g, scene); err != nil {
			return false, err
		}
		w.scene = scene
	} else if err := w.renderer.Apply(ctx, patch, g, w.scene); err != nil {
		if !schema.HasCode(err, schema.ErrCodeValidation) {
			w.prev = nil
		}
		return false, err
	}

	// prev only advances once Output holds this snapshot.
	w.prev = nil
	out, err := w.renderer.EncodeSVG(w.scene, g.Name)
	if err != nil {
		return false, err
	}
	if err := writeFile(w.cfg.Output, out); err != nil {
		return false, err
	}
	w.prev = g

	w.logger.InfoContext(ctx, "output updated",
		slog.String("output", w.cfg.Output),
		slog.Int("changed_nodes", len(patch.ChangedNodes)),
		slog.Int("added_nodes", len(patch.AddedNodes)),
		slog.Int("removed_nodes", len(patch.RemovedNodes)),
	)
	if w.recorder != nil {
		w.recorder.PatchApplied()
	}
	w.publish(ctx, streaming.Event{Workflow: g.Name, Type: streaming.EventPatched, Payload: patch})
	return true, nil
}

// Stop shuts the loop down and waits for it to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel == nil {
		return nil
	}

	w.cancel()
	<-w.done
	w.cancel = nil
	w.done = nil

	w.logger.Info("watcher stopped")
	return nil
}

// writeFile replaces path atomically so readers never see a partial document.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace output: %w", err)
	}
	return nil
}
