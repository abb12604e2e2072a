package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rendis/flowgraph/internal/diagram"
	"github.com/rendis/flowgraph/internal/metrics"
	"github.com/rendis/flowgraph/internal/streaming"
	"github.com/rendis/flowgraph/internal/style"
	"github.com/rendis/flowgraph/internal/watch"
	"github.com/rendis/flowgraph/pkg/schema"
)

func runWatch(args []string, stderr io.Writer) int {
	var out string
	s, err := newSession("watch", args, stderr, func(fs *flag.FlagSet, cfg *Config) {
		fs.StringVar(&out, "out", "", "SVG output file")
		fs.StringVar(&cfg.Schedule, "schedule", cfg.Schedule, `re-read schedule: cron spec or descriptor such as "@every 5s"`)
		fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve /metrics, /events and /healthz on this address (empty: off)")
	})
	if err != nil {
		return flagExit(err)
	}
	if s.in == "-" || s.in == "" || out == "" {
		return fail(stderr, schema.NewError(schema.ErrCodeConfig, "watch needs -in and -out files"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec := metrics.New(nil)
	policy, err := s.policy(style.WithUnknownHook(rec.UnknownStatus))
	if err != nil {
		return fail(stderr, err)
	}
	opts, err := s.cfg.diagramOptions()
	if err != nil {
		return fail(stderr, err)
	}
	r, err := diagram.NewRenderer(opts, policy,
		diagram.WithRendererLogger(s.logger),
		diagram.WithObserver(rec),
	)
	if err != nil {
		return fail(stderr, err)
	}

	hub := streaming.NewMemoryHub()
	w, err := watch.New(watch.Config{
		Input:    s.in,
		Output:   out,
		Schedule: s.cfg.Schedule,
		Load:     s.loadOptions(),
	}, r, s.loader, watch.WithRecorder(rec), watch.WithHub(hub), watch.WithLogger(s.logger))
	if err != nil {
		return fail(stderr, err)
	}

	var srv *http.Server
	if s.cfg.MetricsAddr != "" {
		srv = statusServer(s.cfg.MetricsAddr, rec, hub)
		go func() {
			s.logger.Info("listening", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("metrics server error", slog.String("error", err.Error()))
				stop()
			}
		}()
	}

	if err := w.Start(ctx); err != nil {
		return fail(stderr, err)
	}
	<-ctx.Done()

	_ = w.Stop()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	return 0
}

// statusServer serves /metrics, the /events stream of written patches and /healthz.
func statusServer(addr string, rec *metrics.Recorder, hub streaming.EventHub) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", rec.Handler())
	mux.Handle("/events", streaming.Handler(hub))
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
