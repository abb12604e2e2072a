package main

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/rendis/flowgraph/internal/diagram"
	"github.com/rendis/flowgraph/internal/style"
	"github.com/rendis/flowgraph/internal/watch"
	"github.com/rendis/flowgraph/pkg/schema"
)

// Config holds all flowgraph settings.
// Priority: flags > env vars > .env > settings.json > defaults.
type Config struct {
	CanvasWidth   float64 `json:"canvas_width"`
	CanvasHeight  float64 `json:"canvas_height"`
	NodeWidth     float64 `json:"node_width"`
	NodeHeight    float64 `json:"node_height"`
	SpacingFactor float64 `json:"spacing_factor"`
	TextSize      float64 `json:"text_size"`
	Margin        float64 `json:"margin"`
	Mode          string  `json:"mode"`
	Theme         string  `json:"theme"`
	DefaultStatus string  `json:"default_status"`
	ShortenUUIDs  bool    `json:"shorten_uuids"`
	Timeline      bool    `json:"timeline"`
	LogLevel      string  `json:"log_level"`
	LogFormat     string  `json:"log_format"`
	Schedule      string  `json:"schedule"`
	MetricsAddr   string  `json:"metrics_addr"`
}

func defaultConfig() Config {
	opts := diagram.DefaultOptions()
	return Config{
		CanvasWidth:   opts.CanvasWidth,
		CanvasHeight:  opts.CanvasHeight,
		NodeWidth:     opts.NodeWidth,
		NodeHeight:    opts.NodeHeight,
		SpacingFactor: opts.SpacingFactor,
		TextSize:      opts.TextSize,
		Margin:        opts.Margin,
		Mode:          string(style.ModeInline),
		DefaultStatus: schema.StatusNotRunning,
		LogLevel:      "info",
		LogFormat:     "text",
		Schedule:      watch.DefaultSchedule,
	}
}

func flowgraphDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flowgraph"
	}
	return filepath.Join(home, ".flowgraph")
}

func settingsPath() string {
	return filepath.Join(flowgraphDir(), "settings.json")
}

// loadConfig layers settings.json, envFile and FLOWGRAPH_* variables over
// the defaults. Flags are applied later by bindFlags.
func loadConfig(envFile string) Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: .env never overrides variables already set.
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	// Layer 4: env vars override.
	floatEnv("FLOWGRAPH_CANVAS_WIDTH", &cfg.CanvasWidth)
	floatEnv("FLOWGRAPH_CANVAS_HEIGHT", &cfg.CanvasHeight)
	floatEnv("FLOWGRAPH_NODE_WIDTH", &cfg.NodeWidth)
	floatEnv("FLOWGRAPH_NODE_HEIGHT", &cfg.NodeHeight)
	floatEnv("FLOWGRAPH_SPACING_FACTOR", &cfg.SpacingFactor)
	floatEnv("FLOWGRAPH_TEXT_SIZE", &cfg.TextSize)
	floatEnv("FLOWGRAPH_MARGIN", &cfg.Margin)
	stringEnv("FLOWGRAPH_MODE", &cfg.Mode)
	stringEnv("FLOWGRAPH_THEME", &cfg.Theme)
	stringEnv("FLOWGRAPH_DEFAULT_STATUS", &cfg.DefaultStatus)
	boolEnv("FLOWGRAPH_SHORTEN_UUIDS", &cfg.ShortenUUIDs)
	boolEnv("FLOWGRAPH_TIMELINE", &cfg.Timeline)
	stringEnv("FLOWGRAPH_LOG_LEVEL", &cfg.LogLevel)
	stringEnv("FLOWGRAPH_LOG_FORMAT", &cfg.LogFormat)
	stringEnv("FLOWGRAPH_SCHEDULE", &cfg.Schedule)
	stringEnv("FLOWGRAPH_METRICS_ADDR", &cfg.MetricsAddr)

	return cfg
}

func stringEnv(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func floatEnv(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func boolEnv(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "true" || v == "1"
	}
}

// bindFlags registers the render settings on fs with cfg's values as defaults,
// so parsed flags land on top of every other layer.
func bindFlags(fs *flag.FlagSet, cfg *Config) {
	fs.Float64Var(&cfg.CanvasWidth, "canvas-width", cfg.CanvasWidth, "canvas width")
	fs.Float64Var(&cfg.CanvasHeight, "canvas-height", cfg.CanvasHeight, "canvas height")
	fs.Float64Var(&cfg.NodeWidth, "node-width", cfg.NodeWidth, "node box width")
	fs.Float64Var(&cfg.NodeHeight, "node-height", cfg.NodeHeight, "node box height")
	fs.Float64Var(&cfg.SpacingFactor, "spacing", cfg.SpacingFactor, "grid spacing factor")
	fs.Float64Var(&cfg.TextSize, "text-size", cfg.TextSize, "label font size")
	fs.Float64Var(&cfg.Margin, "margin", cfg.Margin, "canvas margin")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "style mode: inline, class")
	fs.StringVar(&cfg.Theme, "theme", cfg.Theme, "style theme JSON file")
	fs.StringVar(&cfg.DefaultStatus, "default-status", cfg.DefaultStatus, "status of tasks without one (empty: none)")
	fs.BoolVar(&cfg.ShortenUUIDs, "short-ids", cfg.ShortenUUIDs, "label UUID tasks with their first 8 characters")
	fs.BoolVar(&cfg.Timeline, "timeline", cfg.Timeline, "draw duration bars for timed tasks")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text, json")
}

// diagramOptions converts cfg into renderer options.
func (c Config) diagramOptions() (diagram.Options, error) {
	mode, err := style.ParseMode(c.Mode)
	if err != nil {
		return diagram.Options{}, err
	}
	opts := diagram.DefaultOptions()
	opts.CanvasWidth = c.CanvasWidth
	opts.CanvasHeight = c.CanvasHeight
	opts.NodeWidth = c.NodeWidth
	opts.NodeHeight = c.NodeHeight
	opts.SpacingFactor = c.SpacingFactor
	opts.TextSize = c.TextSize
	opts.Margin = c.Margin
	opts.Mode = mode
	opts.ShortenUUIDs = c.ShortenUUIDs
	opts.Timeline = c.Timeline
	return opts, opts.Validate()
}
