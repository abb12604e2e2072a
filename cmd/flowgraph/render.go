package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"

	"github.com/rendis/flowgraph/internal/diagram"
	"github.com/rendis/flowgraph/internal/loader"
	"github.com/rendis/flowgraph/internal/logging"
	"github.com/rendis/flowgraph/internal/style"
	"github.com/rendis/flowgraph/internal/validation"
	"github.com/rendis/flowgraph/pkg/schema"
)

// Output formats of the render command.
const (
	formatSVG     = "svg"
	formatMermaid = "mermaid"
	formatASCII   = "ascii"
	formatPNG     = "png"
	formatDotSVG  = "dot-svg"
)

const defaultEnvFile = ".env"

// session is what every command needs: settings, a logger and a way to load
// snapshots.
type session struct {
	cfg    Config
	in     string
	query  string
	logger *slog.Logger
	loader *loader.Loader
}

func newSession(name string, args []string, stderr io.Writer, extra func(*flag.FlagSet, *Config)) (*session, error) {
	envFile := envFileFromArgs(args)
	cfg := loadConfig(envFile)

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	s := &session{}
	fs.String("env-file", defaultEnvFile, "dotenv file layered under FLOWGRAPH_* variables")
	fs.StringVar(&s.in, "in", "-", "graph snapshot JSON file (- for stdin)")
	fs.StringVar(&s.query, "query", "", "jq expression selecting the graph inside the document")
	bindFlags(fs, &cfg)
	if extra != nil {
		extra(fs, &cfg)
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	s.cfg = cfg
	s.logger = logging.New(stderr, cfg.LogLevel, cfg.LogFormat)
	l, err := loader.New(s.logger)
	if err != nil {
		return nil, err
	}
	s.loader = l
	return s, nil
}

// envFileFromArgs finds -env-file ahead of flag parsing, because the file
// feeds the defaults the other flags are registered with.
func envFileFromArgs(args []string) string {
	for i, a := range args {
		for _, prefix := range []string{"-env-file=", "--env-file="} {
			if len(a) > len(prefix) && a[:len(prefix)] == prefix {
				return a[len(prefix):]
			}
		}
		if (a == "-env-file" || a == "--env-file") && i+1 < len(args) {
			return args[i+1]
		}
	}
	return defaultEnvFile
}

func (s *session) loadOptions() loader.Options {
	return loader.Options{Query: s.query, DefaultStatus: s.cfg.DefaultStatus}
}

func (s *session) load(ctx context.Context, stdin io.Reader) (*schema.Graph, error) {
	if s.in == "-" || s.in == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return s.loader.Load(ctx, data, s.loadOptions())
	}
	return s.loader.LoadFile(ctx, s.in, s.loadOptions())
}

func (s *session) policy(opts ...style.Option) (*style.Policy, error) {
	opts = append([]style.Option{style.WithLogger(s.logger)}, opts...)
	if s.cfg.Theme != "" {
		return style.LoadTheme(s.cfg.Theme, opts...)
	}
	return style.Default(opts...), nil
}

func runRender(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var out, format string
	s, err := newSession("render", args, stderr, func(fs *flag.FlagSet, _ *Config) {
		fs.StringVar(&out, "out", "-", "output file (- for stdout)")
		fs.StringVar(&format, "format", formatSVG, "output format: svg, mermaid, ascii, png, dot-svg")
	})
	if err != nil {
		return flagExit(err)
	}

	ctx := context.Background()
	data, err := s.render(ctx, stdin, format, out == "-" || out == "")
	if err != nil {
		return fail(stderr, err)
	}

	if out == "-" || out == "" {
		_, err = stdout.Write(data)
	} else {
		err = os.WriteFile(out, data, 0o644)
	}
	if err != nil {
		return fail(stderr, fmt.Errorf("write output: %w", err))
	}
	return 0
}

func (s *session) render(ctx context.Context, stdin io.Reader, format string, toTerminal bool) ([]byte, error) {
	g, err := s.load(ctx, stdin)
	if err != nil {
		return nil, err
	}
	policy, err := s.policy()
	if err != nil {
		return nil, err
	}

	if format == formatSVG {
		opts, err := s.cfg.diagramOptions()
		if err != nil {
			return nil, err
		}
		r, err := diagram.NewRenderer(opts, policy, diagram.WithRendererLogger(s.logger))
		if err != nil {
			return nil, err
		}
		return r.RenderSVG(ctx, g)
	}

	if err := validation.CheckReferences(g).ToError(); err != nil {
		return nil, err
	}
	switch format {
	case formatMermaid:
		return []byte(diagram.RenderMermaid(ctx, g, policy)), nil
	case formatASCII:
		return []byte(diagram.RenderASCII(ctx, g, policy, toTerminal && !color.NoColor)), nil
	case formatPNG:
		return diagram.RenderImage(ctx, g, policy, diagram.ImagePNG)
	case formatDotSVG:
		return diagram.RenderImage(ctx, g, policy, diagram.ImageSVG)
	default:
		return nil, schema.NewErrorf(schema.ErrCodeConfig, "unknown format %q", format)
	}
}

func flagExit(err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	return 2
}

// fail prints err, plus every issue when it is a validation failure.
func fail(stderr io.Writer, err error) int {
	fmt.Fprintf(stderr, "Error: %v\n", err)

	var e *schema.Error
	if !errors.As(err, &e) {
		return 1
	}
	if issues, ok := e.Details["errors"].([]schema.ValidationIssue); ok && len(issues) > 1 {
		for _, issue := range issues {
			fmt.Fprintf(stderr, "  %s: %s\n", issue.Path, issue.Message)
		}
	}
	if violations, ok := e.Details["violations"].([]string); ok && len(violations) > 1 {
		for _, v := range violations {
			fmt.Fprintf(stderr, "  %s\n", v)
		}
	}
	return 1
}
