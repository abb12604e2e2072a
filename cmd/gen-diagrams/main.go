// gen-diagrams generates sample diagram outputs for README documentation.
// Run: go run ./cmd/gen-diagrams
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rendis/flowgraph/internal/diagram"
	"github.com/rendis/flowgraph/internal/loader"
	"github.com/rendis/flowgraph/internal/style"
	"github.com/rendis/flowgraph/pkg/schema"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	g, err := loader.LoadFile(ctx, filepath.Join("examples", "fan-out", "graph.json"),
		loader.Options{DefaultStatus: schema.StatusNotRunning})
	if err != nil {
		fmt.Fprintf(os.Stderr, "load error: %v\n", err)
		os.Exit(1)
	}
	policy := style.Default(style.WithLogger(logger))

	outDir := filepath.Join("docs", "assets")
	os.MkdirAll(outDir, 0o755)

	// SVG (native renderer)
	opts := diagram.DefaultOptions()
	opts.CanvasWidth, opts.CanvasHeight = 900, 120
	r, err := diagram.NewRenderer(opts, policy, diagram.WithRendererLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "renderer error: %v\n", err)
		os.Exit(1)
	}
	svg, err := r.RenderSVG(ctx, g)
	if err != nil {
		fmt.Fprintf(os.Stderr, "render error: %v\n", err)
		os.Exit(1)
	}
	svgPath := filepath.Join(outDir, "diagram-sample.svg")
	os.WriteFile(svgPath, svg, 0o644)
	fmt.Printf("=== SVG ===\nWritten: %s (%d bytes)\n", svgPath, len(svg))

	// ASCII
	ascii := diagram.RenderASCII(ctx, g, policy, false)
	os.WriteFile(filepath.Join(outDir, "diagram-ascii.txt"), []byte(ascii), 0o644)
	fmt.Println("=== ASCII ===")
	fmt.Println(ascii)

	// Mermaid
	mermaid := diagram.RenderMermaid(ctx, g, policy)
	os.WriteFile(filepath.Join(outDir, "diagram-mermaid.md"), []byte("```mermaid\n"+mermaid+"\n```\n"), 0o644)
	fmt.Println("=== Mermaid ===")
	fmt.Println(mermaid)

	// Image (PNG)
	png, imgErr := diagram.RenderImage(ctx, g, policy, diagram.ImagePNG)
	if imgErr != nil {
		fmt.Fprintf(os.Stderr, "image error: %v\n", imgErr)
	} else {
		pngPath := filepath.Join(outDir, "diagram-sample.png")
		os.WriteFile(pngPath, png, 0o644)
		fmt.Printf("=== Image (PNG) ===\nWritten: %s (%d bytes)\n", pngPath, len(png))
	}
}
