package diagram

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/rendis/flowgraph/internal/logging"
	"github.com/rendis/flowgraph/internal/style"
	"github.com/rendis/flowgraph/pkg/schema"
)

// RenderASCII renders g as a text grid: one box per node at its row and
// column, followed by the list of dependencies. With colorize set, each box
// is drawn in the colour of its resolved style.
func RenderASCII(ctx context.Context, g *schema.Graph, policy *style.Policy, colorize bool) string {
	if policy == nil {
		policy = style.Default()
	}

	var b strings.Builder
	if g == nil || g.Empty() {
		return b.String()
	}
	if g.Name != "" {
		fmt.Fprintf(&b, "=== %s ===\n\n", g.Name)
	}

	rows, cols := 0, 0
	cells := make(map[schema.Location]asciiBox, len(g.Nodes))
	widths := make(map[int]int)
	for _, n := range g.Nodes {
		loc := g.Locations[n.ID]
		st := policy.ResolveFor(logging.WithNodeID(ctx, n.ID), g.Status(n.ID),
			style.Subject{ID: n.ID, Row: loc.Row, Column: loc.Column})
		box := makeBox(n.ID, g.Status(n.ID), st)
		cells[loc] = box
		widths[loc.Column] = max(widths[loc.Column], box.width)
		rows = max(rows, loc.Row+1)
		cols = max(cols, loc.Column+1)
	}

	for row := 0; row < rows; row++ {
		line := make([]asciiBox, cols)
		present := false
		for col := 0; col < cols; col++ {
			box, ok := cells[schema.Location{Row: row, Column: col}]
			if ok {
				present = true
			}
			line[col] = box.pad(widths[col])
		}
		if present {
			renderBoxRow(&b, line, colorize)
		}
	}

	if len(g.Links) > 0 {
		b.WriteString("\n")
	}
	for _, l := range g.Links {
		fmt.Fprintf(&b, "  %s ─→ %s\n", l.Source, l.Target)
	}
	return b.String()
}

// asciiBox holds the rendered lines of a single box.
type asciiBox struct {
	lines []string
	width int
	color string
}

const boxLines = 4

// makeBox creates an ASCII box for a node.
func makeBox(id, status string, st style.Style) asciiBox {
	if status == "" {
		status = "-"
	}
	content := []string{id, "[" + status + "]"}

	inner := 0
	for _, c := range content {
		inner = max(inner, utf8.RuneCountInString(c))
	}
	width := inner + 4

	lines := []string{"┌" + strings.Repeat("─", width-2) + "┐"}
	for _, c := range content {
		lines = append(lines, "│ "+c+strings.Repeat(" ", inner-utf8.RuneCountInString(c))+" │")
	}
	lines = append(lines, "└"+strings.Repeat("─", width-2)+"┘")
	return asciiBox{lines: lines, width: width, color: st.Color}
}

// pad widens the box to width, or produces blank space for an empty cell.
func (a asciiBox) pad(width int) asciiBox {
	if a.width == 0 {
		blank := strings.Repeat(" ", width)
		return asciiBox{lines: slices.Repeat([]string{blank}, boxLines), width: width}
	}
	if a.width == width {
		return a
	}
	extra := width - a.width
	out := asciiBox{lines: make([]string, len(a.lines)), width: width, color: a.color}
	for i, l := range a.lines {
		runes := []rune(l)
		last := len(runes) - 1
		fill := " "
		if i == 0 || i == len(a.lines)-1 {
			fill = "─"
		}
		out.lines[i] = string(runes[:last]) + strings.Repeat(fill, extra) + string(runes[last])
	}
	return out
}

// renderBoxRow writes boxes side by side.
func renderBoxRow(b *strings.Builder, boxes []asciiBox, colorize bool) {
	for row := 0; row < boxLines; row++ {
		for i, box := range boxes {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(paintLine(box.lines[row], box.color, colorize))
		}
		b.WriteString("\n")
	}
}

func paintLine(s, hex string, colorize bool) string {
	if !colorize || hex == "" {
		return s
	}
	r, g, bl, ok := parseHex(hex)
	if !ok {
		return s
	}
	c := color.RGB(r, g, bl)
	c.EnableColor()
	return c.Sprint(s)
}

// parseHex reads a #RRGGBB colour.
func parseHex(hex string) (r, g, b int, ok bool) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF), true
}
