package diagram

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rendis/flowgraph/internal/style"
)

// EncodeSVG writes the scene as a standalone SVG document sized to the
// canvas in opts. In class mode the policy's stylesheet is embedded.
func EncodeSVG(w io.Writer, scene *Scene, opts Options, policy *style.Policy, title string) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		num(opts.CanvasWidth), num(opts.CanvasHeight), num(opts.CanvasWidth), num(opts.CanvasHeight))
	bw.WriteByte('\n')

	if title != "" {
		fmt.Fprintf(bw, "<title>%s</title>\n", escape(title))
	}
	if opts.Mode == style.ModeClass && policy != nil {
		fmt.Fprintf(bw, "<style>\n%s</style>\n", policy.Stylesheet())
	}

	for _, sh := range scene.Shapes() {
		switch v := sh.(type) {
		case Rect:
			fmt.Fprintf(bw, `<rect data-key="%s" x="%s" y="%s" width="%s" height="%s"%s/>`,
				escape(v.Key), num(v.X), num(v.Y), num(v.Width), num(v.Height), paintAttrs(v.Paint))
		case Text:
			fmt.Fprintf(bw, `<text data-key="%s" x="%s" y="%s" font-size="%s"%s>%s</text>`,
				escape(v.Key), num(v.X), num(v.Y), num(v.Size), paintAttrs(v.Paint), escape(v.Content))
		case Line:
			fmt.Fprintf(bw, `<line data-key="%s" x1="%s" y1="%s" x2="%s" y2="%s"%s/>`,
				escape(v.Key), num(v.X1), num(v.Y1), num(v.X2), num(v.Y2), paintAttrs(v.Paint))
		default:
			return fmt.Errorf("diagram: cannot encode shape %T", sh)
		}
		bw.WriteByte('\n')
	}

	bw.WriteString("</svg>\n")
	return bw.Flush()
}

func paintAttrs(p Paint) string {
	var b strings.Builder
	if len(p.Classes) > 0 {
		fmt.Fprintf(&b, ` class="%s"`, escape(strings.Join(p.Classes, " ")))
	}
	if p.Stroke != "" {
		fmt.Fprintf(&b, ` stroke="%s"`, escape(p.Stroke))
	}
	if p.Fill != "" {
		fmt.Fprintf(&b, ` fill="%s"`, escape(p.Fill))
	}
	return b.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
