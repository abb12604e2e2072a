// flowgraph renders workflow graphs coloured by task status.
package main

import (
	"fmt"
	"io"
	"os"
)

const usage = `usage: flowgraph <command> [flags]

commands:
  render     render a graph snapshot once (svg, mermaid, ascii, png, dot-svg)
  watch      keep an SVG up to date with a changing snapshot
  validate   check a snapshot without rendering it
  version    print the version

run "flowgraph <command> -h" for the flags of a command.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	switch args[0] {
	case "render":
		return runRender(args[1:], stdin, stdout, stderr)
	case "watch":
		return runWatch(args[1:], stderr)
	case "validate":
		return runValidate(args[1:], stdin, stdout, stderr)
	case "version":
		printVersion(stdout)
		return 0
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n%s", args[0], usage)
		return 2
	}
}
