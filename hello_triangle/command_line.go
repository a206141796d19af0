package main

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/vkngwrapper/triangle/renderer"
)

var errHelp = errors.New("help requested")

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "\nOptions")
	fmt.Fprintln(w, "\t--no-validation")
	fmt.Fprintln(w, "\t\tDo not enable the Khronos validation layer")
	fmt.Fprintln(w, "\t--help, -h")
	fmt.Fprintln(w, "\t\tShow this list")
}

// parseArgs applies command line switches to the default renderer options.
func parseArgs(args []string) (renderer.Options, error) {
	options := renderer.DefaultOptions()

	for _, arg := range args {
		switch arg {
		case "--no-validation":
			options.EnableValidation = false
		case "--help", "-h":
			return options, errHelp
		default:
			return options, errors.Newf("unrecognized option: %s", arg)
		}
	}

	return options, nil
}
