package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/specialistvlad/stepflow/internal/cli"
	"github.com/specialistvlad/stepflow/internal/engine"
)

// main is the entrypoint for the stepflow manifest tool.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// The real main function handles errors and exit codes.
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling. It loads and validates the step manifests and prints the
// resulting descriptor set.
func run(outW io.Writer, args []string) error {
	config, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	eng, err := engine.New(outW, config)
	if err != nil {
		return err
	}

	reg := eng.Registry()
	types := reg.Types()
	fmt.Fprintf(outW, "Loaded %d step descriptor(s) from %s\n", len(types), config.ManifestPath)
	for _, t := range types {
		desc, _ := reg.Lookup(t)
		body := "no body"
		if desc.TakesBody {
			body = "takes body"
		}
		fmt.Fprintf(outW, "  %s (%s, %d param(s))\n", t, body, len(desc.Params))
	}
	return nil
}
