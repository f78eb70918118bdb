package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/txtxlabs/txtx/internal/obslog"
)

func main() {
	level := "info"
	for _, a := range os.Args {
		if a == "-v" || a == "--verbose" {
			level = "debug"
		}
	}

	logger := obslog.New(obslog.Options{
		Level:         level,
		HumanReadable: term.IsTerminal(int(os.Stderr.Fd())),
		Writer:        os.Stderr,
		Component:     "cli",
	})

	app, err := NewAppContext(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build application context: %v\n", err)
		os.Exit(1)
	}

	ctx := obslog.WithCorrelationID(context.Background(), obslog.NewCorrelationID())

	if err := newRootCmd(app).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
