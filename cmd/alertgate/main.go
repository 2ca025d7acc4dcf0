package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/alertgate/internal/cmd"
	"github.com/felixgeelhaar/alertgate/internal/exitcode"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			fmt.Fprintln(os.Stderr, "\nOperation cancelled")
			exitcode.Exit(exitcode.Interrupted)
		}

		code := exitcode.DetermineExitCode(err)
		if !cmd.Reported(err) {
			fmt.Fprintf(os.Stderr, "Error (%s): %v\n", exitcode.GetExitCodeDescription(code), err)
		}
		exitcode.Exit(code)
	}
	exitcode.Exit(exitcode.Success)
}
