// Package main is the entry point for the nyx CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/relicta-tech/nyx/internal/cli"
	nyxerrors "github.com/relicta-tech/nyx/internal/errors"
)

// Version information set by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigChan
		fmt.Fprintf(os.Stderr, "\nreceived signal %v, canceling\n", sig)
		cancel()

		// a second signal forces exit
		<-sigChan
		os.Exit(130)
	}()

	cli.SetVersionInfo(version, commit, date)

	if err := cli.ExecuteContext(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "operation canceled")
			os.Exit(130)
		}
		// cobra error printing is silenced; report here with the
		// kind-specific exit code
		fmt.Fprintf(os.Stderr, "Error: %v\n", nyxerrors.RedactError(err))
		os.Exit(nyxerrors.ExitCode(err))
	}
}
