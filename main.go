package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/adt-dev/adt/internal/apperr"
	"github.com/adt-dev/adt/internal/cli"
	"github.com/adt-dev/adt/internal/style"
)

// version, commit, and date are set via ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx, version, commit, date, os.Args[1:])
	stop()
	if err != nil {
		style.Errorf(os.Stderr, "%v", err)
		os.Exit(apperr.ExitCode(err))
	}
}
