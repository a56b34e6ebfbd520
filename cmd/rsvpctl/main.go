package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/rsvp/internal/admincli"
	"github.com/okian/rsvp/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := logger.InitWithWriter(os.Stderr, logger.FormatText); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := admincli.RootCommand(admincli.OpenFromConfig).ExecuteContext(ctx); err != nil {
		os.Stderr.WriteString("rsvpctl: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}
