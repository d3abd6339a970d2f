package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/stupside/showcrawl/cmd"
)

func main() {
	level := new(slog.LevelVar)
	if slices.Contains(os.Args, "--debug") {
		level.Set(slog.LevelDebug)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// The crawler stops at the next item boundary after a signal; the store
	// is saved before Run returns.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Root().Run(ctx, os.Args); err != nil {
		if cause := context.Cause(ctx); cause != nil {
			slog.InfoContext(ctx, "interrupted", "cause", cause)
			return
		}
		slog.Error("showcrawl failed", "error", err)
		stop()
		os.Exit(1)
	}
}
