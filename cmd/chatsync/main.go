package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"chatsync/internal/app"
	"chatsync/pkg/config"
	"chatsync/pkg/shutdown"
)

// build metadata, set via ldflags during build/release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	flags := config.ParseConfigFlags()

	eff, err := config.LoadEffective(flags)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	a, err := app.New(eff, version, commit, buildDate)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		shutdown.Abort("engine exited", err, eff.DBPath)
	}
}
