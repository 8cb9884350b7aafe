package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"bonesagent/pkg/agent"
	"bonesagent/pkg/config"
	"bonesagent/pkg/wire"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	// stdout is the protocol channel; everything else goes to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	transport := wire.New(os.Stdin, os.Stdout, logger)
	controller := agent.NewController(transport, cfg, logger)
	if err := controller.Run(context.Background()); err != nil {
		logger.Error("agent exited with error", "error", err)
		os.Exit(1)
	}
}
