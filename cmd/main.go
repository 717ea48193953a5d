package main

import (
	"context"
	"os"
	"time"

	"github.com/offbeatlabs/stepsync/internal/services"
	"github.com/offbeatlabs/stepsync/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	var records *services.BackendService
	if config.Backend.BaseURL != "" {
		timeout := time.Duration(config.Backend.TimeoutSeconds) * time.Second
		records = services.NewBackendService(config.Backend.BaseURL, config.Backend.Token, timeout)
	}

	var gateway services.AssetGateway
	if config.Gateway.BaseURL != "" {
		gateway = services.NewHTTPGateway(config.Gateway.BaseURL, config.Gateway.Token, config.Gateway.RateLimit, nil)
	}

	opts := RunnerOpts{
		Config:    config,
		Gateway:   gateway,
		Transport: services.NewHTTPUploadTransport(nil),
		API:       services.NewAPIService(config.Backend.BaseURL, nil),
		Logger:    logger,
	}
	if records != nil {
		opts.Records = records
		opts.Feed = records
	}
	runner := NewRunner(opts)

	app := &cli.Command{
		Name:     "stepsync",
		Usage:    "Keep dance lesson videos in sync across the gateway and backend",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
