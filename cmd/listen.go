package main

import (
	"context"
	"fmt"

	"github.com/offbeatlabs/stepsync/internal/server"
	"github.com/offbeatlabs/stepsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// Listen runs the gateway webhook listener until interrupted.
//
// The listener persists asset-ready references straight to the backend, so
// uploads settle even when no client is polling.
func (r *Runner) Listen(ctx context.Context, cmd *cli.Command) error {
	if r.records == nil {
		return fmt.Errorf("%w: backend services not configured", shared.ErrMissingConfig)
	}

	cfg := r.config.Webhook
	if port := cmd.Int("port"); port > 0 {
		cfg.Port = port
	}

	handler := server.NewWebhookHandler(r.records, r.logger)
	go func() {
		for event := range handler.Events() {
			r.logger.Info("webhook event", "type", event.Type, "owner", event.OwnerID)
		}
	}()

	listener := server.NewListener(cfg, handler, r.logger)
	return listener.Serve(ctx)
}
