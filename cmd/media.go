package main

import (
	"context"
	"fmt"

	"github.com/offbeatlabs/stepsync/internal/formatter"
	"github.com/offbeatlabs/stepsync/internal/lifecycle"
	"github.com/offbeatlabs/stepsync/internal/models"
	"github.com/offbeatlabs/stepsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// MediaStatus reconciles one owner's media state and reports the outcome.
func (r *Runner) MediaStatus(ctx context.Context, cmd *cli.Command) error {
	kind, id, err := parseOwnerArgs(cmd)
	if err != nil {
		return err
	}

	machine, err := r.newMachine(kind, id)
	if err != nil {
		return err
	}
	defer machine.Close()
	defer r.CloseDB()

	r.logger.Info("reconciling media state", "kind", kind, "id", id)

	ref, err := machine.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("reconcile failed: %w", err)
	}
	state := machine.State()

	if cmd.Bool("json") {
		return r.writeJSON(struct {
			Kind       models.OwnerKind `json:"kind"`
			ID         string           `json:"id"`
			State      models.State     `json:"state"`
			PlaybackID string           `json:"playback_id,omitempty"`
			AssetID    string           `json:"asset_id,omitempty"`
		}{kind, id, state, ref.PlaybackID, ref.AssetID}, cmd.Bool("pretty"))
	}

	switch state {
	case models.StateLive:
		r.writePlain("✓ Video live (playback %s, asset %s)\n", ref.PlaybackID, ref.AssetID)
	case models.StateError:
		r.writePlain("✗ Media in error state\n")
	default:
		r.writePlain("○ No video attached\n")
	}
	return nil
}

// MediaCheck runs a single gateway truth check for one owner. Unlike status
// it goes through Machine.CheckStatus, so a machine mid-transcode would
// settle live as soon as the gateway reports the asset ready.
func (r *Runner) MediaCheck(ctx context.Context, cmd *cli.Command) error {
	kind, id, err := parseOwnerArgs(cmd)
	if err != nil {
		return err
	}

	machine, err := r.newMachine(kind, id)
	if err != nil {
		return err
	}
	defer machine.Close()
	defer r.CloseDB()

	r.logger.Info("checking gateway status", "kind", kind, "id", id)

	if err := machine.CheckStatus(ctx); err != nil {
		return fmt.Errorf("status check failed: %w", err)
	}
	state := machine.State()
	ref := machine.Reference()

	if cmd.Bool("json") {
		return r.writeJSON(struct {
			Kind       models.OwnerKind `json:"kind"`
			ID         string           `json:"id"`
			State      models.State     `json:"state"`
			PlaybackID string           `json:"playback_id,omitempty"`
			AssetID    string           `json:"asset_id,omitempty"`
		}{kind, id, state, ref.PlaybackID, ref.AssetID}, cmd.Bool("pretty"))
	}

	switch state {
	case models.StateLive:
		r.writePlain("✓ Asset ready (playback %s, asset %s)\n", ref.PlaybackID, ref.AssetID)
	case models.StateError:
		r.writePlain("✗ Gateway reported an asset failure\n")
	default:
		r.writePlain("○ No asset at the gateway\n")
	}
	return nil
}

// MediaUpload uploads a video file for one owner and waits until it settles.
func (r *Runner) MediaUpload(ctx context.Context, cmd *cli.Command) error {
	kind, id, err := parseOwnerArgs(cmd)
	if err != nil {
		return err
	}
	path := cmd.StringArg("file")
	if path == "" {
		return fmt.Errorf("%w: file path is required", shared.ErrMissingArgument)
	}

	r.recoverSessions(ctx)

	machine, err := r.newMachine(kind, id)
	if err != nil {
		return err
	}
	defer machine.Close()
	defer r.CloseDB()

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case u := <-machine.Updates():
				r.writePlain("%s\n", u.Message)
			case <-done:
				return
			}
		}
	}()

	if err := machine.SelectFile(ctx, path); err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	state, err := machine.WaitSettled(ctx)
	if err != nil {
		return err
	}
	if state != models.StateLive {
		return fmt.Errorf("upload settled in state %s", state)
	}

	ref := machine.Reference()
	r.writePlain("✓ Video live (playback %s, asset %s)\n", ref.PlaybackID, ref.AssetID)
	return nil
}

// MediaDelete removes the video attached to one owner.
func (r *Runner) MediaDelete(ctx context.Context, cmd *cli.Command) error {
	kind, id, err := parseOwnerArgs(cmd)
	if err != nil {
		return err
	}

	machine, err := r.newMachine(kind, id)
	if err != nil {
		return err
	}
	defer machine.Close()
	defer r.CloseDB()

	// Reconcile first so the machine knows the current reference.
	if _, err := machine.Reconcile(ctx); err != nil {
		return fmt.Errorf("reconcile failed: %w", err)
	}

	if err := machine.DeleteMedia(ctx); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	r.writePlain("✓ Video deleted\n")
	return nil
}

// auditKinds resolves the --kind flag into the owner kinds to sweep.
// "all" (and the empty default) covers every record type with a media slot.
func auditKinds(flag string) ([]models.OwnerKind, error) {
	switch flag {
	case "all", "":
		return []models.OwnerKind{models.OwnerLesson, models.OwnerCourse, models.OwnerLevel, models.OwnerPost}, nil
	default:
		kind, err := models.ParseOwnerKind(flag)
		if err != nil {
			return nil, err
		}
		return []models.OwnerKind{kind}, nil
	}
}

// MediaAudit sweeps backend records and verifies their references.
func (r *Runner) MediaAudit(ctx context.Context, cmd *cli.Command) error {
	if r.records == nil || r.gateway == nil {
		return fmt.Errorf("%w: backend services not configured", shared.ErrMissingConfig)
	}

	kinds, err := auditKinds(cmd.String("kind"))
	if err != nil {
		return err
	}

	auditor := lifecycle.NewAuditor(lifecycle.AuditorOpts{
		Store:     r.records,
		Gateway:   r.gateway,
		Logger:    r.logger,
		RateLimit: r.config.Gateway.RateLimit,
		Heal:      cmd.Bool("heal"),
	})

	go func() {
		for u := range auditor.Updates() {
			r.logger.Info(u.Message)
		}
	}()

	result, err := auditor.Run(ctx, kinds)
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	format := cmd.String("format")
	if outPath := cmd.String("output"); outPath != "" {
		if err := formatter.SaveReport(outPath, result, format); err != nil {
			return err
		}
		r.writePlain("✓ Report saved to %s\n", outPath)
		return nil
	}
	return formatter.WriteReport(r.output, result, format)
}
