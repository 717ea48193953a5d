package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/offbeatlabs/stepsync/internal/feed"
	"github.com/offbeatlabs/stepsync/internal/models"
	"github.com/offbeatlabs/stepsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// newFeedEngine builds a feed engine populated with current server truth.
func (r *Runner) newFeedEngine(ctx context.Context, author string) (*feed.Engine, error) {
	if r.feed == nil {
		return nil, fmt.Errorf("%w: backend services not configured", shared.ErrMissingConfig)
	}

	engine := feed.NewEngine(feed.EngineOpts{
		Store:  r.feed,
		Logger: r.logger,
		Author: author,
	})
	if err := engine.Refresh(ctx); err != nil {
		engine.Close()
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	return engine, nil
}

// FeedList fetches and displays the community feed.
func (r *Runner) FeedList(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.newFeedEngine(ctx, "")
	if err != nil {
		return err
	}
	defer engine.Close()

	posts := engine.Posts()

	if cmd.Bool("json") {
		return r.writeJSON(posts, cmd.Bool("pretty"))
	}

	if len(posts) == 0 {
		r.writePlain("No posts yet\n")
		return nil
	}

	for _, post := range posts {
		r.writePlain("%s  %s\n", post.ID, post.Author)
		r.writePlain("  %s\n", post.Body)
		if len(post.Reactions) > 0 {
			var parts []string
			for emoji, count := range post.Reactions {
				parts = append(parts, fmt.Sprintf("%s %d", emoji, count))
			}
			r.writePlain("  %s\n", strings.Join(parts, "  "))
		}
		r.writePlain("\n")
	}
	return nil
}

// FeedPost publishes a new post to the community feed.
func (r *Runner) FeedPost(ctx context.Context, cmd *cli.Command) error {
	body := cmd.StringArg("body")
	if body == "" {
		return fmt.Errorf("%w: post body is required", shared.ErrMissingArgument)
	}

	engine, err := r.newFeedEngine(ctx, cmd.String("author"))
	if err != nil {
		return err
	}
	defer engine.Close()

	post, err := engine.CreatePost(ctx, body, models.MediaReference{})
	if err != nil {
		return fmt.Errorf("failed to publish post: %w", err)
	}

	r.writePlain("✓ Posted (%s)\n", post.ID)
	return nil
}

// FeedDelete removes a post from the community feed.
func (r *Runner) FeedDelete(ctx context.Context, cmd *cli.Command) error {
	postID := cmd.StringArg("id")
	if postID == "" {
		return fmt.Errorf("%w: post id is required", shared.ErrMissingArgument)
	}

	engine, err := r.newFeedEngine(ctx, "")
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.DeletePost(ctx, postID); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	r.writePlain("✓ Post deleted\n")
	return nil
}

// FeedReact adds an emoji reaction to a post.
func (r *Runner) FeedReact(ctx context.Context, cmd *cli.Command) error {
	postID := cmd.StringArg("id")
	emoji := cmd.StringArg("emoji")
	if postID == "" || emoji == "" {
		return fmt.Errorf("%w: post id and emoji are required", shared.ErrMissingArgument)
	}

	engine, err := r.newFeedEngine(ctx, "")
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.React(ctx, postID, emoji); err != nil {
		return fmt.Errorf("failed to react: %w", err)
	}

	r.writePlain("✓ Reacted with %s\n", emoji)
	return nil
}

// FeedUnreact removes an emoji reaction from a post.
func (r *Runner) FeedUnreact(ctx context.Context, cmd *cli.Command) error {
	postID := cmd.StringArg("id")
	emoji := cmd.StringArg("emoji")
	if postID == "" || emoji == "" {
		return fmt.Errorf("%w: post id and emoji are required", shared.ErrMissingArgument)
	}

	engine, err := r.newFeedEngine(ctx, "")
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.Unreact(ctx, postID, emoji); err != nil {
		return fmt.Errorf("failed to remove reaction: %w", err)
	}

	r.writePlain("✓ Reaction removed\n")
	return nil
}
