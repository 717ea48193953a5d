// Package feed maintains the community feed with optimistic mutations.
//
// Every mutation applies to the local snapshot first so the UI responds
// immediately, then confirms against the backend. A rejected mutation rolls
// the snapshot back and schedules a resync to converge on server truth.
package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/offbeatlabs/stepsync/internal/models"
	"github.com/offbeatlabs/stepsync/internal/services"
	"github.com/offbeatlabs/stepsync/internal/shared"
)

// EngineOpts contains the dependencies for creating an [Engine].
type EngineOpts struct {
	Store  services.FeedStore
	Logger *log.Logger

	// Author attributed to posts and reactions created through this engine.
	Author string

	// ResyncDelay is how long after a failed mutation the engine waits
	// before re-fetching server truth. Defaults to 2s.
	ResyncDelay time.Duration

	// OnChange is invoked with a copy of the feed after every local change.
	OnChange func([]models.Post)
}

// Engine owns the local view of the community feed.
type Engine struct {
	mu          sync.Mutex
	posts       []models.Post
	resyncTimer *time.Timer
	closed      bool

	store       services.FeedStore
	logger      *log.Logger
	author      string
	resyncDelay time.Duration
	onChange    func([]models.Post)
}

// NewEngine creates a feed engine. Call Refresh to populate it.
func NewEngine(opts EngineOpts) *Engine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.ResyncDelay <= 0 {
		opts.ResyncDelay = 2 * time.Second
	}

	return &Engine{
		store:       opts.Store,
		logger:      opts.Logger,
		author:      opts.Author,
		resyncDelay: opts.ResyncDelay,
		onChange:    opts.OnChange,
	}
}

// Close stops any pending resync.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.resyncTimer != nil {
		e.resyncTimer.Stop()
		e.resyncTimer = nil
	}
}

// Posts returns a deep copy of the current feed.
func (e *Engine) Posts() []models.Post {
	e.mu.Lock()
	defer e.mu.Unlock()
	return clonePosts(e.posts)
}

// Refresh replaces the local feed with server truth.
func (e *Engine) Refresh(ctx context.Context) error {
	posts, err := e.store.ListPosts(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}

	e.mu.Lock()
	e.posts = posts
	e.mu.Unlock()

	e.notify()
	return nil
}

// CreatePost publishes a new post. The post appears in the local feed
// immediately, marked pending until the backend acknowledges it; a rejected
// create removes it again.
func (e *Engine) CreatePost(ctx context.Context, body string, media models.MediaReference) (models.Post, error) {
	if body == "" {
		return models.Post{}, fmt.Errorf("%w: post body is empty", shared.ErrInvalidInput)
	}

	optimistic := models.Post{
		ID:        "local-" + shared.GenerateID(),
		Author:    e.author,
		Body:      body,
		Media:     media,
		Reactions: map[string]int{},
		Pending:   true,
		CreatedAt: time.Now(),
	}

	e.mu.Lock()
	e.posts = append([]models.Post{optimistic}, e.posts...)
	e.mu.Unlock()
	e.notify()

	created, err := e.store.CreatePost(ctx, optimistic)
	if err != nil {
		e.mu.Lock()
		e.posts = removePost(e.posts, optimistic.ID)
		e.mu.Unlock()
		e.notify()
		e.scheduleResync()
		return models.Post{}, fmt.Errorf("failed to publish post: %w", err)
	}

	e.mu.Lock()
	for i := range e.posts {
		if e.posts[i].ID == optimistic.ID {
			e.posts[i] = *created
			break
		}
	}
	e.mu.Unlock()
	e.notify()

	return *created, nil
}

// DeletePost removes a post, locally first. A backend rejection restores the
// previous feed.
func (e *Engine) DeletePost(ctx context.Context, postID string) error {
	e.mu.Lock()
	target, ok := findPost(e.posts, postID)
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: post %s", shared.ErrRecordNotFound, postID)
	}
	snapshot := clonePosts(e.posts)
	e.posts = removePost(e.posts, postID)
	e.mu.Unlock()
	e.notify()

	// A pending post never reached the server; local removal is enough
	if target.Pending {
		return nil
	}

	if err := e.store.DeletePost(ctx, postID); err != nil {
		e.rollback(snapshot)
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}

// React places a reaction on a post. Reacting twice with the same emoji is a
// no-op.
func (e *Engine) React(ctx context.Context, postID, emoji string) error {
	e.mu.Lock()
	target, ok := findPost(e.posts, postID)
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: post %s", shared.ErrRecordNotFound, postID)
	}
	if contains(target.Mine, emoji) {
		e.mu.Unlock()
		return nil
	}
	snapshot := clonePosts(e.posts)
	e.applyLocked(postID, func(p *models.Post) {
		if p.Reactions == nil {
			p.Reactions = map[string]int{}
		}
		p.Reactions[emoji]++
		p.Mine = append(p.Mine, emoji)
	})
	e.mu.Unlock()
	e.notify()

	if err := e.store.React(ctx, postID, emoji); err != nil {
		e.rollback(snapshot)
		return fmt.Errorf("failed to react: %w", err)
	}
	return nil
}

// Unreact removes one of the current user's reactions. Removing a reaction
// that was never placed is a no-op.
func (e *Engine) Unreact(ctx context.Context, postID, emoji string) error {
	e.mu.Lock()
	target, ok := findPost(e.posts, postID)
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: post %s", shared.ErrRecordNotFound, postID)
	}
	if !contains(target.Mine, emoji) {
		e.mu.Unlock()
		return nil
	}
	snapshot := clonePosts(e.posts)
	e.applyLocked(postID, func(p *models.Post) {
		if p.Reactions[emoji] > 1 {
			p.Reactions[emoji]--
		} else {
			delete(p.Reactions, emoji)
		}
		p.Mine = remove(p.Mine, emoji)
	})
	e.mu.Unlock()
	e.notify()

	if err := e.store.Unreact(ctx, postID, emoji); err != nil {
		e.rollback(snapshot)
		return fmt.Errorf("failed to remove reaction: %w", err)
	}
	return nil
}

// applyLocked mutates one post in place. Callers hold mu.
func (e *Engine) applyLocked(postID string, fn func(*models.Post)) {
	for i := range e.posts {
		if e.posts[i].ID == postID {
			fn(&e.posts[i])
			return
		}
	}
}

// rollback restores a snapshot and schedules a resync to converge on server
// truth.
func (e *Engine) rollback(snapshot []models.Post) {
	e.mu.Lock()
	e.posts = snapshot
	e.mu.Unlock()
	e.notify()
	e.scheduleResync()
}

// scheduleResync arms a one-shot refresh after the resync delay. Repeated
// failures push the refresh out rather than stacking timers.
func (e *Engine) scheduleResync() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if e.resyncTimer != nil {
		e.resyncTimer.Stop()
	}
	e.resyncTimer = time.AfterFunc(e.resyncDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := e.Refresh(ctx); err != nil {
			e.logger.Warn("feed resync failed", "error", err)
		}
	})
}

// notify hands a copy of the feed to the change listener.
func (e *Engine) notify() {
	if e.onChange == nil {
		return
	}
	e.mu.Lock()
	posts := clonePosts(e.posts)
	e.mu.Unlock()
	e.onChange(posts)
}

func clonePosts(posts []models.Post) []models.Post {
	out := make([]models.Post, len(posts))
	for i, p := range posts {
		out[i] = p.Clone()
	}
	return out
}

func findPost(posts []models.Post, id string) (models.Post, bool) {
	for _, p := range posts {
		if p.ID == id {
			return p, true
		}
	}
	return models.Post{}, false
}

func removePost(posts []models.Post, id string) []models.Post {
	out := posts[:0]
	for _, p := range posts {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

func contains(items []string, v string) bool {
	for _, s := range items {
		if s == v {
			return true
		}
	}
	return false
}

func remove(items []string, v string) []string {
	out := items[:0]
	for _, s := range items {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
