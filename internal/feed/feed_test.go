package feed

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/offbeatlabs/stepsync/internal/models"
	"github.com/offbeatlabs/stepsync/internal/shared"
)

type mockFeedStore struct {
	mu          sync.Mutex
	posts       []models.Post
	listErr     error
	createErr   error
	deleteErr   error
	reactErr    error
	unreactErr  error
	listCalls   int
	reactCalls  int
	deleteCalls int
}

func (s *mockFeedStore) ListPosts(_ context.Context) ([]models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.Post, len(s.posts))
	copy(out, s.posts)
	return out, nil
}

func (s *mockFeedStore) CreatePost(_ context.Context, post models.Post) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	created := post.Clone()
	created.ID = "srv-" + post.ID
	created.Pending = false
	s.posts = append(s.posts, created)
	return &created, nil
}

func (s *mockFeedStore) DeletePost(_ context.Context, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls++
	return s.deleteErr
}

func (s *mockFeedStore) React(_ context.Context, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reactCalls++
	return s.reactErr
}

func (s *mockFeedStore) Unreact(_ context.Context, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreactErr
}

func seedPosts() []models.Post {
	return []models.Post{
		{
			ID:        "post-1",
			Author:    "maria",
			Body:      "Nailed the cross-body lead today",
			Reactions: map[string]int{"🔥": 2},
			CreatedAt: time.Now().Add(-time.Hour),
		},
		{
			ID:        "post-2",
			Author:    "devon",
			Body:      "Level 3 footwork drill, finally clean",
			Reactions: map[string]int{},
			Mine:      []string{"👏"},
			CreatedAt: time.Now().Add(-time.Minute),
		},
	}
}

func newTestEngine(t *testing.T, store *mockFeedStore) *Engine {
	t.Helper()
	e := NewEngine(EngineOpts{
		Store:       store,
		Logger:      shared.NewLogger(io.Discard),
		Author:      "devon",
		ResyncDelay: time.Hour, // keep the timer from firing mid-test
	})
	t.Cleanup(e.Close)
	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	return e
}

func TestCreatePostOptimistic(t *testing.T) {
	store := &mockFeedStore{posts: seedPosts()}
	e := newTestEngine(t, store)

	post, err := e.CreatePost(context.Background(), "First spin combo on video!", models.MediaReference{PlaybackID: "pb-9", AssetID: "as-9"})
	if err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}
	if post.Pending {
		t.Error("acknowledged post still marked pending")
	}

	posts := e.Posts()
	if len(posts) != 3 {
		t.Fatalf("len(Posts()) = %d, want 3", len(posts))
	}
	// New posts lead the feed
	if posts[0].ID != post.ID {
		t.Errorf("feed head = %s, want %s", posts[0].ID, post.ID)
	}
	if posts[0].Pending {
		t.Error("feed head still marked pending after acknowledgement")
	}
}

func TestCreatePostRollsBackOnFailure(t *testing.T) {
	store := &mockFeedStore{posts: seedPosts(), createErr: shared.ErrBackendRequest}
	e := newTestEngine(t, store)

	var sawPending bool
	e.onChange = func(posts []models.Post) {
		for _, p := range posts {
			if p.Pending {
				sawPending = true
			}
		}
	}

	_, err := e.CreatePost(context.Background(), "This will bounce", models.MediaReference{})
	if !errors.Is(err, shared.ErrBackendRequest) {
		t.Fatalf("CreatePost() error = %v, want ErrBackendRequest", err)
	}
	if !sawPending {
		t.Error("optimistic pending post never surfaced")
	}
	if got := len(e.Posts()); got != 2 {
		t.Errorf("len(Posts()) after rollback = %d, want 2", got)
	}
}

func TestCreatePostRejectsEmptyBody(t *testing.T) {
	store := &mockFeedStore{posts: seedPosts()}
	e := newTestEngine(t, store)

	if _, err := e.CreatePost(context.Background(), "", models.MediaReference{}); !errors.Is(err, shared.ErrInvalidInput) {
		t.Fatalf("CreatePost() error = %v, want ErrInvalidInput", err)
	}
	if got := len(e.Posts()); got != 2 {
		t.Errorf("len(Posts()) = %d, want 2", got)
	}
}

func TestDeletePostOptimistic(t *testing.T) {
	store := &mockFeedStore{posts: seedPosts()}
	e := newTestEngine(t, store)

	if err := e.DeletePost(context.Background(), "post-1"); err != nil {
		t.Fatalf("DeletePost() error = %v", err)
	}
	posts := e.Posts()
	if len(posts) != 1 || posts[0].ID != "post-2" {
		t.Errorf("Posts() = %+v, want only post-2", posts)
	}
	if store.deleteCalls != 1 {
		t.Errorf("backend deletes = %d, want 1", store.deleteCalls)
	}
}

func TestDeletePostRestoresOnFailure(t *testing.T) {
	store := &mockFeedStore{posts: seedPosts(), deleteErr: shared.ErrBackendRequest}
	e := newTestEngine(t, store)

	if err := e.DeletePost(context.Background(), "post-1"); err == nil {
		t.Fatal("DeletePost() = nil, want error")
	}
	posts := e.Posts()
	if len(posts) != 2 {
		t.Fatalf("len(Posts()) after rollback = %d, want 2", len(posts))
	}
	if posts[0].ID != "post-1" {
		t.Errorf("rollback lost feed order: head = %s", posts[0].ID)
	}
}

func TestDeletePendingPostSkipsBackend(t *testing.T) {
	store := &mockFeedStore{posts: seedPosts(), createErr: nil}
	e := newTestEngine(t, store)

	e.mu.Lock()
	e.posts = append([]models.Post{{ID: "local-tmp", Author: "devon", Body: "draft", Pending: true}}, e.posts...)
	e.mu.Unlock()

	if err := e.DeletePost(context.Background(), "local-tmp"); err != nil {
		t.Fatalf("DeletePost() error = %v", err)
	}
	if store.deleteCalls != 0 {
		t.Errorf("backend deletes = %d, want 0 for a pending post", store.deleteCalls)
	}
}

func TestReactOptimistic(t *testing.T) {
	store := &mockFeedStore{posts: seedPosts()}
	e := newTestEngine(t, store)

	if err := e.React(context.Background(), "post-1", "🔥"); err != nil {
		t.Fatalf("React() error = %v", err)
	}
	posts := e.Posts()
	if got := posts[0].Reactions["🔥"]; got != 3 {
		t.Errorf("reaction count = %d, want 3", got)
	}
	if !contains(posts[0].Mine, "🔥") {
		t.Error("reaction not recorded as mine")
	}

	// Same emoji again is a no-op, locally and remotely
	if err := e.React(context.Background(), "post-1", "🔥"); err != nil {
		t.Fatalf("second React() error = %v", err)
	}
	posts = e.Posts()
	if got := posts[0].Reactions["🔥"]; got != 3 {
		t.Errorf("reaction count after duplicate = %d, want 3", got)
	}
	if store.reactCalls != 1 {
		t.Errorf("backend reacts = %d, want 1", store.reactCalls)
	}
}

func TestReactRollsBackOnFailure(t *testing.T) {
	store := &mockFeedStore{posts: seedPosts(), reactErr: shared.ErrBackendRequest}
	e := newTestEngine(t, store)

	if err := e.React(context.Background(), "post-1", "💃"); err == nil {
		t.Fatal("React() = nil, want error")
	}
	posts := e.Posts()
	if _, ok := posts[0].Reactions["💃"]; ok {
		t.Error("rejected reaction survived rollback")
	}
	if contains(posts[0].Mine, "💃") {
		t.Error("rejected reaction still marked mine")
	}
}

func TestUnreact(t *testing.T) {
	store := &mockFeedStore{posts: seedPosts()}
	e := newTestEngine(t, store)

	// post-2 carries one of the user's reactions with count absent from the map
	e.mu.Lock()
	e.applyLocked("post-2", func(p *models.Post) {
		p.Reactions["👏"] = 1
	})
	e.mu.Unlock()

	if err := e.Unreact(context.Background(), "post-2", "👏"); err != nil {
		t.Fatalf("Unreact() error = %v", err)
	}
	posts := e.Posts()
	if _, ok := posts[1].Reactions["👏"]; ok {
		t.Error("reaction count not removed when it reached zero")
	}
	if contains(posts[1].Mine, "👏") {
		t.Error("reaction still marked mine")
	}

	// Removing a reaction that was never placed does nothing
	if err := e.Unreact(context.Background(), "post-1", "👏"); err != nil {
		t.Fatalf("Unreact() on foreign post error = %v", err)
	}
}

func TestFailedMutationSchedulesResync(t *testing.T) {
	store := &mockFeedStore{posts: seedPosts(), reactErr: shared.ErrBackendRequest}
	e := NewEngine(EngineOpts{
		Store:       store,
		Logger:      shared.NewLogger(io.Discard),
		Author:      "devon",
		ResyncDelay: 5 * time.Millisecond,
	})
	defer e.Close()
	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	listsBefore := store.listCalls

	if err := e.React(context.Background(), "post-1", "💃"); err == nil {
		t.Fatal("React() = nil, want error")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		store.mu.Lock()
		lists := store.listCalls
		store.mu.Unlock()
		if lists > listsBefore {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("resync never refetched the feed")
}

func TestMutationsOnUnknownPost(t *testing.T) {
	store := &mockFeedStore{posts: seedPosts()}
	e := newTestEngine(t, store)

	if err := e.DeletePost(context.Background(), "nope"); !errors.Is(err, shared.ErrRecordNotFound) {
		t.Errorf("DeletePost() error = %v, want ErrRecordNotFound", err)
	}
	if err := e.React(context.Background(), "nope", "🔥"); !errors.Is(err, shared.ErrRecordNotFound) {
		t.Errorf("React() error = %v, want ErrRecordNotFound", err)
	}
}
