package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/offbeatlabs/stepsync/internal/models"
	"github.com/offbeatlabs/stepsync/internal/shared"
)

func TestBackendService(t *testing.T) {
	t.Run("GetEntity", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/lessons/lesson-1" {
					t.Errorf("unexpected path: %s", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer tok" {
					t.Errorf("expected bearer auth, got %q", got)
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"id":"lesson-1","kind":"lesson","title":"Salsa basics","playback_id":"pb-1","asset_id":"as-1"}`))
			}))
			defer server.Close()

			b := NewBackendService(server.URL, "tok", time.Second)
			entity, err := b.GetEntity(context.Background(), models.OwnerLesson, "lesson-1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if entity.Title != "Salsa basics" {
				t.Errorf("unexpected title: %s", entity.Title)
			}
			if entity.Kind != models.OwnerLesson {
				t.Errorf("unexpected kind: %s", entity.Kind)
			}
			if !entity.Reference().Complete() {
				t.Errorf("expected complete reference, got %+v", entity.Reference())
			}
		})

		t.Run("Not Found", func(t *testing.T) {
			server := httptest.NewServer(http.NotFoundHandler())
			defer server.Close()

			b := NewBackendService(server.URL, "", time.Second)
			if _, err := b.GetEntity(context.Background(), models.OwnerLesson, "missing"); !errors.Is(err, shared.ErrRecordNotFound) {
				t.Errorf("expected ErrRecordNotFound, got %v", err)
			}
		})

		t.Run("Unknown Kind", func(t *testing.T) {
			b := NewBackendService("http://backend.test", "", time.Second)
			if _, err := b.GetEntity(context.Background(), models.OwnerKind("recital"), "x"); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	})

	t.Run("UpdateMedia", func(t *testing.T) {
		t.Run("Sets Both Fields", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPatch {
					t.Errorf("expected PATCH, got %s", r.Method)
				}
				body, _ := io.ReadAll(r.Body)
				var patch map[string]*string
				if err := json.Unmarshal(body, &patch); err != nil {
					t.Fatalf("invalid patch body: %v", err)
				}
				if patch["playback_id"] == nil || *patch["playback_id"] != "pb-1" {
					t.Errorf("unexpected playback_id: %v", patch["playback_id"])
				}
				if patch["asset_id"] == nil || *patch["asset_id"] != "as-1" {
					t.Errorf("unexpected asset_id: %v", patch["asset_id"])
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"id":"lesson-1","kind":"lesson","playback_id":"pb-1","asset_id":"as-1"}`))
			}))
			defer server.Close()

			b := NewBackendService(server.URL, "", time.Second)
			ref := models.MediaReference{PlaybackID: "pb-1", AssetID: "as-1"}
			if _, err := b.UpdateMedia(context.Background(), models.OwnerLesson, "lesson-1", ref); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})

		t.Run("Zero Reference Sends Explicit Nulls", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				var raw map[string]json.RawMessage
				if err := json.Unmarshal(body, &raw); err != nil {
					t.Fatalf("invalid patch body: %v", err)
				}
				// Both keys must be present and null so the backend clears them together
				for _, key := range []string{"playback_id", "asset_id"} {
					val, ok := raw[key]
					if !ok {
						t.Errorf("patch missing %s", key)
						continue
					}
					if string(val) != "null" {
						t.Errorf("%s = %s, want null", key, val)
					}
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"id":"lesson-1","kind":"lesson"}`))
			}))
			defer server.Close()

			b := NewBackendService(server.URL, "", time.Second)
			entity, err := b.UpdateMedia(context.Background(), models.OwnerLesson, "lesson-1", models.MediaReference{})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !entity.Reference().Zero() {
				t.Errorf("expected cleared reference, got %+v", entity.Reference())
			}
		})
	})

	t.Run("ListEntities", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/courses" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"items":[{"id":"course-1","kind":"course","title":"Ballroom"},{"id":"course-2","kind":"course","title":"Hip hop"}]}`))
		}))
		defer server.Close()

		b := NewBackendService(server.URL, "", time.Second)
		entities, err := b.ListEntities(context.Background(), models.OwnerCourse)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(entities) != 2 {
			t.Errorf("expected 2 entities, got %d", len(entities))
		}
	})

	t.Run("Feed", func(t *testing.T) {
		t.Run("ListPosts", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/feed" {
					t.Errorf("unexpected path: %s", r.URL.Path)
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"items":[{"id":"post-1","author":"maria","body":"First!","reactions":{"🔥":2}}]}`))
			}))
			defer server.Close()

			b := NewBackendService(server.URL, "", time.Second)
			posts, err := b.ListPosts(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(posts) != 1 || posts[0].Reactions["🔥"] != 2 {
				t.Errorf("unexpected posts: %+v", posts)
			}
		})

		t.Run("CreatePost", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/api/feed" {
					t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte(`{"id":"srv-1","author":"devon","body":"New combo"}`))
			}))
			defer server.Close()

			b := NewBackendService(server.URL, "", time.Second)
			created, err := b.CreatePost(context.Background(), models.Post{Author: "devon", Body: "New combo"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if created.ID != "srv-1" {
				t.Errorf("expected server id, got %s", created.ID)
			}
		})

		t.Run("Reactions", func(t *testing.T) {
			var methods []string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/feed/post-1/reactions" {
					t.Errorf("unexpected path: %s", r.URL.Path)
				}
				methods = append(methods, r.Method)
				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			b := NewBackendService(server.URL, "", time.Second)
			if err := b.React(context.Background(), "post-1", "🔥"); err != nil {
				t.Fatalf("React failed: %v", err)
			}
			if err := b.Unreact(context.Background(), "post-1", "🔥"); err != nil {
				t.Fatalf("Unreact failed: %v", err)
			}
			if len(methods) != 2 || methods[0] != http.MethodPost || methods[1] != http.MethodDelete {
				t.Errorf("unexpected methods: %v", methods)
			}
		})
	})
}

func TestOwner(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`{"id":"lesson-1","kind":"lesson","playback_id":"pb-1","asset_id":"as-1"}`))
		case http.MethodPatch:
			body, _ := io.ReadAll(r.Body)
			var patch map[string]*string
			json.Unmarshal(body, &patch)
			if patch["playback_id"] == nil {
				w.Write([]byte(`{"id":"lesson-1","kind":"lesson"}`))
				return
			}
			w.Write([]byte(`{"id":"lesson-1","kind":"lesson","playback_id":"pb-2","asset_id":"as-2"}`))
		}
	}))
	defer server.Close()

	b := NewBackendService(server.URL, "", time.Second)
	owner := NewOwner(b, models.OwnerLesson, "lesson-1")

	if owner.Kind() != models.OwnerLesson || owner.ID() != "lesson-1" {
		t.Errorf("unexpected identity: %s/%s", owner.Kind(), owner.ID())
	}

	ref, err := owner.Reference(context.Background())
	if err != nil {
		t.Fatalf("Reference failed: %v", err)
	}
	if ref.PlaybackID != "pb-1" {
		t.Errorf("unexpected reference: %+v", ref)
	}

	if err := owner.SetReference(context.Background(), models.MediaReference{PlaybackID: "pb-2", AssetID: "as-2"}); err != nil {
		t.Errorf("SetReference failed: %v", err)
	}
	if err := owner.ClearReference(context.Background()); err != nil {
		t.Errorf("ClearReference failed: %v", err)
	}
}
