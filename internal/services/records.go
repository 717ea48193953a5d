// Platform backend implementation of [RecordStore] and [FeedStore]
//
// The backend exposes REST+JSON resources per owner type (lessons, courses,
// levels, community posts) plus the community feed. Authentication is a
// bearer token applied by an oauth2 transport so call sites never touch it.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/offbeatlabs/stepsync/internal/models"
	"github.com/offbeatlabs/stepsync/internal/shared"
	"golang.org/x/oauth2"
)

const defaultBackendBaseURL = "http://localhost:3000"

// kindPaths maps owner kinds to their REST collection paths.
var kindPaths = map[models.OwnerKind]string{
	models.OwnerLesson: "lessons",
	models.OwnerCourse: "courses",
	models.OwnerLevel:  "levels",
	models.OwnerPost:   "posts",
}

// BackendService implements [RecordStore] and [FeedStore] against the
// platform backend's REST API.
type BackendService struct {
	baseURL    string
	httpClient *http.Client
}

// NewBackendService creates a backend client. When token is non-empty the
// client authenticates via an [oauth2.StaticTokenSource]; timeout bounds
// every request and defaults to 30 seconds.
func NewBackendService(baseURL, token string, timeout time.Duration) *BackendService {
	if baseURL == "" {
		baseURL = defaultBackendBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	if token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = oauth2.NewClient(context.Background(), src)
		client.Timeout = timeout
	}

	return &BackendService{baseURL: baseURL, httpClient: client}
}

// doRequest performs a JSON request against the backend and decodes the
// response into result when provided.
func (b *BackendService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	apiURL := b.baseURL + endpoint

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrBackendRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", shared.ErrRecordNotFound, endpoint)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned %d", shared.ErrBackendRequest, endpoint, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// entityPath builds the resource path for one owner record.
func entityPath(kind models.OwnerKind, ownerID string) (string, error) {
	collection, ok := kindPaths[kind]
	if !ok {
		return "", fmt.Errorf("%w: unknown owner kind %q", shared.ErrInvalidArgument, kind)
	}
	return fmt.Sprintf("/api/%s/%s", collection, url.PathEscape(ownerID)), nil
}

// GetEntity retrieves the record for one owner.
func (b *BackendService) GetEntity(ctx context.Context, kind models.OwnerKind, ownerID string) (*Entity, error) {
	path, err := entityPath(kind, ownerID)
	if err != nil {
		return nil, err
	}

	var entity Entity
	if err := b.doRequest(ctx, http.MethodGet, path, nil, &entity); err != nil {
		return nil, err
	}
	return &entity, nil
}

// UpdateMedia persists the media reference on the owner record. A zero
// reference sends explicit nulls, clearing both fields together.
func (b *BackendService) UpdateMedia(ctx context.Context, kind models.OwnerKind, ownerID string, ref models.MediaReference) (*Entity, error) {
	path, err := entityPath(kind, ownerID)
	if err != nil {
		return nil, err
	}

	body := struct {
		PlaybackID *string `json:"playback_id"`
		AssetID    *string `json:"asset_id"`
	}{}
	if ref.Complete() {
		body.PlaybackID = &ref.PlaybackID
		body.AssetID = &ref.AssetID
	}

	var entity Entity
	if err := b.doRequest(ctx, http.MethodPatch, path, body, &entity); err != nil {
		return nil, err
	}
	return &entity, nil
}

// ListEntities retrieves all records of one kind.
func (b *BackendService) ListEntities(ctx context.Context, kind models.OwnerKind) ([]Entity, error) {
	collection, ok := kindPaths[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown owner kind %q", shared.ErrInvalidArgument, kind)
	}

	var response struct {
		Items []Entity `json:"items"`
	}
	if err := b.doRequest(ctx, http.MethodGet, "/api/"+collection, nil, &response); err != nil {
		return nil, err
	}
	return response.Items, nil
}

// ListPosts retrieves the community feed, newest first.
func (b *BackendService) ListPosts(ctx context.Context) ([]models.Post, error) {
	var response struct {
		Items []models.Post `json:"items"`
	}
	if err := b.doRequest(ctx, http.MethodGet, "/api/feed", nil, &response); err != nil {
		return nil, err
	}
	return response.Items, nil
}

// CreatePost publishes a post and returns the backend's version of it.
func (b *BackendService) CreatePost(ctx context.Context, post models.Post) (*models.Post, error) {
	var created models.Post
	if err := b.doRequest(ctx, http.MethodPost, "/api/feed", post, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeletePost removes a post from the feed.
func (b *BackendService) DeletePost(ctx context.Context, postID string) error {
	return b.doRequest(ctx, http.MethodDelete, "/api/feed/"+url.PathEscape(postID), nil, nil)
}

// React places a reaction on a post for the current user.
func (b *BackendService) React(ctx context.Context, postID, emoji string) error {
	body := map[string]string{"emoji": emoji}
	return b.doRequest(ctx, http.MethodPost, "/api/feed/"+url.PathEscape(postID)+"/reactions", body, nil)
}

// Unreact removes the current user's reaction from a post.
func (b *BackendService) Unreact(ctx context.Context, postID, emoji string) error {
	body := map[string]string{"emoji": emoji}
	return b.doRequest(ctx, http.MethodDelete, "/api/feed/"+url.PathEscape(postID)+"/reactions", body, nil)
}
