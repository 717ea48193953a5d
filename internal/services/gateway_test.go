package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/offbeatlabs/stepsync/internal/models"
	"github.com/offbeatlabs/stepsync/internal/shared"
	tu "github.com/offbeatlabs/stepsync/internal/testing"
)

func TestHTTPGateway(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Empty BaseURL", func(t *testing.T) {
			g := NewHTTPGateway("", "", 0, nil)
			if g.baseURL != "http://localhost:8081" {
				t.Errorf("expected default baseURL, got %s", g.baseURL)
			}
		})
	})

	t.Run("CreateUploadDestination", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/v1/uploads" {
					t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer tok" {
					t.Errorf("expected bearer auth, got %q", got)
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"upload_url":"https://upload.test/abc","session_id":"sess-1"}`))
			}))
			defer server.Close()

			g := NewHTTPGateway(server.URL, "tok", 0, nil)
			dest, err := g.CreateUploadDestination(context.Background(), models.OwnerLesson, "lesson-1", "routine.mp4")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if dest.UploadURL != "https://upload.test/abc" || dest.SessionID != "sess-1" {
				t.Errorf("unexpected destination: %+v", dest)
			}
		})

		t.Run("Empty Upload URL", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(tu.JSONResponse(http.StatusOK, `{}`), nil)}
			g := NewHTTPGateway("http://gateway.test", "", 0, client)

			_, err := g.CreateUploadDestination(context.Background(), models.OwnerLesson, "lesson-1", "routine.mp4")
			if !errors.Is(err, shared.ErrGatewayUnavailable) {
				t.Errorf("expected ErrGatewayUnavailable, got %v", err)
			}
		})

		t.Run("Transport Failure", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
			g := NewHTTPGateway("http://gateway.test", "", 0, client)

			_, err := g.CreateUploadDestination(context.Background(), models.OwnerLesson, "lesson-1", "routine.mp4")
			if !errors.Is(err, shared.ErrGatewayUnavailable) {
				t.Errorf("expected ErrGatewayUnavailable, got %v", err)
			}
		})
	})

	t.Run("CheckAssetStatus", func(t *testing.T) {
		t.Run("Ready", func(t *testing.T) {
			client := &http.Client{Transport: tu.RoundTripFunc(func(r *http.Request) (*http.Response, error) {
				if r.URL.Query().Get("owner_kind") != "lesson" || r.URL.Query().Get("owner_id") != "lesson-1" {
					t.Errorf("unexpected query: %s", r.URL.RawQuery)
				}
				return tu.JSONResponse(http.StatusOK, `{"status":"ready","playback_id":"pb-1","asset_id":"as-1"}`), nil
			})}
			g := NewHTTPGateway("http://gateway.test", "", 0, client)

			st, err := g.CheckAssetStatus(context.Background(), models.OwnerLesson, "lesson-1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if st.Status != models.AssetReady || !st.Reference().Complete() {
				t.Errorf("unexpected status: %+v", st)
			}
		})

		t.Run("Not Found Means Still Processing", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(tu.JSONResponse(http.StatusNotFound, `{}`), nil)}
			g := NewHTTPGateway("http://gateway.test", "", 0, client)

			st, err := g.CheckAssetStatus(context.Background(), models.OwnerLesson, "lesson-1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if st.Status != models.AssetProcessing {
				t.Errorf("expected processing, got %s", st.Status)
			}
		})

		t.Run("Server Error", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(tu.JSONResponse(http.StatusBadGateway, `{}`), nil)}
			g := NewHTTPGateway("http://gateway.test", "", 0, client)

			if _, err := g.CheckAssetStatus(context.Background(), models.OwnerLesson, "lesson-1"); !errors.Is(err, shared.ErrGatewayUnavailable) {
				t.Errorf("expected ErrGatewayUnavailable, got %v", err)
			}
		})
	})

	t.Run("AssetExists", func(t *testing.T) {
		tests := []struct {
			name    string
			status  int
			want    bool
			wantErr bool
		}{
			{"Present", http.StatusOK, true, false},
			{"Gone", http.StatusNotFound, false, false},
			{"Unavailable", http.StatusServiceUnavailable, false, true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				client := &http.Client{Transport: tu.NewMockRoundTripper(tu.JSONResponse(tt.status, `{}`), nil)}
				g := NewHTTPGateway("http://gateway.test", "", 0, client)

				exists, err := g.AssetExists(context.Background(), "as-1")
				if tt.wantErr {
					if !errors.Is(err, shared.ErrGatewayUnavailable) {
						t.Errorf("expected ErrGatewayUnavailable, got %v", err)
					}
					return
				}
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if exists != tt.want {
					t.Errorf("expected exists=%v, got %v", tt.want, exists)
				}
			})
		}
	})

	t.Run("DeleteAsset", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			client := &http.Client{Transport: tu.RoundTripFunc(func(r *http.Request) (*http.Response, error) {
				if r.Method != http.MethodDelete {
					t.Errorf("expected DELETE, got %s", r.Method)
				}
				return tu.JSONResponse(http.StatusNoContent, ``), nil
			})}
			g := NewHTTPGateway("http://gateway.test", "", 0, client)

			if err := g.DeleteAsset(context.Background(), "as-1"); err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})

		t.Run("Already Gone", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(tu.JSONResponse(http.StatusNotFound, `{}`), nil)}
			g := NewHTTPGateway("http://gateway.test", "", 0, client)

			if err := g.DeleteAsset(context.Background(), "as-1"); err != nil {
				t.Errorf("expected no error for missing asset, got %v", err)
			}
		})

		t.Run("Server Error", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(tu.JSONResponse(http.StatusInternalServerError, `{}`), nil)}
			g := NewHTTPGateway("http://gateway.test", "", 0, client)

			if err := g.DeleteAsset(context.Background(), "as-1"); !errors.Is(err, shared.ErrDeleteFailed) {
				t.Errorf("expected ErrDeleteFailed, got %v", err)
			}
		})
	})
}
