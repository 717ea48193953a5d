package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/offbeatlabs/stepsync/internal/models"
	"github.com/offbeatlabs/stepsync/internal/services"
	"github.com/offbeatlabs/stepsync/internal/shared"
)

// Webhook event types delivered by the transcoding gateway.
const (
	EventAssetReady   = "video.asset.ready"
	EventAssetErrored = "video.asset.errored"
)

// WebhookEvent is the gateway's notification payload.
type WebhookEvent struct {
	Type       string `json:"type"`
	OwnerKind  string `json:"owner_kind"`
	OwnerID    string `json:"owner_id"`
	PlaybackID string `json:"playback_id,omitempty"`
	AssetID    string `json:"asset_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// WebhookHandler receives asset notifications from the gateway and persists
// ready references to the backend, closing the window where the record lags
// the transcoder. Implements the Handler interface for registration with a
// Router.
type WebhookHandler struct {
	store  services.RecordStore
	logger *log.Logger
	events chan WebhookEvent
}

// NewWebhookHandler creates a webhook handler writing through the given
// record store.
func NewWebhookHandler(store services.RecordStore, logger *log.Logger) *WebhookHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &WebhookHandler{
		store:  store,
		logger: logger,
		events: make(chan WebhookEvent, 16),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *WebhookHandler) Routes() []string {
	return []string{"POST /webhooks/gateway"}
}

// Events returns processed notifications, for observers such as the TUI.
// Events are dropped rather than blocking delivery acknowledgement.
func (h *WebhookHandler) Events() <-chan WebhookEvent {
	return h.events
}

// ServeHTTP handles a gateway notification.
//
// Ready events persist the delivered media reference; errored events are
// logged and surfaced to observers. Unknown event types are acknowledged and
// ignored so the gateway does not retry them.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var event WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case EventAssetReady:
		kind, err := models.ParseOwnerKind(event.OwnerKind)
		if err != nil {
			http.Error(w, "Unknown owner kind", http.StatusBadRequest)
			return
		}
		ref := models.MediaReference{PlaybackID: event.PlaybackID, AssetID: event.AssetID}
		if !ref.Complete() {
			http.Error(w, "Incomplete media reference", http.StatusBadRequest)
			return
		}
		if _, err := h.store.UpdateMedia(r.Context(), kind, event.OwnerID, ref); err != nil {
			h.logger.Error("failed to persist webhook reference", "kind", kind, "owner", event.OwnerID, "error", err)
			http.Error(w, "Failed to persist reference", http.StatusBadGateway)
			return
		}
		h.logger.Info("asset ready", "kind", kind, "owner", event.OwnerID, "playback", event.PlaybackID)

	case EventAssetErrored:
		h.logger.Warn("asset errored", "kind", event.OwnerKind, "owner", event.OwnerID, "error", event.Error)

	default:
		h.logger.Debug("ignoring webhook event", "type", event.Type)
		w.WriteHeader(http.StatusOK)
		return
	}

	select {
	case h.events <- event:
	default:
	}

	w.WriteHeader(http.StatusOK)
}

// HealthHandler answers liveness probes.
type HealthHandler struct{}

func (HealthHandler) Routes() []string { return []string{"GET /healthz"} }

func (HealthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}

// Listener runs the webhook HTTP server.
type Listener struct {
	server *http.Server
	logger *log.Logger
}

// NewListener wires the webhook handler and middleware into an HTTP server
// on the configured address.
func NewListener(cfg shared.WebhookConfig, handler *WebhookHandler, logger *log.Logger) *Listener {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	router := NewBasicRouter()
	// Health probes stay open; middleware only guards routes registered after it
	router.Handler(HealthHandler{})
	router.Use(LoggingMiddleware(logger), SecretMiddleware(cfg.Secret))
	router.Handler(handler)

	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	return &Listener{
		server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Serve blocks until ctx is done or the server fails, then shuts down
// gracefully.
func (l *Listener) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		l.logger.Info("webhook listener started", "addr", l.server.Addr)
		errCh <- l.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("webhook listener failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook listener shutdown failed: %w", err)
		}
		return nil
	}
}
