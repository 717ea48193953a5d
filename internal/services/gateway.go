// Media gateway implementation of [AssetGateway]
//
// Communicates with the platform's video pipeline service, which fronts the
// third-party transcoding provider and exposes upload, status, existence,
// and deletion endpoints keyed by owner identity.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/offbeatlabs/stepsync/internal/models"
	"github.com/offbeatlabs/stepsync/internal/shared"
	"golang.org/x/time/rate"
)

const defaultGatewayBaseURL = "http://localhost:8081"

// gatewayTimeout is the blanket deadline for individual gateway calls.
const gatewayTimeout = 30 * time.Second

// HTTPGateway implements [AssetGateway] over JSON/HTTPS with bearer token
// auth and request pacing.
type HTTPGateway struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHTTPGateway creates a gateway client. rateLimit is requests per second;
// zero or negative disables pacing.
func NewHTTPGateway(baseURL, token string, rateLimit float64, client *http.Client) *HTTPGateway {
	if baseURL == "" {
		baseURL = defaultGatewayBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: gatewayTimeout}
	}

	limit := rate.Inf
	if rateLimit > 0 {
		limit = rate.Limit(rateLimit)
	}

	return &HTTPGateway{
		baseURL:    baseURL,
		token:      token,
		httpClient: client,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// doRequest performs an authenticated JSON request against the gateway.
//
// Returns the response status code so callers can distinguish "not found"
// from transport-level failure.
func (g *HTTPGateway) doRequest(ctx context.Context, method, endpoint string, body, result any) (int, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limiter: %w", err)
	}

	apiURL := g.baseURL + endpoint

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reqBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return resp.StatusCode, nil
}

// CreateUploadDestination requests a one-time upload URL scoped to the owner.
func (g *HTTPGateway) CreateUploadDestination(ctx context.Context, kind models.OwnerKind, ownerID, filename string) (*UploadDestination, error) {
	body := map[string]string{
		"owner_kind": kind.String(),
		"owner_id":   ownerID,
		"filename":   filename,
	}

	var dest UploadDestination
	status, err := g.doRequest(ctx, http.MethodPost, "/v1/uploads", body, &dest)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: upload destination request returned %d", shared.ErrGatewayUnavailable, status)
	}
	if dest.UploadURL == "" {
		return nil, fmt.Errorf("%w: gateway returned empty upload URL", shared.ErrGatewayUnavailable)
	}

	return &dest, nil
}

// CheckAssetStatus looks up the asset the gateway holds for an owner identity.
func (g *HTTPGateway) CheckAssetStatus(ctx context.Context, kind models.OwnerKind, ownerID string) (*models.AssetStatus, error) {
	endpoint := fmt.Sprintf("/v1/status?owner_kind=%s&owner_id=%s", url.QueryEscape(kind.String()), url.QueryEscape(ownerID))

	var st models.AssetStatus
	status, err := g.doRequest(ctx, http.MethodGet, endpoint, nil, &st)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		// No asset for this owner at all
		return &models.AssetStatus{Status: models.AssetProcessing}, nil
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: status check returned %d", shared.ErrGatewayUnavailable, status)
	}

	return &st, nil
}

// AssetExists reports whether the asset is still present at the gateway.
func (g *HTTPGateway) AssetExists(ctx context.Context, assetID string) (bool, error) {
	endpoint := fmt.Sprintf("/v1/assets/%s", url.PathEscape(assetID))

	status, err := g.doRequest(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return false, err
	}

	switch {
	case status == http.StatusNotFound:
		return false, nil
	case status >= 200 && status < 300:
		return true, nil
	default:
		return false, fmt.Errorf("%w: existence check returned %d", shared.ErrGatewayUnavailable, status)
	}
}

// DeleteAsset removes an asset. "Not found" counts as success.
func (g *HTTPGateway) DeleteAsset(ctx context.Context, assetID string) error {
	endpoint := fmt.Sprintf("/v1/assets/%s", url.PathEscape(assetID))

	status, err := g.doRequest(ctx, http.MethodDelete, endpoint, nil, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrDeleteFailed, err)
	}

	switch {
	case status == http.StatusNotFound:
		return nil
	case status >= 200 && status < 300:
		return nil
	default:
		return fmt.Errorf("%w: delete returned %d", shared.ErrDeleteFailed, status)
	}
}
