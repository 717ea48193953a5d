package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/offbeatlabs/stepsync/internal/shared"
)

// HTTPUploadTransport implements [UploadTransport] with a plain HTTP PUT to
// the pre-signed destination.
type HTTPUploadTransport struct {
	httpClient *http.Client
}

// NewHTTPUploadTransport creates an upload transport.
//
// The client intentionally has no timeout: large files legitimately take
// longer than any fixed deadline, and cancellation flows through the context.
func NewHTTPUploadTransport(client *http.Client) *HTTPUploadTransport {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPUploadTransport{httpClient: client}
}

// progressReader counts bytes as they are consumed and reports a
// non-decreasing percentage capped at 100.
type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	lastPct  int
	callback func(int)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	p.read += int64(n)

	if p.callback != nil && p.total > 0 {
		pct := int(p.read * 100 / p.total)
		if pct > 100 {
			pct = 100
		}
		if pct > p.lastPct {
			p.lastPct = pct
			p.callback(pct)
		}
	}

	return n, err
}

// Upload streams size bytes from r to uploadURL via PUT.
//
// onProgress is called with monotonically non-decreasing percentages and is
// guaranteed to receive 100 before Upload returns nil. Cancellation of ctx
// aborts the stream and returns shared.ErrUploadAborted.
func (t *HTTPUploadTransport) Upload(ctx context.Context, uploadURL string, r io.Reader, size int64, onProgress func(int)) error {
	body := &progressReader{r: r, total: size, callback: onProgress}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, body)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			return fmt.Errorf("%w: %v", shared.ErrUploadAborted, err)
		}
		return fmt.Errorf("%w: %v", shared.ErrUploadTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: destination returned %d", shared.ErrUploadTransport, resp.StatusCode)
	}

	if onProgress != nil && body.lastPct < 100 {
		onProgress(100)
	}

	return nil
}
