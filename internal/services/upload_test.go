package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/offbeatlabs/stepsync/internal/shared"
)

func TestHTTPUploadTransport(t *testing.T) {
	t.Run("Streams Body And Reports Progress", func(t *testing.T) {
		payload := bytes.Repeat([]byte("step"), 1024)

		var received []byte
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPut {
				t.Errorf("expected PUT, got %s", r.Method)
			}
			var err error
			received, err = io.ReadAll(r.Body)
			if err != nil {
				t.Errorf("failed to read body: %v", err)
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		var progress []int
		tr := NewHTTPUploadTransport(nil)
		err := tr.Upload(context.Background(), server.URL, bytes.NewReader(payload), int64(len(payload)), func(pct int) {
			progress = append(progress, pct)
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if !bytes.Equal(received, payload) {
			t.Errorf("destination received %d bytes, want %d", len(received), len(payload))
		}
		if len(progress) == 0 {
			t.Fatal("no progress reported")
		}
		for i := 1; i < len(progress); i++ {
			if progress[i] <= progress[i-1] {
				t.Errorf("progress regressed: %v", progress)
				break
			}
		}
		if progress[len(progress)-1] != 100 {
			t.Errorf("final progress = %d, want 100", progress[len(progress)-1])
		}
	})

	t.Run("Guarantees Final 100", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		// Unknown size disables percentage math; 100 still arrives on success
		var progress []int
		tr := NewHTTPUploadTransport(nil)
		err := tr.Upload(context.Background(), server.URL, strings.NewReader("tiny"), 0, func(pct int) {
			progress = append(progress, pct)
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(progress) != 1 || progress[0] != 100 {
			t.Errorf("progress = %v, want [100]", progress)
		}
	})

	t.Run("Destination Rejection", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		tr := NewHTTPUploadTransport(nil)
		err := tr.Upload(context.Background(), server.URL, strings.NewReader("data"), 4, nil)
		if !errors.Is(err, shared.ErrUploadTransport) {
			t.Errorf("expected ErrUploadTransport, got %v", err)
		}
	})

	t.Run("Cancellation Aborts", func(t *testing.T) {
		blocked := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-blocked
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()
		defer close(blocked)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		tr := NewHTTPUploadTransport(nil)
		go func() {
			errCh <- tr.Upload(ctx, server.URL, strings.NewReader("data"), 4, nil)
		}()

		cancel()
		if err := <-errCh; !errors.Is(err, shared.ErrUploadAborted) {
			t.Errorf("expected ErrUploadAborted, got %v", err)
		}
	})
}

func TestProgressReader(t *testing.T) {
	var reported []int
	reader := &progressReader{
		r:        bytes.NewReader(make([]byte, 200)),
		total:    200,
		callback: func(pct int) { reported = append(reported, pct) },
	}

	buf := make([]byte, 50)
	for {
		if _, err := reader.Read(buf); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("read failed: %v", err)
		}
	}

	want := []int{25, 50, 75, 100}
	if len(reported) != len(want) {
		t.Fatalf("reported %v, want %v", reported, want)
	}
	for i := range want {
		if reported[i] != want[i] {
			t.Fatalf("reported %v, want %v", reported, want)
		}
	}
}
