package swhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPTracker posts tracking events as JSON
type HTTPTracker struct {
	client *http.Client
}

func NewHTTPTracker(client *http.Client) *HTTPTracker {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTracker{client: client}
}

func (t *HTTPTracker) Track(ctx context.Context, trackingURL string, event TrackEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, trackingURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("tracking endpoint returned %d", resp.StatusCode)
	}
	return nil
}
