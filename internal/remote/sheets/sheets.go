package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hargapanel/backend/internal/domain"
	"hargapanel/backend/internal/remote"
)

// Client talks to the Google Apps Script web app that fronts the
// spreadsheet. One GET returns the full blob; one POST appends a sync
// action. The web app only answers 200 on its final redirect target, so
// any other status is treated as a transport failure.
type Client struct {
	url  string
	http *http.Client
}

func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		url:  strings.TrimSpace(url),
		http: &http.Client{Timeout: timeout},
	}
}

func (c *Client) FetchSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	if c.url == "" {
		return nil, remote.ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &remote.TransportError{Op: "fetch snapshot", Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &remote.TransportError{Op: "fetch snapshot", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &remote.TransportError{Op: "fetch snapshot", Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &remote.TransportError{Op: "fetch snapshot", Err: err}
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, &remote.ParseError{Err: err}
	}
	return &snap, nil
}

func (c *Client) PushAction(ctx context.Context, action string, data json.RawMessage) error {
	if c.url == "" {
		return remote.ErrNotConfigured
	}

	payload, err := json.Marshal(map[string]json.RawMessage{
		"action": json.RawMessage(fmt.Sprintf("%q", action)),
		"data":   data,
	})
	if err != nil {
		return fmt.Errorf("encode sync payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return &remote.TransportError{Op: "push " + action, Err: err}
	}
	// Apps Script loses the body of non-simple requests across its 302
	// redirect, so the payload goes out as text/plain.
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.http.Do(req)
	if err != nil {
		return &remote.TransportError{Op: "push " + action, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &remote.TransportError{Op: "push " + action, Status: resp.StatusCode}
	}
	return nil
}
