// Package sync mirrors the full dataset to a spreadsheet-backed web-app
// endpoint (an Apps Script style black box). The mirror is best-effort:
// every failure degrades to local-only operation.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/username/cardstock/backend/src/models"
)

var ErrNotConfigured = errors.New("remote sync endpoint not configured")

type Client struct {
	webAppURL string
	client    *http.Client
}

func NewClient(webAppURL string, timeout time.Duration) *Client {
	return &Client{
		webAppURL: webAppURL,
		client:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.webAppURL != ""
}

type probeResponse struct {
	Status  string `json:"status"`
	Success bool   `json:"success"`
}

// Probe checks that the endpoint answers with the expected
// acknowledgement shape before the app reports "connected".
func (c *Client) Probe(ctx context.Context) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	body, err := c.get(ctx, c.webAppURL)
	if err != nil {
		return err
	}
	var ack probeResponse
	if err := json.Unmarshal(body, &ack); err != nil {
		return fmt.Errorf("unexpected probe response: %w", err)
	}
	if ack.Status != "API activa" && !ack.Success {
		return fmt.Errorf("endpoint did not acknowledge: %s", truncate(string(body), 200))
	}
	return nil
}

type loadResponse struct {
	Success bool            `json:"success"`
	Data    *models.AppData `json:"data"`
	Error   string          `json:"error"`
}

// Load fetches the full remote dataset.
func (c *Client) Load(ctx context.Context) (*models.AppData, error) {
	return c.loadAction(ctx, "load")
}

// Migrate asks the endpoint to rebuild the dataset from its legacy
// visual sheets. One-time recovery path, never called automatically.
func (c *Client) Migrate(ctx context.Context) (*models.AppData, error) {
	return c.loadAction(ctx, "migrate")
}

func (c *Client) loadAction(ctx context.Context, action string) (*models.AppData, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	body, err := c.get(ctx, c.webAppURL+"?action="+action)
	if err != nil {
		return nil, err
	}
	var resp loadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unexpected %s response: %w", action, err)
	}
	if resp.Data == nil {
		if resp.Error != "" {
			return nil, fmt.Errorf("remote %s failed: %s", action, resp.Error)
		}
		return nil, fmt.Errorf("remote %s returned no data", action)
	}
	return resp.Data, nil
}

type pushPayload struct {
	Type string `json:"type"`
	models.AppData
	LastUpdated string `json:"lastUpdated"`
}

type pushResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Push overwrites the remote dataset with a full snapshot.
func (c *Client) Push(ctx context.Context, data models.AppData) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	payload, err := json.Marshal(pushPayload{
		Type:        "fullData",
		AppData:     data,
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshalling snapshot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webAppURL, strings.NewReader(string(payload)))
	if err != nil {
		return err
	}
	// Apps Script web apps reject preflighted content types; the
	// original client posts JSON as text/plain for the same reason.
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push failed with status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var ack pushResponse
	if err := json.Unmarshal(body, &ack); err != nil {
		// The endpoint sometimes answers through an HTML redirect page;
		// accept it when it still carries a success marker.
		text := string(body)
		if strings.Contains(text, "success") || strings.Contains(text, "guardado") {
			return nil
		}
		return fmt.Errorf("unexpected push response: %s", truncate(text, 200))
	}
	if !ack.Success {
		return fmt.Errorf("remote rejected push: %s", ack.Error)
	}
	return nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d from %s: %s", resp.StatusCode, rawURL, truncate(string(body), 200))
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
