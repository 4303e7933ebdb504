package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Insights is the summarization service's response: a prose summary plus the
// top action items.
type Insights struct {
	Summary  string   `json:"summary"`
	TopItems []string `json:"topItems"`
}

// Client calls the external transcript summarization service. The service is
// opaque to this system: transcript lines in, JSON insights out.
type Client struct {
	url    string
	apiKey string
	httpc  *http.Client
	logger *zap.Logger
}

// New creates a summarizer client. The API key is injected from the
// environment, never embedded.
func New(url, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		url:    url,
		apiKey: apiKey,
		httpc:  &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type summarizeRequest struct {
	Transcript []string `json:"transcript"`
}

// Summarize sends the meeting transcript and returns the service's insights.
func (c *Client) Summarize(ctx context.Context, transcript []string) (*Insights, error) {
	body, err := json.Marshal(summarizeRequest{Transcript: transcript})
	if err != nil {
		return nil, fmt.Errorf("marshal transcript: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("summarize request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("summarize status: %d", resp.StatusCode)
	}

	var insights Insights
	if err := json.NewDecoder(resp.Body).Decode(&insights); err != nil {
		return nil, fmt.Errorf("decode insights: %w", err)
	}
	return &insights, nil
}
