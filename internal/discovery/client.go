package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Client is an HTTP client for the Gamma API's event series endpoint.
type Client struct {
	baseURL    string
	seriesID   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new Gamma API client scoped to a single event series
// (the BTC up/down family is published as one series).
func NewClient(baseURL, seriesID string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		seriesID: seriesID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// FetchCandidates fetches the active, unexpired events in the configured
// series and returns every nested market that parses as a BTC up/down
// candidate.
func (c *Client) FetchCandidates(ctx context.Context) ([]Candidate, error) {
	endpoint := fmt.Sprintf("%s/events", c.baseURL)

	params := url.Values{}
	params.Add("series_id", c.seriesID)
	params.Add("active", "true")
	params.Add("closed", "false")

	requestURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "btcupdown-engine/1.0")

	c.logger.Debug("fetching-events", zap.String("url", requestURL))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var events []gammaEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("unmarshal events: %w", err)
	}

	candidates := make([]Candidate, 0)
	for _, e := range events {
		candidates = append(candidates, e.candidates()...)
	}

	c.logger.Debug("fetched-candidates",
		zap.Int("event-count", len(events)),
		zap.Int("candidate-count", len(candidates)))

	return candidates, nil
}
