package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/davidleathers/credential-fraud-engine/internal/infrastructure/config"
	"github.com/davidleathers/credential-fraud-engine/internal/service/detection"
)

var _ detection.IPReputationChecker = (*ReputationClient)(nil)

// ReputationClient fetches IP reputation scores over a JSON HTTP API.
// Scores are in [0,1] with 1.0 fully trusted. Private and loopback
// addresses are scored locally and never hit the provider.
type ReputationClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

func NewReputationClient(cfg *config.LookupConfig) *ReputationClient {
	return &ReputationClient{
		baseURL: cfg.ReputationURL,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

type reputationResponse struct {
	Score float64 `json:"score"`
}

// Reputation returns the provider's score for ip. Addresses the provider
// does not know about score 1.0, the neutral-trust default.
func (c *ReputationClient) Reputation(ctx context.Context, ip string) (float64, error) {
	if parsed := net.ParseIP(ip); parsed != nil &&
		(parsed.IsPrivate() || parsed.IsLoopback()) {
		return 1.0, nil
	}
	if c.baseURL == "" {
		return 1.0, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("reputation rate limit: %w", err)
	}

	endpoint := c.baseURL + "/v1/reputation/" + url.PathEscape(ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("building reputation request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("reputation request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return 1.0, nil
	default:
		io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("reputation request: unexpected status %d", resp.StatusCode)
	}

	var body reputationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decoding reputation response: %w", err)
	}
	if body.Score < 0 {
		body.Score = 0
	}
	if body.Score > 1 {
		body.Score = 1
	}

	return body.Score, nil
}
