package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/davidleathers/credential-fraud-engine/internal/domain/fraud"
	"github.com/davidleathers/credential-fraud-engine/internal/infrastructure/config"
	"github.com/davidleathers/credential-fraud-engine/internal/service/detection"
)

var _ detection.GeoLocator = (*GeolocationClient)(nil)

// GeolocationClient resolves IP addresses to coordinates over a JSON HTTP
// API. Unknown addresses resolve to (nil, nil) so callers can treat them
// as a cold start rather than a failure.
type GeolocationClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewGeolocationClient builds a client against cfg.GeolocationURL. The
// shared rate limiter keeps lookup traffic within the provider's quota.
func NewGeolocationClient(cfg *config.LookupConfig) *GeolocationClient {
	return &GeolocationClient{
		baseURL: cfg.GeolocationURL,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

type geoResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Locate resolves ip to coordinates. A 404 from the provider means the
// address is unknown and returns (nil, nil).
func (c *GeolocationClient) Locate(ctx context.Context, ip string) (*fraud.GeoPoint, error) {
	if c.baseURL == "" {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("geolocation rate limit: %w", err)
	}

	endpoint := c.baseURL + "/v1/geolocate/" + url.PathEscape(ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building geolocation request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geolocation request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	default:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("geolocation request: unexpected status %d", resp.StatusCode)
	}

	var body geoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding geolocation response: %w", err)
	}

	return &fraud.GeoPoint{Latitude: body.Latitude, Longitude: body.Longitude}, nil
}
