package directions

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/randytsao24/nearstation/internal/models"
)

const (
	DefaultGoogleBaseURL = "https://maps.googleapis.com/maps/api/directions/json"
	DefaultMode          = "walking"

	maxResponseBytes = 4 << 20
)

// GoogleProvider fetches routes from the Google Maps Directions API
type GoogleProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

var _ Provider = (*GoogleProvider)(nil)

// NewGoogleProvider creates a provider with the given request timeout
func NewGoogleProvider(apiKey string, timeout time.Duration) *GoogleProvider {
	return &GoogleProvider{
		apiKey:  apiKey,
		baseURL: DefaultGoogleBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// WithBaseURL points the provider at another endpoint.
func (p *GoogleProvider) WithBaseURL(u string) *GoogleProvider {
	p.baseURL = u
	return p
}

// HasAPIKey returns true if the provider has an API key configured
func (p *GoogleProvider) HasAPIKey() bool {
	return p.apiKey != ""
}

// FetchDirections returns the raw JSON body for a route from origin to
// destination. The body is returned as-is even when it carries an API-level
// status such as ZERO_RESULTS.
func (p *GoogleProvider) FetchDirections(ctx context.Context, origin, destination models.Coordinate, mode string) ([]byte, error) {
	if p.apiKey == "" {
		return nil, errors.New("GOOGLE_MAPS_API_KEY not configured")
	}
	if mode == "" {
		mode = DefaultMode
	}

	params := url.Values{}
	params.Set("origin", formatLatLng(origin))
	params.Set("destination", formatLatLng(destination))
	params.Set("mode", mode)
	params.Set("key", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "building directions request")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetching directions")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("directions API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Wrap(err, "reading directions response")
	}
	return body, nil
}

func formatLatLng(c models.Coordinate) string {
	return fmt.Sprintf("%f,%f", c.Lat, c.Lng)
}
