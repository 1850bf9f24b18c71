package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/beli-buzz/backend/internal/models"
)

// PlacesProvider queries the Places text-search API, biased to Toronto the
// way the original lookup phrased its queries.
type PlacesProvider struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewPlacesProvider builds the live provider.
func NewPlacesProvider(endpoint, apiKey string) *PlacesProvider {
	return &PlacesProvider{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type placesResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode asks for the best match of "<name> Toronto".
func (p *PlacesProvider) Geocode(ctx context.Context, name string) (*models.Location, error) {
	q := url.Values{}
	q.Set("query", name+" Toronto")
	q.Set("key", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build places request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrProvider, resp.StatusCode)
	}

	var parsed placesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrProvider, err)
	}

	switch parsed.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: status %s", ErrProvider, parsed.Status)
	}
	if len(parsed.Results) == 0 {
		return nil, nil
	}

	best := parsed.Results[0]
	return &models.Location{
		Lat:     best.Geometry.Location.Lat,
		Lng:     best.Geometry.Location.Lng,
		Address: best.FormattedAddress,
	}, nil
}
