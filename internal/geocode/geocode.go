package geocode

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

// Client wraps the Google Maps geocoding API.
type Client struct {
	maps *maps.Client
}

// NewClient creates a new geocoding client with the given API key.
func NewClient(apiKey string) (*Client, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	return &Client{maps: c}, nil
}

// Geocode resolves an address to coordinates. A zero-result response is not
// an error: found is false and the caller degrades to a null fare.
func (c *Client) Geocode(ctx context.Context, address string) (lat, lng float64, found bool, err error) {
	results, err := c.maps.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return 0, 0, false, fmt.Errorf("geocode %q: %w", address, err)
	}
	if len(results) == 0 {
		return 0, 0, false, nil
	}
	loc := results[0].Geometry.Location
	return loc.Lat, loc.Lng, true, nil
}

// Disabled is a geocoder that never resolves anything, used when no API key
// is configured. Fare estimation degrades to null estimates.
type Disabled struct{}

// Geocode always reports the address as not found.
func (Disabled) Geocode(ctx context.Context, address string) (lat, lng float64, found bool, err error) {
	return 0, 0, false, nil
}
