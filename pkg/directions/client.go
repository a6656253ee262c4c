// Package directions is a client for a Mapbox-style directions service:
// one GET per stop pair, full-resolution GeoJSON geometry, no alternatives.
package directions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/paulmach/orb"

	"drtnav/internal/domain"
)

type Client struct {
	baseURL     string
	accessToken string
	retries     int
	httpClient  *http.Client
}

func New(baseURL, accessToken string, timeout time.Duration, retries int) *Client {
	if retries < 0 {
		retries = 0
	}
	return &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		retries:     retries,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Leg is one resolved directions response: the road-following geometry plus
// the service-reported metrics.
type Leg struct {
	Geometry    orb.LineString
	DurationSec float64
	DistanceM   float64
}

type apiResponse struct {
	Routes []apiRoute `json:"routes"`
	Code   string     `json:"code,omitempty"`
}

type apiRoute struct {
	Geometry struct {
		Coordinates [][]float64 `json:"coordinates"`
	} `json:"geometry"`
	Duration float64 `json:"duration"`
	Distance float64 `json:"distance"`
}

// Route requests a path between two coordinates. Failures are returned as
// *domain.RemoteServiceError; one bounded retry is attempted before giving
// up unless the context was canceled.
func (c *Client) Route(ctx context.Context, from, to orb.Point, profile domain.TravelProfile) (*Leg, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		leg, err := c.routeOnce(ctx, from, to, profile)
		if err == nil {
			return leg, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) routeOnce(ctx context.Context, from, to orb.Point, profile domain.TravelProfile) (*Leg, error) {
	params := url.Values{}
	params.Set("geometries", "geojson")
	params.Set("overview", "full")
	params.Set("alternatives", "false")
	params.Set("steps", "false")
	params.Set("access_token", c.accessToken)

	reqURL := fmt.Sprintf("%s/%s/%f,%f;%f,%f?%s",
		c.baseURL, profile,
		from.Lon(), from.Lat(), to.Lon(), to.Lat(),
		params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &domain.RemoteServiceError{Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.RemoteServiceError{Err: fmt.Errorf("executing request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.RemoteServiceError{Status: resp.StatusCode}
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, &domain.RemoteServiceError{Err: fmt.Errorf("decoding response: %w", err)}
	}

	if len(apiResp.Routes) == 0 {
		return nil, &domain.RemoteServiceError{Err: errors.New("empty routes array")}
	}

	route := apiResp.Routes[0]
	line := make(orb.LineString, 0, len(route.Geometry.Coordinates))
	for _, c := range route.Geometry.Coordinates {
		if len(c) < 2 {
			continue
		}
		line = append(line, orb.Point{c[0], c[1]})
	}
	if len(line) < 2 {
		return nil, &domain.RemoteServiceError{Err: errors.New("degenerate route geometry")}
	}

	return &Leg{
		Geometry:    line,
		DurationSec: route.Duration,
		DistanceM:   route.Distance,
	}, nil
}
