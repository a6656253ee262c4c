// Package overpass fetches a radius-bounded road network extract from an
// Overpass-compatible API. The extract is raw OSM ways and nodes; turning
// it into a routable graph happens elsewhere.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// Highway classes per network type, close to the usual street-network
// filters: drivable roads for "drive", everything walkable for "walk".
var highwayFilters = map[string]string{
	"drive": "motorway|motorway_link|trunk|trunk_link|primary|primary_link|" +
		"secondary|secondary_link|tertiary|tertiary_link|unclassified|residential|living_street|service",
	"walk": "footway|path|pedestrian|steps|track|living_street|residential|service|" +
		"unclassified|tertiary|tertiary_link|secondary|secondary_link|primary|primary_link",
}

type Node struct {
	ID  int64   `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Way struct {
	ID      int64             `json:"id"`
	NodeIDs []int64           `json:"nodes"`
	Tags    map[string]string `json:"tags"`
}

// Extract is one radius-bounded snapshot of the road network.
type Extract struct {
	Nodes map[int64]Node
	Ways  []Way
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type apiElement struct {
	Type  string            `json:"type"`
	ID    int64             `json:"id"`
	Lat   float64           `json:"lat"`
	Lon   float64           `json:"lon"`
	Nodes []int64           `json:"nodes"`
	Tags  map[string]string `json:"tags"`
}

type apiResponse struct {
	Elements []apiElement `json:"elements"`
}

// FetchRoadNetwork queries all matching ways around the center plus the
// nodes they reference.
func (c *Client) FetchRoadNetwork(ctx context.Context, center orb.Point, radiusM float64, networkType string) (*Extract, error) {
	filter, ok := highwayFilters[networkType]
	if !ok {
		return nil, fmt.Errorf("unknown network type %q", networkType)
	}

	query := fmt.Sprintf(
		"[out:json][timeout:%d];way(around:%.0f,%f,%f)[\"highway\"~\"^(%s)$\"];(._;>;);out body;",
		int(c.httpClient.Timeout.Seconds()), radiusM, center.Lat(), center.Lon(), filter)

	form := url.Values{}
	form.Set("data", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	extract := &Extract{Nodes: make(map[int64]Node)}
	for _, el := range apiResp.Elements {
		switch el.Type {
		case "node":
			extract.Nodes[el.ID] = Node{ID: el.ID, Lat: el.Lat, Lon: el.Lon}
		case "way":
			if len(el.Nodes) >= 2 {
				extract.Ways = append(extract.Ways, Way{ID: el.ID, NodeIDs: el.Nodes, Tags: el.Tags})
			}
		}
	}

	if len(extract.Ways) == 0 {
		return nil, fmt.Errorf("no road coverage within %.0fm of (%f, %f)", radiusM, center.Lat(), center.Lon())
	}
	return extract, nil
}
