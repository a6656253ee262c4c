package roadnet

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/bluele/gcache"
	"github.com/paulmach/orb"

	"drtnav/internal/domain"
	"drtnav/pkg/overpass"
)

// NetworkSource fetches a raw road network extract; treated as an expensive
// black box.
type NetworkSource interface {
	FetchRoadNetwork(ctx context.Context, center orb.Point, radiusM float64, networkType string) (*overpass.Extract, error)
}

// SnapshotStore is an optional second cache tier for built graphs, keyed
// the same way as the in-process cache. internal/cache.RedisCache satisfies
// it.
type SnapshotStore interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// graphKey identifies one cached extract. The center is rounded to three
// decimals (~110 m) so nearby query centers share a graph.
type graphKey struct {
	lat     float64
	lon     float64
	radiusM float64
	network string
}

func keyFor(center orb.Point, radiusM float64, network string) graphKey {
	return graphKey{
		lat:     math.Round(center.Lat()*1000) / 1000,
		lon:     math.Round(center.Lon()*1000) / 1000,
		radiusM: radiusM,
		network: network,
	}
}

func (k graphKey) String() string {
	return fmt.Sprintf("graph:%s:%.3f:%.3f:%.0f", k.network, k.lat, k.lon, k.radiusM)
}

// Provider builds road graphs on demand and caches them for the process
// lifetime. Concurrent requests for the same key are de-duplicated by the
// cache loader, so one slow build never runs twice.
type Provider struct {
	source NetworkSource
	tier   SnapshotStore
	ttl    time.Duration
	graphs gcache.Cache
	logger *slog.Logger

	loads  atomic.Int64
	builds atomic.Int64
}

func NewProvider(source NetworkSource, cacheSize int, tier SnapshotStore, ttl time.Duration, logger *slog.Logger) *Provider {
	p := &Provider{
		source: source,
		tier:   tier,
		ttl:    ttl,
		logger: logger.With("component", "roadnet_provider"),
	}
	p.graphs = gcache.New(cacheSize).
		LRU().
		LoaderFunc(func(k interface{}) (interface{}, error) {
			return p.build(k.(graphKey))
		}).
		Build()
	return p
}

// Graph returns the cached graph for the area, building it on a miss. The
// build deliberately runs to completion on its own timeouts rather than the
// caller's context: an in-flight build is shared by whoever asks next.
func (p *Provider) Graph(center orb.Point, radiusM float64, profile domain.TravelProfile) (*Graph, error) {
	p.loads.Add(1)
	v, err := p.graphs.Get(keyFor(center, radiusM, profile.NetworkType()))
	if err != nil {
		return nil, &domain.GraphUnavailableError{Err: err}
	}
	return v.(*Graph), nil
}

func (p *Provider) build(key graphKey) (*Graph, error) {
	p.builds.Add(1)
	start := time.Now()
	ctx := context.Background()

	if p.tier != nil {
		var g Graph
		found, err := p.tier.GetJSON(ctx, key.String(), &g)
		if err != nil {
			p.logger.Warn("graph tier read failed", "key", key.String(), "error", err)
		} else if found && len(g.Nodes) > 0 {
			p.logger.Info("road graph loaded from cache tier",
				"key", key.String(), "nodes", len(g.Nodes))
			return &g, nil
		}
	}

	extract, err := p.source.FetchRoadNetwork(ctx, orb.Point{key.lon, key.lat}, key.radiusM, key.network)
	if err != nil {
		return nil, fmt.Errorf("fetching network: %w", err)
	}

	g, err := BuildGraph(extract, key.network)
	if err != nil {
		return nil, fmt.Errorf("building graph: %w", err)
	}

	p.logger.Info("road graph built",
		"key", key.String(),
		"nodes", len(g.Nodes),
		"ways", len(extract.Ways),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if p.tier != nil {
		if err := p.tier.SetJSON(ctx, key.String(), g, p.ttl); err != nil {
			p.logger.Warn("graph tier write failed", "key", key.String(), "error", err)
		}
	}
	return g, nil
}

// Stats reports cache effectiveness for the stats endpoint.
func (p *Provider) Stats() (loads, builds int64) {
	return p.loads.Load(), p.builds.Load()
}
