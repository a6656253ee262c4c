// Package resolver turns an ordered stop-name sequence into a concrete
// travelable path: remote directions first, local graph search when the
// remote service produced nothing.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"drtnav/internal/catalog"
	"drtnav/internal/domain"
	"drtnav/internal/geo"
	"drtnav/internal/roadnet"
	"drtnav/internal/session"
	"drtnav/pkg/directions"
)

// ErrTooFewStops rejects requests with fewer than two distinct consecutive
// stops after collapsing duplicates.
var ErrTooFewStops = errors.New("need at least two distinct consecutive stops")

// CatalogSource yields the current stop catalog; the loader swaps catalogs
// atomically on reload.
type CatalogSource interface {
	Catalog() *catalog.Catalog
}

// DirectionsClient is the remote directions service for one leg.
type DirectionsClient interface {
	Route(ctx context.Context, from, to orb.Point, profile domain.TravelProfile) (*directions.Leg, error)
}

// GraphProvider yields a cached road graph around a center point.
type GraphProvider interface {
	Graph(center orb.Point, radiusM float64, profile domain.TravelProfile) (*roadnet.Graph, error)
}

// Publisher is notified when a resolve result commits; the websocket hub
// satisfies it.
type Publisher interface {
	PublishResult(path *domain.ResolvedPath)
}

type Resolver struct {
	catalogs   CatalogSource
	directions DirectionsClient
	graphs     GraphProvider
	state      *session.State
	publisher  Publisher
	radiusM    float64
	logger     *slog.Logger

	resolved  atomic.Int64
	fallbacks atomic.Int64
	failures  atomic.Int64
}

func New(catalogs CatalogSource, dir DirectionsClient, graphs GraphProvider, state *session.State, publisher Publisher, radiusM float64, logger *slog.Logger) *Resolver {
	return &Resolver{
		catalogs:   catalogs,
		directions: dir,
		graphs:     graphs,
		state:      state,
		publisher:  publisher,
		radiusM:    radiusM,
		logger:     logger.With("component", "resolver"),
	}
}

// Resolve computes a path visiting the named stops in order. Legs are
// resolved strictly in requested order and never reordered. On failure the
// previously committed result stays untouched.
func (r *Resolver) Resolve(ctx context.Context, routeID string, stopNames []string, profile domain.TravelProfile) (*domain.ResolvedPath, error) {
	if !profile.Valid() {
		return nil, fmt.Errorf("unknown travel profile %q", profile)
	}

	names := collapseNames(stopNames)
	if len(names) < 2 {
		return nil, ErrTooFewStops
	}

	cat := r.catalogs.Catalog()
	coords := make([]orb.Point, 0, len(names))
	for _, name := range names {
		stop, ok := cat.StopByName(routeID, name)
		if !ok {
			r.failures.Add(1)
			return nil, &domain.StopNotFoundError{RouteID: routeID, Name: name}
		}
		coords = append(coords, orb.Point{stop.Lon, stop.Lat})
	}

	requestID := r.state.Begin()
	corrID := uuid.New().String()
	log := r.logger.With("request_id", requestID, "correlation_id", corrID, "route_id", routeID, "profile", profile)

	segments, primaryErr := r.resolvePrimary(ctx, names, coords, profile, log)

	// Fallback is all-or-nothing: it replaces the segment set only when the
	// directions service accepted zero legs for the whole request.
	if len(segments) == 0 {
		r.fallbacks.Add(1)
		var fallbackErr error
		segments, fallbackErr = r.resolveFallback(names, coords, profile, log)
		if len(segments) == 0 {
			r.failures.Add(1)
			return nil, &domain.ResolveError{
				RouteID: routeID,
				From:    names[0],
				To:      names[len(names)-1],
				Profile: profile,
				Err:     errors.Join(primaryErr, fallbackErr),
			}
		}
	}

	var totalSec, totalM float64
	for _, s := range segments {
		totalSec += s.DurationSec
		totalM += s.DistanceM
	}

	path := &domain.ResolvedPath{
		RequestID:   requestID,
		RouteID:     routeID,
		StopNames:   names,
		Profile:     profile,
		Segments:    segments,
		DurationSec: totalSec,
		DistanceM:   totalM,
		GeneratedAt: time.Now(),
	}

	if !r.state.Commit(path) {
		log.Info("discarding stale resolve result", "segments", len(segments))
		return path, nil
	}

	r.resolved.Add(1)
	log.Info("resolve committed",
		"segments", len(segments),
		"source", segments[0].Source,
		"duration_sec", totalSec,
		"distance_m", totalM,
	)
	if r.publisher != nil {
		r.publisher.PublishResult(path)
	}
	return path, nil
}

// resolvePrimary asks the directions service for every consecutive pair.
// A failed leg is logged and skipped; surviving legs are returned as-is.
func (r *Resolver) resolvePrimary(ctx context.Context, names []string, coords []orb.Point, profile domain.TravelProfile, log *slog.Logger) ([]domain.RouteSegment, error) {
	var (
		segments []domain.RouteSegment
		firstErr error
	)
	for i := 0; i < len(coords)-1; i++ {
		leg, err := r.directions.Route(ctx, coords[i], coords[i+1], profile)
		if err != nil {
			log.Warn("directions leg failed", "leg", i, "from", names[i], "to", names[i+1], "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		segments = append(segments, domain.RouteSegment{
			LegIndex:    i,
			From:        names[i],
			To:          names[i+1],
			Geometry:    leg.Geometry,
			DurationSec: leg.DurationSec,
			DistanceM:   leg.DistanceM,
			Source:      domain.SourceDirections,
		})
	}
	return segments, firstErr
}

// resolveFallback routes every pair over the local road graph: snap to the
// nearest node, Dijkstra by edge length, stitch the edge geometries, and
// derive duration from the profile's assumed speed.
func (r *Resolver) resolveFallback(names []string, coords []orb.Point, profile domain.TravelProfile, log *slog.Logger) ([]domain.RouteSegment, error) {
	center, _ := geo.MeanCenter(coords)
	g, err := r.graphs.Graph(center, r.radiusM, profile)
	if err != nil {
		log.Warn("graph fallback unavailable", "error", err)
		return nil, err
	}

	nodes := make([]roadnet.Node, 0, len(coords))
	for i, c := range coords {
		n, ok := g.NearestNode(c)
		if !ok {
			return nil, &domain.GraphUnavailableError{Err: fmt.Errorf("no snap candidate for %q", names[i])}
		}
		nodes = append(nodes, n)
	}

	var (
		segments []domain.RouteSegment
		firstErr error
	)
	for i := 0; i < len(nodes)-1; i++ {
		edges, err := g.ShortestPath(nodes[i].ID, nodes[i+1].ID)
		if err != nil {
			log.Warn("graph leg failed", "leg", i, "from", names[i], "to", names[i+1], "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		line, lengthM := roadnet.StitchPath(edges)
		if len(line) < 2 {
			continue
		}
		segments = append(segments, domain.RouteSegment{
			LegIndex:    i,
			From:        names[i],
			To:          names[i+1],
			Geometry:    line,
			DurationSec: lengthM / profile.SpeedMS(),
			DistanceM:   lengthM,
			Source:      domain.SourceGraph,
		})
	}
	return segments, firstErr
}

// Current returns the committed result slot, nil when empty.
func (r *Resolver) Current() *domain.ResolvedPath {
	return r.state.Current()
}

// Clear empties the result slot and supersedes in-flight resolves.
func (r *Resolver) Clear() {
	r.state.Clear()
}

// Stats reports resolve counters for the stats endpoint.
func (r *Resolver) Stats() (resolved, fallbacks, failures int64) {
	return r.resolved.Load(), r.fallbacks.Load(), r.failures.Load()
}

// collapseNames trims whitespace and collapses consecutive duplicates.
func collapseNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if len(out) > 0 && out[len(out)-1] == n {
			continue
		}
		out = append(out, n)
	}
	return out
}
