package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/paulmach/orb"

	"drtnav/internal/catalog"
	"drtnav/internal/domain"
	"drtnav/internal/geo"
	"drtnav/internal/roadnet"
)

type GraphSource interface {
	Graph(center orb.Point, radiusM float64, profile domain.TravelProfile) (*roadnet.Graph, error)
}

type CatalogSource interface {
	Catalog() *catalog.Catalog
}

// GraphWarmer pre-builds the road graphs around each route's stops so the
// first fallback resolve after startup does not pay the network-source
// latency.
type GraphWarmer struct {
	graphs   GraphSource
	catalogs CatalogSource
	radiusM  float64
	logger   *slog.Logger
}

func NewGraphWarmer(graphs GraphSource, catalogs CatalogSource, radiusM float64, logger *slog.Logger) *GraphWarmer {
	return &GraphWarmer{
		graphs:   graphs,
		catalogs: catalogs,
		radiusM:  radiusM,
		logger:   logger.With("component", "graph_warmer"),
	}
}

// WarmAll builds one graph per route and profile. Individual failures are
// logged and skipped; warming is best-effort.
func (w *GraphWarmer) WarmAll(ctx context.Context) {
	start := time.Now()
	cat := w.catalogs.Catalog()
	profiles := []domain.TravelProfile{domain.ProfileDriving, domain.ProfileWalking}
	warmed := 0

	for _, route := range cat.Routes() {
		if ctx.Err() != nil {
			return
		}

		stops := cat.RouteStops(route.ID)
		points := make([]orb.Point, 0, len(stops))
		for _, s := range stops {
			points = append(points, orb.Point{s.Lon, s.Lat})
		}
		center, ok := geo.MeanCenter(points)
		if !ok {
			continue
		}

		for _, profile := range profiles {
			if _, err := w.graphs.Graph(center, w.radiusM, profile); err != nil {
				w.logger.Warn("graph warm failed", "route_id", route.ID, "profile", profile, "error", err)
				continue
			}
			warmed++
		}
	}

	w.logger.Info("graph warming completed",
		"graphs_warmed", warmed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
