// Package loader owns the catalog lifecycle: load route geometries, run
// the stop extractor, and swap in the rebuilt catalog atomically.
package loader

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"drtnav/internal/catalog"
	"drtnav/internal/domain"
	"drtnav/pkg/routegeo"
)

// Broadcaster is notified after a catalog rebuild; the websocket hub
// satisfies it.
type Broadcaster interface {
	PublishCatalog(routes []domain.RouteInfo, stops []domain.Stop)
}

type Loader struct {
	geoLoader   *routegeo.Loader
	extractor   *catalog.Extractor
	files       map[string]string
	broadcaster Broadcaster
	interval    time.Duration
	logger      *slog.Logger

	mu    sync.RWMutex
	cat   *catalog.Catalog
	ready bool
}

func New(geoLoader *routegeo.Loader, extractor *catalog.Extractor, files map[string]string, broadcaster Broadcaster, interval time.Duration, logger *slog.Logger) *Loader {
	return &Loader{
		geoLoader:   geoLoader,
		extractor:   extractor,
		files:       files,
		broadcaster: broadcaster,
		interval:    interval,
		logger:      logger.With("component", "catalog_loader"),
	}
}

// Load rebuilds the catalog from scratch. Stops are never updated
// incrementally: every load cycle discards the previous catalog wholly.
// An error means no route could be read at all, which is fatal for the
// session; no placeholder data is fabricated.
func (l *Loader) Load(ctx context.Context) error {
	start := time.Now()

	geoms, err := l.geoLoader.LoadAll(l.files)
	if err != nil {
		return err
	}

	cat := l.extractor.Extract(geoms)

	l.mu.Lock()
	l.cat = cat
	l.ready = true
	l.mu.Unlock()

	l.logger.Info("catalog loaded",
		"routes", len(cat.Routes()),
		"stops", cat.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if l.broadcaster != nil {
		l.broadcaster.PublishCatalog(cat.Routes(), cat.Stops())
	}
	return nil
}

// Run periodically reloads the catalog when a reload interval is
// configured. A failed reload keeps the previous catalog.
func (l *Loader) Run(ctx context.Context) {
	if l.interval <= 0 {
		return
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.Load(ctx); err != nil {
				l.logger.Error("catalog reload failed, keeping previous catalog", "error", err)
			}
		}
	}
}

// Catalog returns the current catalog. Nil until the first successful Load.
func (l *Loader) Catalog() *catalog.Catalog {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cat
}

func (l *Loader) IsReady() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ready
}
