package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"drtnav/internal/cache"
	"drtnav/internal/catalog"
	"drtnav/internal/config"
	"drtnav/internal/handler"
	"drtnav/internal/hub"
	"drtnav/internal/loader"
	"drtnav/internal/middleware"
	"drtnav/internal/resolver"
	"drtnav/internal/roadnet"
	"drtnav/internal/session"
	"drtnav/pkg/directions"
	"drtnav/pkg/overpass"
	"drtnav/pkg/routegeo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("starting drtnav server",
		"log_level", cfg.LogLevel.String(),
		"http_addr", cfg.HTTPAddr,
		"routes", len(cfg.RouteFiles),
		"redis_enabled", cfg.RedisEnabled,
	)

	wsHub := hub.NewHub(logger)

	geoLoader := routegeo.NewLoader(logger)
	extractor := catalog.NewExtractor(cfg.MinGapMeters, cfg.FallbackOffsetMeters, logger)
	catalogLoader := loader.New(geoLoader, extractor, cfg.RouteFiles, wsHub, cfg.ReloadInterval, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The catalog is the session's foundation; refusing to start beats
	// serving fabricated stops.
	if err := catalogLoader.Load(ctx); err != nil {
		logger.Error("no route data available", "error", err)
		os.Exit(1)
	}

	var graphTier roadnet.SnapshotStore
	if cfg.RedisEnabled {
		redisCache, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			logger.Warn("redis unavailable, continuing with in-process graph cache only", "error", err)
		} else {
			defer redisCache.Close()
			graphTier = redisCache
		}
	}

	overpassClient := overpass.New(cfg.OverpassBaseURL, cfg.OverpassTimeout)
	graphProvider := roadnet.NewProvider(overpassClient, cfg.GraphCacheSize, graphTier, cfg.CacheTTL, logger)

	directionsClient := directions.New(cfg.MapboxBaseURL, cfg.MapboxAccessToken, cfg.DirectionsTimeout, cfg.DirectionsRetries)

	state := session.NewState()
	res := resolver.New(catalogLoader, directionsClient, graphProvider, state, wsHub, cfg.GraphRadiusMeters, logger)

	catalogHandler := handler.NewCatalogHandler(catalogLoader)
	resolveHandler := handler.NewResolveHandler(res, logger)
	wsHandler := handler.NewWSHandler(wsHub, catalogLoader, res, logger)
	healthHandler := handler.NewHealthHandler(catalogLoader, catalogLoader)
	statsHandler := handler.NewStatsHandler(res, graphProvider, wsHub, catalogLoader)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/routes", catalogHandler.ListRoutes)
	mux.HandleFunc("GET /v1/routes/{route}/stops", catalogHandler.GetRouteStops)
	mux.HandleFunc("GET /v1/routes/{route}/shape", catalogHandler.GetRouteShape)
	mux.HandleFunc("GET /v1/stops", catalogHandler.ListStops)

	mux.HandleFunc("POST /v1/resolve", resolveHandler.PostResolve)
	mux.HandleFunc("GET /v1/resolve", resolveHandler.GetCurrent)
	mux.HandleFunc("DELETE /v1/resolve", resolveHandler.DeleteCurrent)

	mux.HandleFunc("/v1/ws", wsHandler.ServeWS)

	mux.HandleFunc("GET /v1/stats", statsHandler.GetStats)
	mux.HandleFunc("GET /healthz", healthHandler.Healthz)
	mux.HandleFunc("GET /readyz", healthHandler.Readyz)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitPerWindow, cfg.RateLimitWindow, cfg.RateLimitWhitelist, logger)

	var root http.Handler = mux
	root = handler.GzipMiddleware(root)
	root = handler.CORSMiddleware(root)
	root = rateLimiter.Middleware(root)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      root,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go wsHub.Run(ctx)
	go catalogLoader.Run(ctx)

	if cfg.CacheWarmOnStart {
		warmer := cache.NewGraphWarmer(graphProvider, catalogLoader, cfg.GraphRadiusMeters, logger)
		go warmer.WarmAll(ctx)
	}

	go func() {
		logger.Info("starting HTTP server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
