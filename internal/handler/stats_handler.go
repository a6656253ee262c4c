package handler

import (
	"net/http"
	"runtime"
	"time"

	"drtnav/internal/resolver"
	"drtnav/internal/roadnet"
)

type ClientCounter interface {
	ClientCount() int
}

type StatsHandler struct {
	resolver  *resolver.Resolver
	provider  *roadnet.Provider
	clients   ClientCounter
	catalogs  CatalogSource
	startTime time.Time
}

func NewStatsHandler(res *resolver.Resolver, provider *roadnet.Provider, clients ClientCounter, catalogs CatalogSource) *StatsHandler {
	return &StatsHandler{
		resolver:  res,
		provider:  provider,
		clients:   clients,
		catalogs:  catalogs,
		startTime: time.Now(),
	}
}

type StatsResponse struct {
	UptimeSeconds    int64  `json:"uptimeSeconds"`
	Stops            int    `json:"stops"`
	Routes           int    `json:"routes"`
	ResolvesOK       int64  `json:"resolvesOk"`
	ResolveFallbacks int64  `json:"resolveFallbacks"`
	ResolveFailures  int64  `json:"resolveFailures"`
	GraphLoads       int64  `json:"graphLoads"`
	GraphBuilds      int64  `json:"graphBuilds"`
	WSClients        int    `json:"wsClients"`
	HeapAllocBytes   uint64 `json:"heapAllocBytes"`
	Goroutines       int    `json:"goroutines"`
}

func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	resolved, fallbacks, failures := h.resolver.Stats()
	loads, builds := h.provider.Stats()
	cat := h.catalogs.Catalog()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	respondJSON(w, http.StatusOK, StatsResponse{
		UptimeSeconds:    int64(time.Since(h.startTime).Seconds()),
		Stops:            cat.Len(),
		Routes:           len(cat.Routes()),
		ResolvesOK:       resolved,
		ResolveFallbacks: fallbacks,
		ResolveFailures:  failures,
		GraphLoads:       loads,
		GraphBuilds:      builds,
		WSClients:        h.clients.ClientCount(),
		HeapAllocBytes:   mem.HeapAlloc,
		Goroutines:       runtime.NumGoroutine(),
	})
}
