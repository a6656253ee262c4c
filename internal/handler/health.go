package handler

import (
	"encoding/json"
	"net/http"
	"time"
)

// ReadySource reports whether the catalog finished its first load.
type ReadySource interface {
	IsReady() bool
}

type HealthHandler struct {
	ready    ReadySource
	catalogs CatalogSource
}

func NewHealthHandler(ready ReadySource, catalogs CatalogSource) *HealthHandler {
	return &HealthHandler{ready: ready, catalogs: catalogs}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type ReadyResponse struct {
	Ready      bool      `json:"ready"`
	StopCount  int       `json:"stopCount"`
	RouteCount int       `json:"routeCount"`
	ServerTime time.Time `json:"serverTime"`
}

func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ready := h.ready.IsReady()
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	resp := ReadyResponse{Ready: ready, ServerTime: time.Now()}
	if ready {
		cat := h.catalogs.Catalog()
		resp.StopCount = cat.Len()
		resp.RouteCount = len(cat.Routes())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
