package handler

import (
	"net/http"
	"time"

	"github.com/paulmach/orb"

	"drtnav/internal/catalog"
	"drtnav/internal/domain"
)

// CatalogSource yields the current stop catalog.
type CatalogSource interface {
	Catalog() *catalog.Catalog
}

type CatalogHandler struct {
	catalogs CatalogSource
}

func NewCatalogHandler(catalogs CatalogSource) *CatalogHandler {
	return &CatalogHandler{catalogs: catalogs}
}

type RoutesResponse struct {
	Routes     []domain.RouteInfo `json:"routes"`
	Center     orb.Point          `json:"center"`
	ServerTime time.Time          `json:"serverTime"`
}

func (h *CatalogHandler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	cat := h.catalogs.Catalog()
	respondJSON(w, http.StatusOK, RoutesResponse{
		Routes:     cat.Routes(),
		Center:     cat.Center(),
		ServerTime: time.Now(),
	})
}

type StopsResponse struct {
	Stops      []domain.Stop `json:"stops"`
	Count      int           `json:"count"`
	ServerTime time.Time     `json:"serverTime"`
}

func (h *CatalogHandler) ListStops(w http.ResponseWriter, r *http.Request) {
	stops := h.catalogs.Catalog().Stops()
	respondJSON(w, http.StatusOK, StopsResponse{
		Stops:      stops,
		Count:      len(stops),
		ServerTime: time.Now(),
	})
}

func (h *CatalogHandler) GetRouteStops(w http.ResponseWriter, r *http.Request) {
	routeID := r.PathValue("route")
	cat := h.catalogs.Catalog()
	if !cat.HasRoute(routeID) {
		respondError(w, http.StatusNotFound, "route not found")
		return
	}

	stops := cat.RouteStops(routeID)
	respondJSON(w, http.StatusOK, StopsResponse{
		Stops:      stops,
		Count:      len(stops),
		ServerTime: time.Now(),
	})
}

type ShapeResponse struct {
	RouteID string           `json:"routeId"`
	Lines   []orb.LineString `json:"lines"`
}

// GetRouteShape returns the route's original polylines so the map can draw
// the raw line under the resolved path.
func (h *CatalogHandler) GetRouteShape(w http.ResponseWriter, r *http.Request) {
	routeID := r.PathValue("route")
	shape := h.catalogs.Catalog().Shape(routeID)
	if shape == nil {
		respondError(w, http.StatusNotFound, "route not found")
		return
	}

	respondJSON(w, http.StatusOK, ShapeResponse{
		RouteID: routeID,
		Lines:   shape.Lines,
	})
}
