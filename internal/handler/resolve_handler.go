package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"drtnav/internal/domain"
	"drtnav/internal/resolver"
)

type ResolveHandler struct {
	resolver *resolver.Resolver
	logger   *slog.Logger
}

func NewResolveHandler(res *resolver.Resolver, logger *slog.Logger) *ResolveHandler {
	return &ResolveHandler{resolver: res, logger: logger}
}

type ResolveRequest struct {
	RouteID string               `json:"route"`
	Stops   []string             `json:"stops"`
	Profile domain.TravelProfile `json:"profile"`
}

type ResolveResponse struct {
	Path        *domain.ResolvedPath `json:"path"`
	DurationMin float64              `json:"durationMin"`
	DistanceKM  float64              `json:"distanceKm"`
}

// PostResolve runs one resolve request to completion; there is no
// cancellation mid-resolve beyond the per-leg timeouts.
func (h *ResolveHandler) PostResolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Profile == "" {
		req.Profile = domain.ProfileDriving
	}
	if !req.Profile.Valid() {
		respondError(w, http.StatusBadRequest, "profile must be driving or walking")
		return
	}

	// Detach from the client connection: a resolve runs to completion so an
	// impatient client cannot leave the session state half-updated.
	path, err := h.resolver.Resolve(context.WithoutCancel(r.Context()), req.RouteID, req.Stops, req.Profile)
	if err != nil {
		h.respondResolveError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ResolveResponse{
		Path:        path,
		DurationMin: path.DurationMin(),
		DistanceKM:  path.DistanceKM(),
	})
}

func (h *ResolveHandler) respondResolveError(w http.ResponseWriter, err error) {
	var (
		notFound   *domain.StopNotFoundError
		resolveErr *domain.ResolveError
	)
	switch {
	case errors.Is(err, resolver.ErrTooFewStops):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &resolveErr):
		h.logger.Error("resolve failed", "from", resolveErr.From, "to", resolveErr.To, "error", err)
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		respondError(w, http.StatusBadRequest, err.Error())
	}
}

// GetCurrent returns the committed result slot.
func (h *ResolveHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	path := h.resolver.Current()
	if path == nil {
		respondError(w, http.StatusNotFound, "no resolved path")
		return
	}
	respondJSON(w, http.StatusOK, ResolveResponse{
		Path:        path,
		DurationMin: path.DurationMin(),
		DistanceKM:  path.DistanceKM(),
	})
}

// DeleteCurrent clears the result slot.
func (h *ResolveHandler) DeleteCurrent(w http.ResponseWriter, r *http.Request) {
	h.resolver.Clear()
	w.WriteHeader(http.StatusNoContent)
}
