package domain

import "fmt"

// GeometrySourceError reports that one route's raw geometry could not be
// loaded or parsed. It is recovered by excluding the route from the catalog.
type GeometrySourceError struct {
	RouteID string
	Err     error
}

func (e *GeometrySourceError) Error() string {
	return fmt.Sprintf("route %s: geometry source: %v", e.RouteID, e.Err)
}

func (e *GeometrySourceError) Unwrap() error { return e.Err }

// StopNotFoundError reports a requested stop name with no catalog entry in
// the selected route's scope.
type StopNotFoundError struct {
	RouteID string
	Name    string
}

func (e *StopNotFoundError) Error() string {
	return fmt.Sprintf("stop %q not found on route %s", e.Name, e.RouteID)
}

// RemoteServiceError reports a failed directions call for one leg: network
// error, timeout, non-success status or an empty result.
type RemoteServiceError struct {
	Status int
	Err    error
}

func (e *RemoteServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("directions service: status %d", e.Status)
	}
	return fmt.Sprintf("directions service: %v", e.Err)
}

func (e *RemoteServiceError) Unwrap() error { return e.Err }

// GraphUnavailableError reports that the road network could not be built
// for the queried area.
type GraphUnavailableError struct {
	Err error
}

func (e *GraphUnavailableError) Error() string {
	return fmt.Sprintf("road graph unavailable: %v", e.Err)
}

func (e *GraphUnavailableError) Unwrap() error { return e.Err }

// ResolveError is the umbrella failure returned when neither the directions
// service nor the graph fallback produced a usable path. It carries the
// stop pair and profile so callers can surface an actionable message.
type ResolveError struct {
	RouteID string
	From    string
	To      string
	Profile TravelProfile
	Err     error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("no path from %q to %q (route %s, profile %s): %v",
		e.From, e.To, e.RouteID, e.Profile, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }
