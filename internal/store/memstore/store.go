// Package memstore provides in-memory implementations of the route and ride
// history stores, used in tests and as the default when no database is
// configured.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	veloplan "github.com/veloplan/veloplan"
)

// RouteStore is an in-memory veloplan.RouteStore.
type RouteStore struct {
	mu     sync.RWMutex
	routes map[string]veloplan.SavedRoute
}

// NewRouteStore creates an empty in-memory route store.
func NewRouteStore() *RouteStore {
	return &RouteStore{routes: make(map[string]veloplan.SavedRoute)}
}

// Create stores the route, assigning an id when absent.
func (s *RouteStore) Create(ctx context.Context, route *veloplan.SavedRoute) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if route.ID == "" {
		route.ID = uuid.NewString()
	}
	now := time.Now()
	route.CreatedAt = now
	route.UpdatedAt = now
	s.routes[route.ID] = *route
	return nil
}

// Get returns the route with the given id.
func (s *RouteStore) Get(ctx context.Context, id string) (*veloplan.SavedRoute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	route, ok := s.routes[id]
	if !ok {
		return nil, veloplan.ErrRouteNotFound
	}
	return &route, nil
}

// List returns the user's routes, newest first.
func (s *RouteStore) List(ctx context.Context, userID string) ([]veloplan.SavedRoute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []veloplan.SavedRoute
	for _, route := range s.routes {
		if route.UserID == userID {
			out = append(out, route)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Update replaces an existing route.
func (s *RouteStore) Update(ctx context.Context, route *veloplan.SavedRoute) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.routes[route.ID]
	if !ok {
		return veloplan.ErrRouteNotFound
	}
	route.CreatedAt = existing.CreatedAt
	route.UpdatedAt = time.Now()
	s.routes[route.ID] = *route
	return nil
}

// Delete removes the route with the given id.
func (s *RouteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.routes[id]; !ok {
		return veloplan.ErrRouteNotFound
	}
	delete(s.routes, id)
	return nil
}

// HistoryStore is an in-memory veloplan.RideHistoryStore.
type HistoryStore struct {
	mu    sync.RWMutex
	rides map[string][]veloplan.RideRecord
}

// NewHistoryStore creates an empty in-memory ride history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{rides: make(map[string][]veloplan.RideRecord)}
}

// AddRide appends a ride to the user's history.
func (s *HistoryStore) AddRide(userID string, ride veloplan.RideRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ride.ID == "" {
		ride.ID = uuid.NewString()
	}
	s.rides[userID] = append(s.rides[userID], ride)
}

// PastRides returns up to limit of the user's most recent rides.
func (s *HistoryStore) PastRides(ctx context.Context, userID string, limit int) ([]veloplan.RideRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rides := append([]veloplan.RideRecord(nil), s.rides[userID]...)
	sort.Slice(rides, func(i, j int) bool { return rides[i].RecordedAt.After(rides[j].RecordedAt) })
	if limit > 0 && len(rides) > limit {
		rides = rides[:limit]
	}
	return rides, nil
}
