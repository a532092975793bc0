// Package pgstore persists saved routes and ride history in PostgreSQL.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	veloplan "github.com/veloplan/veloplan"
)

// Store implements veloplan.RouteStore and veloplan.RideHistoryStore over a
// pgx connection pool. Candidates and track points are stored as JSONB so
// the schema does not chase the candidate shape.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store over an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pool for the given DSN and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Create inserts a saved route, assigning an id when absent.
func (s *Store) Create(ctx context.Context, route *veloplan.SavedRoute) error {
	if route.ID == "" {
		route.ID = uuid.NewString()
	}
	now := time.Now()
	route.CreatedAt = now
	route.UpdatedAt = now

	candidate, err := json.Marshal(route.Candidate)
	if err != nil {
		return fmt.Errorf("failed to encode candidate: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO saved_routes (id, user_id, candidate, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		route.ID, route.UserID, candidate, route.CreatedAt, route.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert route: %w", err)
	}
	return nil
}

// Get returns the route with the given id.
func (s *Store) Get(ctx context.Context, id string) (*veloplan.SavedRoute, error) {
	var route veloplan.SavedRoute
	var candidate []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, candidate, created_at, updated_at
		 FROM saved_routes WHERE id = $1`, id).
		Scan(&route.ID, &route.UserID, &candidate, &route.CreatedAt, &route.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, veloplan.ErrRouteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query route: %w", err)
	}

	if err := json.Unmarshal(candidate, &route.Candidate); err != nil {
		return nil, fmt.Errorf("failed to decode candidate: %w", err)
	}
	return &route, nil
}

// List returns the user's routes, newest first.
func (s *Store) List(ctx context.Context, userID string) ([]veloplan.SavedRoute, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, candidate, created_at, updated_at
		 FROM saved_routes WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query routes: %w", err)
	}
	defer rows.Close()

	var routes []veloplan.SavedRoute
	for rows.Next() {
		var route veloplan.SavedRoute
		var candidate []byte
		if err := rows.Scan(&route.ID, &route.UserID, &candidate, &route.CreatedAt, &route.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan route: %w", err)
		}
		if err := json.Unmarshal(candidate, &route.Candidate); err != nil {
			return nil, fmt.Errorf("failed to decode candidate: %w", err)
		}
		routes = append(routes, route)
	}
	return routes, rows.Err()
}

// Update replaces an existing route's candidate.
func (s *Store) Update(ctx context.Context, route *veloplan.SavedRoute) error {
	candidate, err := json.Marshal(route.Candidate)
	if err != nil {
		return fmt.Errorf("failed to encode candidate: %w", err)
	}
	route.UpdatedAt = time.Now()

	tag, err := s.pool.Exec(ctx,
		`UPDATE saved_routes SET candidate = $2, updated_at = $3 WHERE id = $1`,
		route.ID, candidate, route.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update route: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return veloplan.ErrRouteNotFound
	}
	return nil
}

// Delete removes the route with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM saved_routes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete route: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return veloplan.ErrRouteNotFound
	}
	return nil
}

// PastRides returns up to limit of the user's most recent rides.
func (s *Store) PastRides(ctx context.Context, userID string, limit int) ([]veloplan.RideRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, distance_meters, elevation_gain_m, elevation_loss_m, recorded_at, track_points
		 FROM rides WHERE user_id = $1 ORDER BY recorded_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rides: %w", err)
	}
	defer rows.Close()

	var rides []veloplan.RideRecord
	for rows.Next() {
		var ride veloplan.RideRecord
		var trackPoints []byte
		if err := rows.Scan(&ride.ID, &ride.Name, &ride.DistanceMeters,
			&ride.ElevationGainM, &ride.ElevationLossM, &ride.RecordedAt, &trackPoints); err != nil {
			return nil, fmt.Errorf("failed to scan ride: %w", err)
		}
		if len(trackPoints) > 0 {
			if err := json.Unmarshal(trackPoints, &ride.TrackPoints); err != nil {
				return nil, fmt.Errorf("failed to decode track points: %w", err)
			}
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}
