package fleet

import (
	"context"
	"errors"

	"backend-vantrack/internal/db"

	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("not found")

type Service struct {
	db db.Querier
}

func NewService(q db.Querier) *Service {
	return &Service{db: q}
}

func (s *Service) GetRoute(ctx context.Context, routeID string) (Route, error) {
	var route Route
	row := s.db.QueryRow(ctx, `SELECT id, name FROM routes WHERE id=$1`, routeID)
	if err := row.Scan(&route.ID, &route.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Route{}, ErrNotFound
		}
		return Route{}, err
	}

	stops, err := s.routeStops(ctx, routeID)
	if err != nil {
		return Route{}, err
	}
	route.Stops = stops
	return route, nil
}

func (s *Service) GetVehicle(ctx context.Context, vehicleID string) (Vehicle, error) {
	var v Vehicle
	row := s.db.QueryRow(ctx, `
		SELECT id, van_number, COALESCE(route_id, ''), capacity
		FROM vehicles WHERE id=$1
	`, vehicleID)
	if err := row.Scan(&v.ID, &v.VanNumber, &v.RouteID, &v.Capacity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vehicle{}, ErrNotFound
		}
		return Vehicle{}, err
	}
	return v, nil
}

func (s *Service) ListRoutes(ctx context.Context) ([]Route, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name FROM routes ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []Route
	for rows.Next() {
		var r Route
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range routes {
		stops, err := s.routeStops(ctx, routes[i].ID)
		if err != nil {
			return nil, err
		}
		routes[i].Stops = stops
	}
	return routes, nil
}

func (s *Service) ListVehicles(ctx context.Context) ([]Vehicle, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, van_number, COALESCE(route_id, ''), capacity
		FROM vehicles ORDER BY van_number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []Vehicle
	for rows.Next() {
		var v Vehicle
		if err := rows.Scan(&v.ID, &v.VanNumber, &v.RouteID, &v.Capacity); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

func (s *Service) routeStops(ctx context.Context, routeID string) ([]Stop, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, lat, lng
		FROM stops WHERE route_id=$1
		ORDER BY position
	`, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stops []Stop
	for rows.Next() {
		var st Stop
		if err := rows.Scan(&st.ID, &st.Name, &st.Lat, &st.Lng); err != nil {
			return nil, err
		}
		stops = append(stops, st)
	}
	return stops, rows.Err()
}
