package fleet

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

func TestFleetHandlers(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, name FROM routes WHERE id=\$1`).
		WithArgs("route-1").
		WillReturnRows(routeRows().AddRow("route-1", "Morning Run"))
	mock.ExpectQuery(`SELECT id, name, lat, lng`).
		WithArgs("route-1").
		WillReturnRows(stopRows().AddRow("stop-a", "Gate A", 12.97, 77.59))

	mock.ExpectQuery(`SELECT id, van_number, COALESCE\(route_id, ''\), capacity`).
		WithArgs("van-1").
		WillReturnRows(vehicleRows().AddRow("van-1", "KA-01", "route-1", 12))

	app := fiber.New()
	RegisterRoutes(app.Group("/fleet"), NewService(mock), func(c *fiber.Ctx) error { return c.Next() })

	req := httptest.NewRequest(http.MethodGet, "/fleet/routes/route-1", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("get route status: %v", err)
	}
	var route Route
	if err := json.NewDecoder(resp.Body).Decode(&route); err != nil {
		t.Fatalf("decode route: %v", err)
	}
	if route.ID != "route-1" || len(route.Stops) != 1 {
		t.Fatalf("unexpected route: %+v", route)
	}

	req = httptest.NewRequest(http.MethodGet, "/fleet/vehicles/van-1", nil)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("get vehicle status: %v", err)
	}
}

func TestFleetHandlersList(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, name FROM routes ORDER BY name`).
		WillReturnRows(routeRows().AddRow("route-1", "Morning Run"))
	mock.ExpectQuery(`SELECT id, name, lat, lng`).
		WithArgs("route-1").
		WillReturnRows(stopRows())

	mock.ExpectQuery(`SELECT id, van_number, COALESCE\(route_id, ''\), capacity`).
		WillReturnRows(vehicleRows().AddRow("van-1", "KA-01", "route-1", 12))

	app := fiber.New()
	RegisterRoutes(app.Group("/fleet"), NewService(mock), func(c *fiber.Ctx) error { return c.Next() })

	req := httptest.NewRequest(http.MethodGet, "/fleet/routes", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("list routes status: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/fleet/vehicles", nil)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("list vehicles status: %v", err)
	}
}

func TestFleetHandlersNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, name FROM routes WHERE id=\$1`).
		WithArgs("route-missing").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT id, van_number, COALESCE\(route_id, ''\), capacity`).
		WithArgs("van-missing").
		WillReturnError(pgx.ErrNoRows)

	app := fiber.New()
	RegisterRoutes(app.Group("/fleet"), NewService(mock), func(c *fiber.Ctx) error { return c.Next() })

	req := httptest.NewRequest(http.MethodGet, "/fleet/routes/route-missing", nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found for route, got %v", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/fleet/vehicles/van-missing", nil)
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found for vehicle, got %v", resp.StatusCode)
	}
}

func TestFleetHandlersQueryError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, name FROM routes ORDER BY name`).
		WillReturnError(errFleet)
	mock.ExpectQuery(`SELECT id, van_number, COALESCE\(route_id, ''\), capacity`).
		WillReturnError(errFleet)

	app := fiber.New()
	RegisterRoutes(app.Group("/fleet"), NewService(mock), func(c *fiber.Ctx) error { return c.Next() })

	req := httptest.NewRequest(http.MethodGet, "/fleet/routes", nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected internal error for routes, got %v", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/fleet/vehicles", nil)
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected internal error for vehicles, got %v", resp.StatusCode)
	}
}
