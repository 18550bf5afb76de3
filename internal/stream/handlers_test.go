package stream

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backend-vantrack/internal/tracking"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
)

func TestStreamHandlersUpgradeRequired(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app.Group("/stream"), NewHub(&fakeSource{}, time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/stream/fleet", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode == http.StatusOK {
		t.Fatalf("expected non-200 for non-websocket request")
	}
}

func readSet(t *testing.T, conn *websocket.Conn) []tracking.VehicleLocation {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	var set []tracking.VehicleLocation
	if err := json.Unmarshal(msg, &set); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return set
}

func TestStreamHandlersFleetWebsocket(t *testing.T) {
	source := &fakeSource{locs: []tracking.VehicleLocation{online("van-1")}}
	hub := NewHub(source, time.Minute)
	app := fiber.New()
	RegisterRoutes(app.Group("/stream"), hub)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	defer ln.Close()

	go func() {
		_ = app.Listener(ln)
	}()
	defer func() { _ = app.Shutdown() }()

	wsURL := "ws://" + ln.Addr().String() + "/stream/fleet"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	// first frame is the current set
	if set := readSet(t, conn); len(set) != 1 || set[0].VehicleID != "van-1" {
		t.Fatalf("unexpected initial frame: %+v", set)
	}

	source.locs = []tracking.VehicleLocation{online("van-1"), online("van-2")}
	hub.Notify(online("van-2"))

	if set := readSet(t, conn); len(set) != 2 {
		t.Fatalf("expected updated fleet frame, got %+v", set)
	}
}

func TestStreamHandlersVehicleWebsocket(t *testing.T) {
	source := &fakeSource{locs: []tracking.VehicleLocation{online("van-1"), online("van-2")}}
	hub := NewHub(source, time.Minute)
	app := fiber.New()
	RegisterRoutes(app.Group("/stream"), hub)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	defer ln.Close()

	go func() {
		_ = app.Listener(ln)
	}()
	defer func() { _ = app.Shutdown() }()

	wsURL := "ws://" + ln.Addr().String() + "/stream/vehicles/van-2"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	if set := readSet(t, conn); len(set) != 1 || set[0].VehicleID != "van-2" {
		t.Fatalf("unexpected initial frame: %+v", set)
	}

	hub.Notify(online("van-2"))
	if set := readSet(t, conn); len(set) != 1 || set[0].VehicleID != "van-2" {
		t.Fatalf("unexpected update frame: %+v", set)
	}
}

func TestStreamHandlersClientDisconnect(t *testing.T) {
	hub := NewHub(&fakeSource{}, time.Minute)
	app := fiber.New()
	RegisterRoutes(app.Group("/stream"), hub)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	defer ln.Close()

	go func() {
		_ = app.Listener(ln)
	}()
	defer func() { _ = app.Shutdown() }()

	wsURL := "ws://" + ln.Addr().String() + "/stream/fleet"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	conn.Close()

	// pushes after disconnect must not panic the hub
	hub.Notify(online("van-1"))
	time.Sleep(20 * time.Millisecond)
	hub.Notify(online("van-1"))
}
