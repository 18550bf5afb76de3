package stream

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

func RegisterRoutes(r fiber.Router, hub *Hub) {
	r.Get("/fleet", websocket.New(func(c *websocket.Conn) {
		serve(c, hub, FleetFilter())
	}))

	r.Get("/vehicles/:vehicleID", websocket.New(func(c *websocket.Conn) {
		serve(c, hub, VehicleFilter(c.Params("vehicleID")))
	}))
}

func serve(c *websocket.Conn, hub *Hub, filter Filter) {
	sub := hub.Subscribe(filter)
	defer hub.Cancel(sub)

	if err := c.WriteMessage(websocket.TextMessage, hub.Snapshot(filter)); err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		for msg := range sub.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
		close(done)
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
	hub.Cancel(sub)
	<-done
}
