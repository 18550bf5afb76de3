package fleet

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/routes", authMiddleware, func(c *fiber.Ctx) error {
		routes, err := svc.ListRoutes(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(routes)
	})

	r.Get("/routes/:id", authMiddleware, func(c *fiber.Ctx) error {
		route, err := svc.GetRoute(c.Context(), c.Params("id"))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "route not found")
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(route)
	})

	r.Get("/vehicles", authMiddleware, func(c *fiber.Ctx) error {
		vehicles, err := svc.ListVehicles(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(vehicles)
	})

	r.Get("/vehicles/:id", authMiddleware, func(c *fiber.Ctx) error {
		vehicle, err := svc.GetVehicle(c.Context(), c.Params("id"))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "vehicle not found")
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(vehicle)
	})
}
