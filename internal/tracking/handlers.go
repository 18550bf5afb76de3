package tracking

import (
	"errors"

	"backend-vantrack/internal/fleet"

	"github.com/gofiber/fiber/v2"
)

type startSessionRequest struct {
	VehicleID string `json:"vehicle_id"`
}

type sensorErrorRequest struct {
	Message string `json:"message"`
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/sessions", authMiddleware, func(c *fiber.Ctx) error {
		var req startSessionRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.VehicleID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "vehicle_id required")
		}

		driverID, _ := c.Locals("user_id").(string)
		loc, err := svc.StartSession(c.Context(), req.VehicleID, driverID)
		if err != nil {
			switch {
			case errors.Is(err, fleet.ErrNotFound):
				return fiber.NewError(fiber.StatusNotFound, "vehicle not found")
			case errors.Is(err, ErrVehicleUnassigned), errors.Is(err, ErrEmptyRoute):
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			case errors.Is(err, ErrSessionActive):
				return fiber.NewError(fiber.StatusConflict, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(loc)
	})

	r.Post("/sessions/:vehicleID/positions", authMiddleware, func(c *fiber.Ctx) error {
		var sample Sample
		if err := c.BodyParser(&sample); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		loc, ok, err := svc.ReportPosition(c.Context(), c.Params("vehicleID"), sample)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if !ok {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.JSON(loc)
	})

	r.Post("/sessions/:vehicleID/advance", authMiddleware, func(c *fiber.Ctx) error {
		loc, ok, err := svc.Advance(c.Context(), c.Params("vehicleID"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if !ok {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.JSON(loc)
	})

	r.Post("/sessions/:vehicleID/arrived", authMiddleware, func(c *fiber.Ctx) error {
		loc, ok, err := svc.MarkArrived(c.Context(), c.Params("vehicleID"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if !ok {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.JSON(loc)
	})

	r.Post("/sessions/:vehicleID/sensor-errors", authMiddleware, func(c *fiber.Ctx) error {
		var req sensorErrorRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		svc.ReportSensorError(c.Params("vehicleID"), errors.New(req.Message))
		return c.SendStatus(fiber.StatusAccepted)
	})

	r.Delete("/sessions/:vehicleID", authMiddleware, func(c *fiber.Ctx) error {
		loc, ok, err := svc.EndSession(c.Context(), c.Params("vehicleID"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if !ok {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.JSON(loc)
	})

	r.Get("/vehicles", func(c *fiber.Ctx) error {
		return c.JSON(svc.store.ReadAll())
	})

	r.Get("/vehicles/:vehicleID", func(c *fiber.Ctx) error {
		loc, ok := svc.store.ReadOne(c.Params("vehicleID"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no location reported")
		}
		return c.JSON(loc)
	})
}
