package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Loader is the ingestion side the administrative routes control
type Loader interface {
	TriggerAsync()
	Healthy(window time.Duration) bool
}

func HealthRouter(router fiber.Router, loader Loader, allowedInactivity time.Duration) {
	router.Get("/ready", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	router.Get("/up", func(c *fiber.Ctx) error {
		if !loader.Healthy(allowedInactivity) {
			c.SendStatus(fiber.StatusServiceUnavailable)
			return c.JSON(fiber.Map{
				"error": "No timetable file ingested within the allowed inactivity window",
			})
		}

		return c.SendStatus(fiber.StatusOK)
	})
}

func AdminRouter(router fiber.Router, loader Loader) {
	router.Get("/update", func(c *fiber.Ctx) error {
		loader.TriggerAsync()

		return c.SendStatus(fiber.StatusAccepted)
	})
}
