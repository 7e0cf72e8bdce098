package consumer

import (
	"github.com/adjust/rmq/v5"
	"github.com/gofiber/fiber/v2"
)

// StatsHandler renders the rmq queue overview for every open queue
func StatsHandler(connection rmq.Connection) fiber.Handler {
	return func(c *fiber.Ctx) error {
		queues, err := connection.GetOpenQueues()
		if err != nil {
			return err
		}

		stats, err := connection.CollectStats(queues)
		if err != nil {
			return err
		}

		c.Type("html")
		return c.SendString(stats.GetHtml(c.Query("layout"), c.Query("refresh")))
	}
}
