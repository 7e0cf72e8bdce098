package api

import (
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/travigo/journeymapper/pkg/api/routes"
	"github.com/travigo/journeymapper/pkg/consumer"
	"github.com/travigo/journeymapper/pkg/identity"
	"github.com/travigo/journeymapper/pkg/metrics"
)

type Options struct {
	Identity *identity.Service
	Loader   routes.Loader
	Metrics  *metrics.Collector

	HealthAllowedInactivity time.Duration

	// QueueConnection exposes the rmq queue overview when set
	QueueConnection rmq.Connection
}

func NewApp(opts Options) *fiber.App {
	webApp := fiber.New(fiber.Config{
		UnescapePath:          true,
		DisableStartupMessage: true,
	})
	webApp.Use(NewLogger())

	webApp.Get("/metrics", opts.Metrics.Handler())

	routes.HealthRouter(webApp.Group("/health"), opts.Loader, opts.HealthAllowedInactivity)

	admin := webApp.Group("/admin")
	routes.AdminRouter(admin, opts.Loader)
	if opts.QueueConnection != nil {
		admin.Get("/queues", consumer.StatsHandler(opts.QueueConnection))
	}

	routes.DatedServiceJourneysRouter(webApp.Group("/api"), opts.Identity)
	routes.DatedServiceJourneysRouter(webApp, opts.Identity)

	return webApp
}

func SetupServer(listen string, opts Options) error {
	return NewApp(opts).Listen(listen)
}
