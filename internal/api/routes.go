// Package api wires the HTTP surface: threat, actor, indicator, stats and
// phishing endpoints on a fiber app.
package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ctiworks/threatboard/internal/middleware"
)

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, h *Handlers) {
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(middleware.RequestLogger())

	app.Get("/", h.Root)
	app.Get("/news", h.GetNews)

	// Versioned health endpoint
	app.Get("/api/v1/health", h.HealthCheck)

	api := app.Group("/api")

	threats := api.Group("/threats")
	{
		threats.Get("", h.GetThreats)
		threats.Get("/recent", h.GetRecentThreats)
		threats.Get("/severe", h.GetSevereThreats)
		threats.Get("/cve/:cve_id", h.GetThreatsByCVE)
		threats.Get("/fetch", middleware.AdminOnly(h.config.AdminAPIKey), h.TriggerFetch)
		threats.Post("/fetch", middleware.AdminOnly(h.config.AdminAPIKey), h.TriggerFetch)
	}

	actors := api.Group("/actors")
	{
		actors.Get("", h.GetActors)
		actors.Get("/recent", h.GetRecentActors)
		actors.Get("/:name", h.GetActorByName)
	}

	indicators := api.Group("/indicators")
	{
		indicators.Get("", h.GetIndicators)
		indicators.Get("/high-confidence", h.GetHighConfidenceIndicators)
		indicators.Get("/type/:ioc_type", h.GetIndicatorsByType)
	}

	api.Get("/stats", h.GetStats)
	api.Get("/dashboard", h.GetDashboard)

	phishing := api.Group("/phishing")
	{
		phishing.Get("/sites", h.ListPhishingSites)
		phishing.Get("/sites/:id", h.GetPhishingSite)
		phishing.Post("/sites/:id", middleware.AdminOnly(h.config.AdminAPIKey), h.UpdatePhishingSite)
		phishing.Post("/report/:id", middleware.AdminOnly(h.config.AdminAPIKey), h.ReportPhishingSite)
		phishing.Post("/scan", middleware.AdminOnly(h.config.AdminAPIKey), h.StartScan)
		phishing.Get("/scan/:scan_id", h.GetScanStatus)
		phishing.Post("/check", h.CheckURL)
		phishing.Get("/stats", h.GetPhishingStats)
	}

	// 404 Handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
		})
	})
}
