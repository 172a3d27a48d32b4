package handlers

import "github.com/gofiber/fiber/v2"

// RegisterDashboard mounts the page, its form endpoint and the JSON API.
func RegisterDashboard(app fiber.Router, dashboard *DashboardHandler, health *HealthHandler) {
	app.Get("/", dashboard.Page)
	app.Post("/analyze", dashboard.Submit)

	api := app.Group("/api")
	api.Get("/state", dashboard.State)
	api.Put("/symbols", dashboard.SetSymbols)
	api.Post("/analyze", dashboard.Trigger)

	app.Get("/health", health.Health)
	app.Get("/health/ready", health.Ready)
}

// RegisterAnalyzer mounts the analysis service endpoints.
func RegisterAnalyzer(app fiber.Router, analyze *AnalyzeHandler, health *HealthHandler) {
	app.Get("/analyze", analyze.Analyze)
	app.Get("/health", health.Health)
	app.Get("/health/ready", health.Ready)
}
