package observability

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry returns the registry holding the Acadex collectors.
func Registry() *prometheus.Registry {
	RegisterMetrics()
	return registry
}

// MetricsHandler serves the Acadex registry in the Prometheus exposition format.
// Scrape failures are answered with a 500 rather than a partial body.
func MetricsHandler() fiber.Handler {
	handler := promhttp.HandlerFor(Registry(), promhttp.HandlerOpts{
		ErrorHandling:     promhttp.HTTPErrorOnError,
		EnableOpenMetrics: true,
	})
	return adaptor.HTTPHandler(handler)
}
