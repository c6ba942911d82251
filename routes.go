package main

import (
	"bitbucket.org/yellowmessenger/voice-orchestrator/requesthandler"

	"github.com/labstack/echo"
)

// AddRoutes defines the routes and the handlers
func AddRoutes(e *echo.Echo, source requesthandler.StatusSource) {
	e.Any("/health", requesthandler.HealthHandler{Source: source}.Any)
}
