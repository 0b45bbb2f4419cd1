package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	s.echo.Use(correlationMiddleware())
	s.echo.Use(requestLoggerMiddleware())
	s.echo.Use(corsMiddleware(s.config.Origins()))
	s.echo.Use(errorMiddleware())
	s.echo.Use(recoverMiddleware())

	s.echo.GET("/", s.handleRoot)

	s.registerHealthRoutes()

	api := s.echo.Group("/api")
	api.GET("/patients", s.handleListPatients)
	api.GET("/patients/:id", s.handleGetPatient)
	api.GET("/patients/:id/biomarkers", s.handleListBiomarkers)
	api.POST("/patients/:id/analyze", s.handleAnalyze, newRateLimiter(s.config.AnalyzeRateLimit, s.config.AnalyzeBurst))
	api.GET("/mcp/health", s.handleAnalysisHealth)
	api.GET("/live/stats", s.handleLiveStats)

	s.echo.GET("/ws", echo.WrapHandler(s.gateway))
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/version", s.handleVersion)
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "Healthcare Biomarker API"})
}
