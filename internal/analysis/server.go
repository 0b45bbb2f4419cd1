package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	serviceName    = "biomarker-ai-analysis"
	serviceVersion = "1.0.0"
)

// ToolServer serves the analysis tools over HTTP+JSON.
type ToolServer struct {
	echo   *echo.Echo
	runner Runner
}

func NewToolServer(runner Runner) *ToolServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &ToolServer{echo: e, runner: runner}
	s.registerRoutes()
	return s
}

func (s *ToolServer) registerRoutes() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Debug("Request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	s.echo.GET("/", s.handleInfo)
	s.echo.GET("/tools", s.handleListTools)
	s.echo.POST("/tool", s.handleCallTool)
}

func (s *ToolServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *ToolServer) Start(addr string) error {
	slog.Info("Starting analysis service", "addr", addr)
	if err := s.echo.Start(addr); err != nil {
		return fmt.Errorf("failed to start analysis service: %w", err)
	}
	return nil
}

func (s *ToolServer) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown analysis service: %w", err)
	}
	return nil
}

func (s *ToolServer) handleInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"name":      serviceName,
		"version":   serviceVersion,
		"status":    "running",
		"transport": "http-json",
	})
}

func (s *ToolServer) handleListTools(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"tools": Tools})
}

func (s *ToolServer) handleCallTool(c echo.Context) error {
	var req ToolRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ToolResponse{Error: "malformed tool request"})
	}

	logger := slog.With("tool", req.ToolName, "patient_id", req.Args.PatientID)
	logger.Info("Tool call", "biomarkers", len(req.Args.Biomarkers))

	result, err := s.runner.Run(c.Request().Context(), req.ToolName, req.Args)
	if err != nil {
		logger.Error("Tool call failed", "error", err)
		return c.JSON(http.StatusInternalServerError, ToolResponse{Error: err.Error()})
	}

	raw, err := json.Marshal(result)
	if err != nil {
		logger.Error("Failed to encode tool result", "error", err)
		return c.JSON(http.StatusInternalServerError, ToolResponse{Error: "failed to encode result"})
	}
	return c.JSON(http.StatusOK, ToolResponse{Success: true, Result: raw})
}
