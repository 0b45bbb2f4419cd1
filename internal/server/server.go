package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/biomarkerpulse/internal/analysis"
	"github.com/pscheid92/biomarkerpulse/internal/broadcast"
	"github.com/pscheid92/biomarkerpulse/internal/config"
	"github.com/pscheid92/biomarkerpulse/internal/domain"
)

// PatientStore is the read side the API serves patients and biomarkers from.
type PatientStore interface {
	domain.PatientRepository
	domain.BiomarkerRepository
}

type Analyst interface {
	Comprehensive(ctx context.Context, args analysis.PatientArgs) (analysis.Comprehensive, error)
	Health(ctx context.Context) bool
	BaseURL() string
}

type LiveStats interface {
	Stats() broadcast.Stats
}

// LiveGateway is the WebSocket endpoint mounted at /ws.
type LiveGateway interface {
	http.Handler
	Connections() int64
}

type Server struct {
	echo   *echo.Echo
	config *config.Config
	clock  clockwork.Clock

	patients PatientStore
	analyst  Analyst
	live     LiveStats
	gateway  LiveGateway

	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, clock clockwork.Clock, patients PatientStore, analyst Analyst, live LiveStats, gateway LiveGateway, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		clock:        clock,
		patients:     patients,
		analyst:      analyst,
		live:         live,
		gateway:      gateway,
		healthChecks: healthChecks,
		startTime:    clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "addr", s.config.Addr())
	if err := s.echo.Start(s.config.Addr()); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// successResponse is the success half of the API envelope.
type successResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func respond(c echo.Context, data any) error {
	if err := c.JSON(http.StatusOK, successResponse{Success: true, Data: data}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
