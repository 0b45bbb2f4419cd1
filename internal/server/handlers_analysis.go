package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/biomarkerpulse/internal/analysis"
	apperrors "github.com/pscheid92/biomarkerpulse/internal/errors"
)

type analyzeResponse struct {
	PatientID   string                 `json:"patientId"`
	PatientName string                 `json:"patientName"`
	Analysis    analysis.Comprehensive `json:"analysis"`
}

func (s *Server) handleAnalyze(c echo.Context) error {
	patient, err := s.loadPatient(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	biomarkers, err := s.patients.ListBiomarkers(ctx, patient.ID)
	if err != nil {
		return apperrors.InternalError("Failed to fetch biomarkers", err)
	}
	if len(biomarkers) == 0 {
		return apperrors.ValidationError("Patient has no biomarkers to analyze")
	}

	args := analysis.NewPatientArgs(*patient, biomarkers, s.clock.Now())
	result, err := s.analyst.Comprehensive(ctx, args)
	if err != nil {
		if errors.Is(err, analysis.ErrCircuitOpen) {
			return apperrors.UnavailableError("Analysis service unavailable", err)
		}
		return apperrors.ExternalError("Failed to analyze biomarkers", err)
	}

	slog.InfoContext(ctx, "Analysis completed", "patient_id", patient.ID, "biomarkers", len(biomarkers))
	return respond(c, analyzeResponse{
		PatientID:   patient.ID,
		PatientName: patient.Name,
		Analysis:    result,
	})
}

func (s *Server) handleAnalysisHealth(c echo.Context) error {
	healthy := s.analyst.Health(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]any{
		"success":           true,
		"mcpServiceHealthy": healthy,
		"mcpServerUrl":      s.analyst.BaseURL(),
	})
}
