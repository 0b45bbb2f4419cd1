package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/biomarkerpulse/internal/domain"
	apperrors "github.com/pscheid92/biomarkerpulse/internal/errors"
)

const allCategories = "all"

var invalidCategoryMessage = func() string {
	names := make([]string, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		names = append(names, string(c))
	}
	return fmt.Sprintf("Invalid category. Must be one of: %s", strings.Join(names, ", "))
}()

type biomarkersResponse struct {
	PatientID   string             `json:"patientId"`
	PatientName string             `json:"patientName"`
	Category    string             `json:"category"`
	Biomarkers  []domain.Biomarker `json:"biomarkers"`
}

func (s *Server) handleListPatients(c echo.Context) error {
	patients, err := s.patients.ListPatients(c.Request().Context())
	if err != nil {
		return apperrors.InternalError("Failed to fetch patients", err)
	}
	if patients == nil {
		patients = []domain.Patient{}
	}
	return respond(c, patients)
}

func (s *Server) handleGetPatient(c echo.Context) error {
	patient, err := s.loadPatient(c)
	if err != nil {
		return err
	}
	return respond(c, patient)
}

func (s *Server) handleListBiomarkers(c echo.Context) error {
	patient, err := s.loadPatient(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	label := c.QueryParam("category")

	var biomarkers []domain.Biomarker
	if label == "" {
		label = allCategories
		biomarkers, err = s.patients.ListBiomarkers(ctx, patient.ID)
	} else {
		category, parseErr := domain.ParseCategory(label)
		if parseErr != nil {
			return apperrors.ValidationError(invalidCategoryMessage).WithContext("category", label)
		}
		biomarkers, err = s.patients.ListBiomarkersByCategory(ctx, patient.ID, category)
	}
	if err != nil {
		return apperrors.InternalError("Failed to fetch biomarkers", err)
	}
	if biomarkers == nil {
		biomarkers = []domain.Biomarker{}
	}

	return respond(c, biomarkersResponse{
		PatientID:   patient.ID,
		PatientName: patient.Name,
		Category:    label,
		Biomarkers:  biomarkers,
	})
}

// loadPatient resolves the :id path parameter, mapping a missing patient to 404.
func (s *Server) loadPatient(c echo.Context) (*domain.Patient, error) {
	id := c.Param("id")
	patient, err := s.patients.GetPatient(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrPatientNotFound) {
			return nil, apperrors.NotFoundError("Patient not found")
		}
		return nil, apperrors.InternalError("Failed to fetch patient", err)
	}
	return patient, nil
}
