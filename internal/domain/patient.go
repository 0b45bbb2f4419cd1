package domain

import (
	"context"
	"time"
)

type Patient struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DateOfBirth time.Time `json:"dateOfBirth"`
	LastVisit   time.Time `json:"lastVisit"`
}

// Age returns the patient's age in whole years at the given instant.
func (p Patient) Age(at time.Time) int {
	years := at.Year() - p.DateOfBirth.Year()
	if at.YearDay() < p.DateOfBirth.YearDay() {
		years--
	}
	return max(years, 0)
}

type PatientRepository interface {
	ListPatients(ctx context.Context) ([]Patient, error)
	// GetPatient returns ErrPatientNotFound when no patient has the given id.
	GetPatient(ctx context.Context, id string) (*Patient, error)
}
