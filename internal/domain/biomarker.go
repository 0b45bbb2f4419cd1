package domain

import (
	"context"
	"fmt"
	"time"
)

type Category string

const (
	CategoryMetabolic      Category = "metabolic"
	CategoryCardiovascular Category = "cardiovascular"
	CategoryHormonal       Category = "hormonal"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryMetabolic, CategoryCardiovascular, CategoryHormonal}

// ParseCategory validates a raw category string.
func ParseCategory(raw string) (Category, error) {
	for _, c := range Categories {
		if string(c) == raw {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, raw)
}

type Status string

const (
	StatusNormal Status = "normal"
	StatusHigh   Status = "high"
	StatusLow    Status = "low"
)

type ReferenceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Classify maps a value onto low/normal/high relative to the range (inclusive bounds).
func (r ReferenceRange) Classify(value float64) Status {
	switch {
	case value < r.Min:
		return StatusLow
	case value > r.Max:
		return StatusHigh
	default:
		return StatusNormal
	}
}

type Biomarker struct {
	ID             string         `json:"id"`
	PatientID      string         `json:"patientId"`
	Name           string         `json:"name"`
	Value          float64        `json:"value"`
	Unit           string         `json:"unit"`
	Category       Category       `json:"category"`
	ReferenceRange ReferenceRange `json:"referenceRange"`
	MeasuredAt     time.Time      `json:"measuredAt"`
	Status         Status         `json:"status"`
}

// Metric projects a biomarker onto the shape the live update broadcaster consumes.
func (b Biomarker) Metric() Metric {
	return Metric{ID: b.ID, Name: b.Name, Value: b.Value, Unit: b.Unit}
}

type BiomarkerRepository interface {
	ListBiomarkers(ctx context.Context, patientID string) ([]Biomarker, error)
	ListBiomarkersByCategory(ctx context.Context, patientID string, category Category) ([]Biomarker, error)
}
