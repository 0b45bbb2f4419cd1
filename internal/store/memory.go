// Package store holds the in-process patient and biomarker repository.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/pscheid92/biomarkerpulse/internal/domain"
	"github.com/pscheid92/biomarkerpulse/internal/seed"
)

// MemoryStore serves patients, biomarkers and live-update metrics from memory.
// Reads return copies; callers may mutate results freely.
type MemoryStore struct {
	mu         sync.RWMutex
	patients   []domain.Patient
	byID       map[string]int
	biomarkers map[string][]domain.Biomarker
}

func NewMemoryStore(ds seed.Dataset) *MemoryStore {
	s := &MemoryStore{
		patients:   slices.Clone(ds.Patients),
		byID:       make(map[string]int, len(ds.Patients)),
		biomarkers: make(map[string][]domain.Biomarker, len(ds.Patients)),
	}
	for i, p := range s.patients {
		s.byID[p.ID] = i
	}
	for _, b := range ds.Biomarkers {
		s.biomarkers[b.PatientID] = append(s.biomarkers[b.PatientID], b)
	}
	return s
}

func (s *MemoryStore) ListPatients(_ context.Context) ([]domain.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.patients), nil
}

func (s *MemoryStore) GetPatient(_ context.Context, id string) (*domain.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrPatientNotFound, id)
	}
	p := s.patients[i]
	return &p, nil
}

func (s *MemoryStore) ListBiomarkers(_ context.Context, patientID string) ([]domain.Biomarker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.biomarkers[patientID]), nil
}

func (s *MemoryStore) ListBiomarkersByCategory(_ context.Context, patientID string, category domain.Category) ([]domain.Biomarker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Biomarker
	for _, b := range s.biomarkers[patientID] {
		if b.Category == category {
			out = append(out, b)
		}
	}
	return out, nil
}

// ListMetrics returns the patient's current biomarker values; unknown patients yield an empty list.
func (s *MemoryStore) ListMetrics(_ context.Context, topicID string) ([]domain.Metric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Metric, 0, len(s.biomarkers[topicID]))
	for _, b := range s.biomarkers[topicID] {
		out = append(out, b.Metric())
	}
	return out, nil
}
