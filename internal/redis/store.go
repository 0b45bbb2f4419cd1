package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pscheid92/biomarkerpulse/internal/domain"
	"github.com/pscheid92/biomarkerpulse/internal/seed"
	goredis "github.com/redis/go-redis/v9"
)

const (
	patientsKey     = "patients"
	patientOrderKey = "patients:order"
)

func biomarkersKey(patientID string) string {
	return "biomarkers:" + patientID
}

// Store reads patients, biomarkers and live-update metrics from Redis.
type Store struct {
	rdb *goredis.Client
}

func NewStore(rdb *goredis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) ListPatients(ctx context.Context) ([]domain.Patient, error) {
	ids, err := s.rdb.LRange(ctx, patientOrderKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list patient ids: %w", err)
	}
	if len(ids) == 0 {
		return []domain.Patient{}, nil
	}

	raw, err := s.rdb.HMGet(ctx, patientsKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load patients: %w", err)
	}

	patients := make([]domain.Patient, 0, len(raw))
	for i, v := range raw {
		str, ok := v.(string)
		if !ok {
			// listed in order but missing from the hash
			continue
		}
		var p domain.Patient
		if err := json.Unmarshal([]byte(str), &p); err != nil {
			return nil, fmt.Errorf("failed to decode patient %s: %w", ids[i], err)
		}
		patients = append(patients, p)
	}
	return patients, nil
}

func (s *Store) GetPatient(ctx context.Context, id string) (*domain.Patient, error) {
	raw, err := s.rdb.HGet(ctx, patientsKey, id).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("%w: %s", domain.ErrPatientNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	var p domain.Patient
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode patient %s: %w", id, err)
	}
	return &p, nil
}

func (s *Store) ListBiomarkers(ctx context.Context, patientID string) ([]domain.Biomarker, error) {
	raw, err := s.rdb.LRange(ctx, biomarkersKey(patientID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list biomarkers: %w", err)
	}

	out := make([]domain.Biomarker, 0, len(raw))
	for _, str := range raw {
		var b domain.Biomarker
		if err := json.Unmarshal([]byte(str), &b); err != nil {
			return nil, fmt.Errorf("failed to decode biomarker for patient %s: %w", patientID, err)
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *Store) ListBiomarkersByCategory(ctx context.Context, patientID string, category domain.Category) ([]domain.Biomarker, error) {
	all, err := s.ListBiomarkers(ctx, patientID)
	if err != nil {
		return nil, err
	}

	var out []domain.Biomarker
	for _, b := range all {
		if b.Category == category {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Store) ListMetrics(ctx context.Context, topicID string) ([]domain.Metric, error) {
	biomarkers, err := s.ListBiomarkers(ctx, topicID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Metric, 0, len(biomarkers))
	for _, b := range biomarkers {
		out = append(out, b.Metric())
	}
	return out, nil
}

// Seed writes the dataset unless patients already exist. It reports whether data was written.
// The check and the write run under WATCH so concurrent seeders write at most once.
func (s *Store) Seed(ctx context.Context, ds seed.Dataset) (bool, error) {
	patientFields := make([]any, 0, 2*len(ds.Patients))
	order := make([]any, 0, len(ds.Patients))
	for _, p := range ds.Patients {
		data, err := json.Marshal(p)
		if err != nil {
			return false, fmt.Errorf("failed to encode patient %s: %w", p.ID, err)
		}
		patientFields = append(patientFields, p.ID, data)
		order = append(order, p.ID)
	}

	byPatient := make(map[string][]any, len(ds.Patients))
	for _, b := range ds.Biomarkers {
		data, err := json.Marshal(b)
		if err != nil {
			return false, fmt.Errorf("failed to encode biomarker %s: %w", b.ID, err)
		}
		byPatient[b.PatientID] = append(byPatient[b.PatientID], data)
	}

	written := false
	err := s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		n, err := tx.Exists(ctx, patientsKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			if len(patientFields) > 0 {
				pipe.HSet(ctx, patientsKey, patientFields...)
				pipe.RPush(ctx, patientOrderKey, order...)
			}
			for patientID, items := range byPatient {
				pipe.RPush(ctx, biomarkersKey(patientID), items...)
			}
			return nil
		})
		if err == nil {
			written = true
		}
		return err
	}, patientsKey)
	if errors.Is(err, goredis.TxFailedErr) {
		// another instance seeded between WATCH and EXEC
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to seed redis: %w", err)
	}
	return written, nil
}

// Ping reports whether Redis is reachable; used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
