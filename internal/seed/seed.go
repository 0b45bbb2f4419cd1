// Package seed generates the demo patient population: five patients with
// fifteen biomarkers each, drawn from fixed templates.
package seed

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pscheid92/biomarkerpulse/internal/domain"
)

// Template describes one biomarker type and its reference range.
type Template struct {
	Name     string
	Unit     string
	Category domain.Category
	Min      float64
	Max      float64
}

var PatientNames = []string{
	"John Smith",
	"Sarah Johnson",
	"Michael Brown",
	"Emily Davis",
	"Robert Wilson",
}

var Templates = []Template{
	{"Glucose", "mg/dL", domain.CategoryMetabolic, 70, 100},
	{"Triglycerides", "mg/dL", domain.CategoryMetabolic, 0, 150},
	{"Total Cholesterol", "mg/dL", domain.CategoryMetabolic, 0, 200},
	{"HbA1c", "%", domain.CategoryMetabolic, 0, 5.7},
	{"Insulin", "mIU/L", domain.CategoryMetabolic, 2, 25},

	{"Systolic BP", "mmHg", domain.CategoryCardiovascular, 90, 120},
	{"Diastolic BP", "mmHg", domain.CategoryCardiovascular, 60, 80},
	{"HDL Cholesterol", "mg/dL", domain.CategoryCardiovascular, 40, 200},
	{"LDL Cholesterol", "mg/dL", domain.CategoryCardiovascular, 0, 100},
	{"Heart Rate", "bpm", domain.CategoryCardiovascular, 60, 100},

	{"Testosterone", "ng/dL", domain.CategoryHormonal, 300, 1000},
	{"Cortisol", "μg/dL", domain.CategoryHormonal, 10, 20},
	{"TSH", "mIU/L", domain.CategoryHormonal, 0.4, 4},
	{"Estrogen", "pg/mL", domain.CategoryHormonal, 10, 500},
	{"Progesterone", "ng/mL", domain.CategoryHormonal, 0.1, 28},
}

type Dataset struct {
	Patients   []domain.Patient
	Biomarkers []domain.Biomarker
}

// Generate builds a dataset. Output is fully determined by rng, identifiers included.
func Generate(rng domain.Random) Dataset {
	ids := randReader{rng: rng}
	newID := func() string {
		id, err := uuid.NewRandomFromReader(ids)
		if err != nil {
			// randReader never fails
			panic(err)
		}
		return id.String()
	}

	ds := Dataset{
		Patients:   make([]domain.Patient, 0, len(PatientNames)),
		Biomarkers: make([]domain.Biomarker, 0, len(PatientNames)*len(Templates)),
	}

	for _, name := range PatientNames {
		ds.Patients = append(ds.Patients, domain.Patient{
			ID:          newID(),
			Name:        name,
			DateOfBirth: time.Date(1970+rng.IntN(30), time.January, 1, 0, 0, 0, 0, time.UTC),
			LastVisit:   dayOf2024(rng),
		})
	}

	for _, p := range ds.Patients {
		for _, tmpl := range Templates {
			value := math.Round((tmpl.Min+rng.Float64()*(tmpl.Max-tmpl.Min))*100) / 100
			ref := domain.ReferenceRange{Min: tmpl.Min, Max: tmpl.Max}
			ds.Biomarkers = append(ds.Biomarkers, domain.Biomarker{
				ID:             newID(),
				PatientID:      p.ID,
				Name:           tmpl.Name,
				Value:          value,
				Unit:           tmpl.Unit,
				Category:       tmpl.Category,
				ReferenceRange: ref,
				MeasuredAt:     dayOf2024(rng),
				Status:         ref.Classify(value),
			})
		}
	}

	return ds
}

func dayOf2024(rng domain.Random) time.Time {
	return time.Date(2024, time.January, 1+rng.IntN(365), 0, 0, 0, 0, time.UTC)
}

type randReader struct {
	rng domain.Random
}

func (r randReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r.rng.IntN(256))
	}
	return len(p), nil
}
