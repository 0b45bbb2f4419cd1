package analysis

import (
	"encoding/json"
	"time"

	"github.com/pscheid92/biomarkerpulse/internal/domain"
)

const (
	ToolAnalyzeBiomarkers           = "analyze_biomarkers"
	ToolSuggestMonitoringPriorities = "suggest_monitoring_priorities"
	ToolGenerateHealthSummary       = "generate_health_summary"
)

type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Tools lists the tools served by the analysis service, in call order.
var Tools = []Tool{
	{
		Name:        ToolAnalyzeBiomarkers,
		Description: "Analyze patient biomarkers to identify concerning values and potential health risks. Provides clinical insights for each biomarker.",
	},
	{
		Name:        ToolSuggestMonitoringPriorities,
		Description: "Recommend which biomarkers need closer attention and monitoring based on their current values and clinical significance. Prioritizes biomarkers by risk level.",
	},
	{
		Name:        ToolGenerateHealthSummary,
		Description: "Generate a comprehensive health summary for a patient based on their biomarker profile. Provides overall risk assessment and clinical recommendations.",
	},
}

type BiomarkerInput struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Value          float64                `json:"value"`
	Unit           string                 `json:"unit"`
	Status         domain.Status          `json:"status"`
	Category       domain.Category        `json:"category,omitempty"`
	ReferenceRange *domain.ReferenceRange `json:"referenceRange,omitempty"`
}

// PatientArgs is the argument object shared by every tool.
type PatientArgs struct {
	PatientID   string           `json:"patient_id"`
	PatientName string           `json:"patient_name"`
	Age         int              `json:"age,omitempty"`
	Gender      string           `json:"gender,omitempty"`
	Biomarkers  []BiomarkerInput `json:"biomarkers"`
}

// NewPatientArgs builds tool arguments for a patient, with the age taken at now.
func NewPatientArgs(p domain.Patient, biomarkers []domain.Biomarker, now time.Time) PatientArgs {
	inputs := make([]BiomarkerInput, 0, len(biomarkers))
	for _, b := range biomarkers {
		rr := b.ReferenceRange
		inputs = append(inputs, BiomarkerInput{
			ID:             b.ID,
			Name:           b.Name,
			Value:          b.Value,
			Unit:           b.Unit,
			Status:         b.Status,
			Category:       b.Category,
			ReferenceRange: &rr,
		})
	}
	return PatientArgs{
		PatientID:   p.ID,
		PatientName: p.Name,
		Age:         p.Age(now),
		Biomarkers:  inputs,
	}
}

type ToolRequest struct {
	ToolName string      `json:"toolName"`
	Args     PatientArgs `json:"args"`
}

type ToolResponse struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type BiomarkerAnalysis struct {
	BiomarkerID     string        `json:"biomarkerId"`
	Name            string        `json:"name"`
	Value           float64       `json:"value"`
	Status          domain.Status `json:"status"`
	RiskLevel       string        `json:"riskLevel"`
	Explanation     string        `json:"explanation"`
	Recommendations []string      `json:"recommendations"`
}

type MonitoringPriority struct {
	BiomarkerID string   `json:"biomarkerId"`
	Name        string   `json:"name"`
	Priority    string   `json:"priority"`
	Reason      string   `json:"reason"`
	ActionItems []string `json:"actionItems"`
}

type HealthSummary struct {
	PatientID            string   `json:"patientId"`
	PatientName          string   `json:"patientName"`
	OverallRiskLevel     string   `json:"overallRiskLevel"`
	KeyFindings          []string `json:"keyFindings"`
	ConcerningBiomarkers []string `json:"concerningBiomarkers"`
	Recommendations      []string `json:"recommendations"`
	NextSteps            []string `json:"nextSteps"`
}

// Comprehensive holds the raw result of each tool for one patient.
type Comprehensive struct {
	AnalyzeBiomarkers           json.RawMessage `json:"analyzeBiomarkers"`
	SuggestMonitoringPriorities json.RawMessage `json:"suggestMonitoringPriorities"`
	GenerateHealthSummary       json.RawMessage `json:"generateHealthSummary"`
}
