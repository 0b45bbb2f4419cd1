package analysis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/pscheid92/biomarkerpulse/internal/domain"
)

const (
	riskLow      = "low"
	riskModerate = "moderate"
	riskHigh     = "high"

	// More abnormal biomarkers than this make the overall risk high.
	highRiskAbnormalCount = 3
)

var ErrUnknownTool = errors.New("unknown tool")

// Runner answers a single tool call.
type Runner interface {
	Run(ctx context.Context, toolName string, args PatientArgs) (any, error)
}

// RuleAnalyzer produces analyses from biomarker status alone.
type RuleAnalyzer struct{}

var _ Runner = RuleAnalyzer{}

func (a RuleAnalyzer) Run(_ context.Context, toolName string, args PatientArgs) (any, error) {
	switch toolName {
	case ToolAnalyzeBiomarkers:
		return a.AnalyzeBiomarkers(args), nil
	case ToolSuggestMonitoringPriorities:
		return a.SuggestMonitoringPriorities(args), nil
	case ToolGenerateHealthSummary:
		return a.GenerateHealthSummary(args), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, toolName)
	}
}

func (RuleAnalyzer) AnalyzeBiomarkers(args PatientArgs) []BiomarkerAnalysis {
	out := make([]BiomarkerAnalysis, 0, len(args.Biomarkers))
	for _, bm := range args.Biomarkers {
		risk := riskModerate
		recommendation := fmt.Sprintf("Consider discussing %s with your healthcare provider", bm.Name)
		if bm.Status == domain.StatusNormal {
			risk = riskLow
			recommendation = fmt.Sprintf("Continue monitoring %s regularly", bm.Name)
		}

		out = append(out, BiomarkerAnalysis{
			BiomarkerID:     bm.ID,
			Name:            bm.Name,
			Value:           bm.Value,
			Status:          bm.Status,
			RiskLevel:       risk,
			Explanation:     fmt.Sprintf("%s is currently %s. Reference range: %s %s", bm.Name, bm.Status, formatRange(bm.ReferenceRange), bm.Unit),
			Recommendations: []string{recommendation},
		})
	}
	return out
}

// SuggestMonitoringPriorities lists only the abnormal biomarkers.
func (RuleAnalyzer) SuggestMonitoringPriorities(args PatientArgs) []MonitoringPriority {
	out := make([]MonitoringPriority, 0)
	for _, bm := range abnormal(args.Biomarkers) {
		out = append(out, MonitoringPriority{
			BiomarkerID: bm.ID,
			Name:        bm.Name,
			Priority:    riskHigh,
			Reason:      fmt.Sprintf("%s is %s and requires attention", bm.Name, bm.Status),
			ActionItems: []string{
				fmt.Sprintf("Monitor %s weekly", bm.Name),
				"Schedule follow-up appointment if not improving",
			},
		})
	}
	return out
}

func (RuleAnalyzer) GenerateHealthSummary(args PatientArgs) HealthSummary {
	flagged := abnormal(args.Biomarkers)

	risk := riskLow
	switch {
	case len(flagged) > highRiskAbnormalCount:
		risk = riskHigh
	case len(flagged) > 0:
		risk = riskModerate
	}

	gender := args.Gender
	if gender == "" {
		gender = "Unknown"
	}

	names := make([]string, 0, len(flagged))
	for _, bm := range flagged {
		names = append(names, bm.Name)
	}

	return HealthSummary{
		PatientID:        args.PatientID,
		PatientName:      args.PatientName,
		OverallRiskLevel: risk,
		KeyFindings: []string{
			fmt.Sprintf("Patient has %d abnormal biomarkers", len(flagged)),
			fmt.Sprintf("Age: %d, Gender: %s", args.Age, gender),
		},
		ConcerningBiomarkers: names,
		Recommendations: []string{
			"Regular monitoring recommended",
			"Discuss results with healthcare provider",
		},
		NextSteps: []string{
			"Schedule follow-up appointment",
			"Consider lifestyle modifications if appropriate",
		},
	}
}

func abnormal(biomarkers []BiomarkerInput) []BiomarkerInput {
	var out []BiomarkerInput
	for _, bm := range biomarkers {
		if bm.Status != domain.StatusNormal {
			out = append(out, bm)
		}
	}
	return out
}

func formatRange(r *domain.ReferenceRange) string {
	if r == nil {
		return "unknown"
	}
	return strconv.FormatFloat(r.Min, 'f', -1, 64) + "-" + strconv.FormatFloat(r.Max, 'f', -1, 64)
}
