package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pscheid92/biomarkerpulse/internal/analysis"
	"github.com/pscheid92/biomarkerpulse/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cannedComprehensive() analysis.Comprehensive {
	return analysis.Comprehensive{
		AnalyzeBiomarkers:           json.RawMessage(`[{"biomarkerId":"b-2"}]`),
		SuggestMonitoringPriorities: json.RawMessage(`[]`),
		GenerateHealthSummary:       json.RawMessage(`{"overallRiskLevel":"moderate"}`),
	}
}

func TestHandleAnalyze(t *testing.T) {
	analyst := &fakeAnalyst{result: cannedComprehensive()}
	srv := newTestServer(t, withAnalyst(analyst))

	rec := do(t, srv, http.MethodPost, "/api/patients/p-1/analyze")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.JSONEq(t, `{
		"success": true,
		"data": {
			"patientId": "p-1",
			"patientName": "John Smith",
			"analysis": {
				"analyzeBiomarkers": [{"biomarkerId":"b-2"}],
				"suggestMonitoringPriorities": [],
				"generateHealthSummary": {"overallRiskLevel":"moderate"}
			}
		}
	}`, rec.Body.String())

	require.Equal(t, 1, analyst.callCount())
	assert.Equal(t, "p-1", analyst.lastArgs.PatientID)
	assert.Equal(t, "John Smith", analyst.lastArgs.PatientName)
	assert.Equal(t, 45, analyst.lastArgs.Age)
	assert.Len(t, analyst.lastArgs.Biomarkers, 3)
}

func TestHandleAnalyze_UnknownPatient(t *testing.T) {
	analyst := &fakeAnalyst{}
	rec := do(t, newTestServer(t, withAnalyst(analyst)), http.MethodPost, "/api/patients/nope/analyze")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Patient not found", decodeEnvelope(t, rec).Error)
	assert.Zero(t, analyst.callCount())
}

func TestHandleAnalyze_NoBiomarkers(t *testing.T) {
	analyst := &fakeAnalyst{}
	rec := do(t, newTestServer(t, withAnalyst(analyst)), http.MethodPost, "/api/patients/p-2/analyze")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Patient has no biomarkers to analyze"}`, rec.Body.String())
	assert.Zero(t, analyst.callCount())
}

func TestHandleAnalyze_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "tool failure",
			err:        &analysis.ToolError{Tool: analysis.ToolAnalyzeBiomarkers, StatusCode: 500, Message: "boom"},
			wantStatus: http.StatusBadGateway,
			wantError:  "Failed to analyze biomarkers",
		},
		{
			name:       "transport failure",
			err:        errors.New("connection refused"),
			wantStatus: http.StatusBadGateway,
			wantError:  "Failed to analyze biomarkers",
		},
		{
			name:       "circuit open",
			err:        fmt.Errorf("%w: open", analysis.ErrCircuitOpen),
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "Analysis service unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, withAnalyst(&fakeAnalyst{err: tt.err}))

			rec := do(t, srv, http.MethodPost, "/api/patients/p-1/analyze")

			assert.Equal(t, tt.wantStatus, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantError, env.Error)
		})
	}
}

func TestHandleAnalyze_RateLimitedPerClient(t *testing.T) {
	srv := newTestServer(t, withAnalyst(&fakeAnalyst{result: cannedComprehensive()}), func(d *testDeps) {
		d.cfg.AnalyzeRateLimit = 0.01
		d.cfg.AnalyzeBurst = 1
	})

	send := func(remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/patients/p-1/analyze", nil)
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("1.2.3.4:1000").Code)

	limited := send("1.2.3.4:1001")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "Too many analysis requests, please try again later", decodeEnvelope(t, limited).Error)

	assert.Equal(t, http.StatusOK, send("5.6.7.8:1000").Code)
}

func TestHandleAnalyze_ReadRoutesAreNotRateLimited(t *testing.T) {
	srv := newTestServer(t, func(d *testDeps) {
		d.cfg.AnalyzeRateLimit = 0.01
		d.cfg.AnalyzeBurst = 1
	})

	for range 5 {
		assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/patients").Code)
	}
}

func TestHandleAnalysisHealth(t *testing.T) {
	for _, healthy := range []bool{true, false} {
		t.Run(fmt.Sprintf("healthy=%v", healthy), func(t *testing.T) {
			srv := newTestServer(t, withAnalyst(&fakeAnalyst{healthy: healthy}))

			rec := do(t, srv, http.MethodGet, "/api/mcp/health")

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, fmt.Sprintf(`{"success":true,"mcpServiceHealthy":%v,"mcpServerUrl":"http://analysis.test"}`, healthy), rec.Body.String())
		})
	}
}

func TestHandleAnalyze_AgainstToolService(t *testing.T) {
	tools := httptest.NewServer(analysis.NewToolServer(analysis.RuleAnalyzer{}))
	t.Cleanup(tools.Close)

	srv := newTestServer(t, withAnalyst(analysis.NewClient(tools.URL, 5*time.Second)))

	rec := do(t, srv, http.MethodPost, "/api/patients/p-1/analyze")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		PatientID string `json:"patientId"`
		Analysis  struct {
			AnalyzeBiomarkers           []analysis.BiomarkerAnalysis  `json:"analyzeBiomarkers"`
			SuggestMonitoringPriorities []analysis.MonitoringPriority `json:"suggestMonitoringPriorities"`
			GenerateHealthSummary       analysis.HealthSummary        `json:"generateHealthSummary"`
		} `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &body))

	assert.Equal(t, "p-1", body.PatientID)
	assert.Len(t, body.Analysis.AnalyzeBiomarkers, 3)
	require.Len(t, body.Analysis.SuggestMonitoringPriorities, 1)
	assert.Equal(t, "Systolic BP", body.Analysis.SuggestMonitoringPriorities[0].Name)
	assert.Equal(t, "moderate", body.Analysis.GenerateHealthSummary.OverallRiskLevel)
	assert.Equal(t, []string{"Systolic BP"}, body.Analysis.GenerateHealthSummary.ConcerningBiomarkers)
	assert.Contains(t, body.Analysis.GenerateHealthSummary.KeyFindings, "Age: 45, Gender: Unknown")

	for _, a := range body.Analysis.AnalyzeBiomarkers {
		if a.Status == domain.StatusNormal {
			assert.Equal(t, "low", a.RiskLevel)
		}
	}
}
