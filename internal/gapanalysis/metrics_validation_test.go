package gapanalysis

import (
	"math"
	"testing"
)

func validResult() Result {
	themes := []Theme{{
		Name:           "Climate Change",
		GapCount:       1,
		TotalQuestions: 2,
		Percentage:     50,
		Indicators: []Indicator{{
			ID: "CC01", GapCount: 1, TotalQuestions: 2, Percentage: 50,
		}},
	}}
	overall := Overall{
		GapAnalysis:    GapSummary{GapCount: 1, TotalIndicators: 1, TotalQuestionCodes: 2},
		AnalyzedThemes: ThemeSummary{AnalyzedThemeCount: 1},
	}
	return Result{
		OverallData:   &overall,
		DimensionData: AggregateDimensions(themes, nil),
		ThemeData:     themes,
	}
}

func findIssue(m MetricsValidation, field string) (MetricsIssue, bool) {
	for _, issue := range m.Issues {
		if issue.Field == field {
			return issue, true
		}
	}
	return MetricsIssue{}, false
}

func TestValidateMetricsClean(t *testing.T) {
	t.Parallel()

	got := ValidateMetrics(validResult())
	if !got.Valid || len(got.Issues) != 0 {
		t.Fatalf("expected clean result, got %+v", got)
	}
}

func TestValidateMetricsFindings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(r *Result)
		field     string
		severity  string
		message   string
		wantValid bool
	}{
		{
			name:     "non-finite percentage",
			mutate:   func(r *Result) { r.ThemeData[0].Percentage = math.NaN() },
			field:    "themeData[0].percentage",
			severity: SeverityError,
			message:  "Expected a finite number but got NaN.",
		},
		{
			name:      "percentage out of range",
			mutate:    func(r *Result) { r.ThemeData[0].Indicators[0].Percentage = 150 },
			field:     "themeData[0].indicators[0].percentage",
			severity:  SeverityWarning,
			message:   "Percentage 150% is outside the 0-100 range.",
			wantValid: true,
		},
		{
			name:     "negative overall gap count",
			mutate:   func(r *Result) { r.OverallData.GapAnalysis.GapCount = -1 },
			field:    "overallData.gapAnalysis.gapCount",
			severity: SeverityError,
			message:  "gapCount is invalid: -1",
		},
		{
			name:      "overall sum mismatch",
			mutate:    func(r *Result) { r.OverallData.GapAnalysis.GapCount = 3 },
			field:     "overallData.gapAnalysis.gapCount",
			severity:  SeverityWarning,
			message:   "Overall gapCount (3) does not match sum of theme gapCounts (1).",
			wantValid: true,
		},
		{
			name:     "missing overall",
			mutate:   func(r *Result) { r.OverallData = nil },
			field:    "overallData",
			severity: SeverityError,
			message:  "Overall data is missing.",
		},
		{
			name:     "blank theme name",
			mutate:   func(r *Result) { r.ThemeData[0].Name = " " },
			field:    "themeData[0].name",
			severity: SeverityError,
			message:  "Theme name is empty.",
		},
		{
			name:      "theme count mismatch",
			mutate:    func(r *Result) { r.OverallData.AnalyzedThemes.AnalyzedThemeCount = 4 },
			field:     "overallData.analyzedThemes.analyzedThemeCount",
			severity:  SeverityWarning,
			message:   "analyzedThemeCount (4) does not match themeData length (1).",
			wantValid: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := validResult()
			tt.mutate(&r)
			got := ValidateMetrics(r)
			issue, ok := findIssue(got, tt.field)
			if !ok {
				t.Fatalf("no issue for %s in %+v", tt.field, got.Issues)
			}
			if issue.Severity != tt.severity || issue.Message != tt.message {
				t.Fatalf("issue = %+v, want %s %q", issue, tt.severity, tt.message)
			}
			if got.Valid != tt.wantValid {
				t.Fatalf("Valid = %v, want %v", got.Valid, tt.wantValid)
			}
		})
	}
}

func TestValidateMetricsEmptyArraysWarn(t *testing.T) {
	t.Parallel()

	overall := Overall{}
	got := ValidateMetrics(Result{OverallData: &overall})
	if !got.Valid {
		t.Fatalf("empty arrays are warnings only: %+v", got)
	}
	if _, ok := findIssue(got, "themeData"); !ok {
		t.Fatalf("expected themeData warning")
	}
	if _, ok := findIssue(got, "dimensionData"); !ok {
		t.Fatalf("expected dimensionData warning")
	}
	if len(got.Errors()) != 0 {
		t.Fatalf("expected no errors, got %+v", got.Errors())
	}
}
