package gapanalysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Issue severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// MetricsIssue is one finding of ValidateMetrics.
type MetricsIssue struct {
	Severity string `json:"severity"`
	Field    string `json:"field"`
	Message  string `json:"message"`
}

// MetricsValidation is valid when no error-severity issues were found.
type MetricsValidation struct {
	Valid  bool           `json:"valid"`
	Issues []MetricsIssue `json:"issues"`
}

// Errors returns the error-severity issues.
func (m MetricsValidation) Errors() []MetricsIssue {
	var out []MetricsIssue
	for _, issue := range m.Issues {
		if issue.Severity == SeverityError {
			out = append(out, issue)
		}
	}
	return out
}

type issueList []MetricsIssue

func (l *issueList) errorf(field, format string, args ...any) {
	*l = append(*l, MetricsIssue{Severity: SeverityError, Field: field, Message: fmt.Sprintf(format, args...)})
}

func (l *issueList) warnf(field, format string, args ...any) {
	*l = append(*l, MetricsIssue{Severity: SeverityWarning, Field: field, Message: fmt.Sprintf(format, args...)})
}

func (l *issueList) percentage(value float64, field string) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		l.errorf(field, "Expected a finite number but got %s.", formatNumber(value))
		return
	}
	if value < 0 || value > 100 {
		l.warnf(field, "Percentage %s%% is outside the 0-100 range.", formatNumber(value))
	}
}

// ValidateMetrics checks a computed result for numeric integrity and
// cross-level consistency. It never modifies r.
func ValidateMetrics(r Result) MetricsValidation {
	var issues issueList

	if r.OverallData == nil {
		issues.errorf("overallData", "Overall data is missing.")
	} else {
		gap := r.OverallData.GapAnalysis
		if gap.GapCount < 0 {
			issues.errorf("overallData.gapAnalysis.gapCount", "gapCount is invalid: %d", gap.GapCount)
		}
		if gap.TotalIndicators < 0 {
			issues.errorf("overallData.gapAnalysis.totalIndicators", "totalIndicators is invalid: %d", gap.TotalIndicators)
		}
		if gap.TotalQuestionCodes < 0 {
			issues.errorf("overallData.gapAnalysis.totalQuestionCodes", "totalQuestionCodes is invalid: %d", gap.TotalQuestionCodes)
		}
		if n := r.OverallData.AnalyzedThemes.AnalyzedThemeCount; n < 0 {
			issues.errorf("overallData.analyzedThemes.analyzedThemeCount", "analyzedThemeCount is invalid: %d", n)
		}
	}

	if len(r.ThemeData) == 0 {
		issues.warnf("themeData", "Theme data array is empty.")
	}
	for ti, theme := range r.ThemeData {
		prefix := fmt.Sprintf("themeData[%d]", ti)
		if strings.TrimSpace(theme.Name) == "" {
			issues.errorf(prefix+".name", "Theme name is empty.")
		}
		issues.percentage(theme.Percentage, prefix+".percentage")
		if theme.GapCount < 0 {
			issues.errorf(prefix+".gapCount", "Invalid gapCount: %d", theme.GapCount)
		}
		if theme.TotalQuestions < 0 {
			issues.errorf(prefix+".totalGaps", "Invalid totalGaps: %d", theme.TotalQuestions)
		}
		if theme.GapCount > theme.TotalQuestions {
			issues.warnf(prefix, "gapCount (%d) exceeds totalGaps (%d).", theme.GapCount, theme.TotalQuestions)
		}

		for ii, ind := range theme.Indicators {
			iPrefix := fmt.Sprintf("%s.indicators[%d]", prefix, ii)
			if strings.TrimSpace(ind.ID) == "" {
				issues.errorf(iPrefix+".id", "Indicator id is empty.")
			}
			issues.percentage(ind.Percentage, iPrefix+".percentage")
			if ind.GapCount < 0 || ind.TotalQuestions < 0 {
				issues.errorf(iPrefix, "Indicator counts are negative: gapCount=%d totalQuestions=%d", ind.GapCount, ind.TotalQuestions)
			}
			if ind.GapCount > ind.TotalQuestions {
				issues.warnf(iPrefix, "Indicator gapCount (%d) exceeds totalQuestions (%d).", ind.GapCount, ind.TotalQuestions)
			}
		}
	}

	if len(r.DimensionData) == 0 {
		issues.warnf("dimensionData", "Dimension data array is empty.")
	}
	for di, dim := range r.DimensionData {
		prefix := fmt.Sprintf("dimensionData[%d]", di)
		if strings.TrimSpace(dim.Name) == "" {
			issues.errorf(prefix+".name", "Dimension name is empty.")
		}
		issues.percentage(dim.Percentage, prefix+".percentage")
		if dim.GapCount < 0 || dim.TotalQuestions < 0 {
			issues.errorf(prefix, "Dimension counts are negative: gapCount=%d totalGaps=%d", dim.GapCount, dim.TotalQuestions)
		}
		if dim.GapCount > dim.TotalQuestions {
			issues.warnf(prefix, "gapCount (%d) exceeds totalGaps (%d).", dim.GapCount, dim.TotalQuestions)
		}
	}

	if r.OverallData != nil && len(r.ThemeData) > 0 {
		summed := 0
		for _, theme := range r.ThemeData {
			summed += theme.GapCount
		}
		overall := r.OverallData.GapAnalysis.GapCount
		if summed != overall {
			issues.warnf("overallData.gapAnalysis.gapCount",
				"Overall gapCount (%d) does not match sum of theme gapCounts (%d).", overall, summed)
		}
		if n := r.OverallData.AnalyzedThemes.AnalyzedThemeCount; n != len(r.ThemeData) {
			issues.warnf("overallData.analyzedThemes.analyzedThemeCount",
				"analyzedThemeCount (%d) does not match themeData length (%d).", n, len(r.ThemeData))
		}
	}

	out := MetricsValidation{Valid: true, Issues: []MetricsIssue(issues)}
	if out.Issues == nil {
		out.Issues = []MetricsIssue{}
	}
	for _, issue := range out.Issues {
		if issue.Severity == SeverityError {
			out.Valid = false
			break
		}
	}
	return out
}

func formatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
