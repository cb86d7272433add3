package gapanalysis

import (
	"strings"

	"esg-gap-backend/internal/csvdata"
)

const (
	overallGapDescription    = "Overall Gap Analysis"
	analyzedThemeDescription = "Analyzed Themes"
	analyzedThemeIcon        = "📊"
)

// AggregateOverall computes report-wide totals. rows is the row source the
// themes were built from.
func AggregateOverall(rows []csvdata.Record, themes []Theme) Overall {
	gapCount := 0
	for _, t := range themes {
		gapCount += t.GapCount
	}

	codes := make(map[string]struct{})
	for _, rec := range rows {
		code := strings.TrimSpace(rec.IndicatorCode)
		if code == "" {
			continue
		}
		codes[code] = struct{}{}
	}

	return Overall{
		GapAnalysis: GapSummary{
			GapCount:           gapCount,
			TotalIndicators:    len(codes),
			TotalQuestionCodes: len(rows),
			Description:        overallGapDescription,
		},
		AnalyzedThemes: ThemeSummary{
			AnalyzedThemeCount: len(themes),
			Description:        analyzedThemeDescription,
			Icon:               analyzedThemeIcon,
		},
	}
}
