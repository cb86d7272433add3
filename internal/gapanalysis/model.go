package gapanalysis

import "math"

// Source is evidence that a question was answered.
type Source struct {
	ID         string `json:"id"`
	SourceText string `json:"source_text"`
	PageNumber int    `json:"page_number"`
	SourceFile string `json:"source_file"`
}

// Question is one answerable item under an indicator. A question with a gap
// never carries sources.
type Question struct {
	Code     string   `json:"code"`
	Question string   `json:"question"`
	HasGap   bool     `json:"hasGap"`
	Source   []Source `json:"source"`
}

// Indicator groups the questions for one indicator code within a theme.
type Indicator struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	QuestionCodes  []Question `json:"questionCodes"`
	GapCount       int        `json:"gapCount"`
	TotalQuestions int        `json:"totalQuestions"`
	Percentage     float64    `json:"percentage"`
}

// Theme rolls up its indicators. TotalQuestions is the gap-rate denominator
// and is serialized as totalGaps.
type Theme struct {
	Name           string      `json:"name"`
	Indicators     []Indicator `json:"indicators"`
	GapCount       int         `json:"gapCount"`
	TotalQuestions int         `json:"totalGaps"`
	Percentage     float64     `json:"percentage"`
}

// Dimension is one of Environmental, Social or Governance.
type Dimension struct {
	Name           string  `json:"name"`
	GapCount       int     `json:"gapCount"`
	TotalQuestions int     `json:"totalGaps"`
	Percentage     float64 `json:"percentage"`
}

// GapSummary is the top-level gap block.
type GapSummary struct {
	GapCount           int    `json:"gapCount"`
	TotalIndicators    int    `json:"totalIndicators"`
	TotalQuestionCodes int    `json:"totalQuestionCodes"`
	Description        string `json:"description"`
}

// ThemeSummary describes how many themes were analyzed.
type ThemeSummary struct {
	AnalyzedThemeCount int    `json:"analyzedThemeCount"`
	Description        string `json:"description"`
	Icon               string `json:"icon"`
}

// Overall holds report-wide totals.
type Overall struct {
	GapAnalysis    GapSummary   `json:"gapAnalysis"`
	AnalyzedThemes ThemeSummary `json:"analyzedThemes"`
}

// Result is the complete gap-analysis output.
type Result struct {
	OverallData   *Overall    `json:"overallData"`
	DimensionData []Dimension `json:"dimensionData"`
	ThemeData     []Theme     `json:"themeData"`
}

// percentage returns round(100*num/den), or 0 when den is 0.
func percentage(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return math.Round(100 * float64(num) / float64(den))
}
