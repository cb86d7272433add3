package csvdata

import "strings"

// Logical column names used by the gap pipeline.
const (
	ColCompany               = "company"
	ColTheme                 = "theme"
	ColIndicatorCode         = "indicatorCode"
	ColIndicatorType         = "indicatorType"
	ColIndicator             = "indicator"
	ColIndicatorQuestionCode = "indicatorQuestionCode"
	ColIndicatorQuestion     = "indicatorQuestion"
	ColApplicabilityFlag     = "applicabilityFlag"
	ColResponse              = "response"
	ColSourceText            = "sourceText"
	ColPageNumber            = "pageNumber"
	ColSourceFile            = "sourceFile"
)

// SupportedColumnNames lists the accepted header spellings per logical column,
// in match priority order.
var SupportedColumnNames = map[string][]string{
	ColCompany:               {"Company", "company"},
	ColTheme:                 {"Theme", "theme"},
	ColIndicatorCode:         {"Indicator Code", "indicator_code"},
	ColIndicatorType:         {"Indicator Type", "indicator_type"},
	ColIndicator:             {"Indicator", "indicator"},
	ColIndicatorQuestionCode: {"Indicator Question Code", "indicator_question_code"},
	ColIndicatorQuestion:     {"Indicator Question", "indicator_question"},
	ColApplicabilityFlag:     {"Applicability Flag", "applicability_flag"},
	ColResponse:              {"Response", "response"},
	ColSourceText:            {"Source Text", "source_text"},
	ColPageNumber:            {"PageNumber", "page_number", "Page Number"},
	ColSourceFile:            {"Source_File", "source_file", "Source File"},
}

// RequiredColumns must resolve for a file to be usable.
var RequiredColumns = []string{
	ColTheme,
	ColIndicatorCode,
	ColIndicator,
	ColIndicatorQuestionCode,
	ColIndicatorQuestion,
	ColResponse,
}

// OptionalColumns enrich source attribution when present.
var OptionalColumns = []string{
	ColCompany,
	ColIndicatorType,
	ColApplicabilityFlag,
	ColSourceText,
	ColPageNumber,
	ColSourceFile,
}

// ColumnMapping maps logical column names to the headers found in a file.
type ColumnMapping map[string]string

// DefaultMapping resolves every logical column to its canonical header. It is
// used when rows come from a source that already uses canonical names.
func DefaultMapping() ColumnMapping {
	m := make(ColumnMapping, len(SupportedColumnNames))
	for logical, names := range SupportedColumnNames {
		m[logical] = names[0]
	}
	return m
}

// resolveColumn finds the header for a logical column. exact reports whether
// the match was an exact alias match rather than the case-insensitive fallback.
func resolveColumn(headers []string, logical string) (header string, exact bool, ok bool) {
	candidates := SupportedColumnNames[logical]
	if len(candidates) == 0 {
		return "", false, false
	}

	present := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		present[h] = struct{}{}
	}
	for _, candidate := range candidates {
		if _, found := present[candidate]; found {
			return candidate, true, true
		}
	}

	for _, candidate := range candidates {
		want := strings.ToLower(candidate)
		for _, h := range headers {
			if strings.ToLower(strings.TrimSpace(h)) == want {
				return h, false, true
			}
		}
	}
	return "", false, false
}

// Record is a row after its columns were resolved by the schema validator.
type Record struct {
	Company           string
	Theme             string
	IndicatorCode     string
	IndicatorType     string
	Indicator         string
	QuestionCode      string
	Question          string
	ApplicabilityFlag string
	Response          string
	SourceText        string
	PageNumber        string
	SourceFile        string
}

// Records converts rows into typed records using a resolved mapping. Columns
// absent from the mapping read as empty strings.
func Records(rows []Row, mapping ColumnMapping) []Record {
	get := func(row Row, logical string) string {
		header, ok := mapping[logical]
		if !ok {
			return ""
		}
		return row[header]
	}

	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, Record{
			Company:           get(row, ColCompany),
			Theme:             get(row, ColTheme),
			IndicatorCode:     get(row, ColIndicatorCode),
			IndicatorType:     get(row, ColIndicatorType),
			Indicator:         get(row, ColIndicator),
			QuestionCode:      get(row, ColIndicatorQuestionCode),
			Question:          get(row, ColIndicatorQuestion),
			ApplicabilityFlag: get(row, ColApplicabilityFlag),
			Response:          get(row, ColResponse),
			SourceText:        get(row, ColSourceText),
			PageNumber:        get(row, ColPageNumber),
			SourceFile:        get(row, ColSourceFile),
		})
	}
	return out
}

// NormalizeResponse trims and lower-cases a response cell.
func NormalizeResponse(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
