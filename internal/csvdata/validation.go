package csvdata

import (
	"fmt"
	"strings"
)

// Error types block the pipeline. Parse never rejects a row, so
// ErrorMalformedRow is only produced by callers with a stricter reader.
const (
	ErrorEmptyCSV      = "empty_csv"
	ErrorMissingColumn = "missing_column"
	ErrorMalformedRow  = "malformed_row"
	ErrorMissingValue  = "missing_value"
)

// Warning types are informational.
const (
	WarningColumnCasing    = "column_casing"
	WarningExtraColumn     = "extra_column"
	WarningPaddedRow       = "padded_row"
	WarningEmptyResponse   = "empty_response"
	WarningUnknownResponse = "unknown_response"
	WarningRowErrorLimit   = "row_error_limit"
)

// DefaultMaxRowErrors caps row-level error collection.
const DefaultMaxRowErrors = 50

// Issue is a single validation error or warning.
type Issue struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Row     int    `json:"row,omitempty"`
	Column  string `json:"column,omitempty"`
}

// Result is the outcome of validating one CSV file.
type Result struct {
	Valid         bool          `json:"valid"`
	Errors        []Issue       `json:"errors"`
	Warnings      []Issue       `json:"warnings"`
	ColumnMapping ColumnMapping `json:"columnMapping"`
}

// Options tunes validation.
type Options struct {
	MaxRowErrors int
}

var validResponses = map[string]struct{}{
	"yes": {},
	"no":  {},
}

// ValidateTable validates a parsed table, including the width problems the
// parser recorded.
func ValidateTable(t *Table, opts Options) Result {
	if t == nil {
		return ValidateSchema(nil, nil, opts)
	}
	res := ValidateSchema(t.Headers, t.Rows, opts)
	if !res.Valid {
		return res
	}
	for _, rr := range t.Ragged {
		switch {
		case rr.Got > rr.Expected:
			res.Warnings = append(res.Warnings, Issue{
				Type:    WarningExtraColumn,
				Message: fmt.Sprintf("Row %d: %d values for %d columns; extra values were dropped.", rr.Line+1, rr.Got, rr.Expected),
				Row:     rr.Line + 1,
			})
		case rr.Got < rr.Expected:
			res.Warnings = append(res.Warnings, Issue{
				Type:    WarningPaddedRow,
				Message: fmt.Sprintf("Row %d: %d values for %d columns; missing values were treated as empty.", rr.Line+1, rr.Got, rr.Expected),
				Row:     rr.Line + 1,
			})
		}
	}
	return res
}

// ValidateSchema checks headers, required cell values and the response domain.
// When headers is nil the keys of the first row are used.
func ValidateSchema(headers []string, rows []Row, opts Options) Result {
	res := Result{
		Errors:        []Issue{},
		Warnings:      []Issue{},
		ColumnMapping: ColumnMapping{},
	}
	maxRowErrors := opts.MaxRowErrors
	if maxRowErrors <= 0 {
		maxRowErrors = DefaultMaxRowErrors
	}

	if len(rows) == 0 {
		res.Errors = append(res.Errors, Issue{Type: ErrorEmptyCSV, Message: "CSV file is empty or contains no data rows."})
		return res
	}

	if headers == nil {
		headers = make([]string, 0, len(rows[0]))
		for h := range rows[0] {
			headers = append(headers, h)
		}
	}

	for _, logical := range RequiredColumns {
		header, exact, ok := resolveColumn(headers, logical)
		if !ok {
			res.Errors = append(res.Errors, Issue{
				Type: ErrorMissingColumn,
				Message: fmt.Sprintf("Required column %q (expected one of: %s) was not found in the CSV headers.",
					logical, strings.Join(SupportedColumnNames[logical], ", ")),
				Column: logical,
			})
			continue
		}
		res.ColumnMapping[logical] = header
		if !exact {
			res.Warnings = append(res.Warnings, Issue{
				Type:    WarningColumnCasing,
				Message: fmt.Sprintf("Column %q matched logical column %q via case-insensitive fallback.", header, logical),
				Column:  header,
			})
		}
	}

	for _, logical := range OptionalColumns {
		if header, _, ok := resolveColumn(headers, logical); ok {
			res.ColumnMapping[logical] = header
		}
	}

	if len(res.Errors) > 0 {
		return res
	}

	themeCol := res.ColumnMapping[ColTheme]
	indicatorCodeCol := res.ColumnMapping[ColIndicatorCode]
	questionCodeCol := res.ColumnMapping[ColIndicatorQuestionCode]
	responseCol := res.ColumnMapping[ColResponse]

	rowErrors := 0
	for i, row := range rows {
		if rowErrors >= maxRowErrors {
			res.Warnings = append(res.Warnings, Issue{
				Type:    WarningRowErrorLimit,
				Message: fmt.Sprintf("Row-level validation stopped after %d errors. Additional rows may also have issues.", maxRowErrors),
			})
			break
		}

		rowNum := i + 2
		required := []struct {
			col   string
			label string
		}{
			{themeCol, "Theme"},
			{indicatorCodeCol, "Indicator Code"},
			{questionCodeCol, "Indicator Question Code"},
		}
		for _, r := range required {
			if strings.TrimSpace(row[r.col]) != "" {
				continue
			}
			res.Errors = append(res.Errors, Issue{
				Type:    ErrorMissingValue,
				Message: fmt.Sprintf("Row %d: Missing required %q value.", rowNum, r.label),
				Row:     rowNum,
				Column:  r.col,
			})
			rowErrors++
		}

		response := NormalizeResponse(row[responseCol])
		if response == "" {
			res.Warnings = append(res.Warnings, Issue{
				Type:    WarningEmptyResponse,
				Message: fmt.Sprintf("Row %d: Empty response, will be treated as a gap.", rowNum),
				Row:     rowNum,
				Column:  responseCol,
			})
		} else if _, ok := validResponses[response]; !ok {
			res.Warnings = append(res.Warnings, Issue{
				Type:    WarningUnknownResponse,
				Message: fmt.Sprintf("Row %d: Unexpected response value %q, will be treated as a gap.", rowNum, strings.TrimSpace(row[responseCol])),
				Row:     rowNum,
				Column:  responseCol,
			})
		}
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// ValidationError is returned when a file fails schema validation. It carries
// the full result for callers that want to surface every issue.
type ValidationError struct {
	Label  string
	Result Result
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Result.Errors))
	for _, issue := range e.Result.Errors {
		msgs = append(msgs, issue.Message)
	}
	return fmt.Sprintf("%s failed validation with %d error(s):\n%s", e.Label, len(e.Result.Errors), strings.Join(msgs, "\n"))
}

// WarningLogger receives warnings from AssertValid.
type WarningLogger interface {
	Warn(msg string, fields map[string]any)
}

// AssertValid validates t and returns a *ValidationError when it is invalid.
// Warnings on a valid file are passed to log when it is non-nil.
func AssertValid(t *Table, label string, opts Options, log WarningLogger) (Result, error) {
	if label == "" {
		label = "CSV"
	}
	res := ValidateTable(t, opts)
	if !res.Valid {
		return res, &ValidationError{Label: label, Result: res}
	}
	if len(res.Warnings) > 0 && log != nil {
		msgs := make([]string, 0, len(res.Warnings))
		for _, w := range res.Warnings {
			msgs = append(msgs, w.Message)
		}
		log.Warn("csv.validation.warnings", map[string]any{
			"label":         label,
			"warning_count": len(res.Warnings),
			"warnings":      msgs,
		})
	}
	return res, nil
}
