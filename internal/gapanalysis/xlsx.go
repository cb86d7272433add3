package gapanalysis

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	sheetOverview  = "Overview"
	sheetThemes    = "Themes"
	sheetQuestions = "Questions"
)

// WriteXLSX renders a result as a workbook with overview, theme and question
// sheets.
func WriteXLSX(w io.Writer, r Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetOverview); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{sheetThemes, sheetQuestions} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	overview := [][]any{
		{"Metric", "Gap Count", "Total", "Percentage"},
	}
	if r.OverallData != nil {
		gap := r.OverallData.GapAnalysis
		overview = append(overview,
			[]any{gap.Description, gap.GapCount, gap.TotalQuestionCodes, percentage(gap.GapCount, gap.TotalQuestionCodes)},
			[]any{"Indicators", "", gap.TotalIndicators, ""},
			[]any{r.OverallData.AnalyzedThemes.Description, "", r.OverallData.AnalyzedThemes.AnalyzedThemeCount, ""},
		)
	}
	overview = append(overview, []any{})
	overview = append(overview, []any{"Dimension", "Gap Count", "Total Questions", "Percentage"})
	dimHeaderRow := len(overview)
	for _, d := range r.DimensionData {
		overview = append(overview, []any{d.Name, d.GapCount, d.TotalQuestions, d.Percentage})
	}
	if err := writeRows(f, sheetOverview, overview); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheetOverview, 1, 1, bold); err != nil {
		return fmt.Errorf("style overview: %w", err)
	}
	if err := f.SetRowStyle(sheetOverview, dimHeaderRow, dimHeaderRow, bold); err != nil {
		return fmt.Errorf("style overview: %w", err)
	}

	themes := [][]any{
		{"Theme", "Indicator Code", "Indicator", "Indicator Type", "Gap Count", "Total Questions", "Percentage"},
	}
	for _, t := range r.ThemeData {
		themes = append(themes, []any{t.Name, "", "", "", t.GapCount, t.TotalQuestions, t.Percentage})
		for _, ind := range t.Indicators {
			themes = append(themes, []any{t.Name, ind.ID, ind.Name, ind.Description, ind.GapCount, ind.TotalQuestions, ind.Percentage})
		}
	}
	if err := writeRows(f, sheetThemes, themes); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheetThemes, 1, 1, bold); err != nil {
		return fmt.Errorf("style themes: %w", err)
	}

	questions := [][]any{
		{"Theme", "Indicator Code", "Question Code", "Question", "Gap", "Sources", "Source Files", "Pages"},
	}
	for _, t := range r.ThemeData {
		for _, ind := range t.Indicators {
			for _, q := range ind.QuestionCodes {
				files := make([]string, 0, len(q.Source))
				pages := make([]string, 0, len(q.Source))
				for _, s := range q.Source {
					files = append(files, s.SourceFile)
					pages = append(pages, fmt.Sprint(s.PageNumber))
				}
				gap := "No"
				if q.HasGap {
					gap = "Yes"
				}
				questions = append(questions, []any{
					t.Name, ind.ID, q.Code, q.Question, gap, len(q.Source),
					strings.Join(files, "; "), strings.Join(pages, "; "),
				})
			}
		}
	}
	if err := writeRows(f, sheetQuestions, questions); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheetQuestions, 1, 1, bold); err != nil {
		return fmt.Errorf("style questions: %w", err)
	}
	if err := f.SetColWidth(sheetQuestions, "D", "D", 60); err != nil {
		return fmt.Errorf("column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
