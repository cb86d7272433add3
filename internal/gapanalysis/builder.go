package gapanalysis

import (
	"strings"

	"esg-gap-backend/internal/csvdata"
)

// UnknownTheme is used for rows without a theme.
const UnknownTheme = "Unknown Theme"

// Builder constructs the theme, indicator and question hierarchy.
type Builder struct {
	// NewID generates source citation ids. Defaults to NewSourceID.
	NewID func() string
}

// NewBuilder returns a Builder with default id generation.
func NewBuilder() *Builder {
	return &Builder{NewID: NewSourceID}
}

// Build runs dual-file mode: answered questions take sources from the detailed
// records first and fall back to the merged row's inline source.
func (b *Builder) Build(merged, detailed []csvdata.Record) []Theme {
	strategies := []SourceStrategy{NewDetailedIndex(detailed), InlineSource{}}
	return b.build(merged, strategies)
}

// BuildSingle runs single-file mode with inline sources only.
func (b *Builder) BuildSingle(rows []csvdata.Record) []Theme {
	return b.build(rows, []SourceStrategy{InlineSource{}})
}

// BuildWith lets callers supply their own strategy chain.
func (b *Builder) BuildWith(rows []csvdata.Record, strategies []SourceStrategy) []Theme {
	return b.build(rows, strategies)
}

type themeAcc struct {
	theme      Theme
	indicators map[string]int
}

func (b *Builder) build(rows []csvdata.Record, strategies []SourceStrategy) []Theme {
	newID := b.NewID
	if newID == nil {
		newID = NewSourceID
	}

	var order []*themeAcc
	byName := make(map[string]*themeAcc)

	for _, rec := range rows {
		name := strings.TrimSpace(rec.Theme)
		if name == "" {
			name = UnknownTheme
		}
		acc, ok := byName[name]
		if !ok {
			acc = &themeAcc{
				theme:      Theme{Name: name, Indicators: []Indicator{}},
				indicators: make(map[string]int),
			}
			byName[name] = acc
			order = append(order, acc)
		}

		idx, ok := acc.indicators[rec.IndicatorCode]
		if !ok {
			acc.theme.Indicators = append(acc.theme.Indicators, Indicator{
				ID:            rec.IndicatorCode,
				Name:          rec.Indicator,
				Description:   rec.IndicatorType,
				QuestionCodes: []Question{},
			})
			idx = len(acc.theme.Indicators) - 1
			acc.indicators[rec.IndicatorCode] = idx
		}
		ind := &acc.theme.Indicators[idx]

		hasGap := csvdata.NormalizeResponse(rec.Response) != "yes"
		sources := []Source{}
		if !hasGap {
			sources = resolveSources(strategies, rec, newID)
		}

		ind.QuestionCodes = append(ind.QuestionCodes, Question{
			Code:     rec.QuestionCode,
			Question: rec.Question,
			HasGap:   hasGap,
			Source:   sources,
		})
		ind.TotalQuestions++
		if hasGap {
			ind.GapCount++
		}
	}

	themes := make([]Theme, 0, len(order))
	for _, acc := range order {
		t := acc.theme
		for i := range t.Indicators {
			ind := &t.Indicators[i]
			ind.Percentage = percentage(ind.GapCount, ind.TotalQuestions)
			t.GapCount += ind.GapCount
			t.TotalQuestions += ind.TotalQuestions
		}
		t.Percentage = percentage(t.GapCount, t.TotalQuestions)
		themes = append(themes, t)
	}
	return themes
}
