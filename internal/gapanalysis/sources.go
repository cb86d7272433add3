package gapanalysis

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"esg-gap-backend/internal/csvdata"
)

// SourceStrategy produces evidence for an answered question. Strategies are
// tried in order and the first non-empty result wins.
type SourceStrategy interface {
	Name() string
	Sources(rec csvdata.Record, newID func() string) []Source
}

// DetailedIndex attaches every affirmative detailed row that shares the
// question code and question text, in detailed-file order.
type DetailedIndex struct {
	byQuestion map[string][]csvdata.Record
}

// NewDetailedIndex indexes detailed records whose response is "yes".
func NewDetailedIndex(detailed []csvdata.Record) *DetailedIndex {
	idx := &DetailedIndex{byQuestion: make(map[string][]csvdata.Record)}
	for _, rec := range detailed {
		if csvdata.NormalizeResponse(rec.Response) != "yes" {
			continue
		}
		key := questionKey(rec.QuestionCode, rec.Question)
		idx.byQuestion[key] = append(idx.byQuestion[key], rec)
	}
	return idx
}

func (d *DetailedIndex) Name() string { return "detailed" }

func (d *DetailedIndex) Sources(rec csvdata.Record, newID func() string) []Source {
	if d == nil {
		return nil
	}
	matches := d.byQuestion[questionKey(rec.QuestionCode, rec.Question)]
	if len(matches) == 0 {
		return nil
	}
	out := make([]Source, 0, len(matches))
	for _, m := range matches {
		out = append(out, Source{
			ID:         newID(),
			SourceText: m.SourceText,
			PageNumber: ParsePageNumber(m.PageNumber),
			SourceFile: m.SourceFile,
		})
	}
	return out
}

// InlineSource uses the row's own source columns when its source text is set.
type InlineSource struct{}

func (InlineSource) Name() string { return "inline" }

func (InlineSource) Sources(rec csvdata.Record, newID func() string) []Source {
	if strings.TrimSpace(rec.SourceText) == "" {
		return nil
	}
	return []Source{{
		ID:         newID(),
		SourceText: rec.SourceText,
		PageNumber: ParsePageNumber(rec.PageNumber),
		SourceFile: rec.SourceFile,
	}}
}

func resolveSources(strategies []SourceStrategy, rec csvdata.Record, newID func() string) []Source {
	for _, s := range strategies {
		if found := s.Sources(rec, newID); len(found) > 0 {
			return found
		}
	}
	return []Source{}
}

func questionKey(code, question string) string {
	return code + "\x00" + question
}

// ParsePageNumber reads the leading integer of raw. Blank, non-numeric and
// negative values yield 0.
func ParsePageNumber(raw string) int {
	s := strings.TrimSpace(raw)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// NewSourceID returns a unique citation id.
func NewSourceID() string {
	return "src_" + uuid.NewString()
}
