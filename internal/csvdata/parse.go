package csvdata

import (
	"strings"
)

// Row maps a header to its raw cell value. Values are never coerced.
type Row map[string]string

// RaggedRow records a data line whose field count did not match the header.
type RaggedRow struct {
	Line     int // 1-based data row index (header excluded)
	Got      int
	Expected int
}

// Table is the parsed form of a CSV export.
type Table struct {
	Headers []string
	Rows    []Row
	Ragged  []RaggedRow
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Parse turns raw CSV text into a Table.
//
// Quoted fields may span lines; newlines inside quotes collapse to a single
// space. Rows shorter than the header are padded with empty strings and longer
// rows are truncated. Both cases are recorded in Table.Ragged. Parse never
// fails: empty or whitespace-only input yields an empty table.
func Parse(text string) *Table {
	lines := splitLogicalLines(text)
	if len(lines) == 0 {
		return &Table{}
	}

	headers := tokenizeLine(lines[0])
	table := &Table{
		Headers: headers,
		Rows:    make([]Row, 0, len(lines)-1),
	}

	for i := 1; i < len(lines); i++ {
		values := tokenizeLine(lines[i])
		if len(values) != len(headers) {
			table.Ragged = append(table.Ragged, RaggedRow{Line: i, Got: len(values), Expected: len(headers)})
			for len(values) < len(headers) {
				values = append(values, "")
			}
			values = values[:len(headers)]
		}

		row := make(Row, len(headers))
		for idx, header := range headers {
			row[header] = values[idx]
		}
		table.Rows = append(table.Rows, row)
	}

	return table
}

// ParseRows is Parse without the header and width bookkeeping.
func ParseRows(text string) []Row {
	return Parse(text).Rows
}

// splitLogicalLines folds quoted newlines into spaces and returns the
// non-blank lines of text.
func splitLogicalLines(text string) []string {
	var b strings.Builder
	b.Grow(len(text))

	inQuotes := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch {
		case ch == '"':
			inQuotes = !inQuotes
			b.WriteByte(ch)
		case ch == '\r':
			// CRLF line endings; a lone CR inside quotes still becomes a space.
			if inQuotes && (i+1 >= len(text) || text[i+1] != '\n') {
				b.WriteByte(' ')
			}
		case ch == '\n' && inQuotes:
			b.WriteByte(' ')
		default:
			b.WriteByte(ch)
		}
	}

	raw := strings.Split(b.String(), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// tokenizeLine splits one logical line on commas outside quotes. Quote
// characters toggle quoting and are dropped; fields are trimmed.
func tokenizeLine(line string) []string {
	var (
		values   []string
		current  strings.Builder
		inQuotes bool
	)

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			values = append(values, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	values = append(values, strings.TrimSpace(current.String()))
	return values
}
