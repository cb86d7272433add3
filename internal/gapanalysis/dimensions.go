package gapanalysis

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DimensionDef lists the themes that roll up into one dimension.
type DimensionDef struct {
	Name   string   `yaml:"name"`
	Themes []string `yaml:"themes"`
}

// Taxonomy is the ordered dimension table.
type Taxonomy []DimensionDef

// DimensionNames are the fixed dimensions, in output order.
var DimensionNames = []string{"Environmental", "Social", "Governance"}

// DefaultTaxonomy returns the built-in dimension to theme table.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		{Name: "Environmental", Themes: []string{
			"Biodiversity",
			"Climate Change",
			"Pollution & Resources",
			"Water Security",
			"Supply Chain: Environmental",
		}},
		{Name: "Social", Themes: []string{
			"Labour Standards",
			"Human Rights & Community",
			"Health & Safety",
			"Customer Responsibility",
			"Supply Chain: Social",
		}},
		{Name: "Governance", Themes: []string{
			"Anti-Corruption",
			"Corporate Governance",
			"Risk Management",
			"Tax Transparency",
		}},
	}
}

type taxonomyFile struct {
	Dimensions Taxonomy `yaml:"dimensions"`
}

// LoadTaxonomyFile reads theme lists from a YAML file of the form
//
//	dimensions:
//	  - name: Environmental
//	    themes: [Biodiversity, Climate Change]
//
// The file must name the three dimensions in order and no theme may belong to
// more than one dimension.
func LoadTaxonomyFile(path string) (Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}
	var f taxonomyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}
	if err := f.Dimensions.Validate(); err != nil {
		return nil, err
	}
	return f.Dimensions, nil
}

// Validate checks dimension names, order and theme exclusivity.
func (t Taxonomy) Validate() error {
	if len(t) != len(DimensionNames) {
		return fmt.Errorf("taxonomy must define %d dimensions, got %d", len(DimensionNames), len(t))
	}
	seen := make(map[string]string)
	for i, def := range t {
		if def.Name != DimensionNames[i] {
			return fmt.Errorf("taxonomy dimension %d must be %q, got %q", i, DimensionNames[i], def.Name)
		}
		for _, theme := range def.Themes {
			key := normalizeName(theme)
			if key == "" {
				return fmt.Errorf("taxonomy dimension %q has a blank theme", def.Name)
			}
			if other, dup := seen[key]; dup {
				return fmt.Errorf("theme %q listed under both %q and %q", theme, other, def.Name)
			}
			seen[key] = def.Name
		}
	}
	return nil
}

// AggregateDimensions sums theme totals into each dimension. Themes are matched
// on their full normalized name; themes outside the taxonomy are skipped.
func AggregateDimensions(themes []Theme, tax Taxonomy) []Dimension {
	if len(tax) == 0 {
		tax = DefaultTaxonomy()
	}

	lookup := make(map[string]int)
	for i, def := range tax {
		for _, theme := range def.Themes {
			key := normalizeName(theme)
			if _, exists := lookup[key]; !exists {
				lookup[key] = i
			}
		}
	}

	out := make([]Dimension, len(tax))
	for i, def := range tax {
		out[i].Name = def.Name
	}
	for _, theme := range themes {
		i, ok := lookup[normalizeName(theme.Name)]
		if !ok {
			continue
		}
		out[i].GapCount += theme.GapCount
		out[i].TotalQuestions += theme.TotalQuestions
	}
	for i := range out {
		out[i].Percentage = percentage(out[i].GapCount, out[i].TotalQuestions)
	}
	return out
}

// normalizeName lower-cases s and collapses runs of whitespace.
func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
