package gapanalysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"esg-gap-backend/internal/csvdata"
	"esg-gap-backend/internal/shared/metrics"
	"esg-gap-backend/internal/shared/telemetry"
)

const (
	ModeDual   = "dual"
	ModeSingle = "single"
)

// ErrNoData is returned when a computation has no merged source.
var ErrNoData = errors.New("no csv data")

// Fetcher retrieves CSV text by URL.
type Fetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
	FetchPair(ctx context.Context, mergedURL, detailedURL string) (merged, detailed string, err error)
}

// FetchError wraps a failure to retrieve CSV input.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return "fetch csv: " + e.Err.Error() }
func (e *FetchError) Unwrap() error { return e.Err }

// Options tunes a Pipeline.
type Options struct {
	MaxRowErrors int
}

// Diagnostics carries the non-fatal findings of one computation.
type Diagnostics struct {
	Mode     string            `json:"mode"`
	Merged   csvdata.Result    `json:"merged"`
	Detailed *csvdata.Result   `json:"detailed,omitempty"`
	Metrics  MetricsValidation `json:"metrics"`
}

// Analysis is a computed result plus its diagnostics.
type Analysis struct {
	Result      Result
	Diagnostics Diagnostics
}

// Pipeline runs parse, validation, aggregation and metrics checks.
type Pipeline struct {
	Fetcher  Fetcher
	Logger   telemetry.Logger
	Taxonomy Taxonomy
	Builder  *Builder
	Options  Options
}

// NewPipeline returns a Pipeline with default taxonomy and builder.
func NewPipeline(fetcher Fetcher, logger telemetry.Logger) *Pipeline {
	return &Pipeline{
		Fetcher:  fetcher,
		Logger:   logger,
		Taxonomy: DefaultTaxonomy(),
		Builder:  NewBuilder(),
	}
}

func (p *Pipeline) logger() telemetry.Logger {
	if p.Logger == nil {
		return telemetry.Std()
	}
	return p.Logger
}

func (p *Pipeline) builder() *Builder {
	if p.Builder == nil {
		return NewBuilder()
	}
	return p.Builder
}

// Fetch retrieves the CSV exports and computes the analysis. An empty
// detailedURL selects single-file mode.
func (p *Pipeline) Fetch(ctx context.Context, mergedURL, detailedURL string) (Analysis, error) {
	if strings.TrimSpace(mergedURL) == "" {
		return Analysis{}, ErrNoData
	}
	if p.Fetcher == nil {
		return Analysis{}, &FetchError{Err: errors.New("csv fetcher not configured")}
	}

	if strings.TrimSpace(detailedURL) == "" {
		merged, err := p.Fetcher.FetchText(ctx, mergedURL)
		if err != nil {
			metrics.IncCSVFetchFailed()
			return Analysis{}, &FetchError{Err: err}
		}
		return p.Single(merged)
	}

	merged, detailed, err := p.Fetcher.FetchPair(ctx, mergedURL, detailedURL)
	if err != nil {
		metrics.IncCSVFetchFailed()
		return Analysis{}, &FetchError{Err: err}
	}
	return p.FromText(merged, detailed)
}

// FromText parses both exports and runs dual-file mode.
func (p *Pipeline) FromText(mergedText, detailedText string) (Analysis, error) {
	return p.FromTables(csvdata.Parse(mergedText), csvdata.Parse(detailedText))
}

// Single parses one export and runs single-file mode.
func (p *Pipeline) Single(mergedText string) (Analysis, error) {
	return p.run(ModeSingle, csvdata.Parse(mergedText), nil)
}

// FromTables runs dual-file mode on parsed tables. A detailed table without
// rows contributes no evidence and is not validated.
func (p *Pipeline) FromTables(merged, detailed *csvdata.Table) (Analysis, error) {
	if detailed == nil {
		detailed = &csvdata.Table{}
	}
	return p.run(ModeDual, merged, detailed)
}

func (p *Pipeline) run(mode string, merged, detailed *csvdata.Table) (Analysis, error) {
	log := p.logger()
	start := metrics.NowMillis()
	metrics.IncGapAnalysisStarted()

	opts := csvdata.Options{MaxRowErrors: p.Options.MaxRowErrors}
	diag := Diagnostics{Mode: mode}

	p.logRagged(log, "Merged CSV", merged)
	mergedRes, err := csvdata.AssertValid(merged, "Merged CSV", opts, log)
	diag.Merged = mergedRes
	if err != nil {
		p.reject(log, mode, "Merged CSV", mergedRes)
		return Analysis{Diagnostics: diag}, err
	}
	mergedRecs := csvdata.Records(merged.Rows, mergedRes.ColumnMapping)

	builder := p.builder()
	var themes []Theme
	if mode == ModeSingle {
		themes = builder.BuildSingle(mergedRecs)
	} else {
		var detailedRecs []csvdata.Record
		if detailed.Len() > 0 {
			p.logRagged(log, "Detailed CSV", detailed)
			detailedRes, err := csvdata.AssertValid(detailed, "Detailed CSV", opts, log)
			diag.Detailed = &detailedRes
			if err != nil {
				p.reject(log, mode, "Detailed CSV", detailedRes)
				return Analysis{Diagnostics: diag}, err
			}
			detailedRecs = csvdata.Records(detailed.Rows, detailedRes.ColumnMapping)
		}
		themes = builder.Build(mergedRecs, detailedRecs)
	}

	overall := AggregateOverall(mergedRecs, themes)
	result := Result{
		OverallData:   &overall,
		DimensionData: AggregateDimensions(themes, p.Taxonomy),
		ThemeData:     themes,
	}

	diag.Metrics = ValidateMetrics(result)
	if n := len(diag.Metrics.Issues); n > 0 {
		metrics.AddGapMetricsIssues(n)
		fields := map[string]any{
			"mode":        mode,
			"valid":       diag.Metrics.Valid,
			"issue_count": n,
			"issues":      diag.Metrics.Issues,
		}
		if diag.Metrics.Valid {
			log.Warn("gap.metrics.issues", fields)
		} else {
			log.Error("gap.metrics.invalid", fields)
		}
	}

	elapsed := metrics.NowMillis() - start
	metrics.ObserveGapAnalysisDurationMs(elapsed)
	metrics.IncGapAnalysisCompleted()
	log.Info("gap.analysis.completed", map[string]any{
		"mode":        mode,
		"rows":        len(mergedRecs),
		"themes":      len(themes),
		"gap_count":   overall.GapAnalysis.GapCount,
		"duration_ms": elapsed,
	})

	return Analysis{Result: result, Diagnostics: diag}, nil
}

func (p *Pipeline) reject(log telemetry.Logger, mode, label string, res csvdata.Result) {
	metrics.IncCSVSchemaRejected()
	metrics.IncGapAnalysisFailed()
	log.Error("csv.validation.failed", map[string]any{
		"mode":        mode,
		"label":       label,
		"error_count": len(res.Errors),
		"errors":      res.Errors,
	})
}

func (p *Pipeline) logRagged(log telemetry.Logger, label string, t *csvdata.Table) {
	if t == nil || len(t.Ragged) == 0 {
		return
	}
	lines := make([]string, 0, len(t.Ragged))
	for _, rr := range t.Ragged {
		lines = append(lines, fmt.Sprintf("row %d: %d values for %d columns", rr.Line+1, rr.Got, rr.Expected))
	}
	log.Warn("csv.parse.ragged_rows", map[string]any{
		"label": label,
		"count": len(t.Ragged),
		"rows":  lines,
	})
}
