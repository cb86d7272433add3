package main

// Compute a gap analysis from CSV exports without the API:
//   go run ./cmd/gapreport compute --merged merged.csv --detailed detailed.csv
//   go run ./cmd/gapreport compute --merged s3://bucket/merged.csv --format xlsx --out gaps.xlsx
//   go run ./cmd/gapreport validate merged.csv detailed.csv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"esg-gap-backend/internal/csvdata"
	"esg-gap-backend/internal/csvsource"
	"esg-gap-backend/internal/gapanalysis"
	"esg-gap-backend/internal/shared/config"
	s3store "esg-gap-backend/internal/shared/storage/object/s3"
	"esg-gap-backend/internal/shared/telemetry"
)

var errInvalid = errors.New("csv validation failed")

type computeOptions struct {
	merged      string
	detailed    string
	format      string
	out         string
	taxonomy    string
	diagnostics bool
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "gapreport: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "gapreport",
		Short:         "Compute ESG gap analyses from CSV exports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.AddCommand(newComputeCmd(), newValidateCmd())
	return root
}

func newComputeCmd() *cobra.Command {
	var opts computeOptions

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute a gap analysis from merged and detailed CSV exports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompute(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.merged, "merged", "", "Merged CSV path or URL (required)")
	cmd.Flags().StringVar(&opts.detailed, "detailed", "", "Detailed CSV path or URL (omit for single-file mode)")
	cmd.Flags().StringVar(&opts.format, "format", "json", "Output format: json or xlsx")
	cmd.Flags().StringVar(&opts.out, "out", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&opts.taxonomy, "taxonomy", "", "YAML taxonomy file overriding the built-in dimensions")
	cmd.Flags().BoolVar(&opts.diagnostics, "diagnostics", false, "Include validation diagnostics in JSON output")
	_ = cmd.MarkFlagRequired("merged")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		opts.format = strings.ToLower(strings.TrimSpace(opts.format))
		if opts.format != "json" && opts.format != "xlsx" {
			return fmt.Errorf("invalid --format %q: want json or xlsx", opts.format)
		}
		if opts.format == "xlsx" && opts.out == "" {
			return errors.New("--out is required for xlsx output")
		}
		return nil
	}
	return cmd
}

func newValidateCmd() *cobra.Command {
	var maxRowErrors int

	cmd := &cobra.Command{
		Use:   "validate <csv>...",
		Short: "Validate CSV exports against the expected schema",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), cmd.OutOrStdout(), args, maxRowErrors)
		},
	}
	cmd.Flags().IntVar(&maxRowErrors, "max-row-errors", csvdata.DefaultMaxRowErrors, "Row errors collected before validation stops")
	return cmd
}

func newFetcher(ctx context.Context, cfg config.Config) (*csvsource.Fetcher, error) {
	fetchCfg := csvsource.Config{
		MaxBytes:     cfg.CSVMaxBytes,
		Timeout:      cfg.CSVFetchTimeout,
		HostRewrites: csvsource.ParseHostRewrites(cfg.CSVHostRewrites),
		TokenURL:     cfg.ProcessingTokenURL,
		ClientID:     cfg.ProcessingClientID,
		ClientSecret: cfg.ProcessingClientSecret,
		Scopes:       cfg.ProcessingScopes,
		AllowFiles:   true,
	}
	if cfg.ObjectStoreType != "s3" {
		return csvsource.New(fetchCfg, nil, nil), nil
	}
	client, err := s3store.NewClient(ctx, cfg.AWSRegion, cfg.S3Endpoint)
	if err != nil {
		return nil, err
	}
	return csvsource.New(fetchCfg, client, nil), nil
}

func runCompute(ctx context.Context, stdout io.Writer, opts computeOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Load()
	fetcher, err := newFetcher(ctx, cfg)
	if err != nil {
		return err
	}

	pipeline := gapanalysis.NewPipeline(fetcher, telemetry.Nop())
	pipeline.Options.MaxRowErrors = cfg.CSVMaxRowErrors
	taxonomyFile := opts.taxonomy
	if taxonomyFile == "" {
		taxonomyFile = cfg.TaxonomyFile
	}
	if taxonomyFile != "" {
		tax, err := gapanalysis.LoadTaxonomyFile(taxonomyFile)
		if err != nil {
			return fmt.Errorf("load taxonomy: %w", err)
		}
		pipeline.Taxonomy = tax
	}

	analysis, err := pipeline.Fetch(ctx, opts.merged, opts.detailed)
	if err != nil {
		return err
	}

	w := stdout
	if opts.out != "" {
		f, err := os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	if opts.format == "xlsx" {
		return gapanalysis.WriteXLSX(w, analysis.Result)
	}
	var payload any = analysis.Result
	if opts.diagnostics {
		payload = map[string]any{"result": analysis.Result, "diagnostics": analysis.Diagnostics}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

type validation struct {
	File   string         `json:"file"`
	Result csvdata.Result `json:"result"`
}

func runValidate(ctx context.Context, stdout io.Writer, files []string, maxRowErrors int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	fetcher, err := newFetcher(ctx, config.Load())
	if err != nil {
		return err
	}

	out := make([]validation, 0, len(files))
	valid := true
	for _, file := range files {
		text, err := fetcher.FetchText(ctx, file)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		res := csvdata.ValidateTable(csvdata.Parse(text), csvdata.Options{MaxRowErrors: maxRowErrors})
		valid = valid && res.Valid
		out = append(out, validation{File: file, Result: res})
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if !valid {
		return errInvalid
	}
	return nil
}
