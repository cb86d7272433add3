package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

const mergedCSV = "Theme,Indicator Code,Indicator,Indicator Question Code,Indicator Question,Response,Source Text,PageNumber,Source_File\n" +
	"Climate Change,CC01,Emissions,CC01.1,Q1?,No,,,\n" +
	"Climate Change,CC01,Emissions,CC01.2,Q2?,Yes,inline,5,r.pdf\n"

const detailedCSV = "Theme,Indicator Code,Indicator,Indicator Question Code,Indicator Question,Response,Source Text,PageNumber,Source_File\n" +
	"Climate Change,CC01,Emissions,CC01.2,Q2?,Yes,detailed evidence,9,d.pdf\n"

func writeFixture(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("OBJECT_STORE", "local")
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestComputeJSON(t *testing.T) {
	merged := writeFixture(t, "merged.csv", mergedCSV)
	detailed := writeFixture(t, "detailed.csv", detailedCSV)

	out, err := execute(t, "compute", "--merged", merged, "--detailed", detailed)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	var result struct {
		ThemeData []struct {
			Name       string `json:"name"`
			GapCount   int    `json:"gapCount"`
			Indicators []struct {
				QuestionCodes []struct {
					Source []struct {
						SourceText string `json:"source_text"`
					} `json:"source"`
				} `json:"questionCodes"`
			} `json:"indicators"`
		} `json:"themeData"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(result.ThemeData) != 1 || result.ThemeData[0].Name != "Climate Change" || result.ThemeData[0].GapCount != 1 {
		t.Fatalf("unexpected themes %+v", result.ThemeData)
	}
	src := result.ThemeData[0].Indicators[0].QuestionCodes[1].Source
	if len(src) != 1 || src[0].SourceText != "detailed evidence" {
		t.Fatalf("expected detailed evidence, got %+v", src)
	}
}

func TestComputeXLSX(t *testing.T) {
	merged := writeFixture(t, "merged.csv", mergedCSV)
	out := filepath.Join(t.TempDir(), "gaps.xlsx")

	if _, err := execute(t, "compute", "--merged", merged, "--format", "xlsx", "--out", out); err != nil {
		t.Fatalf("compute: %v", err)
	}
	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	if len(f.GetSheetList()) == 0 {
		t.Fatalf("workbook has no sheets")
	}
}

func TestComputeRejectsBadFlags(t *testing.T) {
	merged := writeFixture(t, "merged.csv", mergedCSV)

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing merged", args: []string{"compute"}},
		{name: "unknown format", args: []string{"compute", "--merged", merged, "--format", "pdf"}},
		{name: "xlsx without out", args: []string{"compute", "--merged", merged, "--format", "xlsx"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.args...); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	good := writeFixture(t, "merged.csv", mergedCSV)
	bad := writeFixture(t, "bad.csv", "Theme,Response\nClimate Change,Perhaps\n")

	if _, err := execute(t, "validate", good); err != nil {
		t.Fatalf("validate good: %v", err)
	}

	out, err := execute(t, "validate", good, bad)
	if !errors.Is(err, errInvalid) {
		t.Fatalf("expected errInvalid, got %v", err)
	}
	var results []validation
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(results) != 2 || !results[0].Result.Valid || results[1].Result.Valid {
		t.Fatalf("unexpected results %+v", results)
	}
}
