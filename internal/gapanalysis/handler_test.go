package gapanalysis

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for field, content := range files {
		part, err := w.CreateFormFile(field, field+".csv")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &body, w.FormDataContentType()
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(newTestPipeline(nil)).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestHandlerAnalyze(t *testing.T) {
	r := newTestRouter()

	body, contentType := multipartBody(t, map[string]string{"merged": scenarioMerged})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/gap-analysis", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got Result
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.ThemeData) != 1 || got.ThemeData[0].TotalQuestions != 2 {
		t.Fatalf("unexpected result %+v", got)
	}

	var raw map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode raw: %v", err)
	}
	theme := raw["themeData"].([]any)[0].(map[string]any)
	if _, ok := theme["totalGaps"]; !ok {
		t.Fatalf("theme must expose totalGaps: %v", theme)
	}
}

func TestHandlerAnalyzeDiagnostics(t *testing.T) {
	r := newTestRouter()

	body, contentType := multipartBody(t, map[string]string{"merged": scenarioMerged, "detailed": ""})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/gap-analysis?diagnostics=true", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got struct {
		Result      Result      `json:"result"`
		Diagnostics Diagnostics `json:"diagnostics"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Diagnostics.Mode != ModeDual || !got.Diagnostics.Merged.Valid {
		t.Fatalf("unexpected diagnostics %+v", got.Diagnostics)
	}
}

func TestHandlerAnalyzeXLSX(t *testing.T) {
	r := newTestRouter()

	body, contentType := multipartBody(t, map[string]string{"merged": scenarioMerged})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/gap-analysis?format=xlsx", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != XLSXContentType {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Fatalf("expected zip payload")
	}
}

func TestHandlerAnalyzeErrors(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/gap-analysis", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without merged file, got %d", rec.Code)
	}

	body, contentType := multipartBody(t, map[string]string{"merged": "Theme\nClimate Change\n"})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/gap-analysis", body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Code != "invalid_report_data" {
		t.Fatalf("unexpected error code %q", resp.Error.Code)
	}
}
