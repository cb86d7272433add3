package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestCallbackToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		token    string
		header   string
		wantCode int
	}{
		{name: "match", token: "s3cret", header: "s3cret", wantCode: http.StatusOK},
		{name: "mismatch", token: "s3cret", header: "nope", wantCode: http.StatusUnauthorized},
		{name: "missing", token: "s3cret", header: "", wantCode: http.StatusUnauthorized},
		{name: "disabled", token: "", header: "", wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(CallbackToken(tt.token))
			router.PUT("/api/v1/reports/:id/status", func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPut, "/api/v1/reports/r-1/status", nil)
			if tt.header != "" {
				req.Header.Set("X-Callback-Token", tt.header)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}
