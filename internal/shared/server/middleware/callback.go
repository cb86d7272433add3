package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"esg-gap-backend/internal/shared/server/respond"
)

// CallbackToken guards routes called by the document processing service. An
// empty token disables the check.
func CallbackToken(token string) gin.HandlerFunc {
	expected := []byte(strings.TrimSpace(token))
	return func(c *gin.Context) {
		if len(expected) == 0 {
			c.Next()
			return
		}
		got := []byte(strings.TrimSpace(c.GetHeader("X-Callback-Token")))
		if subtle.ConstantTimeCompare(got, expected) != 1 {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "invalid callback token", nil)
			return
		}
		c.Next()
	}
}
