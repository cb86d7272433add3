package server

import (
	"github.com/gin-gonic/gin"

	"esg-gap-backend/internal/shared/server/middleware"
	"esg-gap-backend/internal/shared/server/respond"
)

// registerMeRoutes attaches the /me endpoint.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

func meHandler(c *gin.Context) {
	respond.OK(c, gin.H{
		"userId":  middleware.UserIDFromContext(c),
		"isGuest": middleware.IsGuestFromContext(c),
	})
}
