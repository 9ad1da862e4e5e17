package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"backoffice/internal/shared/server/middleware"
	"backoffice/internal/shared/server/respond"
)

// registerMeRoutes attaches the /me endpoint.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

func meHandler(c *gin.Context) {
	subject := middleware.SubjectFromContext(c)
	if subject == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}

	roles := middleware.RolesFromContext(c)
	if roles == nil {
		roles = []string{}
	}
	response := gin.H{
		"subject": subject,
		"roles":   roles,
	}
	if email := middleware.EmailFromContext(c); email != "" {
		response["email"] = email
	}

	respond.JSON(c, http.StatusOK, response)
}
