package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pokebim/pricewatch/models"
)

// BearerToken returns token authentication middleware for the update
// endpoints.
//
// Expects:
//
//	Authorization: Bearer <token>
//
// If token is empty every request is rejected: updates stay disabled until a
// token is configured.
func BearerToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			abortUnauthorized(c, "price updates are disabled on this server")
			return
		}

		got := extractBearer(c)
		if got == "" {
			abortUnauthorized(c, "missing token: provide Authorization: Bearer <token>")
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			abortUnauthorized(c, "invalid token")
			return
		}

		c.Set("authenticated", true)
		c.Next()
	}
}

func extractBearer(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
		Success: false,
		Error:   msg,
		Code:    models.ErrCodeUnauthorized,
	})
}
