package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/meetscribe/backend/internal/auth"
	"github.com/meetscribe/backend/pkg/response"
)

// ContextGuestName is the key for the authenticated guest name in gin context.
const ContextGuestName = "guest_name"

// Auth returns a middleware that validates a Bearer guest token and sets the
// guest name in context.
func Auth(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextGuestName, claims.Name)
		c.Next()
	}
}
