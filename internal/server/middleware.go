package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ocelon/parking/internal/authcontext"
	userdomain "github.com/ocelon/parking/internal/user/domain"
)

// AuthRequired validates the bearer token and loads the caller onto the
// request context. The services downstream trust the resolved user id.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		claims, err := s.issuer.Parse(raw)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		userID, err := claims.ParseUserID()
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := authcontext.WithUser(c.Request.Context(), userID, claims.Role, claims.Email)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAdmin gates admin-only routes. Must run after AuthRequired.
func (s *Server) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if authcontext.RoleFromContext(c.Request.Context()) != string(userdomain.RoleAdmin) {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

// authRateLimit caps unauthenticated auth attempts per client ip.
func (s *Server) authRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow(c.ClientIP()) {
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
