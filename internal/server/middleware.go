package server

import (
	"strings"

	"github.com/fieldops/claimflow/internal/authctx"
	roledomain "github.com/fieldops/claimflow/internal/role/domain"
	"github.com/gin-gonic/gin"
)

const (
	headerEmployeeID = "X-Employee-Id"

	contextRoleKey = "claimflow.role"
)

// IdentityRequired resolves the caller from the X-Employee-Id header set by
// the authenticating proxy. Requests without it are rejected before any
// handler runs.
func (s *Server) IdentityRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier := strings.TrimSpace(c.GetHeader(headerEmployeeID))
		if identifier == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		role, err := s.roleSvc.Classify(c.Request.Context(), identifier)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		identity := authctx.Identity{EmployeeID: identifier}
		if strings.Contains(identifier, "@") {
			identity = authctx.Identity{Email: identifier}
		}
		c.Request = c.Request.WithContext(authctx.WithIdentity(c.Request.Context(), identity))
		c.Set(contextRoleKey, role)
		c.Next()
	}
}

func (s *Server) roleFromContext(c *gin.Context) roledomain.Role {
	value, ok := c.Get(contextRoleKey)
	if !ok {
		return roledomain.Employee()
	}
	role, ok := value.(roledomain.Role)
	if !ok {
		return roledomain.Employee()
	}
	return role
}

func (s *Server) callerID(c *gin.Context) string {
	identity, ok := authctx.IdentityFromContext(c.Request.Context())
	if !ok {
		return ""
	}
	if identity.EmployeeID != "" {
		return identity.EmployeeID
	}
	return identity.Email
}

func (s *Server) authorizeAction(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := s.roleFromContext(c)
		if err := s.authzSvc.Authorize(c.Request.Context(), role, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// claimSubmitRateLimit throttles claim creation per caller when the redis
// limiter is configured. Limiter outages fail open; submission must not
// depend on redis being up.
func (s *Server) claimSubmitRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.submitLimiter.Enabled() {
			c.Next()
			return
		}

		result, err := s.submitLimiter.AllowSubmit(c.Request.Context(), s.callerID(c))
		if err != nil {
			c.Next()
			return
		}
		if !result.Allowed {
			if result.RetryAfter > 0 {
				c.Header("Retry-After", result.RetryAfter.String())
			}
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
