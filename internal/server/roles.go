package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetMyRole returns the caller's classified role and permission set, the
// way a UI decides which actions to render.
func (s *Server) GetMyRole(c *gin.Context) {
	role := s.roleFromContext(c)

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"role": role,
		"permissions": gin.H{
			"can_create_claims":    role.CanCreateClaims(),
			"can_approve_claims":   role.CanApproveClaims(),
			"can_view_all_claims":  role.CanViewAllClaims(),
			"can_manage_employees": role.CanManageEmployees(),
		},
	}})
}

// ListPolicyGrades exposes the active entitlement table.
func (s *Server) ListPolicyGrades(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.policySvc.Grades()})
}
