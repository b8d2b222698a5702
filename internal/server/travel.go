package server

import (
	"net/http"
	"strings"

	"github.com/fieldops/claimflow/internal/authorization"
	"github.com/gin-gonic/gin"
)

// resolveTravelTarget decides whose ledger the caller may read. Reading
// someone else's requires the travel.view_all permission.
func (s *Server) resolveTravelTarget(c *gin.Context, requested string) (string, error) {
	callerID := s.callerID(c)
	target := strings.TrimSpace(requested)
	if target == "" || target == callerID {
		return callerID, nil
	}
	role := s.roleFromContext(c)
	if err := s.authzSvc.Authorize(c.Request.Context(), role, authorization.ObjectTravel, authorization.ActionTravelViewAll); err != nil {
		return "", err
	}
	return target, nil
}

func (s *Server) GetTravelSummary(c *gin.Context) {
	var query struct {
		EmployeeID string `form:"employee_id"`
		Month      string `form:"month"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	target, err := s.resolveTravelTarget(c, query.EmployeeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	view, err := s.travelSvc.GetMonthlyTravelData(c.Request.Context(), target, strings.TrimSpace(query.Month))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (s *Server) GetTravelHistory(c *gin.Context) {
	var query struct {
		EmployeeID string `form:"employee_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	target, err := s.resolveTravelTarget(c, query.EmployeeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	views, err := s.travelSvc.History(c.Request.Context(), target)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": views})
}

type validateTravelRequest struct {
	Amount int64 `json:"amount"`
}

// ValidateTravelLimit is the advisory pre-submit check: it reports whether
// the amount would fit the caller's monthly limit without recording
// anything.
func (s *Server) ValidateTravelLimit(c *gin.Context) {
	var req validateTravelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	employee, err := s.employeeSvc.GetByIdentifier(c.Request.Context(), s.callerID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.travelSvc.ValidateMonthlyLimit(c.Request.Context(), employee.EmployeeID, employee.Grade, req.Amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
