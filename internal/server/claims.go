package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	claimdomain "github.com/fieldops/claimflow/internal/claim/domain"
	employeedomain "github.com/fieldops/claimflow/internal/employee/domain"
	"github.com/gin-gonic/gin"
)

type createClaimRequest struct {
	Type        string  `json:"type"`
	Amount      int64   `json:"amount"`
	DistanceKm  float64 `json:"distance_km"`
	ExpenseDate string  `json:"expense_date"`
	Description string  `json:"description"`
}

func (s *Server) CreateClaim(c *gin.Context) {
	var req createClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	callerID := s.callerID(c)
	lockToken, locked, err := s.submitLimiter.TryLockSubmit(c.Request.Context(), callerID)
	if err == nil && !locked {
		AbortWithError(c, ErrTooManyRequests)
		return
	}
	if lockToken != "" {
		defer func() {
			_ = s.submitLimiter.ReleaseSubmit(c.Request.Context(), callerID, lockToken)
		}()
	}

	resp, err := s.claimSvc.Create(c.Request.Context(), claimdomain.CreateClaimRequest{
		EmployeeID:  callerID,
		Type:        req.Type,
		Amount:      req.Amount,
		DistanceKm:  req.DistanceKm,
		ExpenseDate: req.ExpenseDate,
		Description: req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListClaims(c *gin.Context) {
	var query struct {
		Status     string `form:"status"`
		Type       string `form:"type"`
		Month      string `form:"month"`
		EmployeeID string `form:"employee_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	filter := claimdomain.ListFilter{
		Status: claimdomain.Status(strings.TrimSpace(query.Status)),
		Type:   claimdomain.Type(strings.TrimSpace(query.Type)),
		Month:  strings.TrimSpace(query.Month),
	}

	role := s.roleFromContext(c)
	target := strings.TrimSpace(query.EmployeeID)
	callerID := s.callerID(c)

	// Plain employees only ever see their own claims, whatever they ask
	// for. Managers and admins may scope to someone else or list everything.
	var (
		claims []claimdomain.Claim
		err    error
	)
	switch {
	case !role.CanViewAllClaims():
		claims, err = s.claimSvc.ListForEmployee(c.Request.Context(), callerID, filter)
	case target != "":
		claims, err = s.claimSvc.ListForEmployee(c.Request.Context(), target, filter)
	default:
		claims, err = s.claimSvc.ListAll(c.Request.Context(), filter)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": claims})
}

func (s *Server) ListPendingClaims(c *gin.Context) {
	claims, err := s.claimSvc.ListPendingForApprover(c.Request.Context(), s.callerID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": claims})
}

func (s *Server) GetClaimByID(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, claimdomain.ErrNotFound)
		return
	}

	claim, err := s.claimSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	role := s.roleFromContext(c)
	if !role.CanViewAllClaims() && claim.EmployeeID != s.callerID(c) {
		AbortWithError(c, ErrForbidden)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": claim, "stuck": claim.Stuck()})
}

type decisionRequest struct {
	Level    string `json:"level"`
	Comments string `json:"comments"`
	Reason   string `json:"reason"`
}

func (s *Server) ApproveClaim(c *gin.Context) {
	s.decideClaim(c, false)
}

func (s *Server) RejectClaim(c *gin.Context) {
	s.decideClaim(c, true)
}

func (s *Server) decideClaim(c *gin.Context, reject bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, claimdomain.ErrNotFound)
		return
	}

	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	level, err := s.resolveDecisionLevel(c, req.Level, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	decision := claimdomain.DecisionRequest{
		ClaimID:    id,
		ApproverID: s.callerID(c),
		Level:      level,
		Comments:   req.Comments,
		Reason:     req.Reason,
	}

	var claim claimdomain.Claim
	if reject {
		claim, err = s.claimSvc.Reject(c.Request.Context(), decision)
	} else {
		claim, err = s.claimSvc.Approve(c.Request.Context(), decision)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": claim})
}

// resolveDecisionLevel takes the level from the request body when present,
// otherwise infers it from the claim's current pending status. Admins
// acting on someone else's chain usually omit it.
func (s *Server) resolveDecisionLevel(c *gin.Context, raw string, claimID snowflake.ID) (employeedomain.Level, error) {
	if trimmed := strings.TrimSpace(raw); trimmed != "" {
		level, ok := employeedomain.ParseLevel(trimmed)
		if !ok {
			return "", claimdomain.ErrInvalidLevel
		}
		return level, nil
	}

	claim, err := s.claimSvc.GetByID(c.Request.Context(), claimID)
	if err != nil {
		return "", err
	}
	level, ok := claim.Status.PendingLevel()
	if !ok {
		return "", claimdomain.ErrStaleState
	}
	return level, nil
}

func (s *Server) ReplayClaim(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, claimdomain.ErrNotFound)
		return
	}

	replayed, matches, err := s.claimSvc.Replay(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"status":  replayed,
		"matches": matches,
	}})
}
