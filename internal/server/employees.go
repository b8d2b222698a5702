package server

import (
	"net/http"
	"strings"

	employeedomain "github.com/fieldops/claimflow/internal/employee/domain"
	roledomain "github.com/fieldops/claimflow/internal/role/domain"
	"github.com/gin-gonic/gin"
)

type createEmployeeRequest struct {
	EmployeeID  string `json:"employee_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Grade       string `json:"grade"`
	Designation string `json:"designation"`
	ApproverL1  string `json:"approver_l1"`
	ApproverL2  string `json:"approver_l2"`
	ApproverL3  string `json:"approver_l3"`
	IsAdmin     bool   `json:"is_admin"`
}

func (s *Server) CreateEmployee(c *gin.Context) {
	var req createEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.employeeSvc.Create(c.Request.Context(), employeedomain.CreateEmployeeRequest{
		EmployeeID:  strings.TrimSpace(req.EmployeeID),
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.TrimSpace(req.Email),
		Grade:       strings.TrimSpace(req.Grade),
		Designation: strings.TrimSpace(req.Designation),
		Chain: employeedomain.ApprovalChain{
			L1: strings.TrimSpace(req.ApproverL1),
			L2: strings.TrimSpace(req.ApproverL2),
			L3: strings.TrimSpace(req.ApproverL3),
		},
		IsAdmin: req.IsAdmin,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListEmployees(c *gin.Context) {
	var query struct {
		Grade      string `form:"grade"`
		OnlyActive bool   `form:"only_active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	employees, err := s.employeeSvc.List(c.Request.Context(), employeedomain.ListFilter{
		Grade:      strings.TrimSpace(query.Grade),
		OnlyActive: query.OnlyActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": employees})
}

func (s *Server) GetEmployeeByID(c *gin.Context) {
	identifier := strings.TrimSpace(c.Param("id"))

	// Anyone may read their own record; reading others requires the
	// directory permission.
	role := s.roleFromContext(c)
	if identifier != s.callerID(c) && !role.CanManageEmployees() && role.Type != roledomain.RoleManager {
		AbortWithError(c, ErrForbidden)
		return
	}

	employee, err := s.employeeSvc.GetByIdentifier(c.Request.Context(), identifier)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": employee})
}

type updateChainRequest struct {
	ApproverL1 string `json:"approver_l1"`
	ApproverL2 string `json:"approver_l2"`
	ApproverL3 string `json:"approver_l3"`
}

func (s *Server) UpdateEmployeeChain(c *gin.Context) {
	var req updateChainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.employeeSvc.UpdateApprovalChain(c.Request.Context(), employeedomain.UpdateApprovalChainRequest{
		EmployeeID: strings.TrimSpace(c.Param("id")),
		Chain: employeedomain.ApprovalChain{
			L1: strings.TrimSpace(req.ApproverL1),
			L2: strings.TrimSpace(req.ApproverL2),
			L3: strings.TrimSpace(req.ApproverL3),
		},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeactivateEmployee(c *gin.Context) {
	if err := s.employeeSvc.Deactivate(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deactivated": true}})
}
