// Package domain defines effective roles and the permission matrix.
package domain

import (
	"context"
	"strings"

	employeedomain "github.com/fieldops/claimflow/internal/employee/domain"
)

type RoleType string

const (
	RoleEmployee RoleType = "employee"
	RoleManager  RoleType = "manager"
	RoleAdmin    RoleType = "admin"
)

// Role is the classified effective role of a caller.
type Role struct {
	Type RoleType `json:"type"`
	// Level is set for managers: the lowest level at which they appear in
	// any approval chain, or L1 when classified by grade alone.
	Level employeedomain.Level `json:"level,omitempty"`
	// ManagedEmployeeIDs lists employees whose chain references this
	// manager. Empty for grade-classified managers without directs.
	ManagedEmployeeIDs []string `json:"managed_employee_ids,omitempty"`
}

// Employee returns the least-privilege role. Classification failures fall
// back to it.
func Employee() Role {
	return Role{Type: RoleEmployee}
}

func Admin() Role {
	return Role{Type: RoleAdmin}
}

// Permission matrix. Pure functions, no I/O.

func (r Role) CanCreateClaims() bool {
	return r.Type == RoleEmployee || r.Type == RoleManager
}

func (r Role) CanApproveClaims() bool {
	return r.Type == RoleManager || r.Type == RoleAdmin
}

func (r Role) CanViewAllClaims() bool {
	return r.Type == RoleManager || r.Type == RoleAdmin
}

func (r Role) CanManageEmployees() bool {
	return r.Type == RoleAdmin
}

// CanApproveAtLevel reports whether the role may act on a claim waiting at
// claimLevel. Admins always may; managers at their own level and anything
// ranked below it.
func (r Role) CanApproveAtLevel(claimLevel employeedomain.Level) bool {
	switch r.Type {
	case RoleAdmin:
		return true
	case RoleManager:
		return r.Level.Rank() >= claimLevel.Rank() && claimLevel.Rank() > 0
	default:
		return false
	}
}

// ManagerPredicate decides whether an employee record looks like a manager,
// independent of whether anyone reports to them. Isolated so the heuristic
// can be swapped for an explicit directory flag later.
type ManagerPredicate func(e employeedomain.Employee) bool

// ManagerKeywords are matched against designation, name and email.
var ManagerKeywords = []string{"manager", "lead", "head", "supervisor"}

// NewGradeManagerPredicate classifies by grade membership first, then by
// keyword match on designation, name and email.
func NewGradeManagerPredicate(managerGrades []string) ManagerPredicate {
	grades := make(map[string]struct{}, len(managerGrades))
	for _, grade := range managerGrades {
		grade = strings.ToUpper(strings.TrimSpace(grade))
		if grade == "" {
			continue
		}
		grades[grade] = struct{}{}
	}

	return func(e employeedomain.Employee) bool {
		if _, ok := grades[strings.ToUpper(strings.TrimSpace(e.Grade))]; ok {
			return true
		}
		haystack := strings.ToLower(e.Designation + " " + e.Name + " " + e.Email)
		for _, keyword := range ManagerKeywords {
			if strings.Contains(haystack, keyword) {
				return true
			}
		}
		return false
	}
}

// Service classifies callers. The directory fetch is bounded by a timeout;
// on expiry or error the caller is classified as a plain employee, never
// silently granted an elevated role.
type Service interface {
	Classify(ctx context.Context, identifier string) (Role, error)
}
