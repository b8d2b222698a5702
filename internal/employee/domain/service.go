package domain

import "context"

type CreateEmployeeRequest struct {
	EmployeeID  string
	Name        string
	Email       string
	Grade       string
	Designation string
	Chain       ApprovalChain
	IsAdmin     bool
}

type UpdateApprovalChainRequest struct {
	EmployeeID string
	Chain      ApprovalChain
}

// Service is the employee directory consumed by role classification and
// claim creation.
type Service interface {
	Create(ctx context.Context, req CreateEmployeeRequest) (Employee, error)
	// GetByIdentifier resolves an employee by business key or email.
	GetByIdentifier(ctx context.Context, identifier string) (Employee, error)
	List(ctx context.Context, filter ListFilter) ([]Employee, error)
	// UpdateApprovalChain validates that every named approver exists and is
	// active before persisting. In-flight claims keep their snapshot chain.
	UpdateApprovalChain(ctx context.Context, req UpdateApprovalChainRequest) (Employee, error)
	Deactivate(ctx context.Context, employeeID string) error
}
