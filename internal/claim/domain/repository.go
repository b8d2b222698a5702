package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ListFilter narrows claim listings.
type ListFilter struct {
	Status Status
	Type   Type
	Month  string // YYYY-MM, matched against expense_date
}

// Repository persists claims and their append-only approval records.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, claim *Claim) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Claim, error)
	ListByEmployee(ctx context.Context, db *gorm.DB, employeeID string, filter ListFilter) ([]Claim, error)
	ListPendingForApprover(ctx context.Context, db *gorm.DB, approverID string) ([]Claim, error)
	ListAll(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Claim, error)

	// Transition performs the compare-and-swap status update and appends
	// the approval record in one transaction. It returns false without
	// error when the claim was not in fromStatus, so concurrent approvers
	// lose cleanly instead of double-applying.
	Transition(ctx context.Context, db *gorm.DB, claimID snowflake.ID, fromStatus, toStatus Status, rejectionReason string, approval *Approval) (bool, error)

	ListApprovals(ctx context.Context, db *gorm.DB, claimID snowflake.ID) ([]Approval, error)
}
