package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	employeedomain "github.com/fieldops/claimflow/internal/employee/domain"
)

// CreateClaimRequest submits a new expense claim on behalf of EmployeeID.
type CreateClaimRequest struct {
	EmployeeID  string  `json:"employee_id"`
	Type        string  `json:"type"`
	Amount      int64   `json:"amount"`
	DistanceKm  float64 `json:"distance_km,omitempty"`
	ExpenseDate string  `json:"expense_date"` // YYYY-MM-DD, defaults to today
	Description string  `json:"description,omitempty"`
}

// CreateClaimResult carries the persisted claim plus advisory warnings
// (monthly limit, fuel entitlement, unapprovable chain). Warnings never
// block creation.
type CreateClaimResult struct {
	Claim    Claim    `json:"claim"`
	Warnings []string `json:"warnings,omitempty"`
}

// DecisionRequest is one approve or reject action by ApproverID on the
// claim's current pending level.
type DecisionRequest struct {
	ClaimID    snowflake.ID
	ApproverID string
	Level      employeedomain.Level
	Comments   string
	// Reason is mandatory for rejections and ignored for approvals.
	Reason string
}

// LedgerRecorder is the claim-created hook. The single call site keeps the
// ledger append-only: nothing runs on approval or rejection, so rejected
// claims stay counted.
type LedgerRecorder interface {
	OnClaimCreated(ctx context.Context, claim Claim, grade string) ([]string, error)
}

// Service drives the claim lifecycle.
type Service interface {
	Create(ctx context.Context, req CreateClaimRequest) (CreateClaimResult, error)
	GetByID(ctx context.Context, id snowflake.ID) (Claim, error)
	ListForEmployee(ctx context.Context, employeeID string, filter ListFilter) ([]Claim, error)
	// ListPendingForApprover returns claims whose current pending level
	// names approverID in the snapshot chain.
	ListPendingForApprover(ctx context.Context, approverID string) ([]Claim, error)
	ListAll(ctx context.Context, filter ListFilter) ([]Claim, error)
	Approve(ctx context.Context, req DecisionRequest) (Claim, error)
	Reject(ctx context.Context, req DecisionRequest) (Claim, error)
	// Replay recomputes the status from the approval records and reports
	// whether it matches the stored one.
	Replay(ctx context.Context, id snowflake.ID) (Status, bool, error)
}
