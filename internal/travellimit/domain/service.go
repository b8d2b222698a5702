package domain

import "context"

// Service maintains the monthly spend ledger. Recording is additive and
// unconditional; ValidateMonthlyLimit is the advisory pre-check callers may
// act on before submitting.
type Service interface {
	RecordClaim(ctx context.Context, req RecordClaimRequest) (View, []string, error)
	// GetMonthlyTravelData returns the bucket for the month (current month
	// when empty), or ErrNotFound when nothing was recorded.
	GetMonthlyTravelData(ctx context.Context, employeeID, month string) (View, error)
	// ValidateMonthlyLimit checks whether proposedAmount would fit the
	// grade's limit on top of the current month's total. Pure read.
	ValidateMonthlyLimit(ctx context.Context, employeeID, grade string, proposedAmount int64) (ValidationResult, error)
	// History lists every recorded month for the employee, newest first.
	History(ctx context.Context, employeeID string) ([]View, error)
}
