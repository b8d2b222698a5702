package service

import (
	"context"

	"github.com/fieldops/claimflow/internal/claim/domain"
	travellimitdomain "github.com/fieldops/claimflow/internal/travellimit/domain"
)

type ledgerRecorder struct {
	travel travellimitdomain.Service
}

// NewLedgerRecorder bridges claim creation into the monthly ledger.
func NewLedgerRecorder(travel travellimitdomain.Service) domain.LedgerRecorder {
	return &ledgerRecorder{travel: travel}
}

func (l *ledgerRecorder) OnClaimCreated(ctx context.Context, claim domain.Claim, grade string) ([]string, error) {
	_, warnings, err := l.travel.RecordClaim(ctx, travellimitdomain.RecordClaimRequest{
		EmployeeID:   claim.EmployeeID,
		EmployeeName: claim.EmployeeName,
		Grade:        grade,
		Amount:       claim.Amount,
		DistanceKm:   claim.DistanceKm,
		IsFuel:       claim.Type == domain.TypeFuel,
	})
	return warnings, err
}
