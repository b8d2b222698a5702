package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldops/claimflow/internal/claim/domain"
	"github.com/fieldops/claimflow/internal/clock"
	employeedomain "github.com/fieldops/claimflow/internal/employee/domain"
	policydomain "github.com/fieldops/claimflow/internal/policy/domain"
	roledomain "github.com/fieldops/claimflow/internal/role/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Employee employeedomain.Service
	Policy   policydomain.Service
	Role     roledomain.Service
	Ledger   domain.LedgerRecorder
	Repo     domain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	employee employeedomain.Service
	policy   policydomain.Service
	role     roledomain.Service
	ledger   domain.LedgerRecorder
	repo     domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("claim.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		employee: p.Employee,
		policy:   p.Policy,
		role:     p.Role,
		ledger:   p.Ledger,
		repo:     p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateClaimRequest) (domain.CreateClaimResult, error) {
	claimType, ok := domain.ParseType(req.Type)
	if !ok {
		return domain.CreateClaimResult{}, domain.ErrInvalidType
	}
	if req.Amount <= 0 {
		return domain.CreateClaimResult{}, domain.ErrInvalidAmount
	}
	if req.DistanceKm < 0 {
		return domain.CreateClaimResult{}, domain.ErrInvalidDistance
	}

	employee, err := s.employee.GetByIdentifier(ctx, req.EmployeeID)
	if err != nil {
		return domain.CreateClaimResult{}, err
	}
	if !employee.Active {
		return domain.CreateClaimResult{}, employeedomain.ErrNotFound
	}

	now := s.clock.Now()
	expenseDate := now
	if raw := strings.TrimSpace(req.ExpenseDate); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return domain.CreateClaimResult{}, domain.ErrInvalidDate
		}
		expenseDate = parsed.UTC()
	}

	claim := domain.Claim{
		ID:            s.genID.Generate(),
		EmployeeID:    employee.EmployeeID,
		EmployeeName:  employee.Name,
		EmployeeEmail: employee.Email,
		Type:          claimType,
		Amount:        req.Amount,
		DistanceKm:    req.DistanceKm,
		ExpenseDate:   expenseDate,
		// Every claim enters at L1 even when the snapshot has no L1
		// approver; such claims are reported stuck rather than skipped
		// ahead.
		Status:      domain.StatusPendingL1,
		ChainL1:     employee.ApproverL1,
		ChainL2:     employee.ApproverL2,
		ChainL3:     employee.ApproverL3,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	if desc := strings.TrimSpace(req.Description); desc != "" {
		claim.Metadata = map[string]interface{}{"description": desc}
	}

	if err := s.repo.Insert(ctx, s.db, &claim); err != nil {
		return domain.CreateClaimResult{}, err
	}

	var warnings []string

	ledgerWarnings, err := s.ledger.OnClaimCreated(ctx, claim, employee.Grade)
	if err != nil {
		// The claim is already committed. Surface the gap loudly but do
		// not fail the submission.
		s.log.Error("ledger recording failed for created claim",
			zap.String("claim_id", claim.ID.String()),
			zap.String("employee_id", claim.EmployeeID),
			zap.Error(err),
		)
		warnings = append(warnings, "monthly travel ledger could not be updated")
	} else {
		warnings = append(warnings, ledgerWarnings...)
	}

	if claimType == domain.TypeFuel && req.DistanceKm > 0 {
		if entitled := s.policy.FuelEntitlement(employee.Grade, req.DistanceKm); entitled > 0 && req.Amount > entitled {
			warnings = append(warnings, fmt.Sprintf(
				"fuel amount %d exceeds the entitlement of %d for %.1f km",
				req.Amount, entitled, req.DistanceKm,
			))
		}
	}

	if claim.Stuck() {
		warnings = append(warnings, "no L1 approver is configured; the claim cannot progress until the approval chain is fixed")
		s.log.Warn("claim created without an L1 approver",
			zap.String("claim_id", claim.ID.String()),
			zap.String("employee_id", claim.EmployeeID),
		)
	}

	s.log.Info("claim created",
		zap.String("claim_id", claim.ID.String()),
		zap.String("employee_id", claim.EmployeeID),
		zap.String("type", string(claimType)),
		zap.Int64("amount", claim.Amount),
	)

	return domain.CreateClaimResult{Claim: claim, Warnings: warnings}, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.Claim, error) {
	claim, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Claim{}, err
	}
	if claim == nil {
		return domain.Claim{}, domain.ErrNotFound
	}
	approvals, err := s.repo.ListApprovals(ctx, s.db, id)
	if err != nil {
		return domain.Claim{}, err
	}
	claim.Approvals = approvals
	return *claim, nil
}

func (s *Service) ListForEmployee(ctx context.Context, employeeID string, filter domain.ListFilter) ([]domain.Claim, error) {
	return s.repo.ListByEmployee(ctx, s.db, employeeID, filter)
}

func (s *Service) ListPendingForApprover(ctx context.Context, approverID string) ([]domain.Claim, error) {
	return s.repo.ListPendingForApprover(ctx, s.db, strings.TrimSpace(approverID))
}

func (s *Service) ListAll(ctx context.Context, filter domain.ListFilter) ([]domain.Claim, error) {
	return s.repo.ListAll(ctx, s.db, filter)
}

func (s *Service) Approve(ctx context.Context, req domain.DecisionRequest) (domain.Claim, error) {
	return s.decide(ctx, req, domain.ActionApproved)
}

func (s *Service) Reject(ctx context.Context, req domain.DecisionRequest) (domain.Claim, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return domain.Claim{}, domain.ErrMissingReason
	}
	return s.decide(ctx, req, domain.ActionRejected)
}

func (s *Service) decide(ctx context.Context, req domain.DecisionRequest, action domain.Action) (domain.Claim, error) {
	if req.Level.Rank() == 0 {
		return domain.Claim{}, domain.ErrInvalidLevel
	}

	claim, err := s.repo.FindByID(ctx, s.db, req.ClaimID)
	if err != nil {
		return domain.Claim{}, err
	}
	if claim == nil {
		return domain.Claim{}, domain.ErrNotFound
	}

	fromStatus := domain.StatusForLevel(req.Level)
	if claim.Status != fromStatus {
		return domain.Claim{}, domain.ErrStaleState
	}

	approver, role, err := s.authorizeApprover(ctx, req.ApproverID, req.Level, *claim)
	if err != nil {
		return domain.Claim{}, err
	}

	toStatus := domain.StatusRejected
	rejectionReason := strings.TrimSpace(req.Reason)
	if action == domain.ActionApproved {
		rejectionReason = ""
		if next, ok := claim.Chain().NextAfter(req.Level); ok {
			toStatus = domain.StatusForLevel(next)
		} else {
			toStatus = domain.StatusApproved
		}
	}

	approval := domain.Approval{
		ID:            s.genID.Generate(),
		ClaimID:       claim.ID,
		Level:         req.Level,
		ApproverID:    approver.EmployeeID,
		ApproverName:  approver.Name,
		ApproverEmail: approver.Email,
		Action:        action,
		Comments:      strings.TrimSpace(req.Comments),
		CreatedAt:     s.clock.Now(),
	}

	applied, err := s.repo.Transition(ctx, s.db, claim.ID, fromStatus, toStatus, rejectionReason, &approval)
	if err != nil {
		return domain.Claim{}, err
	}
	if !applied {
		return domain.Claim{}, domain.ErrStaleState
	}

	s.log.Info("claim transitioned",
		zap.String("claim_id", claim.ID.String()),
		zap.String("from", string(fromStatus)),
		zap.String("to", string(toStatus)),
		zap.String("approver_id", approver.EmployeeID),
		zap.String("role", string(role.Type)),
	)

	return s.GetByID(ctx, claim.ID)
}

// authorizeApprover enforces both halves of the check: the effective role
// must allow acting at the level, and non-admins must be the approver the
// snapshot chain names for it.
func (s *Service) authorizeApprover(ctx context.Context, approverID string, level employeedomain.Level, claim domain.Claim) (employeedomain.Employee, roledomain.Role, error) {
	approver, err := s.employee.GetByIdentifier(ctx, approverID)
	if err != nil {
		return employeedomain.Employee{}, roledomain.Role{}, err
	}
	if !approver.Active {
		return employeedomain.Employee{}, roledomain.Role{}, domain.ErrNotAuthorized
	}

	role, err := s.role.Classify(ctx, approver.EmployeeID)
	if err != nil {
		return employeedomain.Employee{}, roledomain.Role{}, err
	}
	if !role.CanApproveAtLevel(level) {
		return employeedomain.Employee{}, roledomain.Role{}, domain.ErrNotAuthorized
	}
	if role.Type != roledomain.RoleAdmin && claim.Chain().ApproverAt(level) != approver.EmployeeID {
		return employeedomain.Employee{}, roledomain.Role{}, domain.ErrNotAuthorized
	}
	return approver, role, nil
}

func (s *Service) Replay(ctx context.Context, id snowflake.ID) (domain.Status, bool, error) {
	claim, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return "", false, err
	}
	if claim == nil {
		return "", false, domain.ErrNotFound
	}
	approvals, err := s.repo.ListApprovals(ctx, s.db, id)
	if err != nil {
		return "", false, err
	}
	replayed, err := domain.ReplayStatus(claim.Chain(), approvals)
	if err != nil {
		return "", false, err
	}
	return replayed, replayed == claim.Status, nil
}
