package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldops/claimflow/internal/clock"
	policydomain "github.com/fieldops/claimflow/internal/policy/domain"
	"github.com/fieldops/claimflow/internal/travellimit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Policy policydomain.Service
	Repo   domain.Repository
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	policy policydomain.Service
	repo   domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("travellimit.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		policy: p.Policy,
		repo:   p.Repo,
	}
}

func (s *Service) RecordClaim(ctx context.Context, req domain.RecordClaimRequest) (domain.View, []string, error) {
	employeeID := strings.TrimSpace(req.EmployeeID)
	if employeeID == "" {
		return domain.View{}, nil, domain.ErrInvalidEmployeeID
	}
	if req.Amount <= 0 {
		return domain.View{}, nil, domain.ErrInvalidAmount
	}

	now := s.clock.Now()
	month := domain.MonthKey(now)
	grade := strings.ToUpper(strings.TrimSpace(req.Grade))

	delta := domain.MonthlyTravelData{
		ID:              s.genID.Generate(),
		EmployeeID:      employeeID,
		Month:           month,
		EmployeeName:    strings.TrimSpace(req.EmployeeName),
		Grade:           grade,
		TotalClaims:     1,
		TotalAmount:     req.Amount,
		TotalDistanceKm: req.DistanceKm,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.IsFuel {
		delta.FuelClaims = 1
		delta.FuelAmount = req.Amount
	}

	if err := s.repo.Accumulate(ctx, s.db, &delta); err != nil {
		return domain.View{}, nil, err
	}

	record, err := s.repo.FindByEmployeeMonth(ctx, s.db, employeeID, month)
	if err != nil {
		return domain.View{}, nil, err
	}
	if record == nil {
		return domain.View{}, nil, domain.ErrNotFound
	}

	view := record.Evaluate(s.policy.MonthlyLimit(grade))

	var warnings []string
	if view.ExceedsLimit {
		warnings = append(warnings, fmt.Sprintf(
			"monthly travel limit exceeded: total %d over limit %d for %s",
			view.TotalAmount, view.PolicyLimit, month,
		))
		s.log.Warn("monthly travel limit exceeded",
			zap.String("employee_id", employeeID),
			zap.String("month", month),
			zap.Int64("total_amount", view.TotalAmount),
			zap.Int64("policy_limit", view.PolicyLimit),
		)
	}

	return view, warnings, nil
}

func (s *Service) GetMonthlyTravelData(ctx context.Context, employeeID, month string) (domain.View, error) {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return domain.View{}, domain.ErrInvalidEmployeeID
	}
	month = strings.TrimSpace(month)
	if month == "" {
		month = domain.MonthKey(s.clock.Now())
	} else if !monthPattern.MatchString(month) {
		return domain.View{}, domain.ErrInvalidMonth
	}

	record, err := s.repo.FindByEmployeeMonth(ctx, s.db, employeeID, month)
	if err != nil {
		return domain.View{}, err
	}
	if record == nil {
		return domain.View{}, domain.ErrNotFound
	}
	return record.Evaluate(s.policy.MonthlyLimit(record.Grade)), nil
}

func (s *Service) ValidateMonthlyLimit(ctx context.Context, employeeID, grade string, proposedAmount int64) (domain.ValidationResult, error) {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return domain.ValidationResult{}, domain.ErrInvalidEmployeeID
	}
	if proposedAmount <= 0 {
		return domain.ValidationResult{}, domain.ErrInvalidAmount
	}

	limit := s.policy.MonthlyLimit(grade)
	month := domain.MonthKey(s.clock.Now())

	var currentTotal int64
	record, err := s.repo.FindByEmployeeMonth(ctx, s.db, employeeID, month)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	if record != nil {
		currentTotal = record.TotalAmount
	}

	result := domain.ValidationResult{
		IsValid:      currentTotal+proposedAmount <= limit,
		CurrentTotal: currentTotal,
		Limit:        limit,
	}
	if !result.IsValid {
		overage := currentTotal + proposedAmount - limit
		result.Warning = fmt.Sprintf(
			"claim of %d would exceed the monthly limit of %d by %d",
			proposedAmount, limit, overage,
		)
	}
	return result, nil
}

func (s *Service) History(ctx context.Context, employeeID string) ([]domain.View, error) {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return nil, domain.ErrInvalidEmployeeID
	}

	records, err := s.repo.ListByEmployee(ctx, s.db, employeeID)
	if err != nil {
		return nil, err
	}
	views := make([]domain.View, 0, len(records))
	for _, record := range records {
		if record == nil {
			continue
		}
		views = append(views, record.Evaluate(s.policy.MonthlyLimit(record.Grade)))
	}
	return views, nil
}
