package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldops/claimflow/internal/clock"
	"github.com/fieldops/claimflow/internal/employee/domain"
	"github.com/fieldops/claimflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("employee.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateEmployeeRequest) (domain.Employee, error) {
	employeeID := strings.TrimSpace(req.EmployeeID)
	if employeeID == "" {
		return domain.Employee{}, domain.ErrInvalidEmployeeID
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Employee{}, domain.ErrInvalidName
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Employee{}, domain.ErrInvalidEmail
	}
	grade := strings.ToUpper(strings.TrimSpace(req.Grade))
	if grade == "" {
		return domain.Employee{}, domain.ErrInvalidGrade
	}

	if err := s.validateChain(ctx, employeeID, req.Chain); err != nil {
		return domain.Employee{}, err
	}

	now := s.clock.Now()
	employee := domain.Employee{
		ID:          s.genID.Generate(),
		EmployeeID:  employeeID,
		Name:        name,
		Email:       email,
		Grade:       grade,
		Designation: strings.TrimSpace(req.Designation),
		ApproverL1:  strings.TrimSpace(req.Chain.L1),
		ApproverL2:  strings.TrimSpace(req.Chain.L2),
		ApproverL3:  strings.TrimSpace(req.Chain.L3),
		Active:      true,
		IsAdmin:     req.IsAdmin,
		Metadata:    datatypes.JSONMap{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, &employee); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Employee{}, domain.ErrAlreadyExists
		}
		return domain.Employee{}, err
	}

	return employee, nil
}

func (s *Service) GetByIdentifier(ctx context.Context, identifier string) (domain.Employee, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return domain.Employee{}, domain.ErrInvalidEmployeeID
	}

	var (
		found *domain.Employee
		err   error
	)
	if strings.Contains(identifier, "@") {
		found, err = s.repo.FindByEmail(ctx, s.db, identifier)
	} else {
		found, err = s.repo.FindByEmployeeID(ctx, s.db, identifier)
	}
	if err != nil {
		return domain.Employee{}, err
	}
	if found == nil {
		return domain.Employee{}, domain.ErrNotFound
	}
	return *found, nil
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]domain.Employee, error) {
	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	employees := make([]domain.Employee, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		employees = append(employees, *item)
	}
	return employees, nil
}

func (s *Service) UpdateApprovalChain(ctx context.Context, req domain.UpdateApprovalChainRequest) (domain.Employee, error) {
	employeeID := strings.TrimSpace(req.EmployeeID)
	if employeeID == "" {
		return domain.Employee{}, domain.ErrInvalidEmployeeID
	}

	if err := s.validateChain(ctx, employeeID, req.Chain); err != nil {
		return domain.Employee{}, err
	}

	updated, err := s.repo.UpdateChain(ctx, s.db, employeeID, req.Chain)
	if err != nil {
		return domain.Employee{}, err
	}
	if !updated {
		return domain.Employee{}, domain.ErrNotFound
	}

	s.log.Info("approval chain updated",
		zap.String("employee_id", employeeID),
		zap.String("l1", req.Chain.L1),
		zap.String("l2", req.Chain.L2),
		zap.String("l3", req.Chain.L3),
	)

	return s.GetByIdentifier(ctx, employeeID)
}

func (s *Service) Deactivate(ctx context.Context, employeeID string) error {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return domain.ErrInvalidEmployeeID
	}
	updated, err := s.repo.SetActive(ctx, s.db, employeeID, false)
	if err != nil {
		return err
	}
	if !updated {
		return domain.ErrNotFound
	}
	return nil
}

// validateChain checks every configured approver: must exist, be active and
// not be the employee themselves. Inactive employees are never selectable as
// approvers.
func (s *Service) validateChain(ctx context.Context, employeeID string, chain domain.ApprovalChain) error {
	for _, level := range domain.Levels() {
		approverID := chain.ApproverAt(level)
		if approverID == "" {
			continue
		}
		if approverID == employeeID {
			return domain.ErrInvalidApprover
		}
		approver, err := s.repo.FindByEmployeeID(ctx, s.db, approverID)
		if err != nil {
			return err
		}
		if approver == nil || !approver.Active {
			return domain.ErrInvalidApprover
		}
	}
	return nil
}
