package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/fieldops/claimflow/internal/config"
	employeedomain "github.com/fieldops/claimflow/internal/employee/domain"
	policydomain "github.com/fieldops/claimflow/internal/policy/domain"
	"github.com/fieldops/claimflow/internal/role/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg       config.Config
	Log       *zap.Logger
	Directory employeedomain.Service
	Policy    policydomain.Service
}

type Service struct {
	log         *zap.Logger
	directory   employeedomain.Service
	isManager   domain.ManagerPredicate
	adminEmails map[string]struct{}
	timeout     time.Duration
}

func New(p Params) domain.Service {
	admins := make(map[string]struct{}, len(p.Cfg.AdminEmails))
	for _, email := range p.Cfg.AdminEmails {
		admins[strings.ToLower(strings.TrimSpace(email))] = struct{}{}
	}

	timeout := time.Duration(p.Cfg.RoleLookupTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	return &Service{
		log:         p.Log.Named("role.service"),
		directory:   p.Directory,
		isManager:   domain.NewGradeManagerPredicate(p.Policy.ManagerGrades()),
		adminEmails: admins,
		timeout:     timeout,
	}
}

// NewWithPredicate builds a classifier with a custom manager heuristic.
func NewWithPredicate(p Params, isManager domain.ManagerPredicate) domain.Service {
	svc := New(p).(*Service)
	svc.isManager = isManager
	return svc
}

func (s *Service) Classify(ctx context.Context, identifier string) (domain.Role, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return domain.Employee(), employeedomain.ErrInvalidEmployeeID
	}

	// Admin designation short-circuits the directory entirely.
	if s.isConfiguredAdmin(identifier) {
		return domain.Admin(), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	self, err := s.directory.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, employeedomain.ErrNotFound) {
			return domain.Employee(), employeedomain.ErrNotFound
		}
		// Fail closed to least privilege on timeouts and directory faults.
		s.log.Warn("directory lookup failed, classifying as employee",
			zap.String("identifier", identifier),
			zap.Error(err),
		)
		return domain.Employee(), nil
	}

	if self.IsAdmin {
		return domain.Admin(), nil
	}

	managerByGrade := s.isManager(self)

	level, managed, scanErr := s.scanApprovalChains(ctx, self.EmployeeID)
	if scanErr != nil {
		s.log.Warn("approval chain scan failed",
			zap.String("employee_id", self.EmployeeID),
			zap.Error(scanErr),
		)
		if managerByGrade {
			return domain.Role{Type: domain.RoleManager, Level: employeedomain.LevelL1}, nil
		}
		return domain.Employee(), nil
	}

	switch {
	case len(managed) > 0:
		return domain.Role{
			Type:               domain.RoleManager,
			Level:              level,
			ManagedEmployeeIDs: managed,
		}, nil
	case managerByGrade:
		// Grade classification is authoritative even without confirmed
		// directs.
		return domain.Role{Type: domain.RoleManager, Level: employeedomain.LevelL1}, nil
	default:
		return domain.Employee(), nil
	}
}

func (s *Service) isConfiguredAdmin(identifier string) bool {
	_, ok := s.adminEmails[strings.ToLower(identifier)]
	return ok
}

// scanApprovalChains walks the directory collecting employees whose chain
// references approverID, recording the lowest level at which the approver
// appears. First match wins per employee; the level never downgrades.
func (s *Service) scanApprovalChains(ctx context.Context, approverID string) (employeedomain.Level, []string, error) {
	all, err := s.directory.List(ctx, employeedomain.ListFilter{OnlyActive: true})
	if err != nil {
		return "", nil, err
	}

	best := employeedomain.Level("")
	managed := make([]string, 0)
	for _, other := range all {
		if other.EmployeeID == approverID {
			continue
		}
		chain := other.Chain()
		for _, level := range employeedomain.Levels() {
			if chain.ApproverAt(level) != approverID {
				continue
			}
			managed = append(managed, other.EmployeeID)
			if best == "" || level.Rank() < best.Rank() {
				best = level
			}
			break
		}
	}
	sort.Strings(managed)
	return best, managed, nil
}
