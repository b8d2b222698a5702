// Package authorization enforces the role/object/action permission table.
// Role classification happens elsewhere; this package only answers whether
// an effective role may perform an action.
package authorization

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	roledomain "github.com/fieldops/claimflow/internal/role/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectClaim    = "claim"
	ObjectTravel   = "travel"
	ObjectEmployee = "employee"
	ObjectRole     = "role"
	ObjectPolicy   = "policy"
)

const (
	ActionClaimCreate  = "claim.create"
	ActionClaimView    = "claim.view"
	ActionClaimViewAll = "claim.view_all"
	ActionClaimApprove = "claim.approve"

	ActionTravelView    = "travel.view"
	ActionTravelViewAll = "travel.view_all"

	ActionEmployeeView   = "employee.view"
	ActionEmployeeManage = "employee.manage"

	ActionRoleView   = "role.view"
	ActionPolicyView = "policy.view"
)

var (
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)

// Service answers permission checks for classified roles.
type Service interface {
	Authorize(ctx context.Context, role roledomain.Role, object string, action string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer builds the enforcer on the shared database so policy edits
// made by operators survive restarts. The compiled-in matrix is re-seeded
// on boot; seeding is additive and idempotent.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, role roledomain.Role, object string, action string) error {
	subject := subjectForRole(role)
	if subject == "" {
		return ErrInvalidRole
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("subject", subject),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func subjectForRole(role roledomain.Role) string {
	switch role.Type {
	case roledomain.RoleEmployee, roledomain.RoleManager, roledomain.RoleAdmin:
		return fmt.Sprintf("role:%s", role.Type)
	default:
		return ""
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Employees act on their own data only; handlers scope the reads.
		{"role:employee", ObjectClaim, ActionClaimCreate},
		{"role:employee", ObjectClaim, ActionClaimView},
		{"role:employee", ObjectTravel, ActionTravelView},
		{"role:employee", ObjectRole, ActionRoleView},
		{"role:employee", ObjectPolicy, ActionPolicyView},

		// Managers additionally see and decide on their reports' claims.
		{"role:manager", ObjectClaim, ActionClaimViewAll},
		{"role:manager", ObjectClaim, ActionClaimApprove},
		{"role:manager", ObjectTravel, ActionTravelViewAll},

		// Admins manage the directory but do not submit claims.
		{"role:admin", ObjectClaim, ActionClaimView},
		{"role:admin", ObjectClaim, ActionClaimViewAll},
		{"role:admin", ObjectClaim, ActionClaimApprove},
		{"role:admin", ObjectTravel, ActionTravelView},
		{"role:admin", ObjectTravel, ActionTravelViewAll},
		{"role:admin", ObjectEmployee, ActionEmployeeView},
		{"role:admin", ObjectEmployee, ActionEmployeeManage},
		{"role:admin", ObjectRole, ActionRoleView},
		{"role:admin", ObjectPolicy, ActionPolicyView},
	}
	groupings := [][]string{
		// Managers inherit everything employees can do.
		{"role:manager", "role:employee"},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	for _, grouping := range groupings {
		if _, err := enforcer.AddGroupingPolicy(grouping[0], grouping[1]); err != nil {
			return err
		}
	}
	return nil
}

var Module = fx.Module("authorization.service",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)
