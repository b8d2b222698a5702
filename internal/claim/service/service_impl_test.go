package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldops/claimflow/internal/claim/domain"
	"github.com/fieldops/claimflow/internal/claim/repository"
	"github.com/fieldops/claimflow/internal/clock"
	employeedomain "github.com/fieldops/claimflow/internal/employee/domain"
	policydomain "github.com/fieldops/claimflow/internal/policy/domain"
	roledomain "github.com/fieldops/claimflow/internal/role/domain"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type directoryStub struct {
	employees map[string]employeedomain.Employee
}

func (d *directoryStub) Create(ctx context.Context, req employeedomain.CreateEmployeeRequest) (employeedomain.Employee, error) {
	return employeedomain.Employee{}, nil
}

func (d *directoryStub) GetByIdentifier(ctx context.Context, identifier string) (employeedomain.Employee, error) {
	employee, ok := d.employees[identifier]
	if !ok {
		return employeedomain.Employee{}, employeedomain.ErrNotFound
	}
	return employee, nil
}

func (d *directoryStub) List(ctx context.Context, filter employeedomain.ListFilter) ([]employeedomain.Employee, error) {
	out := make([]employeedomain.Employee, 0, len(d.employees))
	for _, employee := range d.employees {
		out = append(out, employee)
	}
	return out, nil
}

func (d *directoryStub) UpdateApprovalChain(ctx context.Context, req employeedomain.UpdateApprovalChainRequest) (employeedomain.Employee, error) {
	return employeedomain.Employee{}, nil
}

func (d *directoryStub) Deactivate(ctx context.Context, employeeID string) error {
	return nil
}

type roleStub struct {
	roles map[string]roledomain.Role
}

func (r *roleStub) Classify(ctx context.Context, identifier string) (roledomain.Role, error) {
	if role, ok := r.roles[identifier]; ok {
		return role, nil
	}
	return roledomain.Employee(), nil
}

type policyStub struct {
	entitlements map[string]policydomain.Entitlement
}

func (p *policyStub) Lookup(grade string) policydomain.Entitlement {
	if e, ok := p.entitlements[grade]; ok {
		return e
	}
	return policydomain.DefaultEntitlement()
}

func (p *policyStub) MonthlyLimit(grade string) int64 {
	limit := p.Lookup(grade).MonthlyLimit
	if limit <= 0 {
		return policydomain.BaselineMonthlyLimit
	}
	return limit
}

func (p *policyStub) FuelEntitlement(grade string, distanceKm float64) int64 {
	e := p.Lookup(grade)
	if e.FuelEfficiencyKmPerLiter <= 0 || distanceKm <= 0 {
		return 0
	}
	return int64(distanceKm / e.FuelEfficiencyKmPerLiter * 100)
}

func (p *policyStub) ManagerGrades() []string { return []string{"M1", "M2"} }

func (p *policyStub) Grades() []policydomain.Entitlement { return nil }

func (p *policyStub) Invalidate() {}

type ledgerStub struct {
	mu       sync.Mutex
	calls    int
	warnings []string
	err      error
}

func (l *ledgerStub) OnClaimCreated(ctx context.Context, claim domain.Claim, grade string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.warnings, l.err
}

func (l *ledgerStub) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

var testDBSeq int

func setupClaimDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDBSeq++
	dsn := fmt.Sprintf("file:claimsvc%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Claim{}, &domain.Approval{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

func defaultDirectory() *directoryStub {
	return &directoryStub{employees: map[string]employeedomain.Employee{
		"EMP001": {
			EmployeeID: "EMP001", Name: "Ravi Kumar", Email: "ravi@corp.local",
			Grade: "L2", Active: true,
			ApproverL1: "MGR001", ApproverL2: "MGR002", ApproverL3: "MGR003",
		},
		"EMP002": {
			EmployeeID: "EMP002", Name: "Deepa Singh", Email: "deepa@corp.local",
			Grade: "L1", Active: true,
			ApproverL1: "MGR001", ApproverL3: "MGR003",
		},
		"EMP003": {
			EmployeeID: "EMP003", Name: "Vikram Joshi", Email: "vikram@corp.local",
			Grade: "L3", Active: true,
		},
		"MGR001": {EmployeeID: "MGR001", Name: "Sunita Rao", Email: "sunita@corp.local", Grade: "M1", Active: true},
		"MGR002": {EmployeeID: "MGR002", Name: "Arun Mehta", Email: "arun@corp.local", Grade: "M1", Active: true},
		"MGR003": {EmployeeID: "MGR003", Name: "Priya Nair", Email: "priya@corp.local", Grade: "M2", Active: true},
		"ADMIN1": {EmployeeID: "ADMIN1", Name: "Root", Email: "root@corp.local", Grade: "M2", Active: true, IsAdmin: true},
		"GONE01": {EmployeeID: "GONE01", Name: "Former Manager", Email: "gone@corp.local", Grade: "M1", Active: false},
	}}
}

func defaultRoles() *roleStub {
	return &roleStub{roles: map[string]roledomain.Role{
		"MGR001": {Type: roledomain.RoleManager, Level: employeedomain.LevelL1},
		"MGR002": {Type: roledomain.RoleManager, Level: employeedomain.LevelL2},
		"MGR003": {Type: roledomain.RoleManager, Level: employeedomain.LevelL3},
		"ADMIN1": roledomain.Admin(),
	}}
}

func setupClaimService(t *testing.T) (domain.Service, *ledgerStub, *clock.FakeClock) {
	t.Helper()
	svc, ledger, fakeClock, _ := setupClaimServiceDB(t)
	return svc, ledger, fakeClock
}

func setupClaimServiceDB(t *testing.T) (domain.Service, *ledgerStub, *clock.FakeClock, *gorm.DB) {
	t.Helper()
	db := setupClaimDB(t)
	ledger := &ledgerStub{}
	fakeClock := clock.NewFakeClock(time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    mustNode(t),
		Clock:    fakeClock,
		Employee: defaultDirectory(),
		Policy:   &policyStub{entitlements: map[string]policydomain.Entitlement{"L2": {Grade: "L2", MonthlyLimit: 25000, FuelEfficiencyKmPerLiter: 40}}},
		Role:     defaultRoles(),
		Ledger:   ledger,
		Repo:     repository.Provide(),
	})
	return svc, ledger, fakeClock, db
}

func createClaim(t *testing.T, svc domain.Service, employeeID string, claimType string, amount int64) domain.CreateClaimResult {
	t.Helper()
	result, err := svc.Create(context.Background(), domain.CreateClaimRequest{
		EmployeeID: employeeID,
		Type:       claimType,
		Amount:     amount,
	})
	if err != nil {
		t.Fatalf("create claim: %v", err)
	}
	return result
}

func TestCreateClaimSnapshotsChain(t *testing.T) {
	svc, ledger, _ := setupClaimService(t)

	result := createClaim(t, svc, "EMP001", "travel", 1200)
	claim := result.Claim

	if claim.Status != domain.StatusPendingL1 {
		t.Fatalf("expected pending_l1, got %s", claim.Status)
	}
	if claim.ChainL1 != "MGR001" || claim.ChainL2 != "MGR002" || claim.ChainL3 != "MGR003" {
		t.Fatalf("unexpected chain snapshot: %+v", claim.Chain())
	}
	if ledger.Calls() != 1 {
		t.Fatalf("expected 1 ledger recording, got %d", ledger.Calls())
	}
}

func TestCreateClaimValidation(t *testing.T) {
	svc, _, _ := setupClaimService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.CreateClaimRequest
		want error
	}{
		{"bad type", domain.CreateClaimRequest{EmployeeID: "EMP001", Type: "snacks", Amount: 100}, domain.ErrInvalidType},
		{"zero amount", domain.CreateClaimRequest{EmployeeID: "EMP001", Type: "travel", Amount: 0}, domain.ErrInvalidAmount},
		{"negative amount", domain.CreateClaimRequest{EmployeeID: "EMP001", Type: "travel", Amount: -5}, domain.ErrInvalidAmount},
		{"negative distance", domain.CreateClaimRequest{EmployeeID: "EMP001", Type: "fuel", Amount: 100, DistanceKm: -3}, domain.ErrInvalidDistance},
		{"bad date", domain.CreateClaimRequest{EmployeeID: "EMP001", Type: "travel", Amount: 100, ExpenseDate: "31-01-2026"}, domain.ErrInvalidDate},
		{"unknown employee", domain.CreateClaimRequest{EmployeeID: "NOPE", Type: "travel", Amount: 100}, employeedomain.ErrNotFound},
	}
	for _, tc := range cases {
		if _, err := svc.Create(ctx, tc.req); err != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestCreateClaimSurvivesLedgerFailure(t *testing.T) {
	svc, ledger, _ := setupClaimService(t)
	ledger.err = fmt.Errorf("redis down")

	result := createClaim(t, svc, "EMP001", "travel", 500)
	if result.Claim.Status != domain.StatusPendingL1 {
		t.Fatalf("claim should persist despite ledger failure")
	}
	if len(result.Warnings) == 0 {
		t.Fatalf("expected a warning about the ledger")
	}
}

func TestCreateClaimWithoutL1IsStuck(t *testing.T) {
	svc, _, _ := setupClaimService(t)

	result := createClaim(t, svc, "EMP003", "food", 300)
	if !result.Claim.Stuck() {
		t.Fatalf("claim with empty chain should be stuck")
	}
	if len(result.Warnings) == 0 {
		t.Fatalf("expected a stuck-chain warning")
	}
}

func TestApproveFullChain(t *testing.T) {
	svc, _, _ := setupClaimService(t)
	ctx := context.Background()

	claim := createClaim(t, svc, "EMP001", "travel", 1200).Claim

	steps := []struct {
		approver string
		level    employeedomain.Level
		want     domain.Status
	}{
		{"MGR001", employeedomain.LevelL1, domain.StatusPendingL2},
		{"MGR002", employeedomain.LevelL2, domain.StatusPendingL3},
		{"MGR003", employeedomain.LevelL3, domain.StatusApproved},
	}
	for _, step := range steps {
		updated, err := svc.Approve(ctx, domain.DecisionRequest{
			ClaimID:    claim.ID,
			ApproverID: step.approver,
			Level:      step.level,
		})
		if err != nil {
			t.Fatalf("approve at %s: %v", step.level, err)
		}
		if updated.Status != step.want {
			t.Fatalf("after %s expected %s, got %s", step.level, step.want, updated.Status)
		}
	}

	replayed, matches, err := svc.Replay(ctx, claim.ID)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !matches || replayed != domain.StatusApproved {
		t.Fatalf("replay mismatch: %s matches=%v", replayed, matches)
	}
}

func TestApproveSkipsMissingLevel(t *testing.T) {
	svc, _, _ := setupClaimService(t)
	ctx := context.Background()

	// EMP002 has no L2 approver, so L1 approval moves straight to L3.
	claim := createClaim(t, svc, "EMP002", "travel", 800).Claim

	updated, err := svc.Approve(ctx, domain.DecisionRequest{
		ClaimID:    claim.ID,
		ApproverID: "MGR001",
		Level:      employeedomain.LevelL1,
	})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if updated.Status != domain.StatusPendingL3 {
		t.Fatalf("expected pending_l3, got %s", updated.Status)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	svc, _, _ := setupClaimService(t)
	ctx := context.Background()

	claim := createClaim(t, svc, "EMP001", "travel", 700).Claim

	_, err := svc.Reject(ctx, domain.DecisionRequest{
		ClaimID:    claim.ID,
		ApproverID: "MGR001",
		Level:      employeedomain.LevelL1,
	})
	if err != domain.ErrMissingReason {
		t.Fatalf("expected missing reason error, got %v", err)
	}

	updated, err := svc.Reject(ctx, domain.DecisionRequest{
		ClaimID:    claim.ID,
		ApproverID: "MGR001",
		Level:      employeedomain.LevelL1,
		Reason:     "no receipts attached",
	})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if updated.Status != domain.StatusRejected {
		t.Fatalf("expected rejected, got %s", updated.Status)
	}
	if updated.RejectionReason != "no receipts attached" {
		t.Fatalf("reason not recorded: %q", updated.RejectionReason)
	}
}

func TestApproverMustMatchChain(t *testing.T) {
	svc, _, _ := setupClaimService(t)
	ctx := context.Background()

	claim := createClaim(t, svc, "EMP001", "travel", 400).Claim

	// MGR002 can approve at L1 by rank, but the snapshot names MGR001.
	_, err := svc.Approve(ctx, domain.DecisionRequest{
		ClaimID:    claim.ID,
		ApproverID: "MGR002",
		Level:      employeedomain.LevelL1,
	})
	if err != domain.ErrNotAuthorized {
		t.Fatalf("expected not authorized, got %v", err)
	}

	// A plain employee can never approve.
	_, err = svc.Approve(ctx, domain.DecisionRequest{
		ClaimID:    claim.ID,
		ApproverID: "EMP002",
		Level:      employeedomain.LevelL1,
	})
	if err != domain.ErrNotAuthorized {
		t.Fatalf("expected not authorized for employee, got %v", err)
	}

	// An inactive approver is rejected even when the chain names them.
	_, err = svc.Approve(ctx, domain.DecisionRequest{
		ClaimID:    claim.ID,
		ApproverID: "GONE01",
		Level:      employeedomain.LevelL1,
	})
	if err != domain.ErrNotAuthorized {
		t.Fatalf("expected not authorized for inactive, got %v", err)
	}
}

func TestAdminBypassesChain(t *testing.T) {
	svc, _, _ := setupClaimService(t)
	ctx := context.Background()

	claim := createClaim(t, svc, "EMP001", "travel", 400).Claim

	updated, err := svc.Approve(ctx, domain.DecisionRequest{
		ClaimID:    claim.ID,
		ApproverID: "ADMIN1",
		Level:      employeedomain.LevelL1,
	})
	if err != nil {
		t.Fatalf("admin approve: %v", err)
	}
	if updated.Status != domain.StatusPendingL2 {
		t.Fatalf("expected pending_l2, got %s", updated.Status)
	}
}

func TestStaleDecisionLoses(t *testing.T) {
	svc, _, _ := setupClaimService(t)
	ctx := context.Background()

	claim := createClaim(t, svc, "EMP001", "travel", 400).Claim

	if _, err := svc.Approve(ctx, domain.DecisionRequest{
		ClaimID:    claim.ID,
		ApproverID: "MGR001",
		Level:      employeedomain.LevelL1,
	}); err != nil {
		t.Fatalf("first approve: %v", err)
	}

	// Acting again on the already-consumed level must fail, not double
	// apply.
	_, err := svc.Approve(ctx, domain.DecisionRequest{
		ClaimID:    claim.ID,
		ApproverID: "MGR001",
		Level:      employeedomain.LevelL1,
	})
	if err != domain.ErrStaleState {
		t.Fatalf("expected stale state, got %v", err)
	}

	_, err = svc.Reject(ctx, domain.DecisionRequest{
		ClaimID:    claim.ID,
		ApproverID: "MGR001",
		Level:      employeedomain.LevelL1,
		Reason:     "too late",
	})
	if err != domain.ErrStaleState {
		t.Fatalf("expected stale state on reject, got %v", err)
	}
}

func TestConcurrentApproveSingleWinner(t *testing.T) {
	svc, _, _, db := setupClaimServiceDB(t)
	ctx := context.Background()

	claim := createClaim(t, svc, "EMP001", "travel", 400).Claim

	// Two approvers race on the same level. The conditional status update
	// must let exactly one through and append exactly one approval row.
	start := make(chan struct{})
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Approve(ctx, domain.DecisionRequest{
				ClaimID:    claim.ID,
				ApproverID: "MGR001",
				Level:      employeedomain.LevelL1,
			})
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	var wins, stale int
	for err := range errs {
		switch err {
		case nil:
			wins++
		case domain.ErrStaleState:
			stale++
		default:
			t.Fatalf("unexpected decision error: %v", err)
		}
	}
	if wins != 1 || stale != 1 {
		t.Fatalf("expected one winner and one stale loser, got wins=%d stale=%d", wins, stale)
	}

	updated, err := svc.GetByID(ctx, claim.ID)
	if err != nil {
		t.Fatalf("get claim: %v", err)
	}
	if updated.Status != domain.StatusPendingL2 {
		t.Fatalf("expected pending_l2 after the race, got %s", updated.Status)
	}

	var approvals int64
	if err := db.Model(&domain.Approval{}).Where("claim_id = ?", claim.ID).Count(&approvals).Error; err != nil {
		t.Fatalf("count approvals: %v", err)
	}
	if approvals != 1 {
		t.Fatalf("expected exactly 1 approval row, got %d", approvals)
	}
}

func TestTerminalClaimsAreImmutable(t *testing.T) {
	svc, _, _ := setupClaimService(t)
	ctx := context.Background()

	claim := createClaim(t, svc, "EMP001", "travel", 400).Claim

	if _, err := svc.Reject(ctx, domain.DecisionRequest{
		ClaimID:    claim.ID,
		ApproverID: "MGR001",
		Level:      employeedomain.LevelL1,
		Reason:     "policy violation",
	}); err != nil {
		t.Fatalf("reject: %v", err)
	}

	for _, level := range employeedomain.Levels() {
		_, err := svc.Approve(ctx, domain.DecisionRequest{
			ClaimID:    claim.ID,
			ApproverID: "ADMIN1",
			Level:      level,
		})
		if err != domain.ErrStaleState {
			t.Fatalf("terminal claim accepted a decision at %s: %v", level, err)
		}
	}
}

func TestFuelEntitlementWarning(t *testing.T) {
	svc, _, _ := setupClaimService(t)

	// L2 at 40 km/l and 100 per liter entitles 250 for 100 km.
	result, err := svc.Create(context.Background(), domain.CreateClaimRequest{
		EmployeeID: "EMP001",
		Type:       "fuel",
		Amount:     1000,
		DistanceKm: 100,
	})
	if err != nil {
		t.Fatalf("create fuel claim: %v", err)
	}

	found := false
	for _, warning := range result.Warnings {
		if strings.Contains(warning, "entitlement") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected fuel entitlement warning, got %v", result.Warnings)
	}
}

func TestListPendingForApprover(t *testing.T) {
	svc, _, _ := setupClaimService(t)
	ctx := context.Background()

	first := createClaim(t, svc, "EMP001", "travel", 100).Claim
	second := createClaim(t, svc, "EMP002", "food", 200).Claim

	pending, err := svc.ListPendingForApprover(ctx, "MGR001")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending claims, got %d", len(pending))
	}

	if _, err := svc.Approve(ctx, domain.DecisionRequest{
		ClaimID:    first.ID,
		ApproverID: "MGR001",
		Level:      employeedomain.LevelL1,
	}); err != nil {
		t.Fatalf("approve: %v", err)
	}

	pending, err = svc.ListPendingForApprover(ctx, "MGR001")
	if err != nil {
		t.Fatalf("list pending after approve: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != second.ID {
		t.Fatalf("expected only the second claim pending at L1")
	}

	// first is now pending_l2 and should surface for MGR002.
	pending, err = svc.ListPendingForApprover(ctx, "MGR002")
	if err != nil {
		t.Fatalf("list pending for MGR002: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != first.ID {
		t.Fatalf("expected the first claim pending at L2")
	}
}
