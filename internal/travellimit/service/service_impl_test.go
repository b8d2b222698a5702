package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldops/claimflow/internal/clock"
	policydomain "github.com/fieldops/claimflow/internal/policy/domain"
	"github.com/fieldops/claimflow/internal/travellimit/domain"
	"github.com/fieldops/claimflow/internal/travellimit/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type policyStub struct {
	limits map[string]int64
}

func (p *policyStub) Lookup(grade string) policydomain.Entitlement {
	return policydomain.DefaultEntitlement()
}

func (p *policyStub) MonthlyLimit(grade string) int64 {
	if limit, ok := p.limits[grade]; ok {
		return limit
	}
	return policydomain.BaselineMonthlyLimit
}

func (p *policyStub) FuelEntitlement(grade string, distanceKm float64) int64 { return 0 }
func (p *policyStub) ManagerGrades() []string                                { return nil }
func (p *policyStub) Grades() []policydomain.Entitlement                     { return nil }
func (p *policyStub) Invalidate()                                            {}

var testDBSeq int

func setupTravelService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()
	testDBSeq++
	dsn := fmt.Sprintf("file:travelsvc%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.MonthlyTravelData{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	fakeClock := clock.NewFakeClock(time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  fakeClock,
		Policy: &policyStub{limits: map[string]int64{"L2": 25000}},
		Repo:   repository.Provide(),
	})
	return svc, fakeClock
}

func record(t *testing.T, svc domain.Service, amount int64, isFuel bool) (domain.View, []string) {
	t.Helper()
	view, warnings, err := svc.RecordClaim(context.Background(), domain.RecordClaimRequest{
		EmployeeID:   "EMP001",
		EmployeeName: "Ravi Kumar",
		Grade:        "L2",
		Amount:       amount,
		DistanceKm:   12.5,
		IsFuel:       isFuel,
	})
	if err != nil {
		t.Fatalf("record claim: %v", err)
	}
	return view, warnings
}

func TestRecordClaimAccumulates(t *testing.T) {
	svc, _ := setupTravelService(t)

	record(t, svc, 1000, false)
	view, _ := record(t, svc, 2500, true)

	if view.TotalClaims != 2 {
		t.Fatalf("expected 2 claims, got %d", view.TotalClaims)
	}
	if view.TotalAmount != 3500 {
		t.Fatalf("expected total 3500, got %d", view.TotalAmount)
	}
	if view.FuelClaims != 1 || view.FuelAmount != 2500 {
		t.Fatalf("fuel counters wrong: %d/%d", view.FuelClaims, view.FuelAmount)
	}
	if view.Month != "2026-08" {
		t.Fatalf("expected 2026-08 bucket, got %s", view.Month)
	}
	if view.RemainingLimit != 21500 {
		t.Fatalf("expected remaining 21500, got %d", view.RemainingLimit)
	}
}

func TestRecordClaimConcurrentSameBucket(t *testing.T) {
	svc, _ := setupTravelService(t)

	var wg sync.WaitGroup
	const workers = 8
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.RecordClaim(context.Background(), domain.RecordClaimRequest{
				EmployeeID: "EMP001",
				Grade:      "L2",
				Amount:     100,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent record: %v", err)
		}
	}

	view, err := svc.GetMonthlyTravelData(context.Background(), "EMP001", "2026-08")
	if err != nil {
		t.Fatalf("get monthly data: %v", err)
	}
	if view.TotalClaims != workers || view.TotalAmount != workers*100 {
		t.Fatalf("lost updates: %d claims, total %d", view.TotalClaims, view.TotalAmount)
	}
}

func TestRecordClaimWarnsOverLimit(t *testing.T) {
	svc, _ := setupTravelService(t)

	_, warnings := record(t, svc, 26000, false)
	if len(warnings) == 0 {
		t.Fatalf("expected over-limit warning")
	}

	// Recording still succeeded; limits are advisory.
	view, err := svc.GetMonthlyTravelData(context.Background(), "EMP001", "")
	if err != nil {
		t.Fatalf("get monthly data: %v", err)
	}
	if !view.ExceedsLimit || view.RemainingLimit != 0 {
		t.Fatalf("expected exceeded with zero remaining, got %+v", view)
	}
}

func TestMonthBucketsRollOver(t *testing.T) {
	svc, fakeClock := setupTravelService(t)

	record(t, svc, 1000, false)
	fakeClock.Advance(31 * 24 * time.Hour)
	record(t, svc, 2000, false)

	history, err := svc.History(context.Background(), "EMP001")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 months, got %d", len(history))
	}
	// Newest first.
	if history[0].Month != "2026-09" || history[1].Month != "2026-08" {
		t.Fatalf("unexpected order: %s, %s", history[0].Month, history[1].Month)
	}
	if history[0].TotalAmount != 2000 || history[1].TotalAmount != 1000 {
		t.Fatalf("amounts leaked across buckets")
	}
}

func TestValidateMonthlyLimit(t *testing.T) {
	svc, _ := setupTravelService(t)

	record(t, svc, 24000, false)

	result, err := svc.ValidateMonthlyLimit(context.Background(), "EMP001", "L2", 500)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !result.IsValid {
		t.Fatalf("500 should fit under the limit")
	}

	result, err = svc.ValidateMonthlyLimit(context.Background(), "EMP001", "L2", 2000)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.IsValid || result.Warning == "" {
		t.Fatalf("2000 should exceed and warn: %+v", result)
	}
	if result.CurrentTotal != 24000 || result.Limit != 25000 {
		t.Fatalf("unexpected totals: %+v", result)
	}
}

func TestGetMonthlyTravelDataValidation(t *testing.T) {
	svc, _ := setupTravelService(t)

	if _, err := svc.GetMonthlyTravelData(context.Background(), "", ""); err != domain.ErrInvalidEmployeeID {
		t.Fatalf("expected invalid employee id, got %v", err)
	}
	if _, err := svc.GetMonthlyTravelData(context.Background(), "EMP001", "2026-13"); err != domain.ErrInvalidMonth {
		t.Fatalf("expected invalid month, got %v", err)
	}
	if _, err := svc.GetMonthlyTravelData(context.Background(), "EMP001", "2026-08"); err != domain.ErrNotFound {
		t.Fatalf("expected not found for empty bucket, got %v", err)
	}
}
