package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldops/claimflow/internal/clock"
	"github.com/fieldops/claimflow/internal/employee/domain"
	"github.com/fieldops/claimflow/internal/employee/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDBSeq int

func setupEmployeeService(t *testing.T) domain.Service {
	t.Helper()
	testDBSeq++
	dsn := fmt.Sprintf("file:empsvc%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Employee{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	return New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func createEmployee(t *testing.T, svc domain.Service, id, email, grade string, chain domain.ApprovalChain) domain.Employee {
	t.Helper()
	employee, err := svc.Create(context.Background(), domain.CreateEmployeeRequest{
		EmployeeID: id,
		Name:       "Test " + id,
		Email:      email,
		Grade:      grade,
		Chain:      chain,
	})
	if err != nil {
		t.Fatalf("create %s: %v", id, err)
	}
	return employee
}

func TestCreateEmployeeValidation(t *testing.T) {
	svc := setupEmployeeService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.CreateEmployeeRequest
		want error
	}{
		{"missing id", domain.CreateEmployeeRequest{Name: "A", Email: "a@x.io", Grade: "L1"}, domain.ErrInvalidEmployeeID},
		{"missing name", domain.CreateEmployeeRequest{EmployeeID: "E1", Email: "a@x.io", Grade: "L1"}, domain.ErrInvalidName},
		{"bad email", domain.CreateEmployeeRequest{EmployeeID: "E1", Name: "A", Email: "nope", Grade: "L1"}, domain.ErrInvalidEmail},
		{"missing grade", domain.CreateEmployeeRequest{EmployeeID: "E1", Name: "A", Email: "a@x.io"}, domain.ErrInvalidGrade},
	}
	for _, tc := range cases {
		if _, err := svc.Create(ctx, tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestCreateEmployeeDuplicate(t *testing.T) {
	svc := setupEmployeeService(t)

	createEmployee(t, svc, "EMP001", "ravi@corp.local", "L2", domain.ApprovalChain{})

	_, err := svc.Create(context.Background(), domain.CreateEmployeeRequest{
		EmployeeID: "EMP001",
		Name:       "Dup",
		Email:      "other@corp.local",
		Grade:      "L1",
	})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}
}

func TestChainApproversMustExistAndBeActive(t *testing.T) {
	svc := setupEmployeeService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateEmployeeRequest{
		EmployeeID: "EMP001",
		Name:       "Ravi",
		Email:      "ravi@corp.local",
		Grade:      "L2",
		Chain:      domain.ApprovalChain{L1: "GHOST"},
	})
	if !errors.Is(err, domain.ErrInvalidApprover) {
		t.Fatalf("expected invalid approver for unknown id, got %v", err)
	}

	createEmployee(t, svc, "MGR001", "mgr@corp.local", "M1", domain.ApprovalChain{})
	if err := svc.Deactivate(ctx, "MGR001"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err = svc.Create(ctx, domain.CreateEmployeeRequest{
		EmployeeID: "EMP002",
		Name:       "Deepa",
		Email:      "deepa@corp.local",
		Grade:      "L1",
		Chain:      domain.ApprovalChain{L1: "MGR001"},
	})
	if !errors.Is(err, domain.ErrInvalidApprover) {
		t.Fatalf("expected invalid approver for inactive id, got %v", err)
	}
}

func TestSelfApprovalRejected(t *testing.T) {
	svc := setupEmployeeService(t)

	_, err := svc.Create(context.Background(), domain.CreateEmployeeRequest{
		EmployeeID: "EMP001",
		Name:       "Ravi",
		Email:      "ravi@corp.local",
		Grade:      "L2",
		Chain:      domain.ApprovalChain{L1: "EMP001"},
	})
	if !errors.Is(err, domain.ErrInvalidApprover) {
		t.Fatalf("expected self approval rejection, got %v", err)
	}
}

func TestGetByIdentifier(t *testing.T) {
	svc := setupEmployeeService(t)
	ctx := context.Background()

	created := createEmployee(t, svc, "EMP001", "ravi@corp.local", "l2", domain.ApprovalChain{})
	if created.Grade != "L2" {
		t.Fatalf("grade should be normalized, got %q", created.Grade)
	}

	byID, err := svc.GetByIdentifier(ctx, "EMP001")
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	byEmail, err := svc.GetByIdentifier(ctx, "Ravi@Corp.Local")
	if err != nil {
		t.Fatalf("by email: %v", err)
	}
	if byID.ID != byEmail.ID {
		t.Fatalf("id and email lookups should resolve the same record")
	}

	if _, err := svc.GetByIdentifier(ctx, "nobody@corp.local"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateApprovalChain(t *testing.T) {
	svc := setupEmployeeService(t)
	ctx := context.Background()

	createEmployee(t, svc, "MGR001", "mgr1@corp.local", "M1", domain.ApprovalChain{})
	createEmployee(t, svc, "MGR002", "mgr2@corp.local", "M1", domain.ApprovalChain{})
	createEmployee(t, svc, "EMP001", "ravi@corp.local", "L2", domain.ApprovalChain{L1: "MGR001"})

	updated, err := svc.UpdateApprovalChain(ctx, domain.UpdateApprovalChainRequest{
		EmployeeID: "EMP001",
		Chain:      domain.ApprovalChain{L1: "MGR002"},
	})
	if err != nil {
		t.Fatalf("update chain: %v", err)
	}
	if updated.ApproverL1 != "MGR002" || updated.ApproverL2 != "" {
		t.Fatalf("chain not replaced: %+v", updated.Chain())
	}
}
