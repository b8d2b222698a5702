// Package seed bootstraps a fresh database with the default admin and an
// optional demo directory so the system is usable out of the box.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	employeedomain "github.com/fieldops/claimflow/internal/employee/domain"
	"gorm.io/gorm"
)

const (
	defaultAdminID    = "ADMIN001"
	defaultAdminName  = "System Administrator"
	defaultAdminEmail = "admin@claimflow.local"
)

// EnsureDefaultAdmin creates the bootstrap admin once. Reruns are no-ops.
func EnsureDefaultAdmin(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := ensureEmployeeTx(ctx, tx, node, employeedomain.Employee{
			EmployeeID:  defaultAdminID,
			Name:        defaultAdminName,
			Email:       defaultAdminEmail,
			Grade:       "M2",
			Designation: "Administrator",
			Active:      true,
			IsAdmin:     true,
		})
		return err
	})
}

// EnsureDemoData seeds a small field team with a full L1/L2/L3 chain plus
// one employee with a broken chain, for local evaluation.
func EnsureDemoData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	demo := []employeedomain.Employee{
		{EmployeeID: "MGR003", Name: "Priya Nair", Email: "priya.nair@claimflow.local", Grade: "M2", Designation: "Regional Head", Active: true},
		{EmployeeID: "MGR002", Name: "Arun Mehta", Email: "arun.mehta@claimflow.local", Grade: "M1", Designation: "Area Manager", Active: true, ApproverL1: "MGR003"},
		{EmployeeID: "MGR001", Name: "Sunita Rao", Email: "sunita.rao@claimflow.local", Grade: "M1", Designation: "Team Lead", Active: true, ApproverL1: "MGR002", ApproverL2: "MGR003"},
		{EmployeeID: "EMP001", Name: "Ravi Kumar", Email: "ravi.kumar@claimflow.local", Grade: "L2", Designation: "Field Executive", Active: true, ApproverL1: "MGR001", ApproverL2: "MGR002", ApproverL3: "MGR003"},
		{EmployeeID: "EMP002", Name: "Deepa Singh", Email: "deepa.singh@claimflow.local", Grade: "L1", Designation: "Field Executive", Active: true, ApproverL1: "MGR001", ApproverL3: "MGR003"},
		// No chain at all; claims from this employee surface as stuck.
		{EmployeeID: "EMP003", Name: "Vikram Joshi", Email: "vikram.joshi@claimflow.local", Grade: "L3", Designation: "Senior Field Executive", Active: true},
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, employee := range demo {
			if _, err := ensureEmployeeTx(ctx, tx, node, employee); err != nil {
				return err
			}
		}
		return nil
	})
}

func ensureEmployeeTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, employee employeedomain.Employee) (employeedomain.Employee, error) {
	var existing employeedomain.Employee
	err := tx.WithContext(ctx).
		Where("employee_id = ?", employee.EmployeeID).
		First(&existing).Error
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return employeedomain.Employee{}, err
	}

	now := time.Now().UTC()
	employee.ID = node.Generate()
	employee.CreatedAt = now
	employee.UpdatedAt = now
	if err := tx.WithContext(ctx).Create(&employee).Error; err != nil {
		return employeedomain.Employee{}, err
	}
	return employee, nil
}
