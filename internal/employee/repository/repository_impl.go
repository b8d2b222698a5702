package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/fieldops/claimflow/internal/employee/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, employee *domain.Employee) error {
	return db.WithContext(ctx).Create(employee).Error
}

func (r *repo) FindByEmployeeID(ctx context.Context, db *gorm.DB, employeeID string) (*domain.Employee, error) {
	var employee domain.Employee
	err := db.WithContext(ctx).
		Where("employee_id = ?", strings.TrimSpace(employeeID)).
		First(&employee).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &employee, nil
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Employee, error) {
	var employee domain.Employee
	err := db.WithContext(ctx).
		Where("lower(email) = lower(?)", strings.TrimSpace(email)).
		First(&employee).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &employee, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Employee, error) {
	var employees []*domain.Employee
	stmt := db.WithContext(ctx).Model(&domain.Employee{})
	if filter.Grade != "" {
		stmt = stmt.Where("grade = ?", filter.Grade)
	}
	if filter.OnlyActive {
		stmt = stmt.Where("active = ?", true)
	}
	err := stmt.Order("employee_id asc").Find(&employees).Error
	if err != nil {
		return nil, err
	}
	return employees, nil
}

func (r *repo) UpdateChain(ctx context.Context, db *gorm.DB, employeeID string, chain domain.ApprovalChain) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE employees
		 SET approver_l1 = ?, approver_l2 = ?, approver_l3 = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE employee_id = ?`,
		chain.L1,
		chain.L2,
		chain.L3,
		strings.TrimSpace(employeeID),
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) SetActive(ctx context.Context, db *gorm.DB, employeeID string, active bool) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE employees SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE employee_id = ?`,
		active,
		strings.TrimSpace(employeeID),
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
