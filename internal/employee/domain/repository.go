package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, employee *Employee) error
	FindByEmployeeID(ctx context.Context, db *gorm.DB, employeeID string) (*Employee, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*Employee, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Employee, error)
	UpdateChain(ctx context.Context, db *gorm.DB, employeeID string, chain ApprovalChain) (bool, error)
	SetActive(ctx context.Context, db *gorm.DB, employeeID string, active bool) (bool, error)
}

type ListFilter struct {
	Grade      string
	OnlyActive bool
}
