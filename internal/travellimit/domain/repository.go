package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// Accumulate inserts the bucket or atomically adds the deltas to an
	// existing one. The increment happens in SQL so concurrent recordings
	// for the same (employee, month) never lose updates.
	Accumulate(ctx context.Context, db *gorm.DB, record *MonthlyTravelData) error
	FindByEmployeeMonth(ctx context.Context, db *gorm.DB, employeeID, month string) (*MonthlyTravelData, error)
	ListByEmployee(ctx context.Context, db *gorm.DB, employeeID string) ([]*MonthlyTravelData, error)
}
