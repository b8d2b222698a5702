package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/fieldops/claimflow/internal/travellimit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Accumulate(ctx context.Context, db *gorm.DB, record *domain.MonthlyTravelData) error {
	// The upsert adds deltas inside the database so two concurrent claims
	// for the same bucket both land. Grade and name follow the latest
	// recording.
	return db.WithContext(ctx).Exec(
		`INSERT INTO monthly_travel_data (
			id, employee_id, month, employee_name, grade,
			total_claims, total_amount, total_distance_km, fuel_claims, fuel_amount,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (employee_id, month) DO UPDATE SET
			employee_name = excluded.employee_name,
			grade = excluded.grade,
			total_claims = monthly_travel_data.total_claims + excluded.total_claims,
			total_amount = monthly_travel_data.total_amount + excluded.total_amount,
			total_distance_km = monthly_travel_data.total_distance_km + excluded.total_distance_km,
			fuel_claims = monthly_travel_data.fuel_claims + excluded.fuel_claims,
			fuel_amount = monthly_travel_data.fuel_amount + excluded.fuel_amount,
			updated_at = excluded.updated_at`,
		record.ID,
		record.EmployeeID,
		record.Month,
		record.EmployeeName,
		record.Grade,
		record.TotalClaims,
		record.TotalAmount,
		record.TotalDistanceKm,
		record.FuelClaims,
		record.FuelAmount,
		record.CreatedAt,
		record.UpdatedAt,
	).Error
}

func (r *repo) FindByEmployeeMonth(ctx context.Context, db *gorm.DB, employeeID, month string) (*domain.MonthlyTravelData, error) {
	var record domain.MonthlyTravelData
	err := db.WithContext(ctx).
		Where("employee_id = ? AND month = ?", strings.TrimSpace(employeeID), strings.TrimSpace(month)).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repo) ListByEmployee(ctx context.Context, db *gorm.DB, employeeID string) ([]*domain.MonthlyTravelData, error) {
	var records []*domain.MonthlyTravelData
	err := db.WithContext(ctx).
		Where("employee_id = ?", strings.TrimSpace(employeeID)).
		Order("month desc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
