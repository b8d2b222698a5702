// Package domain contains the monthly travel ledger models.
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

// MonthlyTravelData is the per-employee, per-calendar-month spend aggregate.
// One record persists per (employee, month) forever; aggregates only grow.
// Rejected claims are not subtracted back out.
type MonthlyTravelData struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	EmployeeID      string       `gorm:"column:employee_id;not null;uniqueIndex:idx_employee_month,priority:1" json:"employee_id"`
	Month           string       `gorm:"not null;uniqueIndex:idx_employee_month,priority:2" json:"month"`
	EmployeeName    string       `gorm:"column:employee_name" json:"employee_name"`
	Grade           string       `gorm:"not null" json:"grade"`
	TotalClaims     int64        `gorm:"column:total_claims;not null;default:0" json:"total_claims"`
	TotalAmount     int64        `gorm:"column:total_amount;not null;default:0" json:"total_amount"`
	TotalDistanceKm float64      `gorm:"column:total_distance_km;not null;default:0" json:"total_distance_km"`
	FuelClaims      int64        `gorm:"column:fuel_claims;not null;default:0" json:"fuel_claims"`
	FuelAmount      int64        `gorm:"column:fuel_amount;not null;default:0" json:"fuel_amount"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (MonthlyTravelData) TableName() string { return "monthly_travel_data" }

// View is a ledger record with limits evaluated against the current policy.
// The limit applied is the grade's limit at read time, not split
// retroactively across a mid-month grade change.
type View struct {
	MonthlyTravelData
	PolicyLimit    int64 `json:"policy_limit"`
	RemainingLimit int64 `json:"remaining_limit"`
	ExceedsLimit   bool  `json:"exceeds_limit"`
}

// Evaluate derives the limit fields.
func (m MonthlyTravelData) Evaluate(policyLimit int64) View {
	remaining := policyLimit - m.TotalAmount
	if remaining < 0 {
		remaining = 0
	}
	return View{
		MonthlyTravelData: m,
		PolicyLimit:       policyLimit,
		RemainingLimit:    remaining,
		ExceedsLimit:      m.TotalAmount > policyLimit,
	}
}

// MonthKey buckets a timestamp into the calendar month, UTC.
func MonthKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// RecordClaimRequest adds one claim's spend to the bucket.
type RecordClaimRequest struct {
	EmployeeID   string
	EmployeeName string
	Grade        string
	Amount       int64
	DistanceKm   float64
	IsFuel       bool
}

// ValidationResult is the advisory pre-check outcome. Warnings never block
// recording.
type ValidationResult struct {
	IsValid      bool   `json:"is_valid"`
	Warning      string `json:"warning,omitempty"`
	CurrentTotal int64  `json:"current_total"`
	Limit        int64  `json:"limit"`
}

var (
	ErrInvalidEmployeeID = errors.New("invalid_employee_id")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidMonth      = errors.New("invalid_month")
	ErrNotFound          = errors.New("monthly_travel_data_not_found")
)
