package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldops/claimflow/internal/claim/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, claim *domain.Claim) error {
	return db.WithContext(ctx).Create(claim).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Claim, error) {
	var claim domain.Claim
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&claim).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &claim, nil
}

func applyFilter(stmt *gorm.DB, filter domain.ListFilter) *gorm.DB {
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		stmt = stmt.Where("type = ?", filter.Type)
	}
	if filter.Month != "" {
		if start, err := time.Parse("2006-01", filter.Month); err == nil {
			stmt = stmt.Where("expense_date >= ? AND expense_date < ?", start, start.AddDate(0, 1, 0))
		}
	}
	return stmt
}

func (r *repo) ListByEmployee(ctx context.Context, db *gorm.DB, employeeID string, filter domain.ListFilter) ([]domain.Claim, error) {
	var claims []domain.Claim
	stmt := db.WithContext(ctx).
		Model(&domain.Claim{}).
		Where("employee_id = ?", strings.TrimSpace(employeeID))
	err := applyFilter(stmt, filter).
		Order("submitted_at desc").
		Find(&claims).Error
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (r *repo) ListPendingForApprover(ctx context.Context, db *gorm.DB, approverID string) ([]domain.Claim, error) {
	// The snapshot column matching the pending level must name the
	// approver. Claims pending at a level someone else holds do not
	// surface here.
	var claims []domain.Claim
	err := db.WithContext(ctx).
		Model(&domain.Claim{}).
		Where(
			`(status = ? AND chain_l1 = ?)
			 OR (status = ? AND chain_l2 = ?)
			 OR (status = ? AND chain_l3 = ?)`,
			domain.StatusPendingL1, approverID,
			domain.StatusPendingL2, approverID,
			domain.StatusPendingL3, approverID,
		).
		Order("submitted_at asc").
		Find(&claims).Error
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (r *repo) ListAll(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Claim, error) {
	var claims []domain.Claim
	stmt := applyFilter(db.WithContext(ctx).Model(&domain.Claim{}), filter)
	err := stmt.Order("submitted_at desc").Find(&claims).Error
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (r *repo) Transition(ctx context.Context, db *gorm.DB, claimID snowflake.ID, fromStatus, toStatus domain.Status, rejectionReason string, approval *domain.Approval) (bool, error) {
	applied := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Compare-and-swap on the status column. Zero rows affected means
		// another approver got there first; the caller maps that to a
		// stale-state error instead of appending a second decision.
		result := tx.Exec(
			`UPDATE claims
			 SET status = ?, rejection_reason = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND status = ?`,
			toStatus,
			rejectionReason,
			claimID,
			fromStatus,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		if err := tx.Create(approval).Error; err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (r *repo) ListApprovals(ctx context.Context, db *gorm.DB, claimID snowflake.ID) ([]domain.Approval, error) {
	var approvals []domain.Approval
	err := db.WithContext(ctx).
		Where("claim_id = ?", claimID).
		Order("created_at asc, id asc").
		Find(&approvals).Error
	if err != nil {
		return nil, err
	}
	return approvals, nil
}
