// Package domain contains the claim lifecycle models and state machine.
package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	employeedomain "github.com/fieldops/claimflow/internal/employee/domain"
	"gorm.io/datatypes"
)

// Type is the closed set of claimable expense categories.
type Type string

const (
	TypeTravel        Type = "travel"
	TypeAccommodation Type = "accommodation"
	TypeFood          Type = "food"
	TypeFuel          Type = "fuel"
	TypeCommunication Type = "communication"
	TypeOther         Type = "other"
	TypeMedical       Type = "medical"
)

// ParseType normalizes user input into a claim type.
func ParseType(raw string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(raw)))
	switch t {
	case TypeTravel, TypeAccommodation, TypeFood, TypeFuel, TypeCommunication, TypeOther, TypeMedical:
		return t, true
	default:
		return "", false
	}
}

// Status is the claim lifecycle state. approved and rejected are terminal.
type Status string

const (
	StatusPendingL1 Status = "pending_l1"
	StatusPendingL2 Status = "pending_l2"
	StatusPendingL3 Status = "pending_l3"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// StatusForLevel maps an approval level to the pending status gating it.
func StatusForLevel(level employeedomain.Level) Status {
	switch level {
	case employeedomain.LevelL1:
		return StatusPendingL1
	case employeedomain.LevelL2:
		return StatusPendingL2
	case employeedomain.LevelL3:
		return StatusPendingL3
	default:
		return ""
	}
}

// PendingLevel returns the level a pending status waits on.
func (s Status) PendingLevel() (employeedomain.Level, bool) {
	switch s {
	case StatusPendingL1:
		return employeedomain.LevelL1, true
	case StatusPendingL2:
		return employeedomain.LevelL2, true
	case StatusPendingL3:
		return employeedomain.LevelL3, true
	default:
		return "", false
	}
}

// Action is the decision recorded by an approver.
type Action string

const (
	ActionApproved Action = "approved"
	ActionRejected Action = "rejected"
)

// Approval is one append-only decision record. Rows are never updated or
// deleted; replaying them in order reproduces the claim status.
type Approval struct {
	ID            snowflake.ID         `gorm:"primaryKey" json:"id"`
	ClaimID       snowflake.ID         `gorm:"column:claim_id;not null;index" json:"claim_id"`
	Level         employeedomain.Level `gorm:"type:text;not null" json:"level"`
	ApproverID    string               `gorm:"column:approver_id;not null" json:"approver_id"`
	ApproverName  string               `gorm:"column:approver_name" json:"approver_name"`
	ApproverEmail string               `gorm:"column:approver_email" json:"approver_email"`
	Action        Action               `gorm:"type:text;not null" json:"action"`
	Comments      string               `gorm:"type:text" json:"comments,omitempty"`
	CreatedAt     time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Approval) TableName() string { return "claim_approvals" }

// Claim is an expense request. Identity and submitter fields are immutable
// after creation; status changes only through the transition function.
type Claim struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	EmployeeID    string       `gorm:"column:employee_id;not null;index" json:"employee_id"`
	EmployeeName  string       `gorm:"column:employee_name;not null" json:"employee_name"`
	EmployeeEmail string       `gorm:"column:employee_email;not null" json:"employee_email"`
	Type          Type         `gorm:"type:text;not null" json:"type"`
	Amount        int64        `gorm:"not null" json:"amount"`
	DistanceKm    float64      `gorm:"column:distance_km;not null;default:0" json:"distance_km,omitempty"`
	ExpenseDate   time.Time    `gorm:"column:expense_date;not null" json:"expense_date"`
	Status        Status       `gorm:"type:text;not null;index" json:"status"`
	// ChainL1..L3 snapshot the employee's approval chain at submission
	// time. Later edits to the employee's chain must not affect in-flight
	// claims.
	ChainL1         string            `gorm:"column:chain_l1" json:"chain_l1,omitempty"`
	ChainL2         string            `gorm:"column:chain_l2" json:"chain_l2,omitempty"`
	ChainL3         string            `gorm:"column:chain_l3" json:"chain_l3,omitempty"`
	RejectionReason string            `gorm:"column:rejection_reason" json:"rejection_reason,omitempty"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	SubmittedAt     time.Time         `gorm:"column:submitted_at;not null" json:"submitted_at"`
	UpdatedAt       time.Time         `gorm:"not null" json:"updated_at"`

	Approvals []Approval `gorm:"foreignKey:ClaimID" json:"approvals,omitempty"`
}

// TableName sets the database table name.
func (Claim) TableName() string { return "claims" }

// Chain returns the snapshot taken at submission.
func (c Claim) Chain() employeedomain.ApprovalChain {
	return employeedomain.ApprovalChain{L1: c.ChainL1, L2: c.ChainL2, L3: c.ChainL3}
}

// Stuck reports a claim waiting on a level that has no approver in its
// snapshot. Claims always start at pending_l1, so a chain without L1 makes
// the claim unapprovable until an admin acts.
func (c Claim) Stuck() bool {
	level, ok := c.Status.PendingLevel()
	if !ok {
		return false
	}
	return c.Chain().ApproverAt(level) == ""
}

// ReplayStatus reproduces the claim status from its approvals, starting at
// pending_l1. It errors when the recorded decisions are inconsistent with
// the snapshot chain.
func ReplayStatus(chain employeedomain.ApprovalChain, approvals []Approval) (Status, error) {
	status := StatusPendingL1
	for _, approval := range approvals {
		if status.Terminal() {
			return "", ErrReplayMismatch
		}
		if StatusForLevel(approval.Level) != status {
			return "", ErrReplayMismatch
		}
		if approval.Action == ActionRejected {
			status = StatusRejected
			continue
		}
		next, ok := chain.NextAfter(approval.Level)
		if !ok {
			status = StatusApproved
			continue
		}
		status = StatusForLevel(next)
	}
	return status, nil
}

var (
	ErrInvalidType     = errors.New("invalid_claim_type")
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrInvalidDistance = errors.New("invalid_distance")
	ErrInvalidDate     = errors.New("invalid_expense_date")
	ErrInvalidLevel    = errors.New("invalid_level")
	ErrMissingReason   = errors.New("missing_rejection_reason")
	ErrNotFound        = errors.New("claim_not_found")
	// ErrStaleState signals that the claim status no longer matches the
	// action's precondition. Callers re-fetch and decide whether to retry.
	ErrStaleState     = errors.New("stale_claim_state")
	ErrNotAuthorized  = errors.New("approver_not_authorized")
	ErrReplayMismatch = errors.New("approvals_inconsistent_with_status")
)
