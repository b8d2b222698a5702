// Package domain contains the employee directory models.
package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Level is a sequential approval gate. Not every employee's chain uses all
// three.
type Level string

const (
	LevelL1 Level = "L1"
	LevelL2 Level = "L2"
	LevelL3 Level = "L3"
)

// Levels lists the gates in chain order.
func Levels() []Level {
	return []Level{LevelL1, LevelL2, LevelL3}
}

// Rank orders levels: L1=1, L2=2, L3=3. Zero for unknown input.
func (l Level) Rank() int {
	switch l {
	case LevelL1:
		return 1
	case LevelL2:
		return 2
	case LevelL3:
		return 3
	default:
		return 0
	}
}

// ParseLevel normalizes user input into a Level.
func ParseLevel(raw string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "L1":
		return LevelL1, true
	case "L2":
		return LevelL2, true
	case "L3":
		return LevelL3, true
	default:
		return "", false
	}
}

// ApprovalChain maps levels to approver employee IDs. An empty value means
// the level is skipped for that employee.
type ApprovalChain struct {
	L1 string `json:"l1,omitempty"`
	L2 string `json:"l2,omitempty"`
	L3 string `json:"l3,omitempty"`
}

// ApproverAt returns the approver employee ID configured at the level.
func (c ApprovalChain) ApproverAt(level Level) string {
	switch level {
	case LevelL1:
		return strings.TrimSpace(c.L1)
	case LevelL2:
		return strings.TrimSpace(c.L2)
	case LevelL3:
		return strings.TrimSpace(c.L3)
	default:
		return ""
	}
}

// NextAfter returns the next configured level after current, or false when
// approval at current is terminal. Absent levels are skipped, so the hop
// count is dynamic per employee.
func (c ApprovalChain) NextAfter(current Level) (Level, bool) {
	for _, level := range Levels() {
		if level.Rank() <= current.Rank() {
			continue
		}
		if c.ApproverAt(level) != "" {
			return level, true
		}
	}
	return "", false
}

// Employee is a directory record. Employees are never hard-deleted, only
// deactivated.
type Employee struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	EmployeeID  string            `gorm:"column:employee_id;not null;uniqueIndex" json:"employee_id"`
	Name        string            `gorm:"not null" json:"name"`
	Email       string            `gorm:"not null;uniqueIndex" json:"email"`
	Grade       string            `gorm:"not null" json:"grade"`
	Designation string            `gorm:"column:designation" json:"designation,omitempty"`
	ApproverL1  string            `gorm:"column:approver_l1" json:"approver_l1,omitempty"`
	ApproverL2  string            `gorm:"column:approver_l2" json:"approver_l2,omitempty"`
	ApproverL3  string            `gorm:"column:approver_l3" json:"approver_l3,omitempty"`
	Active      bool              `gorm:"not null;default:true" json:"active"`
	IsAdmin     bool              `gorm:"column:is_admin;not null;default:false" json:"is_admin"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Employee) TableName() string { return "employees" }

// Chain assembles the employee's current approval chain.
func (e Employee) Chain() ApprovalChain {
	return ApprovalChain{
		L1: strings.TrimSpace(e.ApproverL1),
		L2: strings.TrimSpace(e.ApproverL2),
		L3: strings.TrimSpace(e.ApproverL3),
	}
}

var (
	ErrInvalidEmployeeID = errors.New("invalid_employee_id")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidEmail      = errors.New("invalid_email")
	ErrInvalidGrade      = errors.New("invalid_grade")
	ErrInvalidApprover   = errors.New("invalid_approver")
	ErrNotFound          = errors.New("employee_not_found")
	ErrAlreadyExists     = errors.New("employee_already_exists")
)
