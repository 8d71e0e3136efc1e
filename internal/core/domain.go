package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	PracticeActive   PracticeStatus = "active"
	PracticeInactive PracticeStatus = "inactive"
)

const (
	TypeRevenue CategoryType = "revenue"
	TypeExpense CategoryType = "expense"
)

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleViewer  Role = "viewer"
)

type (
	PracticeStatus string
	CategoryType   string
	Role           string

	// Practice is a dental practice. Identity is immutable once created;
	// only name, location and status may change.
	Practice struct {
		ID       int64
		Name     string
		Location string
		Status   PracticeStatus
	}

	// FiscalYear belongs to a practice; one per calendar year label.
	FiscalYear struct {
		ID         int64
		PracticeID int64
		Year       int
		StartDate  time.Time
		EndDate    time.Time
	}

	// BudgetPeriod is one month of a fiscal year. The (fiscal year, month)
	// pair is unique.
	BudgetPeriod struct {
		ID           int64
		FiscalYearID int64
		Month        int // 1-12
		StartDate    time.Time
		EndDate      time.Time
	}

	// AccountCategory is a node of the chart of accounts. The hierarchy is
	// an arena keyed by id with optional parent references, never embedded
	// child pointers. Computed categories derive their amount from Formula;
	// they never hold entered amounts.
	AccountCategory struct {
		ID         int64
		ParentID   *int64
		Name       string
		Type       CategoryType
		IsComputed bool
		Formula    string // category ids joined with + and -, e.g. "12 + 14 - 9"
	}

	// BudgetLineItem is the entered budget amount for one (period, category)
	// pair. At most one line exists per pair; an absent line means zero.
	BudgetLineItem struct {
		ID         int64
		PeriodID   int64
		CategoryID int64
		Amount     decimal.Decimal
		Notes      string
		CreatedAt  time.Time
		UpdatedAt  time.Time
	}

	// ActualEntry records real-world financial activity for one
	// (period, category) pair. At most one entry exists per pair.
	ActualEntry struct {
		ID         int64
		PeriodID   int64
		CategoryID int64
		Amount     decimal.Decimal
		Source     string // "manual", "feed"
	}

	// User is an authenticated principal. Managers are affiliated with a
	// single practice; admins and viewers may have no affiliation.
	User struct {
		ID           int64
		Email        string
		FullName     string
		PasswordHash string
		Role         Role
		PracticeID   *int64
	}
)

// Editable reports whether a line for this category accepts direct edits.
func (c AccountCategory) Editable() bool {
	return !c.IsComputed
}

// TopLevel reports whether the category has no parent.
func (c AccountCategory) TopLevel() bool {
	return c.ParentID == nil
}

func (s PracticeStatus) Valid() bool {
	return s == PracticeActive || s == PracticeInactive
}

func (t CategoryType) Valid() bool {
	return t == TypeRevenue || t == TypeExpense
}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleManager || r == RoleViewer
}

// CanWrite is the authorization predicate for ledger and registry writes:
// admins write across practices, managers only within their own practice,
// viewers never.
func (u User) CanWrite(practiceID int64) bool {
	switch u.Role {
	case RoleAdmin:
		return true
	case RoleManager:
		return u.PracticeID != nil && *u.PracticeID == practiceID
	default:
		return false
	}
}

// ValidateAmount rejects negative amounts. Non-finite values cannot be
// represented by decimal.Decimal, so parse failures upstream map to the
// same error.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (p Practice) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if len(p.Name) > 255 {
		return ErrNameTooLong
	}
	if !p.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

func (fy FiscalYear) Validate() error {
	if fy.PracticeID == 0 {
		return ErrPracticeNotFound
	}
	if fy.Year < 2000 || fy.Year > 2100 {
		return ErrInvalidYear
	}
	if fy.EndDate.Before(fy.StartDate) {
		return ErrInvalidDateRange
	}
	return nil
}

func (bp BudgetPeriod) Validate() error {
	if bp.Month < 1 || bp.Month > 12 {
		return ErrInvalidMonth
	}
	if bp.EndDate.Before(bp.StartDate) {
		return ErrInvalidDateRange
	}
	return nil
}

func (c AccountCategory) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 255 {
		return ErrNameTooLong
	}
	if !c.Type.Valid() {
		return ErrInvalidCategoryType
	}
	if c.IsComputed {
		if strings.TrimSpace(c.Formula) == "" {
			return ErrInvalidFormula
		}
		if _, err := ParseFormula(c.Formula); err != nil {
			return err
		}
	} else if strings.TrimSpace(c.Formula) != "" {
		return ErrInvalidFormula
	}
	return nil
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Email) == "" {
		return ErrEmptyEmail
	}
	if !u.Role.Valid() {
		return ErrInvalidRole
	}
	if u.Role == RoleManager && u.PracticeID == nil {
		return ErrManagerWithoutPractice
	}
	return nil
}
