package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"dentalbudget/internal/core"
)

// Store is the outbound port to the relational state. Both the SQLite
// repository and the in-memory store implement it; services depend on
// the interface only. Uniqueness of (period, category) pairs is the
// store's job, never application-level locking: a losing writer gets
// core.ErrConstraintViolation and retries as an update.
type Store interface {
	// Practice registry.
	CreatePractice(ctx context.Context, p core.Practice) (core.Practice, error)
	GetPractice(ctx context.Context, id int64) (core.Practice, error)
	ListPractices(ctx context.Context, offset, limit int) ([]core.Practice, error)
	UpdatePractice(ctx context.Context, p core.Practice) (core.Practice, error)
	DeletePractice(ctx context.Context, id int64) error

	// Fiscal years and budget periods.
	CreateFiscalYear(ctx context.Context, fy core.FiscalYear) (core.FiscalYear, error)
	GetFiscalYear(ctx context.Context, id int64) (core.FiscalYear, error)
	ListFiscalYears(ctx context.Context, practiceID int64) ([]core.FiscalYear, error)
	CreatePeriod(ctx context.Context, bp core.BudgetPeriod) (core.BudgetPeriod, error)
	GetPeriod(ctx context.Context, id int64) (core.BudgetPeriod, error)
	ListPeriods(ctx context.Context, fiscalYearID int64) ([]core.BudgetPeriod, error)
	// ListPeriodsInRange returns the practice's periods fully contained
	// in [start, end].
	ListPeriodsInRange(ctx context.Context, practiceID int64, start, end time.Time) ([]core.BudgetPeriod, error)

	// Account category tree.
	CreateCategory(ctx context.Context, c core.AccountCategory) (core.AccountCategory, error)
	GetCategory(ctx context.Context, id int64) (core.AccountCategory, error)
	ListCategories(ctx context.Context) ([]core.AccountCategory, error)
	DeleteCategory(ctx context.Context, id int64) error

	// Budget ledger.
	UpsertBudgetLine(ctx context.Context, periodID, categoryID int64, amount decimal.Decimal) (core.BudgetLineItem, error)
	GetBudgetLine(ctx context.Context, id int64) (core.BudgetLineItem, error)
	ListBudgetLines(ctx context.Context, periodID int64) ([]core.BudgetLineItem, error)
	DeleteBudgetLine(ctx context.Context, periodID, categoryID int64) error

	// Actuals store.
	UpsertActual(ctx context.Context, periodID, categoryID int64, amount decimal.Decimal, source string) (core.ActualEntry, error)
	ListActuals(ctx context.Context, periodID int64) ([]core.ActualEntry, error)
	ListActualsForPeriods(ctx context.Context, periodIDs []int64) ([]core.ActualEntry, error)

	// Users.
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)

	Close() error
}
