package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// VarianceLine is one category row of a variance report.
type VarianceLine struct {
	CategoryID      int64
	CategoryName    string
	CategoryType    CategoryType
	Budget          decimal.Decimal
	Actual          decimal.Decimal
	Variance        decimal.Decimal
	VariancePercent decimal.Decimal
}

// VarianceReport compares budgeted and actual amounts for one practice
// and period. Totals follow the top-level summation rule; line items
// cover only categories with data in the period.
type VarianceReport struct {
	Practice        Practice
	Period          BudgetPeriod
	TotalBudget     decimal.Decimal
	TotalActual     decimal.Decimal
	TotalVariance   decimal.Decimal
	VariancePercent decimal.Decimal
	LineItems       []VarianceLine
}

// CategoryAmount is an actual amount aggregated under a category name.
type CategoryAmount struct {
	CategoryID   int64
	CategoryName string
	Amount       decimal.Decimal
}

// PLReport is the profit-and-loss statement of one practice over a date
// range: actuals summed by category, grouped by type.
type PLReport struct {
	PracticeName      string
	Location          string
	PeriodStartDate   time.Time
	PeriodEndDate     time.Time
	TotalRevenue      decimal.Decimal
	TotalExpenses     decimal.Decimal
	NetIncome         decimal.Decimal
	NetMargin         decimal.Decimal
	RevenueCategories []CategoryAmount
	ExpenseCategories []CategoryAmount
}

// Percent computes part/whole*100, yielding zero when the whole is zero.
// Division by zero is a defined result here, not an error: a variance
// against a zero budget and a margin on zero revenue both report 0%.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100))
}
