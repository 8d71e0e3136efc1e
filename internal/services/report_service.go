package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"dentalbudget/internal/core"
	"dentalbudget/internal/storage"
)

// ReportService produces variance and profit-and-loss reports. Reports
// are pure reads: missing data yields zero rows and zero totals, never
// an error.
type ReportService struct {
	store storage.Store
}

func NewReportService(store storage.Store) *ReportService {
	return &ReportService{store: store}
}

// Variance compares budgeted and actual amounts for one practice and
// period. Per category: budget and actual resolve through formulas,
// variance is actual minus budget, percent is zero against a zero
// budget. Totals sum the top-level categories of both types.
func (s *ReportService) Variance(ctx context.Context, practiceID, periodID int64) (core.VarianceReport, error) {
	practice, err := s.store.GetPractice(ctx, practiceID)
	if err != nil {
		return core.VarianceReport{}, err
	}
	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return core.VarianceReport{}, err
	}
	fy, err := s.store.GetFiscalYear(ctx, period.FiscalYearID)
	if err != nil {
		return core.VarianceReport{}, err
	}
	if fy.PracticeID != practiceID {
		return core.VarianceReport{}, core.ErrPeriodNotFound
	}

	tree, err := loadTree(ctx, s.store)
	if err != nil {
		return core.VarianceReport{}, err
	}

	lines, err := s.store.ListBudgetLines(ctx, periodID)
	if err != nil {
		return core.VarianceReport{}, fmt.Errorf("list budget lines: %w", err)
	}
	actuals, err := s.store.ListActuals(ctx, periodID)
	if err != nil {
		return core.VarianceReport{}, fmt.Errorf("list actuals: %w", err)
	}

	budget := make(core.Amounts, len(lines))
	actual := make(core.Amounts, len(actuals))
	data := make(map[int64]bool)
	for _, l := range lines {
		budget[l.CategoryID] = l.Amount
		data[l.CategoryID] = true
	}
	for _, a := range actuals {
		actual[a.CategoryID] = a.Amount
		data[a.CategoryID] = true
	}

	report := core.VarianceReport{
		Practice:        practice,
		Period:          period,
		TotalBudget:     decimal.Zero,
		TotalActual:     decimal.Zero,
		TotalVariance:   decimal.Zero,
		VariancePercent: decimal.Zero,
		LineItems:       []core.VarianceLine{},
	}

	for _, c := range tree.All() {
		if !tree.HasData(c.ID, data) {
			continue
		}
		b, err := tree.Resolve(c.ID, budget)
		if err != nil {
			return core.VarianceReport{}, err
		}
		a, err := tree.Resolve(c.ID, actual)
		if err != nil {
			return core.VarianceReport{}, err
		}
		variance := a.Sub(b)
		report.LineItems = append(report.LineItems, core.VarianceLine{
			CategoryID:      c.ID,
			CategoryName:    c.Name,
			CategoryType:    c.Type,
			Budget:          b,
			Actual:          a,
			Variance:        variance,
			VariancePercent: core.Percent(variance, b),
		})
	}

	for _, ct := range []core.CategoryType{core.TypeRevenue, core.TypeExpense} {
		b, err := tree.TotalForPeriod(ct, budget)
		if err != nil {
			return core.VarianceReport{}, err
		}
		a, err := tree.TotalForPeriod(ct, actual)
		if err != nil {
			return core.VarianceReport{}, err
		}
		report.TotalBudget = report.TotalBudget.Add(b)
		report.TotalActual = report.TotalActual.Add(a)
	}
	report.TotalVariance = report.TotalActual.Sub(report.TotalBudget)
	report.VariancePercent = core.Percent(report.TotalVariance, report.TotalBudget)

	return report, nil
}

// ProfitAndLoss sums actuals by category across every period of the
// practice fully contained in [start, end], grouped by category type.
// A range with no periods or no actuals produces an all-zero report.
func (s *ReportService) ProfitAndLoss(ctx context.Context, practiceID int64, start, end time.Time) (core.PLReport, error) {
	if end.Before(start) {
		return core.PLReport{}, core.ErrInvalidDateRange
	}
	practice, err := s.store.GetPractice(ctx, practiceID)
	if err != nil {
		return core.PLReport{}, err
	}

	report := core.PLReport{
		PracticeName:      practice.Name,
		Location:          practice.Location,
		PeriodStartDate:   start,
		PeriodEndDate:     end,
		TotalRevenue:      decimal.Zero,
		TotalExpenses:     decimal.Zero,
		NetIncome:         decimal.Zero,
		NetMargin:         decimal.Zero,
		RevenueCategories: []core.CategoryAmount{},
		ExpenseCategories: []core.CategoryAmount{},
	}

	periods, err := s.store.ListPeriodsInRange(ctx, practiceID, start, end)
	if err != nil {
		return core.PLReport{}, fmt.Errorf("list periods: %w", err)
	}
	if len(periods) == 0 {
		return report, nil
	}

	periodIDs := make([]int64, len(periods))
	for i, p := range periods {
		periodIDs[i] = p.ID
	}

	actuals, err := s.store.ListActualsForPeriods(ctx, periodIDs)
	if err != nil {
		return core.PLReport{}, fmt.Errorf("list actuals: %w", err)
	}

	tree, err := loadTree(ctx, s.store)
	if err != nil {
		return core.PLReport{}, err
	}

	byCategory := make(map[int64]decimal.Decimal)
	for _, a := range actuals {
		byCategory[a.CategoryID] = byCategory[a.CategoryID].Add(a.Amount)
	}

	ids := make([]int64, 0, len(byCategory))
	for id := range byCategory {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		c, ok := tree.Category(id)
		if !ok {
			continue
		}
		entry := core.CategoryAmount{
			CategoryID:   id,
			CategoryName: c.Name,
			Amount:       byCategory[id],
		}
		switch c.Type {
		case core.TypeRevenue:
			report.TotalRevenue = report.TotalRevenue.Add(entry.Amount)
			report.RevenueCategories = append(report.RevenueCategories, entry)
		case core.TypeExpense:
			report.TotalExpenses = report.TotalExpenses.Add(entry.Amount)
			report.ExpenseCategories = append(report.ExpenseCategories, entry)
		}
	}

	report.NetIncome = report.TotalRevenue.Sub(report.TotalExpenses)
	report.NetMargin = core.Percent(report.NetIncome, report.TotalRevenue)

	return report, nil
}
