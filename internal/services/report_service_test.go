package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"dentalbudget/internal/core"
)

func TestVarianceReport(t *testing.T) {
	fx := newFixture(t)
	budget := NewBudgetService(fx.store, nil)
	reports := NewReportService(fx.store)
	ctx := context.Background()

	seed := []struct {
		categoryID int64
		budget     string
		actual     string
	}{
		{fx.production.ID, "45000", "47250"},
		{fx.hygiene.ID, "15000", "14000"},
		{fx.staffing.ID, "20000", "21500"},
	}
	for _, s := range seed {
		if _, err := budget.SetAmount(ctx, fx.admin, fx.period.ID, s.categoryID, dec(s.budget)); err != nil {
			t.Fatalf("seed budget: %v", err)
		}
		if _, err := budget.RecordActual(ctx, fx.admin, fx.period.ID, s.categoryID, dec(s.actual), "pms"); err != nil {
			t.Fatalf("seed actual: %v", err)
		}
	}

	report, err := reports.Variance(ctx, fx.practice.ID, fx.period.ID)
	if err != nil {
		t.Fatalf("Variance() error = %v", err)
	}

	// Revenue counts once through the computed top-level category.
	if !report.TotalBudget.Equal(dec("80000")) {
		t.Errorf("TotalBudget = %s, want 80000", report.TotalBudget)
	}
	if !report.TotalActual.Equal(dec("82750")) {
		t.Errorf("TotalActual = %s, want 82750", report.TotalActual)
	}
	if !report.TotalVariance.Equal(dec("2750")) {
		t.Errorf("TotalVariance = %s, want 2750", report.TotalVariance)
	}

	byID := make(map[int64]core.VarianceLine)
	for _, li := range report.LineItems {
		byID[li.CategoryID] = li
	}

	rev, ok := byID[fx.revenue.ID]
	if !ok {
		t.Fatal("computed revenue category missing from line items")
	}
	if !rev.Budget.Equal(dec("60000")) || !rev.Actual.Equal(dec("61250")) {
		t.Errorf("revenue line = %s/%s, want 60000/61250", rev.Budget, rev.Actual)
	}
	if !rev.Variance.Equal(dec("1250")) {
		t.Errorf("revenue variance = %s, want 1250", rev.Variance)
	}

	staff := byID[fx.staffing.ID]
	if !staff.Variance.Equal(dec("1500")) {
		t.Errorf("staffing variance = %s, want 1500", staff.Variance)
	}
	if !staff.VariancePercent.Equal(dec("7.5")) {
		t.Errorf("staffing variance percent = %s, want 7.5", staff.VariancePercent)
	}
}

func TestVarianceEmptyPeriod(t *testing.T) {
	fx := newFixture(t)
	reports := NewReportService(fx.store)

	report, err := reports.Variance(context.Background(), fx.practice.ID, fx.period.ID)
	if err != nil {
		t.Fatalf("Variance() error = %v", err)
	}
	if len(report.LineItems) != 0 {
		t.Errorf("LineItems = %d, want 0", len(report.LineItems))
	}
	if !report.TotalBudget.IsZero() || !report.TotalActual.IsZero() || !report.TotalVariance.IsZero() {
		t.Errorf("totals should be zero, got %s/%s/%s",
			report.TotalBudget, report.TotalActual, report.TotalVariance)
	}
	if !report.VariancePercent.IsZero() {
		t.Errorf("VariancePercent = %s, want 0 on zero budget", report.VariancePercent)
	}
}

func TestVarianceZeroBudgetPercent(t *testing.T) {
	fx := newFixture(t)
	budget := NewBudgetService(fx.store, nil)
	reports := NewReportService(fx.store)
	ctx := context.Background()

	// Actuals without any budget: variance percent must be 0, not an error.
	if _, err := budget.RecordActual(ctx, fx.admin, fx.period.ID, fx.staffing.ID, dec("500"), "pms"); err != nil {
		t.Fatalf("seed actual: %v", err)
	}

	report, err := reports.Variance(ctx, fx.practice.ID, fx.period.ID)
	if err != nil {
		t.Fatalf("Variance() error = %v", err)
	}
	if !report.VariancePercent.IsZero() {
		t.Errorf("VariancePercent = %s, want 0", report.VariancePercent)
	}
	staff := report.LineItems[len(report.LineItems)-1]
	if !staff.VariancePercent.IsZero() {
		t.Errorf("line VariancePercent = %s, want 0", staff.VariancePercent)
	}
}

func TestVarianceWrongPractice(t *testing.T) {
	fx := newFixture(t)
	reports := NewReportService(fx.store)
	ctx := context.Background()

	other, err := fx.store.CreatePractice(ctx, core.Practice{Name: "Northside Dental", Status: core.PracticeActive})
	if err != nil {
		t.Fatalf("seed practice: %v", err)
	}

	if _, err := reports.Variance(ctx, other.ID, fx.period.ID); !errors.Is(err, core.ErrPeriodNotFound) {
		t.Errorf("error = %v, want ErrPeriodNotFound for foreign period", err)
	}
	if _, err := reports.Variance(ctx, 9999, fx.period.ID); !errors.Is(err, core.ErrPracticeNotFound) {
		t.Errorf("error = %v, want ErrPracticeNotFound", err)
	}
}

func TestProfitAndLoss(t *testing.T) {
	fx := newFixture(t)
	budget := NewBudgetService(fx.store, nil)
	reports := NewReportService(fx.store)
	ctx := context.Background()

	if _, err := budget.RecordActual(ctx, fx.admin, fx.period.ID, fx.production.ID, dec("47250"), "pms"); err != nil {
		t.Fatalf("seed actual: %v", err)
	}
	if _, err := budget.RecordActual(ctx, fx.admin, fx.period.ID, fx.hygiene.ID, dec("14000"), "pms"); err != nil {
		t.Fatalf("seed actual: %v", err)
	}
	if _, err := budget.RecordActual(ctx, fx.admin, fx.period.ID, fx.staffing.ID, dec("21500"), "pms"); err != nil {
		t.Fatalf("seed actual: %v", err)
	}

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	report, err := reports.ProfitAndLoss(ctx, fx.practice.ID, start, end)
	if err != nil {
		t.Fatalf("ProfitAndLoss() error = %v", err)
	}

	if !report.TotalRevenue.Equal(dec("61250")) {
		t.Errorf("TotalRevenue = %s, want 61250", report.TotalRevenue)
	}
	if !report.TotalExpenses.Equal(dec("21500")) {
		t.Errorf("TotalExpenses = %s, want 21500", report.TotalExpenses)
	}
	if !report.NetIncome.Equal(dec("39750")) {
		t.Errorf("NetIncome = %s, want 39750", report.NetIncome)
	}
	if report.NetMargin.IsZero() {
		t.Error("NetMargin should be non-zero with revenue present")
	}
	if len(report.RevenueCategories) != 2 {
		t.Errorf("RevenueCategories = %d, want 2", len(report.RevenueCategories))
	}
	if len(report.ExpenseCategories) != 1 {
		t.Errorf("ExpenseCategories = %d, want 1", len(report.ExpenseCategories))
	}
}

func TestProfitAndLossEmptyRange(t *testing.T) {
	fx := newFixture(t)
	reports := NewReportService(fx.store)

	start := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2030, 12, 31, 0, 0, 0, 0, time.UTC)

	report, err := reports.ProfitAndLoss(context.Background(), fx.practice.ID, start, end)
	if err != nil {
		t.Fatalf("ProfitAndLoss() error = %v", err)
	}
	if !report.TotalRevenue.IsZero() || !report.TotalExpenses.IsZero() || !report.NetIncome.IsZero() {
		t.Error("empty range should produce all-zero totals")
	}
	if !report.NetMargin.IsZero() {
		t.Errorf("NetMargin = %s, want 0 on zero revenue", report.NetMargin)
	}
	if len(report.RevenueCategories) != 0 || len(report.ExpenseCategories) != 0 {
		t.Error("empty range should produce no category rows")
	}
}

func TestProfitAndLossInvertedRange(t *testing.T) {
	fx := newFixture(t)
	reports := NewReportService(fx.store)

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, err := reports.ProfitAndLoss(context.Background(), fx.practice.ID, start, end); !errors.Is(err, core.ErrInvalidDateRange) {
		t.Errorf("error = %v, want ErrInvalidDateRange", err)
	}
}
