package http

import (
	"time"

	"github.com/shopspring/decimal"

	"dentalbudget/internal/core"
	"dentalbudget/internal/services"
)

const dateLayout = "2006-01-02"

type practiceView struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Status   string `json:"status"`
}

func toPracticeView(p core.Practice) practiceView {
	return practiceView{ID: p.ID, Name: p.Name, Location: p.Location, Status: string(p.Status)}
}

type fiscalYearView struct {
	ID         int64  `json:"id"`
	PracticeID int64  `json:"practice_id"`
	Year       int    `json:"year"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

func toFiscalYearView(fy core.FiscalYear) fiscalYearView {
	return fiscalYearView{
		ID:         fy.ID,
		PracticeID: fy.PracticeID,
		Year:       fy.Year,
		StartDate:  fy.StartDate.Format(dateLayout),
		EndDate:    fy.EndDate.Format(dateLayout),
	}
}

type periodView struct {
	ID           int64  `json:"id"`
	FiscalYearID int64  `json:"fiscal_year_id"`
	Month        int    `json:"month"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
}

func toPeriodView(bp core.BudgetPeriod) periodView {
	return periodView{
		ID:           bp.ID,
		FiscalYearID: bp.FiscalYearID,
		Month:        bp.Month,
		StartDate:    bp.StartDate.Format(dateLayout),
		EndDate:      bp.EndDate.Format(dateLayout),
	}
}

type categoryView struct {
	ID         int64  `json:"id"`
	ParentID   *int64 `json:"parent_id"`
	Name       string `json:"name"`
	Type       string `json:"category_type"`
	IsComputed bool   `json:"is_computed"`
	Formula    string `json:"formula,omitempty"`
}

func toCategoryView(c core.AccountCategory) categoryView {
	return categoryView{
		ID:         c.ID,
		ParentID:   c.ParentID,
		Name:       c.Name,
		Type:       string(c.Type),
		IsComputed: c.IsComputed,
		Formula:    c.Formula,
	}
}

type lineView struct {
	ID         int64           `json:"id"`
	PeriodID   int64           `json:"period_id"`
	CategoryID int64           `json:"category_id"`
	Amount     decimal.Decimal `json:"amount"`
	Notes      string          `json:"notes,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func toLineView(l core.BudgetLineItem) lineView {
	return lineView{
		ID:         l.ID,
		PeriodID:   l.PeriodID,
		CategoryID: l.CategoryID,
		Amount:     l.Amount,
		Notes:      l.Notes,
		CreatedAt:  l.CreatedAt,
		UpdatedAt:  l.UpdatedAt,
	}
}

type resolvedLineView struct {
	CategoryID   int64           `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Type         string          `json:"category_type"`
	IsComputed   bool            `json:"is_computed"`
	Amount       decimal.Decimal `json:"amount"`
}

func toResolvedLineView(l services.ResolvedLine) resolvedLineView {
	return resolvedLineView{
		CategoryID:   l.CategoryID,
		CategoryName: l.CategoryName,
		Type:         string(l.CategoryType),
		IsComputed:   l.IsComputed,
		Amount:       l.Amount,
	}
}

type actualView struct {
	ID         int64           `json:"id"`
	PeriodID   int64           `json:"period_id"`
	CategoryID int64           `json:"category_id"`
	Amount     decimal.Decimal `json:"amount"`
	Source     string          `json:"source"`
}

func toActualView(a core.ActualEntry) actualView {
	return actualView{
		ID:         a.ID,
		PeriodID:   a.PeriodID,
		CategoryID: a.CategoryID,
		Amount:     a.Amount,
		Source:     a.Source,
	}
}

type varianceLineView struct {
	CategoryID      int64           `json:"category_id"`
	CategoryName    string          `json:"category_name"`
	Type            string          `json:"category_type"`
	Budget          decimal.Decimal `json:"budget"`
	Actual          decimal.Decimal `json:"actual"`
	Variance        decimal.Decimal `json:"variance"`
	VariancePercent decimal.Decimal `json:"variance_percentage"`
}

type varianceReportView struct {
	Practice        practiceView       `json:"practice"`
	Period          periodView         `json:"period"`
	TotalBudget     decimal.Decimal    `json:"total_budget"`
	TotalActual     decimal.Decimal    `json:"total_actual"`
	TotalVariance   decimal.Decimal    `json:"total_variance"`
	VariancePercent decimal.Decimal    `json:"variance_percentage"`
	LineItems       []varianceLineView `json:"line_items"`
}

func toVarianceReportView(rep core.VarianceReport) varianceReportView {
	view := varianceReportView{
		Practice:        toPracticeView(rep.Practice),
		Period:          toPeriodView(rep.Period),
		TotalBudget:     rep.TotalBudget,
		TotalActual:     rep.TotalActual,
		TotalVariance:   rep.TotalVariance,
		VariancePercent: rep.VariancePercent,
		LineItems:       make([]varianceLineView, 0, len(rep.LineItems)),
	}
	for _, li := range rep.LineItems {
		view.LineItems = append(view.LineItems, varianceLineView{
			CategoryID:      li.CategoryID,
			CategoryName:    li.CategoryName,
			Type:            string(li.CategoryType),
			Budget:          li.Budget,
			Actual:          li.Actual,
			Variance:        li.Variance,
			VariancePercent: li.VariancePercent,
		})
	}
	return view
}

type categoryAmountView struct {
	CategoryID   int64           `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Amount       decimal.Decimal `json:"amount"`
}

type plReportView struct {
	PracticeName      string               `json:"practice_name"`
	Location          string               `json:"location"`
	StartDate         string               `json:"start_date"`
	EndDate           string               `json:"end_date"`
	TotalRevenue      decimal.Decimal      `json:"total_revenue"`
	TotalExpenses     decimal.Decimal      `json:"total_expenses"`
	NetIncome         decimal.Decimal      `json:"net_income"`
	NetMargin         decimal.Decimal      `json:"net_margin"`
	RevenueCategories []categoryAmountView `json:"revenue_categories"`
	ExpenseCategories []categoryAmountView `json:"expense_categories"`
}

func toPLReportView(rep core.PLReport) plReportView {
	view := plReportView{
		PracticeName:      rep.PracticeName,
		Location:          rep.Location,
		StartDate:         rep.PeriodStartDate.Format(dateLayout),
		EndDate:           rep.PeriodEndDate.Format(dateLayout),
		TotalRevenue:      rep.TotalRevenue,
		TotalExpenses:     rep.TotalExpenses,
		NetIncome:         rep.NetIncome,
		NetMargin:         rep.NetMargin,
		RevenueCategories: make([]categoryAmountView, 0, len(rep.RevenueCategories)),
		ExpenseCategories: make([]categoryAmountView, 0, len(rep.ExpenseCategories)),
	}
	for _, c := range rep.RevenueCategories {
		view.RevenueCategories = append(view.RevenueCategories, categoryAmountView(c))
	}
	for _, c := range rep.ExpenseCategories {
		view.ExpenseCategories = append(view.ExpenseCategories, categoryAmountView(c))
	}
	return view
}
