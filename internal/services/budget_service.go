package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"dentalbudget/internal/amqp"
	"dentalbudget/internal/core"
	applog "dentalbudget/internal/log"
	"dentalbudget/internal/storage"
)

// BudgetService orchestrates ledger writes across the store and AMQP.
// Writes go to the store first; change notifications are published
// afterwards and never fail the request.
type BudgetService struct {
	store      storage.Store
	amqpClient *amqp.Client
	logs       *applog.StructuredLogger
}

func NewBudgetService(store storage.Store, amqpClient *amqp.Client) *BudgetService {
	return &BudgetService{
		store:      store,
		amqpClient: amqpClient,
		logs:       applog.NewStructuredLogger(applog.New(applog.Config{Component: applog.ComponentLedger})),
	}
}

// ResolvedLine is one category amount of a period with formulas applied.
type ResolvedLine struct {
	CategoryID   int64
	CategoryName string
	CategoryType core.CategoryType
	IsComputed   bool
	Amount       decimal.Decimal
}

// practiceForPeriod walks period -> fiscal year -> practice.
func (s *BudgetService) practiceForPeriod(ctx context.Context, periodID int64) (core.BudgetPeriod, int64, error) {
	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return core.BudgetPeriod{}, 0, err
	}
	fy, err := s.store.GetFiscalYear(ctx, period.FiscalYearID)
	if err != nil {
		return core.BudgetPeriod{}, 0, err
	}
	return period, fy.PracticeID, nil
}

// SetAmount upserts the budget line for a (period, category) pair.
// Computed categories are read-only, negative amounts are rejected, and
// the writer must be allowed to write in the period's practice.
func (s *BudgetService) SetAmount(ctx context.Context, user core.User, periodID, categoryID int64, amount decimal.Decimal) (core.BudgetLineItem, error) {
	if err := core.ValidateAmount(amount); err != nil {
		return core.BudgetLineItem{}, err
	}

	_, practiceID, err := s.practiceForPeriod(ctx, periodID)
	if err != nil {
		return core.BudgetLineItem{}, err
	}
	if !user.CanWrite(practiceID) {
		return core.BudgetLineItem{}, core.ErrForbidden
	}

	category, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return core.BudgetLineItem{}, err
	}
	if !category.Editable() {
		return core.BudgetLineItem{}, fmt.Errorf("category %d: %w", categoryID, core.ErrReadOnlyCategory)
	}

	line, err := s.store.UpsertBudgetLine(ctx, periodID, categoryID, amount)
	if err != nil {
		return core.BudgetLineItem{}, fmt.Errorf("upsert budget line: %w", err)
	}

	s.logs.LogBudgetLineSaved(ctx, periodID, categoryID, amount.String())
	s.publishChange(ctx, periodID, categoryID, amqp.ActionUpsert)
	return line, nil
}

// UpdateLine replaces the amount of an existing line addressed by id.
func (s *BudgetService) UpdateLine(ctx context.Context, user core.User, lineID int64, amount decimal.Decimal) (core.BudgetLineItem, error) {
	line, err := s.store.GetBudgetLine(ctx, lineID)
	if err != nil {
		return core.BudgetLineItem{}, err
	}
	return s.SetAmount(ctx, user, line.PeriodID, line.CategoryID, amount)
}

// DeleteLine removes the line addressed by id. After the delete the
// category resolves to zero for that period, the same as never entered.
func (s *BudgetService) DeleteLine(ctx context.Context, user core.User, lineID int64) error {
	line, err := s.store.GetBudgetLine(ctx, lineID)
	if err != nil {
		return err
	}

	_, practiceID, err := s.practiceForPeriod(ctx, line.PeriodID)
	if err != nil {
		return err
	}
	if !user.CanWrite(practiceID) {
		return core.ErrForbidden
	}

	if err := s.store.DeleteBudgetLine(ctx, line.PeriodID, line.CategoryID); err != nil {
		return err
	}

	s.publishChange(ctx, line.PeriodID, line.CategoryID, amqp.ActionDelete)
	return nil
}

// Lines returns the period's resolved amounts: every category with a
// stored line plus every computed category that transitively touches one.
func (s *BudgetService) Lines(ctx context.Context, periodID int64) ([]ResolvedLine, error) {
	if _, _, err := s.practiceForPeriod(ctx, periodID); err != nil {
		return nil, err
	}

	tree, err := loadTree(ctx, s.store)
	if err != nil {
		return nil, err
	}

	stored, err := s.store.ListBudgetLines(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("list budget lines: %w", err)
	}

	amounts := make(core.Amounts, len(stored))
	data := make(map[int64]bool, len(stored))
	for _, l := range stored {
		amounts[l.CategoryID] = l.Amount
		data[l.CategoryID] = true
	}

	var out []ResolvedLine
	for _, c := range tree.All() {
		if !data[c.ID] && !(c.IsComputed && tree.HasData(c.ID, data)) {
			continue
		}
		amount, err := tree.Resolve(c.ID, amounts)
		if err != nil {
			return nil, err
		}
		out = append(out, ResolvedLine{
			CategoryID:   c.ID,
			CategoryName: c.Name,
			CategoryType: c.Type,
			IsComputed:   c.IsComputed,
			Amount:       amount,
		})
	}
	return out, nil
}

// TotalForPeriod sums the period's budget over the top-level categories
// of one type.
func (s *BudgetService) TotalForPeriod(ctx context.Context, periodID int64, ct core.CategoryType) (decimal.Decimal, error) {
	if !ct.Valid() {
		return decimal.Zero, core.ErrInvalidCategoryType
	}
	if _, _, err := s.practiceForPeriod(ctx, periodID); err != nil {
		return decimal.Zero, err
	}

	tree, err := loadTree(ctx, s.store)
	if err != nil {
		return decimal.Zero, err
	}

	stored, err := s.store.ListBudgetLines(ctx, periodID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list budget lines: %w", err)
	}
	amounts := make(core.Amounts, len(stored))
	for _, l := range stored {
		amounts[l.CategoryID] = l.Amount
	}

	return tree.TotalForPeriod(ct, amounts)
}

// RecordActual upserts a real-world amount for a (period, category) pair.
func (s *BudgetService) RecordActual(ctx context.Context, user core.User, periodID, categoryID int64, amount decimal.Decimal, source string) (core.ActualEntry, error) {
	if err := core.ValidateAmount(amount); err != nil {
		return core.ActualEntry{}, err
	}

	_, practiceID, err := s.practiceForPeriod(ctx, periodID)
	if err != nil {
		return core.ActualEntry{}, err
	}
	if !user.CanWrite(practiceID) {
		return core.ActualEntry{}, core.ErrForbidden
	}

	category, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return core.ActualEntry{}, err
	}
	if !category.Editable() {
		return core.ActualEntry{}, fmt.Errorf("category %d: %w", categoryID, core.ErrReadOnlyCategory)
	}

	if source == "" {
		source = "manual"
	}
	entry, err := s.store.UpsertActual(ctx, periodID, categoryID, amount, source)
	if err != nil {
		return core.ActualEntry{}, fmt.Errorf("upsert actual: %w", err)
	}
	return entry, nil
}

func (s *BudgetService) publishChange(ctx context.Context, periodID, categoryID int64, action string) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishBudgetChange(ctx, periodID, categoryID, action); err != nil {
		s.logs.LogError(ctx, "Failed to publish budget change", err, applog.ComponentAMQP, applog.OpPublish,
			applog.LogFields{applog.FieldPeriodID: periodID, applog.FieldCategoryID: categoryID})
		// The write already landed; notification loss is acceptable.
	}
}

// Close closes the store and the AMQP connection.
func (s *BudgetService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close budget service: %v", errs)
	}
	return nil
}
