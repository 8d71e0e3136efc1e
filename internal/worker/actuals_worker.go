// Package worker consumes actuals feed messages and applies them to the
// store. Feeds are typically nightly exports from practice management
// systems.
package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"dentalbudget/internal/amqp"
	"dentalbudget/internal/core"
	applog "dentalbudget/internal/log"
	"dentalbudget/internal/storage"
)

// Permanent reports whether err is a validation failure that retrying
// cannot fix. Permanent failures should be dropped, not requeued.
func Permanent(err error) bool {
	return errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrReadOnlyCategory) ||
		errors.Is(err, core.ErrPeriodNotFound) ||
		errors.Is(err, core.ErrCategoryNotFound)
}

// ActualsWorker applies actuals messages to the store.
type ActualsWorker struct {
	store storage.Store
	logs  *applog.Logger
}

func NewActualsWorker(store storage.Store) *ActualsWorker {
	return &ActualsWorker{
		store: store,
		logs:  applog.New(applog.Config{Component: applog.ComponentWorker}),
	}
}

// HandleActualMessage validates one feed message and upserts the actual
// entry. Validation failures are permanent: the caller should drop the
// message rather than requeue it.
func (w *ActualsWorker) HandleActualMessage(ctx context.Context, msg *amqp.ActualRecordedMessage) error {
	w.logs.InfoContext(ctx, "Processing actuals message",
		applog.FieldPeriodID, msg.PeriodID,
		applog.FieldCategoryID, msg.CategoryID,
		applog.FieldSource, msg.Source)

	amount, err := decimal.NewFromString(msg.Amount)
	if err != nil {
		return fmt.Errorf("parse amount %q: %w", msg.Amount, core.ErrInvalidAmount)
	}
	if err := core.ValidateAmount(amount); err != nil {
		return fmt.Errorf("amount %s: %w", msg.Amount, err)
	}

	if _, err := w.store.GetPeriod(ctx, msg.PeriodID); err != nil {
		return fmt.Errorf("period %d: %w", msg.PeriodID, err)
	}
	category, err := w.store.GetCategory(ctx, msg.CategoryID)
	if err != nil {
		return fmt.Errorf("category %d: %w", msg.CategoryID, err)
	}
	if !category.Editable() {
		return fmt.Errorf("category %d: %w", msg.CategoryID, core.ErrReadOnlyCategory)
	}

	source := msg.Source
	if source == "" {
		source = "feed"
	}

	entry, err := w.store.UpsertActual(ctx, msg.PeriodID, msg.CategoryID, amount, source)
	if err != nil {
		return fmt.Errorf("upsert actual: %w", err)
	}

	w.logs.InfoContext(ctx, "Actual recorded",
		applog.FieldPeriodID, entry.PeriodID,
		applog.FieldCategoryID, entry.CategoryID,
		applog.FieldAmount, entry.Amount.String(),
		applog.FieldSource, entry.Source)
	return nil
}
