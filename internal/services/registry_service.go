// Package services provides business logic and orchestration between the
// store, the account tree, and the message broker.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dentalbudget/internal/core"
	"dentalbudget/internal/storage"
)

// RegistryService manages practices, fiscal years, and budget periods.
type RegistryService struct {
	store storage.Store
}

func NewRegistryService(store storage.Store) *RegistryService {
	return &RegistryService{store: store}
}

// CreatePractice registers a new practice. Admin only.
func (s *RegistryService) CreatePractice(ctx context.Context, user core.User, p core.Practice) (core.Practice, error) {
	if user.Role != core.RoleAdmin {
		return core.Practice{}, core.ErrForbidden
	}
	if p.Status == "" {
		p.Status = core.PracticeActive
	}
	if err := p.Validate(); err != nil {
		return core.Practice{}, err
	}

	created, err := s.store.CreatePractice(ctx, p)
	if err != nil {
		return core.Practice{}, fmt.Errorf("create practice: %w", err)
	}

	slog.InfoContext(ctx, "Practice created", "practice_id", created.ID, "name", created.Name)
	return created, nil
}

func (s *RegistryService) GetPractice(ctx context.Context, id int64) (core.Practice, error) {
	return s.store.GetPractice(ctx, id)
}

func (s *RegistryService) ListPractices(ctx context.Context, offset, limit int) ([]core.Practice, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListPractices(ctx, offset, limit)
}

// UpdatePractice changes a practice's name, location, or status. Admin only.
func (s *RegistryService) UpdatePractice(ctx context.Context, user core.User, p core.Practice) (core.Practice, error) {
	if user.Role != core.RoleAdmin {
		return core.Practice{}, core.ErrForbidden
	}
	if err := p.Validate(); err != nil {
		return core.Practice{}, err
	}
	return s.store.UpdatePractice(ctx, p)
}

// DeletePractice removes a practice. Admin only.
func (s *RegistryService) DeletePractice(ctx context.Context, user core.User, id int64) error {
	if user.Role != core.RoleAdmin {
		return core.ErrForbidden
	}
	if err := s.store.DeletePractice(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Practice deleted", "practice_id", id)
	return nil
}

// CreateFiscalYear opens a fiscal year for a practice and creates its
// twelve monthly budget periods in one pass.
func (s *RegistryService) CreateFiscalYear(ctx context.Context, user core.User, practiceID int64, year int) (core.FiscalYear, []core.BudgetPeriod, error) {
	if !user.CanWrite(practiceID) {
		return core.FiscalYear{}, nil, core.ErrForbidden
	}
	if _, err := s.store.GetPractice(ctx, practiceID); err != nil {
		return core.FiscalYear{}, nil, err
	}

	fy := core.FiscalYear{
		PracticeID: practiceID,
		Year:       year,
		StartDate:  time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
	if err := fy.Validate(); err != nil {
		return core.FiscalYear{}, nil, err
	}

	created, err := s.store.CreateFiscalYear(ctx, fy)
	if err != nil {
		return core.FiscalYear{}, nil, fmt.Errorf("create fiscal year: %w", err)
	}

	periods := make([]core.BudgetPeriod, 0, 12)
	for month := 1; month <= 12; month++ {
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, -1)
		bp, err := s.store.CreatePeriod(ctx, core.BudgetPeriod{
			FiscalYearID: created.ID,
			Month:        month,
			StartDate:    start,
			EndDate:      end,
		})
		if err != nil {
			return core.FiscalYear{}, nil, fmt.Errorf("create period %d: %w", month, err)
		}
		periods = append(periods, bp)
	}

	slog.InfoContext(ctx, "Fiscal year opened",
		"practice_id", practiceID, "fiscal_year", year, "periods", len(periods))
	return created, periods, nil
}

func (s *RegistryService) ListFiscalYears(ctx context.Context, practiceID int64) ([]core.FiscalYear, error) {
	if _, err := s.store.GetPractice(ctx, practiceID); err != nil {
		return nil, err
	}
	return s.store.ListFiscalYears(ctx, practiceID)
}

func (s *RegistryService) ListPeriods(ctx context.Context, fiscalYearID int64) ([]core.BudgetPeriod, error) {
	if _, err := s.store.GetFiscalYear(ctx, fiscalYearID); err != nil {
		return nil, err
	}
	return s.store.ListPeriods(ctx, fiscalYearID)
}
