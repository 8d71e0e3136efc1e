package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dentalbudget/internal/core"
)

// Both implementations must satisfy the same contract, so every test
// runs against SQLite and the memory store.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "budget.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return map[string]Store{
		"sqlite": repo,
		"memory": NewMemoryStore(),
	}
}

func seedPeriod(t *testing.T, ctx context.Context, s Store) (core.Practice, core.BudgetPeriod) {
	t.Helper()
	p, err := s.CreatePractice(ctx, core.Practice{Name: "Lone Peak Dental", Location: "Dallas, TX", Status: core.PracticeActive})
	if err != nil {
		t.Fatalf("CreatePractice: %v", err)
	}
	fy, err := s.CreateFiscalYear(ctx, core.FiscalYear{
		PracticeID: p.ID,
		Year:       2026,
		StartDate:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateFiscalYear: %v", err)
	}
	bp, err := s.CreatePeriod(ctx, core.BudgetPeriod{
		FiscalYearID: fy.ID,
		Month:        1,
		StartDate:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreatePeriod: %v", err)
	}
	return p, bp
}

func TestPracticeCRUD(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			p, err := s.CreatePractice(ctx, core.Practice{Name: "Main Practice", Location: "Dallas, TX", Status: core.PracticeActive})
			if err != nil {
				t.Fatalf("CreatePractice: %v", err)
			}
			if p.ID == 0 {
				t.Fatal("CreatePractice returned zero id")
			}

			if _, err := s.CreatePractice(ctx, core.Practice{Name: "Main Practice", Status: core.PracticeActive}); !errors.Is(err, core.ErrDuplicateName) {
				t.Errorf("duplicate name error = %v, want ErrDuplicateName", err)
			}

			got, err := s.GetPractice(ctx, p.ID)
			if err != nil {
				t.Fatalf("GetPractice: %v", err)
			}
			if got.Name != "Main Practice" || got.Status != core.PracticeActive {
				t.Errorf("GetPractice = %+v", got)
			}

			got.Status = core.PracticeInactive
			if _, err := s.UpdatePractice(ctx, got); err != nil {
				t.Fatalf("UpdatePractice: %v", err)
			}
			got, _ = s.GetPractice(ctx, p.ID)
			if got.Status != core.PracticeInactive {
				t.Errorf("status after update = %s, want inactive", got.Status)
			}

			list, err := s.ListPractices(ctx, 0, 100)
			if err != nil || len(list) != 1 {
				t.Fatalf("ListPractices = %v, %v", list, err)
			}

			if err := s.DeletePractice(ctx, p.ID); err != nil {
				t.Fatalf("DeletePractice: %v", err)
			}
			if _, err := s.GetPractice(ctx, p.ID); !errors.Is(err, core.ErrPracticeNotFound) {
				t.Errorf("GetPractice after delete = %v, want ErrPracticeNotFound", err)
			}
		})
	}
}

func TestPeriodUniqueness(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, bp := seedPeriod(t, ctx, s)

			_, err := s.CreatePeriod(ctx, core.BudgetPeriod{
				FiscalYearID: bp.FiscalYearID,
				Month:        1,
				StartDate:    bp.StartDate,
				EndDate:      bp.EndDate,
			})
			if !errors.Is(err, core.ErrConstraintViolation) {
				t.Errorf("duplicate (fiscal year, month) error = %v, want ErrConstraintViolation", err)
			}
		})
	}
}

func TestBudgetLineUpsertRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, bp := seedPeriod(t, ctx, s)
			cat, err := s.CreateCategory(ctx, core.AccountCategory{Name: "ClinicalRevenue", Type: core.TypeRevenue})
			if err != nil {
				t.Fatalf("CreateCategory: %v", err)
			}

			line, err := s.UpsertBudgetLine(ctx, bp.ID, cat.ID, decimal.NewFromInt(1000))
			if err != nil {
				t.Fatalf("UpsertBudgetLine: %v", err)
			}
			if !line.Amount.Equal(decimal.NewFromInt(1000)) {
				t.Errorf("amount = %s, want 1000", line.Amount)
			}

			// Second upsert for the same pair updates in place.
			updated, err := s.UpsertBudgetLine(ctx, bp.ID, cat.ID, decimal.NewFromInt(2500))
			if err != nil {
				t.Fatalf("UpsertBudgetLine update: %v", err)
			}
			if updated.ID != line.ID {
				t.Errorf("upsert created new row: id %d != %d", updated.ID, line.ID)
			}
			if !updated.Amount.Equal(decimal.NewFromInt(2500)) {
				t.Errorf("updated amount = %s, want 2500", updated.Amount)
			}

			lines, err := s.ListBudgetLines(ctx, bp.ID)
			if err != nil || len(lines) != 1 {
				t.Fatalf("ListBudgetLines = %v, %v; want exactly one line", lines, err)
			}

			got, err := s.GetBudgetLine(ctx, line.ID)
			if err != nil {
				t.Fatalf("GetBudgetLine: %v", err)
			}
			if !got.Amount.Equal(decimal.NewFromInt(2500)) {
				t.Errorf("GetBudgetLine amount = %s, want 2500", got.Amount)
			}

			if err := s.DeleteBudgetLine(ctx, bp.ID, cat.ID); err != nil {
				t.Fatalf("DeleteBudgetLine: %v", err)
			}
			lines, _ = s.ListBudgetLines(ctx, bp.ID)
			if len(lines) != 0 {
				t.Errorf("lines after delete = %v, want none", lines)
			}

			// Deleting an already absent line is a no-op.
			if err := s.DeleteBudgetLine(ctx, bp.ID, cat.ID); err != nil {
				t.Errorf("DeleteBudgetLine on absent line: %v", err)
			}
		})
	}
}

func TestActualUpsert(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, bp := seedPeriod(t, ctx, s)
			cat, err := s.CreateCategory(ctx, core.AccountCategory{Name: "Staffing", Type: core.TypeExpense})
			if err != nil {
				t.Fatalf("CreateCategory: %v", err)
			}

			if _, err := s.UpsertActual(ctx, bp.ID, cat.ID, decimal.NewFromInt(480), "manual"); err != nil {
				t.Fatalf("UpsertActual: %v", err)
			}
			if _, err := s.UpsertActual(ctx, bp.ID, cat.ID, decimal.NewFromInt(520), "feed"); err != nil {
				t.Fatalf("UpsertActual update: %v", err)
			}

			actuals, err := s.ListActuals(ctx, bp.ID)
			if err != nil {
				t.Fatalf("ListActuals: %v", err)
			}
			if len(actuals) != 1 {
				t.Fatalf("actuals = %v, want exactly one entry per (period, category)", actuals)
			}
			if !actuals[0].Amount.Equal(decimal.NewFromInt(520)) || actuals[0].Source != "feed" {
				t.Errorf("actual = %+v, want amount 520 source feed", actuals[0])
			}
		})
	}
}

func TestDeleteCategoryInUse(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, bp := seedPeriod(t, ctx, s)
			cat, err := s.CreateCategory(ctx, core.AccountCategory{Name: "Supplies", Type: core.TypeExpense})
			if err != nil {
				t.Fatalf("CreateCategory: %v", err)
			}
			if _, err := s.UpsertBudgetLine(ctx, bp.ID, cat.ID, decimal.NewFromInt(10)); err != nil {
				t.Fatalf("UpsertBudgetLine: %v", err)
			}

			err = s.DeleteCategory(ctx, cat.ID)
			if !errors.Is(err, core.ErrCategoryInUse) && !errors.Is(err, core.ErrConstraintViolation) {
				t.Errorf("DeleteCategory error = %v, want in-use/constraint failure", err)
			}
		})
	}
}

func TestListPeriodsInRange(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			p, _ := seedPeriod(t, ctx, s) // January period
			fy, _ := s.ListFiscalYears(ctx, p.ID)
			for month := 2; month <= 3; month++ {
				start := time.Date(2026, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
				if _, err := s.CreatePeriod(ctx, core.BudgetPeriod{
					FiscalYearID: fy[0].ID,
					Month:        month,
					StartDate:    start,
					EndDate:      start.AddDate(0, 1, -1),
				}); err != nil {
					t.Fatalf("CreatePeriod month %d: %v", month, err)
				}
			}

			got, err := s.ListPeriodsInRange(ctx, p.ID,
				time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC))
			if err != nil {
				t.Fatalf("ListPeriodsInRange: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("periods in range = %d, want 2 (Jan, Feb)", len(got))
			}
			if got[0].Month != 1 || got[1].Month != 2 {
				t.Errorf("months = %d, %d; want 1, 2", got[0].Month, got[1].Month)
			}
		})
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			p, _ := seedPeriod(t, ctx, s)
			u, err := s.CreateUser(ctx, core.User{
				Email:        "manager@lonepeak.example",
				FullName:     "Pat Manager",
				PasswordHash: "x",
				Role:         core.RoleManager,
				PracticeID:   &p.ID,
			})
			if err != nil {
				t.Fatalf("CreateUser: %v", err)
			}
			if u.ID == 0 {
				t.Fatal("CreateUser returned zero id")
			}

			got, err := s.GetUserByEmail(ctx, "manager@lonepeak.example")
			if err != nil {
				t.Fatalf("GetUserByEmail: %v", err)
			}
			if got.Role != core.RoleManager || got.PracticeID == nil || *got.PracticeID != p.ID {
				t.Errorf("user = %+v", got)
			}

			if _, err := s.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, core.ErrUserNotFound) {
				t.Errorf("unknown email error = %v, want ErrUserNotFound", err)
			}
		})
	}
}
