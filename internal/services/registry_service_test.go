package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"dentalbudget/internal/auth"
	"dentalbudget/internal/core"
	"dentalbudget/internal/storage"
)

func testTokenManager() *auth.TokenManager {
	return auth.NewTokenManager("registry-test-secret", time.Hour, nil)
}

func TestCreatePractice(t *testing.T) {
	ctx := context.Background()
	admin := core.User{ID: 1, Role: core.RoleAdmin}
	viewer := core.User{ID: 2, Role: core.RoleViewer}

	t.Run("admin creates with default status", func(t *testing.T) {
		svc := NewRegistryService(storage.NewMemoryStore())
		p, err := svc.CreatePractice(ctx, admin, core.Practice{Name: "Lakeside Dental"})
		if err != nil {
			t.Fatalf("CreatePractice() error = %v", err)
		}
		if p.Status != core.PracticeActive {
			t.Errorf("Status = %q, want active", p.Status)
		}
		if p.ID == 0 {
			t.Error("ID should be assigned")
		}
	})

	t.Run("non-admin forbidden", func(t *testing.T) {
		svc := NewRegistryService(storage.NewMemoryStore())
		if _, err := svc.CreatePractice(ctx, viewer, core.Practice{Name: "X"}); !errors.Is(err, core.ErrForbidden) {
			t.Errorf("error = %v, want ErrForbidden", err)
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		svc := NewRegistryService(storage.NewMemoryStore())
		if _, err := svc.CreatePractice(ctx, admin, core.Practice{Name: "   "}); !errors.Is(err, core.ErrEmptyName) {
			t.Errorf("error = %v, want ErrEmptyName", err)
		}
	})

	t.Run("duplicate name rejected", func(t *testing.T) {
		svc := NewRegistryService(storage.NewMemoryStore())
		if _, err := svc.CreatePractice(ctx, admin, core.Practice{Name: "Lakeside Dental"}); err != nil {
			t.Fatalf("CreatePractice() error = %v", err)
		}
		if _, err := svc.CreatePractice(ctx, admin, core.Practice{Name: "Lakeside Dental"}); !errors.Is(err, core.ErrDuplicateName) {
			t.Errorf("error = %v, want ErrDuplicateName", err)
		}
	})
}

func TestCreateFiscalYear(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := NewRegistryService(store)
	admin := core.User{ID: 1, Role: core.RoleAdmin}

	practice, err := svc.CreatePractice(ctx, admin, core.Practice{Name: "Lakeside Dental"})
	if err != nil {
		t.Fatalf("CreatePractice() error = %v", err)
	}

	fy, periods, err := svc.CreateFiscalYear(ctx, admin, practice.ID, 2025)
	if err != nil {
		t.Fatalf("CreateFiscalYear() error = %v", err)
	}
	if fy.Year != 2025 {
		t.Errorf("Year = %d, want 2025", fy.Year)
	}
	if len(periods) != 12 {
		t.Fatalf("periods = %d, want 12", len(periods))
	}
	for i, p := range periods {
		if p.Month != i+1 {
			t.Errorf("period %d month = %d, want %d", i, p.Month, i+1)
		}
		if p.StartDate.Day() != 1 {
			t.Errorf("period %d should start on the 1st", i)
		}
		if p.EndDate.Before(p.StartDate) {
			t.Errorf("period %d end before start", i)
		}
	}
	// February 2025 has 28 days.
	if periods[1].EndDate.Day() != 28 {
		t.Errorf("February ends on %d, want 28", periods[1].EndDate.Day())
	}

	t.Run("duplicate year rejected", func(t *testing.T) {
		if _, _, err := svc.CreateFiscalYear(ctx, admin, practice.ID, 2025); !errors.Is(err, core.ErrConstraintViolation) {
			t.Errorf("error = %v, want ErrConstraintViolation", err)
		}
	})

	t.Run("year out of range", func(t *testing.T) {
		if _, _, err := svc.CreateFiscalYear(ctx, admin, practice.ID, 1999); !errors.Is(err, core.ErrInvalidYear) {
			t.Errorf("error = %v, want ErrInvalidYear", err)
		}
	})

	t.Run("unknown practice", func(t *testing.T) {
		if _, _, err := svc.CreateFiscalYear(ctx, admin, 9999, 2026); !errors.Is(err, core.ErrPracticeNotFound) {
			t.Errorf("error = %v, want ErrPracticeNotFound", err)
		}
	})

	t.Run("viewer forbidden", func(t *testing.T) {
		viewer := core.User{ID: 2, Role: core.RoleViewer}
		if _, _, err := svc.CreateFiscalYear(ctx, viewer, practice.ID, 2026); !errors.Is(err, core.ErrForbidden) {
			t.Errorf("error = %v, want ErrForbidden", err)
		}
	})
}

func TestCategoryLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewCategoryService(storage.NewMemoryStore())
	admin := core.User{ID: 1, Role: core.RoleAdmin}

	production, err := svc.CreateCategory(ctx, admin, core.AccountCategory{
		Name: "Doctor Production", Type: core.TypeRevenue,
	})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}

	t.Run("child under existing parent", func(t *testing.T) {
		child, err := svc.CreateCategory(ctx, admin, core.AccountCategory{
			Name: "Crowns", Type: core.TypeRevenue, ParentID: &production.ID,
		})
		if err != nil {
			t.Fatalf("CreateCategory() error = %v", err)
		}
		if child.ParentID == nil || *child.ParentID != production.ID {
			t.Error("child should keep its parent reference")
		}
	})

	t.Run("dangling parent rejected", func(t *testing.T) {
		missing := int64(9999)
		_, err := svc.CreateCategory(ctx, admin, core.AccountCategory{
			Name: "Orphan", Type: core.TypeRevenue, ParentID: &missing,
		})
		if !errors.Is(err, core.ErrUnknownCategory) {
			t.Errorf("error = %v, want ErrUnknownCategory", err)
		}
	})

	t.Run("formula referencing unknown category rejected", func(t *testing.T) {
		_, err := svc.CreateCategory(ctx, admin, core.AccountCategory{
			Name: "Broken", Type: core.TypeRevenue, IsComputed: true, Formula: "9999",
		})
		if !errors.Is(err, core.ErrUnknownCategory) {
			t.Errorf("error = %v, want ErrUnknownCategory", err)
		}
	})

	t.Run("malformed formula rejected", func(t *testing.T) {
		_, err := svc.CreateCategory(ctx, admin, core.AccountCategory{
			Name: "Broken", Type: core.TypeRevenue, IsComputed: true, Formula: "1 + + 2",
		})
		if !errors.Is(err, core.ErrInvalidFormula) {
			t.Errorf("error = %v, want ErrInvalidFormula", err)
		}
	})

	t.Run("leaf with formula rejected", func(t *testing.T) {
		_, err := svc.CreateCategory(ctx, admin, core.AccountCategory{
			Name: "Leafy", Type: core.TypeRevenue, Formula: "1",
		})
		if !errors.Is(err, core.ErrInvalidFormula) {
			t.Errorf("error = %v, want ErrInvalidFormula", err)
		}
	})

	t.Run("non-admin forbidden", func(t *testing.T) {
		pid := int64(1)
		manager := core.User{ID: 2, Role: core.RoleManager, PracticeID: &pid}
		_, err := svc.CreateCategory(ctx, manager, core.AccountCategory{Name: "X", Type: core.TypeExpense})
		if !errors.Is(err, core.ErrForbidden) {
			t.Errorf("error = %v, want ErrForbidden", err)
		}
	})
}

func TestDeleteCategoryGuards(t *testing.T) {
	fx := newFixture(t)
	svc := NewCategoryService(fx.store)
	budget := NewBudgetService(fx.store, nil)
	ctx := context.Background()

	t.Run("referenced by formula", func(t *testing.T) {
		err := svc.DeleteCategory(ctx, fx.admin, fx.production.ID)
		if !errors.Is(err, core.ErrCategoryInUse) {
			t.Errorf("error = %v, want ErrCategoryInUse", err)
		}
	})

	t.Run("referenced by budget line", func(t *testing.T) {
		if _, err := budget.SetAmount(ctx, fx.admin, fx.period.ID, fx.staffing.ID, dec("100")); err != nil {
			t.Fatalf("SetAmount() error = %v", err)
		}
		err := svc.DeleteCategory(ctx, fx.admin, fx.staffing.ID)
		if !errors.Is(err, core.ErrCategoryInUse) {
			t.Errorf("error = %v, want ErrCategoryInUse", err)
		}
	})

	t.Run("unreferenced category deletes", func(t *testing.T) {
		spare, err := svc.CreateCategory(ctx, fx.admin, core.AccountCategory{Name: "Spare", Type: core.TypeExpense})
		if err != nil {
			t.Fatalf("CreateCategory() error = %v", err)
		}
		if err := svc.DeleteCategory(ctx, fx.admin, spare.ID); err != nil {
			t.Errorf("DeleteCategory() error = %v", err)
		}
	})

	t.Run("viewer forbidden", func(t *testing.T) {
		if err := svc.DeleteCategory(ctx, fx.viewer, fx.staffing.ID); !errors.Is(err, core.ErrForbidden) {
			t.Errorf("error = %v, want ErrForbidden", err)
		}
	})
}

func TestAuthServiceLogin(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := NewAuthService(store, testTokenManager())
	admin := core.User{ID: 1, Role: core.RoleAdmin}

	created, err := svc.Register(ctx, admin, core.User{
		Email: "manager@example.com", FullName: "Pat Mills", Role: core.RoleAdmin,
	}, "correct-horse")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if created.PasswordHash == "correct-horse" {
		t.Fatal("password stored in plaintext")
	}

	t.Run("valid credentials", func(t *testing.T) {
		token, user, err := svc.Login(ctx, "manager@example.com", "correct-horse")
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if token == "" {
			t.Error("token should not be empty")
		}
		if user.Email != "manager@example.com" {
			t.Errorf("Email = %q", user.Email)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		if _, _, err := svc.Login(ctx, "manager@example.com", "nope"); !errors.Is(err, core.ErrInvalidCredentials) {
			t.Errorf("error = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		if _, _, err := svc.Login(ctx, "ghost@example.com", "nope"); !errors.Is(err, core.ErrInvalidCredentials) {
			t.Errorf("error = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("non-admin cannot register", func(t *testing.T) {
		viewer := core.User{ID: 3, Role: core.RoleViewer}
		_, err := svc.Register(ctx, viewer, core.User{Email: "x@example.com", Role: core.RoleViewer}, "pw")
		if !errors.Is(err, core.ErrForbidden) {
			t.Errorf("error = %v, want ErrForbidden", err)
		}
	})
}
