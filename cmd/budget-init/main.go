// Command budget-init bootstraps a fresh installation: an admin user, a
// first practice with the current fiscal year, and a starter chart of
// accounts. Safe to point at an existing database; it refuses to run if
// the admin user already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"dentalbudget/internal/auth"
	"dentalbudget/internal/config"
	"dentalbudget/internal/core"
	"dentalbudget/internal/storage"
)

func main() {
	_ = godotenv.Load()

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		log.Fatalf("set ADMIN_EMAIL and ADMIN_PASSWORD")
	}

	practiceName := os.Getenv("PRACTICE_NAME")
	if practiceName == "" {
		practiceName = "Main Street Dental"
	}
	practiceLocation := os.Getenv("PRACTICE_LOCATION")

	year := time.Now().Year()
	if v := os.Getenv("SEED_YEAR"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid SEED_YEAR %q: %v", v, err)
		}
		year = y
	}

	cfg := config.Load()
	if cfg.DataBackend != "sqlite" {
		log.Fatalf("budget-init requires the sqlite backend, got %q", cfg.DataBackend)
	}
	store, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	if _, err := store.GetUserByEmail(ctx, adminEmail); err == nil {
		log.Fatalf("user %s already exists; refusing to re-seed", adminEmail)
	}

	hash, err := auth.HashPassword(adminPassword)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	admin, err := store.CreateUser(ctx, core.User{
		Email:        adminEmail,
		FullName:     "Administrator",
		PasswordHash: hash,
		Role:         core.RoleAdmin,
	})
	if err != nil {
		log.Fatalf("create admin user: %v", err)
	}
	fmt.Printf("Created admin user %s (id %d)\n", admin.Email, admin.ID)

	practice, err := store.CreatePractice(ctx, core.Practice{
		Name:     practiceName,
		Location: practiceLocation,
		Status:   core.PracticeActive,
	})
	if err != nil {
		log.Fatalf("create practice: %v", err)
	}
	fmt.Printf("Created practice %q (id %d)\n", practice.Name, practice.ID)

	fy, err := store.CreateFiscalYear(ctx, core.FiscalYear{
		PracticeID: practice.ID,
		Year:       year,
		StartDate:  time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		log.Fatalf("create fiscal year: %v", err)
	}
	for month := 1; month <= 12; month++ {
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		if _, err := store.CreatePeriod(ctx, core.BudgetPeriod{
			FiscalYearID: fy.ID,
			Month:        month,
			StartDate:    start,
			EndDate:      start.AddDate(0, 1, -1),
		}); err != nil {
			log.Fatalf("create period %d: %v", month, err)
		}
	}
	fmt.Printf("Created fiscal year %d with 12 periods\n", year)

	if err := seedChart(ctx, store); err != nil {
		log.Fatalf("seed chart of accounts: %v", err)
	}
	fmt.Println("Seeded starter chart of accounts")
}

// seedChart creates a starter chart. Leaves hang under plain grouping
// parents; the computed totals reference the leaves. Keeping formula
// inputs non-top-level means period totals count each leaf exactly once.
func seedChart(ctx context.Context, store storage.Store) error {
	mk := func(name string, ct core.CategoryType, parentID *int64, formula string) (core.AccountCategory, error) {
		return store.CreateCategory(ctx, core.AccountCategory{
			ParentID:   parentID,
			Name:       name,
			Type:       ct,
			IsComputed: formula != "",
			Formula:    formula,
		})
	}

	clinical, err := mk("Clinical Revenue", core.TypeRevenue, nil, "")
	if err != nil {
		return err
	}
	dentist, err := mk("Dentist Production", core.TypeRevenue, &clinical.ID, "")
	if err != nil {
		return err
	}
	hygiene, err := mk("Hygiene Production", core.TypeRevenue, &clinical.ID, "")
	if err != nil {
		return err
	}
	adjustments, err := mk("Adjustments and Write-offs", core.TypeRevenue, &clinical.ID, "")
	if err != nil {
		return err
	}
	if _, err := mk("Total Revenue", core.TypeRevenue, nil,
		fmt.Sprintf("%d + %d - %d", dentist.ID, hygiene.ID, adjustments.ID)); err != nil {
		return err
	}

	staff, err := mk("Staff Costs", core.TypeExpense, nil, "")
	if err != nil {
		return err
	}
	clinicalWages, err := mk("Clinical Wages", core.TypeExpense, &staff.ID, "")
	if err != nil {
		return err
	}
	frontOffice, err := mk("Front Office Wages", core.TypeExpense, &staff.ID, "")
	if err != nil {
		return err
	}
	overhead, err := mk("Clinical Overhead", core.TypeExpense, nil, "")
	if err != nil {
		return err
	}
	supplies, err := mk("Dental Supplies", core.TypeExpense, &overhead.ID, "")
	if err != nil {
		return err
	}
	labFees, err := mk("Lab Fees", core.TypeExpense, &overhead.ID, "")
	if err != nil {
		return err
	}
	facilities, err := mk("Facilities", core.TypeExpense, nil, "")
	if err != nil {
		return err
	}
	rent, err := mk("Rent", core.TypeExpense, &facilities.ID, "")
	if err != nil {
		return err
	}
	utilities, err := mk("Utilities", core.TypeExpense, &facilities.ID, "")
	if err != nil {
		return err
	}
	if _, err := mk("Total Operating Expense", core.TypeExpense, nil,
		fmt.Sprintf("%d + %d + %d + %d + %d + %d",
			clinicalWages.ID, frontOffice.ID, supplies.ID, labFees.ID, rent.ID, utilities.ID)); err != nil {
		return err
	}
	return nil
}
