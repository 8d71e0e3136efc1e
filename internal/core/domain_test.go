package core

import (
	"errors"
	"testing"
	"time"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		wantErr bool
	}{
		{"positive", "1234.56", false},
		{"zero", "0", false},
		{"negative", "-0.01", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAmount(dec(tt.amount))
			if tt.wantErr && !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("ValidateAmount(%s) = %v, want ErrInvalidAmount", tt.amount, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateAmount(%s) unexpected error: %v", tt.amount, err)
			}
		})
	}
}

func TestPracticeValidate(t *testing.T) {
	tests := []struct {
		name     string
		practice Practice
		want     error
	}{
		{"valid", Practice{Name: "Lone Peak Dental", Location: "Dallas, TX", Status: PracticeActive}, nil},
		{"empty name", Practice{Status: PracticeActive}, ErrEmptyName},
		{"bad status", Practice{Name: "X", Status: "archived"}, ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.practice.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCategoryValidate(t *testing.T) {
	tests := []struct {
		name     string
		category AccountCategory
		want     error
	}{
		{"leaf", AccountCategory{Name: "Staffing", Type: TypeExpense}, nil},
		{"computed", AccountCategory{Name: "Revenue", Type: TypeRevenue, IsComputed: true, Formula: "2 + 3"}, nil},
		{"computed without formula", AccountCategory{Name: "Revenue", Type: TypeRevenue, IsComputed: true}, ErrInvalidFormula},
		{"leaf with formula", AccountCategory{Name: "Staffing", Type: TypeExpense, Formula: "2"}, ErrInvalidFormula},
		{"bad formula", AccountCategory{Name: "Revenue", Type: TypeRevenue, IsComputed: true, Formula: "a + b"}, ErrInvalidFormula},
		{"bad type", AccountCategory{Name: "X", Type: "metric"}, ErrInvalidCategoryType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.category.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFiscalYearValidate(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

	fy := FiscalYear{PracticeID: 1, Year: 2026, StartDate: start, EndDate: end}
	if err := fy.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}

	fy.EndDate = start.AddDate(0, -1, 0)
	if err := fy.Validate(); !errors.Is(err, ErrInvalidDateRange) {
		t.Errorf("Validate() = %v, want ErrInvalidDateRange", err)
	}

	fy = FiscalYear{PracticeID: 1, Year: 1990, StartDate: start, EndDate: end}
	if err := fy.Validate(); !errors.Is(err, ErrInvalidYear) {
		t.Errorf("Validate() = %v, want ErrInvalidYear", err)
	}
}

func TestUserCanWrite(t *testing.T) {
	tests := []struct {
		name       string
		user       User
		practiceID int64
		want       bool
	}{
		{"admin anywhere", User{Role: RoleAdmin}, 7, true},
		{"manager own practice", User{Role: RoleManager, PracticeID: ptr(7)}, 7, true},
		{"manager other practice", User{Role: RoleManager, PracticeID: ptr(7)}, 8, false},
		{"manager unaffiliated", User{Role: RoleManager}, 7, false},
		{"viewer", User{Role: RoleViewer, PracticeID: ptr(7)}, 7, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.CanWrite(tt.practiceID); got != tt.want {
				t.Errorf("CanWrite(%d) = %v, want %v", tt.practiceID, got, tt.want)
			}
		})
	}
}

func TestUserValidate(t *testing.T) {
	if err := (User{Email: "m@example.com", Role: RoleManager}).Validate(); !errors.Is(err, ErrManagerWithoutPractice) {
		t.Errorf("manager without practice: got %v, want ErrManagerWithoutPractice", err)
	}
	if err := (User{Email: "a@example.com", Role: RoleAdmin}).Validate(); err != nil {
		t.Errorf("admin: unexpected error %v", err)
	}
	if err := (User{Email: "a@example.com", Role: "owner"}).Validate(); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("bad role: got %v, want ErrInvalidRole", err)
	}
}
