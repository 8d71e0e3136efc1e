package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"dentalbudget/internal/core"
)

// MemoryStore is a map-backed Store for local development and tests. It
// enforces the same uniqueness invariants the SQLite schema does,
// including the (period, category) constraint on lines and actuals.
type MemoryStore struct {
	mu sync.RWMutex

	nextID     int64
	practices  map[int64]core.Practice
	years      map[int64]core.FiscalYear
	periods    map[int64]core.BudgetPeriod
	categories map[int64]core.AccountCategory
	lines      map[int64]core.BudgetLineItem
	actuals    map[int64]core.ActualEntry
	users      map[int64]core.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		practices:  make(map[int64]core.Practice),
		years:      make(map[int64]core.FiscalYear),
		periods:    make(map[int64]core.BudgetPeriod),
		categories: make(map[int64]core.AccountCategory),
		lines:      make(map[int64]core.BudgetLineItem),
		actuals:    make(map[int64]core.ActualEntry),
		users:      make(map[int64]core.User),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemoryStore) CreatePractice(_ context.Context, p core.Practice) (core.Practice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.practices {
		if existing.Name == p.Name {
			return core.Practice{}, fmt.Errorf("%w: practice %q", core.ErrDuplicateName, p.Name)
		}
	}
	p.ID = m.id()
	m.practices[p.ID] = p
	return p, nil
}

func (m *MemoryStore) GetPractice(_ context.Context, id int64) (core.Practice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.practices[id]
	if !ok {
		return core.Practice{}, core.ErrPracticeNotFound
	}
	return p, nil
}

func (m *MemoryStore) ListPractices(_ context.Context, offset, limit int) ([]core.Practice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]core.Practice, 0, len(m.practices))
	for _, p := range m.practices {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *MemoryStore) UpdatePractice(_ context.Context, p core.Practice) (core.Practice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.practices[p.ID]; !ok {
		return core.Practice{}, core.ErrPracticeNotFound
	}
	for id, existing := range m.practices {
		if id != p.ID && existing.Name == p.Name {
			return core.Practice{}, fmt.Errorf("%w: practice %q", core.ErrDuplicateName, p.Name)
		}
	}
	m.practices[p.ID] = p
	return p, nil
}

func (m *MemoryStore) DeletePractice(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.practices[id]; !ok {
		return core.ErrPracticeNotFound
	}
	for _, fy := range m.years {
		if fy.PracticeID == id {
			return fmt.Errorf("practice %d has fiscal years: %w", id, core.ErrConstraintViolation)
		}
	}
	delete(m.practices, id)
	return nil
}

func (m *MemoryStore) CreateFiscalYear(_ context.Context, fy core.FiscalYear) (core.FiscalYear, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.practices[fy.PracticeID]; !ok {
		return core.FiscalYear{}, core.ErrPracticeNotFound
	}
	for _, existing := range m.years {
		if existing.PracticeID == fy.PracticeID && existing.Year == fy.Year {
			return core.FiscalYear{}, fmt.Errorf("fiscal year %d: %w", fy.Year, core.ErrConstraintViolation)
		}
	}
	fy.ID = m.id()
	m.years[fy.ID] = fy
	return fy, nil
}

func (m *MemoryStore) GetFiscalYear(_ context.Context, id int64) (core.FiscalYear, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fy, ok := m.years[id]
	if !ok {
		return core.FiscalYear{}, core.ErrFiscalYearNotFound
	}
	return fy, nil
}

func (m *MemoryStore) ListFiscalYears(_ context.Context, practiceID int64) ([]core.FiscalYear, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.FiscalYear
	for _, fy := range m.years {
		if fy.PracticeID == practiceID {
			out = append(out, fy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out, nil
}

func (m *MemoryStore) CreatePeriod(_ context.Context, bp core.BudgetPeriod) (core.BudgetPeriod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.years[bp.FiscalYearID]; !ok {
		return core.BudgetPeriod{}, core.ErrFiscalYearNotFound
	}
	for _, existing := range m.periods {
		if existing.FiscalYearID == bp.FiscalYearID && existing.Month == bp.Month {
			return core.BudgetPeriod{}, fmt.Errorf("month %d: %w", bp.Month, core.ErrConstraintViolation)
		}
	}
	bp.ID = m.id()
	m.periods[bp.ID] = bp
	return bp, nil
}

func (m *MemoryStore) GetPeriod(_ context.Context, id int64) (core.BudgetPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bp, ok := m.periods[id]
	if !ok {
		return core.BudgetPeriod{}, core.ErrPeriodNotFound
	}
	return bp, nil
}

func (m *MemoryStore) ListPeriods(_ context.Context, fiscalYearID int64) ([]core.BudgetPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.BudgetPeriod
	for _, bp := range m.periods {
		if bp.FiscalYearID == fiscalYearID {
			out = append(out, bp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func (m *MemoryStore) ListPeriodsInRange(_ context.Context, practiceID int64, start, end time.Time) ([]core.BudgetPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.BudgetPeriod
	for _, bp := range m.periods {
		fy, ok := m.years[bp.FiscalYearID]
		if !ok || fy.PracticeID != practiceID {
			continue
		}
		if !bp.StartDate.Before(start) && !bp.EndDate.After(end) {
			out = append(out, bp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (m *MemoryStore) CreateCategory(_ context.Context, c core.AccountCategory) (core.AccountCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ParentID != nil {
		if _, ok := m.categories[*c.ParentID]; !ok {
			return core.AccountCategory{}, fmt.Errorf("parent %d: %w", *c.ParentID, core.ErrConstraintViolation)
		}
	}
	c.ID = m.id()
	m.categories[c.ID] = c
	return c, nil
}

func (m *MemoryStore) GetCategory(_ context.Context, id int64) (core.AccountCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[id]
	if !ok {
		return core.AccountCategory{}, core.ErrCategoryNotFound
	}
	return c, nil
}

func (m *MemoryStore) ListCategories(_ context.Context) ([]core.AccountCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.AccountCategory, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) DeleteCategory(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[id]; !ok {
		return core.ErrCategoryNotFound
	}
	for _, c := range m.categories {
		if c.ParentID != nil && *c.ParentID == id {
			return fmt.Errorf("category %d: %w", id, core.ErrCategoryInUse)
		}
	}
	for _, l := range m.lines {
		if l.CategoryID == id {
			return fmt.Errorf("category %d: %w", id, core.ErrCategoryInUse)
		}
	}
	for _, a := range m.actuals {
		if a.CategoryID == id {
			return fmt.Errorf("category %d: %w", id, core.ErrCategoryInUse)
		}
	}
	delete(m.categories, id)
	return nil
}

func (m *MemoryStore) UpsertBudgetLine(_ context.Context, periodID, categoryID int64, amount decimal.Decimal) (core.BudgetLineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for id, l := range m.lines {
		if l.PeriodID == periodID && l.CategoryID == categoryID {
			l.Amount = amount
			l.UpdatedAt = now
			m.lines[id] = l
			return l, nil
		}
	}
	line := core.BudgetLineItem{
		ID:         m.id(),
		PeriodID:   periodID,
		CategoryID: categoryID,
		Amount:     amount,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.lines[line.ID] = line
	return line, nil
}

func (m *MemoryStore) GetBudgetLine(_ context.Context, id int64) (core.BudgetLineItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.lines[id]
	if !ok {
		return core.BudgetLineItem{}, core.ErrLineNotFound
	}
	return l, nil
}

func (m *MemoryStore) ListBudgetLines(_ context.Context, periodID int64) ([]core.BudgetLineItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.BudgetLineItem
	for _, l := range m.lines {
		if l.PeriodID == periodID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out, nil
}

func (m *MemoryStore) DeleteBudgetLine(_ context.Context, periodID, categoryID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, l := range m.lines {
		if l.PeriodID == periodID && l.CategoryID == categoryID {
			delete(m.lines, id)
			return nil
		}
	}
	return nil
}

func (m *MemoryStore) UpsertActual(_ context.Context, periodID, categoryID int64, amount decimal.Decimal, source string) (core.ActualEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.actuals {
		if a.PeriodID == periodID && a.CategoryID == categoryID {
			a.Amount = amount
			a.Source = source
			m.actuals[id] = a
			return a, nil
		}
	}
	entry := core.ActualEntry{
		ID:         m.id(),
		PeriodID:   periodID,
		CategoryID: categoryID,
		Amount:     amount,
		Source:     source,
	}
	m.actuals[entry.ID] = entry
	return entry, nil
}

func (m *MemoryStore) ListActuals(ctx context.Context, periodID int64) ([]core.ActualEntry, error) {
	return m.ListActualsForPeriods(ctx, []int64{periodID})
}

func (m *MemoryStore) ListActualsForPeriods(_ context.Context, periodIDs []int64) ([]core.ActualEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := make(map[int64]bool, len(periodIDs))
	for _, id := range periodIDs {
		wanted[id] = true
	}
	var out []core.ActualEntry
	for _, a := range m.actuals {
		if wanted[a.PeriodID] {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PeriodID != out[j].PeriodID {
			return out[i].PeriodID < out[j].PeriodID
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out, nil
}

func (m *MemoryStore) CreateUser(_ context.Context, u core.User) (core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return core.User{}, fmt.Errorf("%w: user %q", core.ErrDuplicateName, u.Email)
		}
	}
	u.ID = m.id()
	m.users[u.ID] = u
	return u, nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, core.ErrUserNotFound
}
