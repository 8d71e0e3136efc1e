package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"dentalbudget/internal/cache"
	"dentalbudget/internal/core"
)

const dateLayout = "2006-01-02"
const timestampLayout = "2006-01-02 15:04:05"

// chartTTL bounds staleness of the cached chart of accounts when another
// process writes to the same database file.
const chartTTL = 30 * time.Second

const chartCacheKey = "chart"

// SQLiteRepository implements Store on a single SQLite database file.
// The chart of accounts is read on nearly every request and changes
// rarely, so it is cached with invalidation on category writes.
type SQLiteRepository struct {
	db    *sql.DB
	chart *cache.LRUCache[[]core.AccountCategory]
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=foreign_keys(1)", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:    db,
		chart: cache.NewLRUCache[[]core.AccountCategory](1, chartTTL),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// mapSQLError converts driver-level failures to the domain taxonomy.
// notFound is returned for sql.ErrNoRows so each query site picks the
// entity-appropriate sentinel.
func mapSQLError(err, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return notFound
	case strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", core.ErrConstraintViolation, err)
	case strings.Contains(err.Error(), "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", core.ErrConstraintViolation, err)
	default:
		return err
	}
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse stored amount %q: %w", s, err)
	}
	return d, nil
}

// --- Practices ---

func (r *SQLiteRepository) CreatePractice(ctx context.Context, p core.Practice) (core.Practice, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO practices (name, location, status) VALUES (?, ?, ?) RETURNING id`,
		p.Name, p.Location, string(p.Status),
	).Scan(&p.ID)
	if err != nil {
		if strings.Contains(err.Error(), "practices.name") {
			return core.Practice{}, fmt.Errorf("%w: practice %q", core.ErrDuplicateName, p.Name)
		}
		return core.Practice{}, fmt.Errorf("create practice: %w", mapSQLError(err, core.ErrPracticeNotFound))
	}
	slog.InfoContext(ctx, "Practice created", "id", p.ID, "name", p.Name)
	return p, nil
}

func (r *SQLiteRepository) GetPractice(ctx context.Context, id int64) (core.Practice, error) {
	var p core.Practice
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, location, status FROM practices WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Location, &status)
	if err != nil {
		return core.Practice{}, mapSQLError(err, core.ErrPracticeNotFound)
	}
	p.Status = core.PracticeStatus(status)
	return p, nil
}

func (r *SQLiteRepository) ListPractices(ctx context.Context, offset, limit int) ([]core.Practice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, location, status FROM practices ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list practices: %w", err)
	}
	defer rows.Close()

	var out []core.Practice
	for rows.Next() {
		var p core.Practice
		var status string
		if err := rows.Scan(&p.ID, &p.Name, &p.Location, &status); err != nil {
			return nil, fmt.Errorf("scan practice: %w", err)
		}
		p.Status = core.PracticeStatus(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdatePractice(ctx context.Context, p core.Practice) (core.Practice, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE practices SET name = ?, location = ?, status = ? WHERE id = ?`,
		p.Name, p.Location, string(p.Status), p.ID)
	if err != nil {
		if strings.Contains(err.Error(), "practices.name") {
			return core.Practice{}, fmt.Errorf("%w: practice %q", core.ErrDuplicateName, p.Name)
		}
		return core.Practice{}, fmt.Errorf("update practice: %w", mapSQLError(err, core.ErrPracticeNotFound))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Practice{}, core.ErrPracticeNotFound
	}
	return p, nil
}

func (r *SQLiteRepository) DeletePractice(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM practices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete practice: %w", mapSQLError(err, core.ErrPracticeNotFound))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrPracticeNotFound
	}
	return nil
}

// --- Fiscal years and periods ---

func (r *SQLiteRepository) CreateFiscalYear(ctx context.Context, fy core.FiscalYear) (core.FiscalYear, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO fiscal_years (practice_id, year, start_date, end_date) VALUES (?, ?, ?, ?) RETURNING id`,
		fy.PracticeID, fy.Year, fy.StartDate.Format(dateLayout), fy.EndDate.Format(dateLayout),
	).Scan(&fy.ID)
	if err != nil {
		return core.FiscalYear{}, fmt.Errorf("create fiscal year: %w", mapSQLError(err, core.ErrFiscalYearNotFound))
	}
	return fy, nil
}

func (r *SQLiteRepository) GetFiscalYear(ctx context.Context, id int64) (core.FiscalYear, error) {
	var fy core.FiscalYear
	var start, end string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, practice_id, year, start_date, end_date FROM fiscal_years WHERE id = ?`, id,
	).Scan(&fy.ID, &fy.PracticeID, &fy.Year, &start, &end)
	if err != nil {
		return core.FiscalYear{}, mapSQLError(err, core.ErrFiscalYearNotFound)
	}
	if fy.StartDate, err = time.Parse(dateLayout, start); err != nil {
		return core.FiscalYear{}, fmt.Errorf("parse start date: %w", err)
	}
	if fy.EndDate, err = time.Parse(dateLayout, end); err != nil {
		return core.FiscalYear{}, fmt.Errorf("parse end date: %w", err)
	}
	return fy, nil
}

func (r *SQLiteRepository) ListFiscalYears(ctx context.Context, practiceID int64) ([]core.FiscalYear, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, practice_id, year, start_date, end_date FROM fiscal_years WHERE practice_id = ? ORDER BY year`,
		practiceID)
	if err != nil {
		return nil, fmt.Errorf("list fiscal years: %w", err)
	}
	defer rows.Close()

	var out []core.FiscalYear
	for rows.Next() {
		var fy core.FiscalYear
		var start, end string
		if err := rows.Scan(&fy.ID, &fy.PracticeID, &fy.Year, &start, &end); err != nil {
			return nil, fmt.Errorf("scan fiscal year: %w", err)
		}
		if fy.StartDate, err = time.Parse(dateLayout, start); err != nil {
			return nil, fmt.Errorf("parse start date: %w", err)
		}
		if fy.EndDate, err = time.Parse(dateLayout, end); err != nil {
			return nil, fmt.Errorf("parse end date: %w", err)
		}
		out = append(out, fy)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreatePeriod(ctx context.Context, bp core.BudgetPeriod) (core.BudgetPeriod, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO budget_periods (fiscal_year_id, month, start_date, end_date) VALUES (?, ?, ?, ?) RETURNING id`,
		bp.FiscalYearID, bp.Month, bp.StartDate.Format(dateLayout), bp.EndDate.Format(dateLayout),
	).Scan(&bp.ID)
	if err != nil {
		return core.BudgetPeriod{}, fmt.Errorf("create period: %w", mapSQLError(err, core.ErrPeriodNotFound))
	}
	return bp, nil
}

func (r *SQLiteRepository) GetPeriod(ctx context.Context, id int64) (core.BudgetPeriod, error) {
	var bp core.BudgetPeriod
	var start, end string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, fiscal_year_id, month, start_date, end_date FROM budget_periods WHERE id = ?`, id,
	).Scan(&bp.ID, &bp.FiscalYearID, &bp.Month, &start, &end)
	if err != nil {
		return core.BudgetPeriod{}, mapSQLError(err, core.ErrPeriodNotFound)
	}
	if bp.StartDate, err = time.Parse(dateLayout, start); err != nil {
		return core.BudgetPeriod{}, fmt.Errorf("parse start date: %w", err)
	}
	if bp.EndDate, err = time.Parse(dateLayout, end); err != nil {
		return core.BudgetPeriod{}, fmt.Errorf("parse end date: %w", err)
	}
	return bp, nil
}

func (r *SQLiteRepository) ListPeriods(ctx context.Context, fiscalYearID int64) ([]core.BudgetPeriod, error) {
	return r.queryPeriods(ctx,
		`SELECT id, fiscal_year_id, month, start_date, end_date FROM budget_periods WHERE fiscal_year_id = ? ORDER BY month`,
		fiscalYearID)
}

func (r *SQLiteRepository) ListPeriodsInRange(ctx context.Context, practiceID int64, start, end time.Time) ([]core.BudgetPeriod, error) {
	return r.queryPeriods(ctx,
		`SELECT bp.id, bp.fiscal_year_id, bp.month, bp.start_date, bp.end_date
		 FROM budget_periods bp
		 JOIN fiscal_years fy ON fy.id = bp.fiscal_year_id
		 WHERE fy.practice_id = ? AND bp.start_date >= ? AND bp.end_date <= ?
		 ORDER BY bp.start_date`,
		practiceID, start.Format(dateLayout), end.Format(dateLayout))
}

func (r *SQLiteRepository) queryPeriods(ctx context.Context, query string, args ...any) ([]core.BudgetPeriod, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	defer rows.Close()

	var out []core.BudgetPeriod
	for rows.Next() {
		var bp core.BudgetPeriod
		var start, end string
		if err := rows.Scan(&bp.ID, &bp.FiscalYearID, &bp.Month, &start, &end); err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		if bp.StartDate, err = time.Parse(dateLayout, start); err != nil {
			return nil, fmt.Errorf("parse start date: %w", err)
		}
		if bp.EndDate, err = time.Parse(dateLayout, end); err != nil {
			return nil, fmt.Errorf("parse end date: %w", err)
		}
		out = append(out, bp)
	}
	return out, rows.Err()
}

// --- Account categories ---

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.AccountCategory) (core.AccountCategory, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO account_categories (parent_id, name, category_type, is_computed, formula) VALUES (?, ?, ?, ?, ?) RETURNING id`,
		c.ParentID, c.Name, string(c.Type), c.IsComputed, c.Formula,
	).Scan(&c.ID)
	if err != nil {
		return core.AccountCategory{}, fmt.Errorf("create category: %w", mapSQLError(err, core.ErrCategoryNotFound))
	}
	r.chart.Delete(chartCacheKey)
	return c, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.AccountCategory, error) {
	var c core.AccountCategory
	var ctype string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, parent_id, name, category_type, is_computed, formula FROM account_categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.ParentID, &c.Name, &ctype, &c.IsComputed, &c.Formula)
	if err != nil {
		return core.AccountCategory{}, mapSQLError(err, core.ErrCategoryNotFound)
	}
	c.Type = core.CategoryType(ctype)
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.AccountCategory, error) {
	if cached, ok := r.chart.Get(chartCacheKey); ok {
		return append([]core.AccountCategory(nil), cached...), nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, parent_id, name, category_type, is_computed, formula FROM account_categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.AccountCategory
	for rows.Next() {
		var c core.AccountCategory
		var ctype string
		if err := rows.Scan(&c.ID, &c.ParentID, &c.Name, &ctype, &c.IsComputed, &c.Formula); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Type = core.CategoryType(ctype)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.chart.Set(chartCacheKey, out)
	return out, nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM account_categories WHERE id = ?`, id)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return fmt.Errorf("category %d: %w", id, core.ErrCategoryInUse)
		}
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrCategoryNotFound
	}
	r.chart.Delete(chartCacheKey)
	return nil
}

// --- Budget lines ---

func (r *SQLiteRepository) UpsertBudgetLine(ctx context.Context, periodID, categoryID int64, amount decimal.Decimal) (core.BudgetLineItem, error) {
	// The unique (period_id, category_id) constraint serializes racing
	// writers: the conflict arm turns the losing insert into an update,
	// so last writer wins and no partial row is ever visible.
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO budget_lines (period_id, category_id, amount)
		 VALUES (?, ?, ?)
		 ON CONFLICT (period_id, category_id)
		 DO UPDATE SET amount = excluded.amount, updated_at = datetime('now')
		 RETURNING id, period_id, category_id, amount, notes, created_at, updated_at`,
		periodID, categoryID, amount.String())
	line, err := scanBudgetLine(row)
	if err != nil {
		return core.BudgetLineItem{}, fmt.Errorf("upsert budget line: %w", mapSQLError(err, core.ErrLineNotFound))
	}
	slog.InfoContext(ctx, "Budget line upserted",
		"id", line.ID, "period_id", periodID, "category_id", categoryID, "amount", amount.String())
	return line, nil
}

func (r *SQLiteRepository) GetBudgetLine(ctx context.Context, id int64) (core.BudgetLineItem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, period_id, category_id, amount, notes, created_at, updated_at FROM budget_lines WHERE id = ?`, id)
	line, err := scanBudgetLine(row)
	if err != nil {
		return core.BudgetLineItem{}, mapSQLError(err, core.ErrLineNotFound)
	}
	return line, nil
}

func (r *SQLiteRepository) ListBudgetLines(ctx context.Context, periodID int64) ([]core.BudgetLineItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, period_id, category_id, amount, notes, created_at, updated_at
		 FROM budget_lines WHERE period_id = ? ORDER BY category_id`, periodID)
	if err != nil {
		return nil, fmt.Errorf("list budget lines: %w", err)
	}
	defer rows.Close()

	var out []core.BudgetLineItem
	for rows.Next() {
		line, err := scanBudgetLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget line: %w", err)
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

// DeleteBudgetLine removes the (period, category) row if present.
// Deleting an absent line is a no-op: absence already means zero.
func (r *SQLiteRepository) DeleteBudgetLine(ctx context.Context, periodID, categoryID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM budget_lines WHERE period_id = ? AND category_id = ?`, periodID, categoryID)
	if err != nil {
		return fmt.Errorf("delete budget line: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBudgetLine(s rowScanner) (core.BudgetLineItem, error) {
	var line core.BudgetLineItem
	var amount, created, updated string
	if err := s.Scan(&line.ID, &line.PeriodID, &line.CategoryID, &amount, &line.Notes, &created, &updated); err != nil {
		return core.BudgetLineItem{}, err
	}
	var err error
	if line.Amount, err = parseAmount(amount); err != nil {
		return core.BudgetLineItem{}, err
	}
	if line.CreatedAt, err = time.Parse(timestampLayout, created); err != nil {
		return core.BudgetLineItem{}, fmt.Errorf("parse created_at: %w", err)
	}
	if line.UpdatedAt, err = time.Parse(timestampLayout, updated); err != nil {
		return core.BudgetLineItem{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return line, nil
}

// --- Actual entries ---

func (r *SQLiteRepository) UpsertActual(ctx context.Context, periodID, categoryID int64, amount decimal.Decimal, source string) (core.ActualEntry, error) {
	var e core.ActualEntry
	var stored string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO actual_entries (period_id, category_id, amount, source)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (period_id, category_id)
		 DO UPDATE SET amount = excluded.amount, source = excluded.source
		 RETURNING id, period_id, category_id, amount, source`,
		periodID, categoryID, amount.String(), source,
	).Scan(&e.ID, &e.PeriodID, &e.CategoryID, &stored, &e.Source)
	if err != nil {
		return core.ActualEntry{}, fmt.Errorf("upsert actual: %w", mapSQLError(err, core.ErrPeriodNotFound))
	}
	if e.Amount, err = parseAmount(stored); err != nil {
		return core.ActualEntry{}, err
	}
	return e, nil
}

func (r *SQLiteRepository) ListActuals(ctx context.Context, periodID int64) ([]core.ActualEntry, error) {
	return r.ListActualsForPeriods(ctx, []int64{periodID})
}

func (r *SQLiteRepository) ListActualsForPeriods(ctx context.Context, periodIDs []int64) ([]core.ActualEntry, error) {
	if len(periodIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(periodIDs)), ",")
	args := make([]any, len(periodIDs))
	for i, id := range periodIDs {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, period_id, category_id, amount, source FROM actual_entries
		 WHERE period_id IN (`+placeholders+`) ORDER BY period_id, category_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list actuals: %w", err)
	}
	defer rows.Close()

	var out []core.ActualEntry
	for rows.Next() {
		var e core.ActualEntry
		var amount string
		if err := rows.Scan(&e.ID, &e.PeriodID, &e.CategoryID, &amount, &e.Source); err != nil {
			return nil, fmt.Errorf("scan actual: %w", err)
		}
		if e.Amount, err = parseAmount(amount); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- Users ---

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (email, full_name, password_hash, role, practice_id) VALUES (?, ?, ?, ?, ?) RETURNING id`,
		u.Email, u.FullName, u.PasswordHash, string(u.Role), u.PracticeID,
	).Scan(&u.ID)
	if err != nil {
		if strings.Contains(err.Error(), "users.email") {
			return core.User{}, fmt.Errorf("%w: user %q", core.ErrDuplicateName, u.Email)
		}
		return core.User{}, fmt.Errorf("create user: %w", mapSQLError(err, core.ErrUserNotFound))
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	var u core.User
	var role string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, full_name, password_hash, role, practice_id FROM users WHERE email = ?`, email,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &role, &u.PracticeID)
	if err != nil {
		return core.User{}, mapSQLError(err, core.ErrUserNotFound)
	}
	u.Role = core.Role(role)
	return u, nil
}
