package services

import (
	"context"
	"fmt"
	"log/slog"

	"dentalbudget/internal/core"
	"dentalbudget/internal/storage"
)

// CategoryService manages the chart of accounts.
type CategoryService struct {
	store storage.Store
}

func NewCategoryService(store storage.Store) *CategoryService {
	return &CategoryService{store: store}
}

// CreateCategory adds a category to the chart of accounts. The candidate
// is validated against the whole existing tree so a formula that would
// dangle or cycle is rejected before anything is written. Admin only.
func (s *CategoryService) CreateCategory(ctx context.Context, user core.User, c core.AccountCategory) (core.AccountCategory, error) {
	if user.Role != core.RoleAdmin {
		return core.AccountCategory{}, core.ErrForbidden
	}
	if err := c.Validate(); err != nil {
		return core.AccountCategory{}, err
	}

	existing, err := s.store.ListCategories(ctx)
	if err != nil {
		return core.AccountCategory{}, fmt.Errorf("list categories: %w", err)
	}

	// Validate the candidate in place within the current tree. New rows
	// get a placeholder id below any real one so references still check.
	candidate := c
	candidate.ID = -1
	tree, err := core.NewTree(append(existing, candidate))
	if err != nil {
		return core.AccountCategory{}, err
	}
	if err := tree.Validate(); err != nil {
		return core.AccountCategory{}, err
	}

	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.AccountCategory{}, fmt.Errorf("create category: %w", err)
	}

	slog.InfoContext(ctx, "Category created",
		"category_id", created.ID, "name", created.Name, "computed", created.IsComputed)
	return created, nil
}

func (s *CategoryService) GetCategory(ctx context.Context, id int64) (core.AccountCategory, error) {
	return s.store.GetCategory(ctx, id)
}

func (s *CategoryService) ListCategories(ctx context.Context) ([]core.AccountCategory, error) {
	return s.store.ListCategories(ctx)
}

// DeleteCategory removes a category. The delete is rejected while any
// formula references the category, while it still has children, or while
// budget lines or actuals point at it. Admin only.
func (s *CategoryService) DeleteCategory(ctx context.Context, user core.User, id int64) error {
	if user.Role != core.RoleAdmin {
		return core.ErrForbidden
	}
	if _, err := s.store.GetCategory(ctx, id); err != nil {
		return err
	}

	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	for _, c := range categories {
		if c.ID == id {
			continue
		}
		if c.ParentID != nil && *c.ParentID == id {
			return fmt.Errorf("category %d is parent of %d: %w", id, c.ID, core.ErrCategoryInUse)
		}
		if !c.IsComputed {
			continue
		}
		expr, err := core.ParseFormula(c.Formula)
		if err != nil {
			continue
		}
		for _, ref := range expr.References() {
			if ref == id {
				return fmt.Errorf("category %d referenced by formula of %d: %w", id, c.ID, core.ErrCategoryInUse)
			}
		}
	}

	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Category deleted", "category_id", id)
	return nil
}

// loadTree builds the account tree from the stored chart of accounts.
func loadTree(ctx context.Context, store storage.Store) (*core.Tree, error) {
	categories, err := store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	tree, err := core.NewTree(categories)
	if err != nil {
		return nil, fmt.Errorf("build account tree: %w", err)
	}
	return tree, nil
}
