package core

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Amounts holds the stored budget line amounts of one period, keyed by
// category id. Categories without a line are simply absent; absence
// resolves to zero.
type Amounts map[int64]decimal.Decimal

// Tree is an arena of account categories keyed by id, with formulas of
// computed categories parsed once at construction. It is a pure read
// structure: Resolve never mutates it and never caches across calls.
type Tree struct {
	categories map[int64]AccountCategory
	formulas   map[int64]Expr
}

// NewTree builds a tree from a flat category list. Formulas are parsed
// eagerly so later resolution is structural only.
func NewTree(categories []AccountCategory) (*Tree, error) {
	t := &Tree{
		categories: make(map[int64]AccountCategory, len(categories)),
		formulas:   make(map[int64]Expr),
	}
	for _, c := range categories {
		t.categories[c.ID] = c
		if c.IsComputed {
			expr, err := ParseFormula(c.Formula)
			if err != nil {
				return nil, fmt.Errorf("category %d: %w", c.ID, err)
			}
			t.formulas[c.ID] = expr
		}
	}
	return t, nil
}

// Category returns the category with the given id.
func (t *Tree) Category(id int64) (AccountCategory, bool) {
	c, ok := t.categories[id]
	return c, ok
}

// All returns every category ordered by id.
func (t *Tree) All() []AccountCategory {
	out := make([]AccountCategory, 0, len(t.categories))
	for _, c := range t.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TopLevel returns the parent-less categories of the given type, ordered
// by id. These are the only categories period totals sum over.
func (t *Tree) TopLevel(ct CategoryType) []AccountCategory {
	var out []AccountCategory
	for _, c := range t.categories {
		if c.Type == ct && c.TopLevel() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Resolve returns the amount of a category for the period the amounts
// belong to. Leaf categories resolve to their stored amount (zero when
// absent); computed categories resolve to the algebraic fold of their
// formula. The resolution stack is tracked per top-level call so a
// formula that revisits a category on the current stack fails with a
// cycle error, while diamonds resolve normally.
func (t *Tree) Resolve(categoryID int64, amounts Amounts) (decimal.Decimal, error) {
	return t.resolve(categoryID, amounts, make(map[int64]bool))
}

func (t *Tree) resolve(id int64, amounts Amounts, stack map[int64]bool) (decimal.Decimal, error) {
	c, ok := t.categories[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("category %d: %w", id, ErrUnknownCategory)
	}
	if !c.IsComputed {
		return amounts[id], nil
	}
	if stack[id] {
		return decimal.Zero, fmt.Errorf("category %d: %w", id, ErrFormulaCycle)
	}
	stack[id] = true
	v, err := t.eval(t.formulas[id], amounts, stack)
	delete(stack, id)
	if err != nil {
		return decimal.Zero, err
	}
	return v, nil
}

func (t *Tree) eval(e Expr, amounts Amounts, stack map[int64]bool) (decimal.Decimal, error) {
	switch x := e.(type) {
	case Ref:
		return t.resolve(x.CategoryID, amounts, stack)
	case Sum:
		total := decimal.Zero
		for _, term := range x.Terms {
			v, err := t.eval(term, amounts, stack)
			if err != nil {
				return decimal.Zero, err
			}
			total = total.Add(v)
		}
		return total, nil
	case Difference:
		a, err := t.eval(x.Minuend, amounts, stack)
		if err != nil {
			return decimal.Zero, err
		}
		b, err := t.eval(x.Subtrahend, amounts, stack)
		if err != nil {
			return decimal.Zero, err
		}
		return a.Sub(b), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: unsupported expression %T", ErrInvalidFormula, e)
	}
}

// TotalForPeriod sums the given type's top-level categories, each via
// Resolve. Totals are never computed by summing all nodes at every
// depth: a leaf folded into a computed parent must count exactly once.
func (t *Tree) TotalForPeriod(ct CategoryType, amounts Amounts) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, c := range t.TopLevel(ct) {
		v, err := t.Resolve(c.ID, amounts)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(v)
	}
	return total, nil
}

// Validate checks the structural invariants of the whole tree: parents
// exist and form no cycle, and formulas reference existing categories
// without cycling through other formulas. Run at category save time so
// a bad formula is rejected before it can break resolution.
func (t *Tree) Validate() error {
	for id, c := range t.categories {
		seen := map[int64]bool{id: true}
		for p := c.ParentID; p != nil; {
			parent, ok := t.categories[*p]
			if !ok {
				return fmt.Errorf("category %d parent %d: %w", id, *p, ErrUnknownCategory)
			}
			if seen[parent.ID] {
				return fmt.Errorf("category %d: parent %w", id, ErrFormulaCycle)
			}
			seen[parent.ID] = true
			p = parent.ParentID
		}
	}

	for id := range t.formulas {
		if err := t.checkFormula(id, make(map[int64]bool)); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) checkFormula(id int64, stack map[int64]bool) error {
	if stack[id] {
		return fmt.Errorf("category %d: %w", id, ErrFormulaCycle)
	}
	expr, computed := t.formulas[id]
	if !computed {
		return nil
	}
	stack[id] = true
	for _, ref := range expr.References() {
		if _, ok := t.categories[ref]; !ok {
			return fmt.Errorf("category %d references %d: %w", id, ref, ErrUnknownCategory)
		}
		if err := t.checkFormula(ref, stack); err != nil {
			return err
		}
	}
	delete(stack, id)
	return nil
}

// HasData reports whether the category, or anything its formula
// transitively references, appears in the data set. Reports use this to
// keep line items limited to categories that actually have stored
// budget or actual amounts in the period.
func (t *Tree) HasData(id int64, data map[int64]bool) bool {
	return t.hasData(id, data, make(map[int64]bool))
}

func (t *Tree) hasData(id int64, data map[int64]bool, stack map[int64]bool) bool {
	if data[id] {
		return true
	}
	if stack[id] {
		return false
	}
	expr, computed := t.formulas[id]
	if !computed {
		return false
	}
	stack[id] = true
	defer delete(stack, id)
	for _, ref := range expr.References() {
		if t.hasData(ref, data, stack) {
			return true
		}
	}
	return false
}
