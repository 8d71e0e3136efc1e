// Formula expressions for computed account categories.
//
// A formula is stored as a string of category ids joined with + and -
// ("12 + 14 - 9"). It is parsed once, at save and at tree load, into a
// small expression tree; resolution never re-parses strings.
package core

import (
	"fmt"
	"strconv"
	"strings"
)

type (
	// Expr is a parsed formula node: a Ref to a category, a Sum of terms,
	// or a Difference between two expressions.
	Expr interface {
		// References lists every category id the expression mentions,
		// in order of appearance, duplicates included.
		References() []int64
	}

	// Ref references another category's resolved amount.
	Ref struct {
		CategoryID int64
	}

	// Sum adds its terms.
	Sum struct {
		Terms []Expr
	}

	// Difference subtracts Subtrahend from Minuend.
	Difference struct {
		Minuend    Expr
		Subtrahend Expr
	}
)

func (r Ref) References() []int64 {
	return []int64{r.CategoryID}
}

func (s Sum) References() []int64 {
	var ids []int64
	for _, t := range s.Terms {
		ids = append(ids, t.References()...)
	}
	return ids
}

func (d Difference) References() []int64 {
	return append(d.Minuend.References(), d.Subtrahend.References()...)
}

// ParseFormula parses "id (+|-) id ..." into an expression tree. The
// grammar is left-associative with a single precedence level, so
// "1 + 2 - 3" becomes Difference(Sum(1, 2), 3).
func ParseFormula(s string) (Expr, error) {
	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: empty formula", ErrInvalidFormula)
	}
	if len(tokens)%2 == 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormula, s)
	}

	expr, err := parseRef(tokens[0])
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(tokens); i += 2 {
		op := tokens[i]
		term, err := parseRef(tokens[i+1])
		if err != nil {
			return nil, err
		}
		switch op {
		case "+":
			if sum, ok := expr.(Sum); ok {
				sum.Terms = append(sum.Terms, term)
				expr = sum
			} else {
				expr = Sum{Terms: []Expr{expr, term}}
			}
		case "-":
			expr = Difference{Minuend: expr, Subtrahend: term}
		default:
			return nil, fmt.Errorf("%w: unexpected operator %q", ErrInvalidFormula, op)
		}
	}
	return expr, nil
}

func parseRef(token string) (Expr, error) {
	id, err := strconv.ParseInt(token, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: bad category reference %q", ErrInvalidFormula, token)
	}
	return Ref{CategoryID: id}, nil
}
