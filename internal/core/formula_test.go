package core

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseFormula(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Expr
		wantErr bool
	}{
		{
			name:  "single reference",
			input: "7",
			want:  Ref{CategoryID: 7},
		},
		{
			name:  "sum of two",
			input: "12 + 14",
			want:  Sum{Terms: []Expr{Ref{CategoryID: 12}, Ref{CategoryID: 14}}},
		},
		{
			name:  "sum flattens",
			input: "1 + 2 + 3",
			want:  Sum{Terms: []Expr{Ref{CategoryID: 1}, Ref{CategoryID: 2}, Ref{CategoryID: 3}}},
		},
		{
			name:  "difference",
			input: "12 - 9",
			want:  Difference{Minuend: Ref{CategoryID: 12}, Subtrahend: Ref{CategoryID: 9}},
		},
		{
			name:  "mixed is left associative",
			input: "12 + 14 - 9",
			want: Difference{
				Minuend:    Sum{Terms: []Expr{Ref{CategoryID: 12}, Ref{CategoryID: 14}}},
				Subtrahend: Ref{CategoryID: 9},
			},
		},
		{
			name:    "empty",
			input:   "   ",
			wantErr: true,
		},
		{
			name:    "trailing operator",
			input:   "12 +",
			wantErr: true,
		},
		{
			name:    "unknown operator",
			input:   "12 * 14",
			wantErr: true,
		},
		{
			name:    "non-numeric reference",
			input:   "revenue + 2",
			wantErr: true,
		},
		{
			name:    "zero id",
			input:   "0 + 2",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormula(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseFormula(%q) expected error, got %#v", tt.input, got)
				}
				if !errors.Is(err, ErrInvalidFormula) {
					t.Errorf("ParseFormula(%q) error = %v, want ErrInvalidFormula", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFormula(%q) unexpected error: %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseFormula(%q) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestExprReferences(t *testing.T) {
	expr, err := ParseFormula("12 + 14 - 9 + 12")
	if err != nil {
		t.Fatalf("ParseFormula: %v", err)
	}
	got := expr.References()
	want := []int64{12, 14, 9, 12}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("References() = %v, want %v", got, want)
	}
}
