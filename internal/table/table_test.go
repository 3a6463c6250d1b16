package table

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cols    []*Column
		wantErr bool
	}{
		{
			name: "valid mixed kinds",
			cols: []*Column{
				NewText("a", []string{"x", "y"}),
				NewFloat("b", []float64{1, 2}),
				NewInt("c", []int64{1, 2}),
			},
		},
		{
			name: "empty table",
		},
		{
			name:    "duplicate name",
			cols:    []*Column{NewText("a", []string{"x"}), NewText("a", []string{"y"})},
			wantErr: true,
		},
		{
			name:    "empty name",
			cols:    []*Column{NewText("", []string{"x"})},
			wantErr: true,
		},
		{
			name:    "ragged rows",
			cols:    []*Column{NewText("a", []string{"x"}), NewText("b", []string{"x", "y"})},
			wantErr: true,
		},
		{
			name:    "nil column",
			cols:    []*Column{nil},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cols...)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTable_NamesOrder(t *testing.T) {
	tbl := MustNew(
		NewText("zeta", []string{"1"}),
		NewText("alpha", []string{"2"}),
		NewText("mid", []string{"3"}),
	)

	want := []string{"zeta", "alpha", "mid"}
	if got := tbl.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	// Mutating the returned slice must not affect the table.
	names := tbl.Names()
	names[0] = "changed"
	if tbl.Names()[0] != "zeta" {
		t.Error("Names() returned a slice aliasing table state")
	}
}

func TestTable_Replace(t *testing.T) {
	tbl := MustNew(
		NewText("a", []string{"1", "2"}),
		NewText("b", []string{"3", "4"}),
	)

	if err := tbl.Replace("a", NewFloat("ignored", []float64{1, 2})); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	kind, _ := tbl.Kind("a")
	if kind != KindFloat {
		t.Errorf("Kind(a) = %v, want float", kind)
	}
	if got := tbl.Names(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Names() after Replace = %v", got)
	}

	if err := tbl.Replace("a", NewFloat("a", []float64{1})); err == nil {
		t.Error("Replace() with wrong row count should fail")
	}
	if err := tbl.Replace("missing", NewFloat("x", []float64{1, 2})); !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("Replace(missing) error = %v, want ErrColumnNotFound", err)
	}
}

func TestTable_Setters(t *testing.T) {
	tbl := MustNew(
		NewText("t", []string{"a"}),
		NewFloat("f", []float64{1}),
	)

	if err := tbl.SetText("t", 0, "b"); err != nil {
		t.Fatalf("SetText() error = %v", err)
	}
	if err := tbl.SetFloat("f", 0, 2.5); err != nil {
		t.Fatalf("SetFloat() error = %v", err)
	}
	if err := tbl.SetFloat("t", 0, 1); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("SetFloat(text) error = %v, want ErrKindMismatch", err)
	}
	if err := tbl.SetText("t", 5, "x"); err == nil {
		t.Error("SetText() out of range should fail")
	}

	c, _ := tbl.Column("t")
	if c.Texts()[0] != "b" {
		t.Errorf("text value = %q, want %q", c.Texts()[0], "b")
	}
	f, _ := tbl.Column("f")
	if f.Floats()[0] != 2.5 {
		t.Errorf("float value = %v, want 2.5", f.Floats()[0])
	}
}

func TestColumn_String(t *testing.T) {
	tests := []struct {
		name string
		col  *Column
		want string
	}{
		{"text", NewText("c", []string{"hello"}), "hello"},
		{"float", NewFloat("c", []float64{12.35}), "12.35"},
		{"whole float", NewFloat("c", []float64{2}), "2"},
		{"missing float", NewFloat("c", []float64{math.NaN()}), ""},
		{"int", NewInt("c", []int64{-7}), "-7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.col.String(0); got != tt.want {
				t.Errorf("String(0) = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestColumn_TypedAccessors(t *testing.T) {
	c := NewText("c", []string{"a"})
	if c.Floats() != nil || c.Ints() != nil {
		t.Error("text column should not expose numeric slices")
	}
	if c.Kind().String() != "text" {
		t.Errorf("Kind().String() = %q", c.Kind().String())
	}
}
