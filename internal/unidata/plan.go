package unidata

import (
	"github.com/JonMunkholm/unidata/internal/table"
)

// Plan describes a cleaning run over one table: which columns hold currency
// values and which must not contain negatives afterwards.
type Plan struct {
	Currency    string   `json:"currency"`
	Columns     []string `json:"columns"`
	NonNegative []string `json:"non_negative"`
	Precision   *int     `json:"precision,omitempty"`
}

// RoundTo returns the effective rounding precision of the plan.
func (p Plan) RoundTo() int {
	if p.Precision == nil {
		return DefaultPrecision
	}
	return *p.Precision
}

// Validate checks the plan against t without modifying it.
func (p Plan) Validate(t *table.Table) error {
	if err := checkPrecision(p.RoundTo()); err != nil {
		return columnErr("Plan", "", err)
	}
	if _, err := resolve("Plan", t, p.Columns); err != nil {
		return err
	}
	if _, err := resolve("Plan", t, p.NonNegative); err != nil {
		return err
	}
	return nil
}

// Apply formats the plan's currency columns and then verifies its
// non-negative columns.
func (p Plan) Apply(t *table.Table) error {
	if err := p.Validate(t); err != nil {
		return err
	}
	if err := FormatCurrencyColumnsPrecision(t, p.Currency, p.RoundTo(), p.Columns...); err != nil {
		return err
	}
	return VerifyNonNegative(t, p.NonNegative...)
}
