package main

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/JonMunkholm/unidata/internal/unidata"
)

// planFile is the TOML form of a cleaning plan:
//
//	currency     = "$"
//	columns      = ["Dollars Spent", "How much did you spend on coffee?"]
//	non_negative = ["Dollars Spent"]
//	precision    = 2
//
// Column lists are decoded loosely; a non-string entry is an error.
type planFile struct {
	Currency    string `toml:"currency"`
	Columns     []any  `toml:"columns"`
	NonNegative []any  `toml:"non_negative"`
	Precision   *int   `toml:"precision"`
}

// loadPlanFile overlays the keys defined in the file at path onto base.
func loadPlanFile(path string, base unidata.Plan) (unidata.Plan, error) {
	var pf planFile
	meta, err := toml.DecodeFile(path, &pf)
	if err != nil {
		return base, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return base, fmt.Errorf("%w: %s: unknown key %q", unidata.ErrInvalidArgument, path, undecoded[0].String())
	}

	plan := base
	if meta.IsDefined("currency") {
		if pf.Currency == "" {
			return base, fmt.Errorf("%w: %s: currency must not be empty", unidata.ErrInvalidArgument, path)
		}
		plan.Currency = pf.Currency
	}
	if meta.IsDefined("columns") {
		if plan.Columns, err = unidata.Columns(pf.Columns...); err != nil {
			return base, fmt.Errorf("%s: columns: %w", path, err)
		}
	}
	if meta.IsDefined("non_negative") {
		if plan.NonNegative, err = unidata.Columns(pf.NonNegative...); err != nil {
			return base, fmt.Errorf("%s: non_negative: %w", path, err)
		}
	}
	if pf.Precision != nil {
		plan.Precision = pf.Precision
	}
	return plan, nil
}
