package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/unidata/internal/csvio"
	"github.com/JonMunkholm/unidata/internal/render"
	"github.com/JonMunkholm/unidata/internal/store"
	"github.com/JonMunkholm/unidata/internal/table"
	"github.com/JonMunkholm/unidata/internal/unidata"
)

func newFormatCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "format [flags] file.csv",
		Short: "Format currency columns and print the result",
		Long: `Format strips the currency symbol from every --column, converts the
column to numbers and rounds it. Columns named with --non-negative are then
checked for negative values. Settings come from FORMAT_* configuration,
then the --plan file, then the individual flags.`,
		Args: cobra.ExactArgs(1),
		RunE: a.runFormat,
	}

	cmd.Flags().String("plan", "", "TOML plan file (currency, columns, non_negative, precision)")
	cmd.Flags().String("currency", "", "currency symbol to strip (default FORMAT_CURRENCY)")
	cmd.Flags().StringArray("column", nil, "currency column to format (repeatable)")
	cmd.Flags().StringArray("non-negative", nil, "column that must not hold negative values (repeatable)")
	cmd.Flags().Int("precision", 0, "decimal places to keep (default FORMAT_PRECISION)")
	cmd.Flags().String("output", "table", "output format (table|csv)")
	cmd.Flags().Int("max-width", render.DefaultMaxWidth, "truncate table cells wider than this")
	cmd.Flags().Bool("persist", false, "save the result to the database")
	cmd.Flags().String("table", "", "database table name (default: file name)")
	return cmd
}

func (a *app) runFormat(cmd *cobra.Command, args []string) error {
	path := args[0]

	output, _ := cmd.Flags().GetString("output")
	if output != "table" && output != "csv" {
		return fmt.Errorf("%w: unknown output %q (want table or csv)", unidata.ErrInvalidArgument, output)
	}

	plan, err := a.planFromFlags(cmd)
	if err != nil {
		return err
	}

	t, err := csvio.ReadFile(path, csvio.Options{Comma: a.cfg.Format.Comma()})
	if err != nil {
		return err
	}

	if err := plan.Apply(t); err != nil {
		return err
	}

	runID := uuid.New()
	slog.Debug("table formatted",
		"run_id", runID.String(),
		"file", path,
		"rows", t.NumRows(),
		"currency_columns", plan.Columns,
	)

	if persist, _ := cmd.Flags().GetBool("persist"); persist {
		name, _ := cmd.Flags().GetString("table")
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		run, err := a.save(cmd.Context(), name, filepath.Base(path), runID, t)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "saved %d rows to %s (run %s)\n", run.Rows, run.Table, run.ID)
	}

	out := cmd.OutOrStdout()
	if output == "csv" {
		return csvio.Write(out, t)
	}
	maxWidth, _ := cmd.Flags().GetInt("max-width")
	return render.Table(out, t, render.Options{Color: useColor(cmd), MaxWidth: maxWidth})
}

// planFromFlags builds the plan from configuration, then the --plan file,
// then individual flags, each layer overriding the one before.
func (a *app) planFromFlags(cmd *cobra.Command) (unidata.Plan, error) {
	flags := cmd.Flags()
	defaults := a.cfg.Format

	precision := defaults.Precision
	plan := unidata.Plan{
		Currency:    defaults.Currency,
		Columns:     defaults.Columns,
		NonNegative: defaults.NonNegative,
		Precision:   &precision,
	}

	if path, _ := flags.GetString("plan"); path != "" {
		var err error
		if plan, err = loadPlanFile(path, plan); err != nil {
			return plan, err
		}
	}

	if flags.Changed("currency") {
		plan.Currency, _ = flags.GetString("currency")
		if plan.Currency == "" {
			return plan, fmt.Errorf("%w: --currency must not be empty", unidata.ErrInvalidArgument)
		}
	}
	if flags.Changed("column") {
		plan.Columns, _ = flags.GetStringArray("column")
	}
	if flags.Changed("non-negative") {
		plan.NonNegative, _ = flags.GetStringArray("non-negative")
	}
	if flags.Changed("precision") {
		p, _ := flags.GetInt("precision")
		plan.Precision = &p
	}

	return plan, nil
}

// save opens a pool for the duration of one save.
func (a *app) save(ctx context.Context, name, source string, runID uuid.UUID, t *table.Table) (store.Run, error) {
	if !a.cfg.Database.Enabled() {
		return store.Run{}, fmt.Errorf("persist: %w", store.ErrDisabled)
	}

	st, pool, err := store.Open(ctx, a.cfg.Database)
	if err != nil {
		return store.Run{}, err
	}
	defer pool.Close()

	return st.Save(ctx, name, source, runID, t)
}
