package main

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/unidata/internal/csvio"
	"github.com/JonMunkholm/unidata/internal/render"
	"github.com/JonMunkholm/unidata/internal/unidata"
)

func newColumnsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "columns [flags] file.csv",
		Short: "List the columns of a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runColumns,
	}
	cmd.Flags().Bool("plain", false, "print names only, one per line")
	return cmd
}

func (a *app) runColumns(cmd *cobra.Command, args []string) error {
	t, err := csvio.ReadFile(args[0], csvio.Options{Comma: a.cfg.Format.Comma()})
	if err != nil {
		return err
	}

	if plain, _ := cmd.Flags().GetBool("plain"); !plain {
		return render.Columns(cmd.OutOrStdout(), t)
	}

	w := bufio.NewWriter(cmd.OutOrStdout())
	for _, name := range unidata.ListColumnNames(t) {
		fmt.Fprintln(w, name)
	}
	return w.Flush()
}
