// Command munge cleans currency columns of survey CSV files from the
// command line.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/JonMunkholm/unidata/internal/config"
	"github.com/JonMunkholm/unidata/internal/logging"
	"github.com/JonMunkholm/unidata/internal/unidata"
)

// app carries state shared by subcommands once the root pre-run has loaded
// the configuration.
type app struct {
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "munge",
		Short: "Clean currency columns in survey CSV files",
		Long: `munge strips currency symbols from the named columns of a CSV file,
converts them to numbers rounded to a fixed precision and optionally checks
that they hold no negative values.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	root.PersistentFlags().String("env-file", ".env", "environment file loaded before configuration")

	root.AddCommand(newFormatCmd(a))
	root.AddCommand(newColumnsCmd(a))
	return root
}

// setup loads the env file and configuration, then routes logs to stderr.
func (a *app) setup(cmd *cobra.Command) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	envErr := godotenv.Load(envFile)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	logging.Setup(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	if envErr != nil {
		slog.Debug("no env file loaded", "path", envFile)
	} else {
		slog.Debug("loaded env file", "path", envFile)
	}
	return nil
}

// useColor resolves the --color flag against the command's output.
func useColor(cmd *cobra.Command) bool {
	mode, _ := cmd.Flags().GetString("color")
	switch mode {
	case "on":
		return true
	case "off":
		return false
	}
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// printError writes err for a person, with the support code when known.
func printError(w io.Writer, err error) {
	msg := err.Error()
	if unidata.IsUserFacing(err) {
		msg = unidata.FormatUserError(err)
	}
	red := color.New(color.FgRed, color.Bold)
	fmt.Fprintf(w, "%s %s\n", red.Sprint("error:"), msg)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
	stop()
}
