package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/claimbot/internal/config"
	"github.com/nao1215/claimbot/internal/database"
	"github.com/nao1215/claimbot/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the recorded claim cycles",
		Long: `History shows the most recent claim cycles recorded by the run command,
with the per-credential results and, optionally, the rejected proxies.

The history is stored in the XDG data directory
(~/.local/share/claimbot/claimbot.db on Linux).

Examples:
  # Show the last 20 cycles
  claimbot history

  # Save the last 5 cycles with rejected proxies as Markdown; the text
  # summary is still printed
  claimbot history --limit 5 --rejected --markdown -o history.md

  # Totals per credential across all cycles
  claimbot history --by-credential`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "l", config.DefaultHistoryLimit,
		"Number of recent cycles to show (0 shows every cycle)")
	cmd.Flags().BoolP("rejected", "r", false,
		"Include the rejected proxies")
	cmd.Flags().Bool("by-credential", false,
		"Show totals per credential instead of cycles")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if cfg.HistoryLimit, err = cmd.Flags().GetInt("limit"); err != nil {
		return err
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}
	withRejected, err := cmd.Flags().GetBool("rejected")
	if err != nil {
		return err
	}
	byCredential, err := cmd.Flags().GetBool("by-credential")
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)

	dbOpts := database.DefaultOptions()
	dbOpts.CreateIfNotExists = false
	dbOpts.Logger = logger
	db, err := database.Open(cfg.DBDir, dbOpts)
	if err != nil {
		if errors.Is(err, database.ErrDatabaseNotFound) {
			fmt.Fprintln(cmd.OutOrStdout(), "No history recorded yet. Run 'claimbot run' first.")
			return nil
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if byCredential {
		return outputCredentialTotals(cmd.Context(), db, cmd.OutOrStdout())
	}
	return outputHistory(cmd.Context(), cfg, db, withRejected, cmd.OutOrStdout())
}

// outputHistory writes the history report in the requested format.
func outputHistory(ctx context.Context, cfg *config.Config, db *database.HistoryDB, withRejected bool, stdout io.Writer) error {
	history, err := db.History(ctx, cfg.HistoryLimit, withRejected)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports list proxy lines, which may carry credentials.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	// A JSON or Markdown file still gets the text summary on the terminal.
	if cfg.ReportFile != "" && (cfg.JSONReport || cfg.MarkdownReport) {
		writer = report.NewMultiWriter(writer, report.NewSimpleWriter(stdout, report.WithVerbose(cfg.Verbose)))
	}

	if _, err := writer.WriteHistory(history); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if cfg.ReportFile != "" {
		fmt.Fprintf(stdout, "Report written to %s\n", cfg.ReportFile)
	}
	return nil
}

// outputCredentialTotals writes one line per credential with its totals
// across every recorded cycle.
func outputCredentialTotals(ctx context.Context, db *database.HistoryDB, w io.Writer) error {
	stats, err := db.CredentialTotals(ctx)
	if err != nil {
		return fmt.Errorf("failed to load credential totals: %w", err)
	}
	if len(stats) == 0 {
		fmt.Fprintln(w, "No credential results recorded.")
		return nil
	}

	fmt.Fprintf(w, "%-30s %7s %8s %8s %7s %10s\n", "CREDENTIAL", "CYCLES", "CLAIMED", "ALREADY", "FAILED", "EXHAUSTED")
	for _, s := range stats {
		fmt.Fprintf(w, "%-30s %7d %8d %8d %7d %10d\n",
			s.Label, s.Cycles, s.Counts.Claimed, s.Counts.AlreadyClaimed, s.Counts.Failed, s.Exhausted)
	}
	return nil
}
