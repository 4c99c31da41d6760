package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/ordercap/internal/connmgr"
	"github.com/roach88/ordercap/internal/ledger"
	"github.com/roach88/ordercap/internal/reconcile"
)

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Audit the ledger against the relational store",
		Long: `Compare the order ids in the append-only ledger with those in the
relational store and report every divergence. Exits non-zero when the
stores are out of sync so the command can gate deploys and cron alerts.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(opts, cmd)
		},
	}

	return cmd
}

func runReconcile(opts *RootOptions, cmd *cobra.Command) error {
	formatter := formatterFor(opts, cmd)
	ctx := cmd.Context()

	settings := opts.Settings()
	led, err := ledger.New(settings.LedgerPath)
	if err != nil {
		return outputIngestError(formatter, ExitCommandError, ErrCodeConfig, fmt.Sprintf("opening ledger: %v", err))
	}

	manager := connmgr.NewManager(settings.Manager, slog.Default())
	defer func() {
		if closeErr := manager.Close(); closeErr != nil {
			slog.Error("error closing connections", "error", closeErr)
		}
	}()

	h, err := manager.Get(ctx)
	if err != nil {
		return outputIngestError(formatter, ExitCommandError, ErrCodeConfig, err.Error())
	}

	report, err := reconcile.New(led, h.Rel, slog.Default()).Reconcile(ctx)
	if err != nil {
		return outputIngestError(formatter, ExitFailure, ErrCodeGeneric, fmt.Sprintf("reconciling stores: %v", err))
	}

	if formatter.Format == "json" {
		if err := formatter.Success(report); err != nil {
			return err
		}
	} else {
		renderReport(formatter.Writer, report)
	}

	if !report.InSync() {
		return NewExitError(ExitFailure, report.Summary())
	}
	return nil
}

// renderReport writes the human-readable reconciliation report.
func renderReport(w io.Writer, report reconcile.Report) {
	fmt.Fprintln(w, report.Summary())
	for _, id := range report.InLedgerOnly {
		fmt.Fprintf(w, "  %s  %s\n", reconcile.ClassMissingInRelational, id)
	}
	for _, id := range report.InRelationalOnly {
		fmt.Fprintf(w, "  %s  %s\n", reconcile.ClassMissingInLedger, id)
	}
}
