package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/ordercap/internal/connmgr"
	"github.com/roach88/ordercap/internal/fallback"
	"github.com/roach88/ordercap/internal/ledger"
	"github.com/roach88/ordercap/internal/order"
	"github.com/roach88/ordercap/internal/payload"
	"github.com/roach88/ordercap/internal/pipeline"
)

// IngestResult is the success payload for the ingest command.
type IngestResult struct {
	OrderID      string `json:"order_id"`
	DisplayID    string `json:"display_id"`
	Status       string `json:"status"`
	LedgerOK     bool   `json:"ledger_ok"`
	RelationalOK bool   `json:"relational_ok"`
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(opts *RootOptions) *cobra.Command {
	var fromFallback bool

	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Capture an order into the ledger and the relational store",
		Long: `Read an order payload from a file (or stdin when the file is "-" or
omitted), validate it, and persist it to both stores.

The ledger write is authoritative: if it fails the order is rejected.
A relational store failure is retried with backoff and, if it still
fails, recorded on the order's timeline while the capture succeeds.

With --fallback the input is treated as a raw checkout session snapshot
and a complete order is synthesized from it first.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(opts, cmd, args, fromFallback)
		},
	}

	cmd.Flags().BoolVar(&fromFallback, "fallback", false, "synthesize the order from a raw checkout session snapshot")

	return cmd
}

func runIngest(opts *RootOptions, cmd *cobra.Command, args []string, fromFallback bool) error {
	formatter := formatterFor(opts, cmd)
	ctx := cmd.Context()

	data, source, err := readInput(cmd, args)
	if err != nil {
		return outputIngestError(formatter, ExitCommandError, ErrCodeInput, err.Error())
	}
	formatter.VerboseLog("Read %d bytes from %s", len(data), source)

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

	coord := pipeline.New(led, manager)

	var result pipeline.Result
	if fromFallback {
		result, err = ingestFallback(ctx, coord, data)
	} else {
		result, err = ingestOrder(ctx, coord, data)
	}
	if err != nil {
		return outputPersistError(formatter, err)
	}

	return outputIngestResult(formatter, result)
}

func ingestOrder(ctx context.Context, coord *pipeline.Coordinator, data []byte) (pipeline.Result, error) {
	if err := payload.Validate(data); err != nil {
		return pipeline.Result{}, err
	}
	var in order.Input
	if err := json.Unmarshal(data, &in); err != nil {
		return pipeline.Result{}, order.NewValidationError("payload", fmt.Sprintf("decoding payload: %v", err))
	}
	return coord.PersistOrder(ctx, in)
}

func ingestFallback(ctx context.Context, coord *pipeline.Coordinator, data []byte) (pipeline.Result, error) {
	var snapshot fallback.CheckoutPayload
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return pipeline.Result{}, order.NewValidationError("payload", fmt.Sprintf("decoding checkout snapshot: %v", err))
	}
	o, err := fallback.New().Synthesize(snapshot)
	if err != nil {
		return pipeline.Result{}, err
	}
	return coord.PersistSynthesized(ctx, o)
}

// readInput returns the payload bytes and a label naming their origin.
func readInput(cmd *cobra.Command, args []string) ([]byte, string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, "", fmt.Errorf("reading stdin: %w", err)
		}
		return data, "stdin", nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", args[0], err)
	}
	return data, args[0], nil
}

// outputPersistError maps pipeline errors to output and exit codes.
// Validation and configuration problems are command errors (exit 2);
// a ledger write failure means the order was not captured (exit 1).
func outputPersistError(formatter *OutputFormatter, err error) error {
	switch {
	case order.IsValidationError(err):
		return outputIngestError(formatter, ExitCommandError, ErrCodeValidation, err.Error())
	case connmgr.IsConfigError(err):
		return outputIngestError(formatter, ExitCommandError, ErrCodeConfig, err.Error())
	default:
		return outputIngestError(formatter, ExitFailure, ErrCodeLedger, fmt.Sprintf("order not captured: %v", err))
	}
}

func outputIngestError(formatter *OutputFormatter, exitCode int, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(exitCode, fmt.Sprintf("%s: %s", code, message))
}

func outputIngestResult(formatter *OutputFormatter, result pipeline.Result) error {
	out := IngestResult{
		OrderID:      result.Order.ID,
		DisplayID:    result.Order.DisplayID,
		Status:       string(result.Order.Status),
		LedgerOK:     result.LedgerOK,
		RelationalOK: result.RelationalOK,
	}

	if formatter.Format == "json" {
		return formatter.Success(out)
	}

	fmt.Fprintf(formatter.Writer, "captured order %s (%s)\n", out.OrderID, out.DisplayID)
	if !out.RelationalOK {
		fmt.Fprintln(formatter.Writer, "warning: relational store write failed, order is safe in the ledger")
	}
	return nil
}
