package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/ordercap/internal/connmgr"
)

// StatusResult is the success payload for the status command.
type StatusResult struct {
	Connection string `json:"connection"`
	Relational string `json:"relational"`
	Cache      string `json:"cache"`
	Error      string `json:"error,omitempty"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "status",
		Short:         "Show connection health for the configured stores",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	return cmd
}

func runStatus(opts *RootOptions, cmd *cobra.Command) error {
	formatter := formatterFor(opts, cmd)
	ctx := cmd.Context()

	manager := connmgr.NewManager(opts.Settings().Manager, slog.Default())
	defer func() {
		if err := manager.Close(); err != nil {
			slog.Error("error closing connections", "error", err)
		}
	}()

	result := StatusResult{Relational: "unreachable", Cache: "unreachable"}

	h, err := manager.Get(ctx)
	if err != nil {
		st, cause := manager.Status()
		result.Connection = st.String()
		if cause != nil {
			result.Error = cause.Error()
		}
		return outputStatus(formatter, result, NewExitError(ExitFailure, "connections unavailable"))
	}

	result.Connection = h.Status.String()
	if err := h.Rel.Ping(ctx); err != nil {
		result.Error = err.Error()
	} else {
		result.Relational = "ok"
	}
	if err := h.Cache.Ping(ctx); err == nil {
		result.Cache = "ok"
	}

	var exitErr error
	if result.Relational != "ok" {
		exitErr = NewExitError(ExitFailure, "relational store unreachable")
	}
	return outputStatus(formatter, result, exitErr)
}

func outputStatus(formatter *OutputFormatter, result StatusResult, exitErr error) error {
	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintf(formatter.Writer, "connection: %s\n", result.Connection)
	fmt.Fprintf(formatter.Writer, "relational: %s\n", result.Relational)
	fmt.Fprintf(formatter.Writer, "cache:      %s\n", result.Cache)
	if result.Error != "" {
		fmt.Fprintf(formatter.Writer, "error:      %s\n", result.Error)
	}
	return exitErr
}
