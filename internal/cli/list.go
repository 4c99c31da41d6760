package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/ordercap/internal/connmgr"
	"github.com/roach88/ordercap/internal/relstore"
)

// ListedOrder is one row of the list command's output.
type ListedOrder struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Status      string    `json:"status"`
	ItemsCount  int64     `json:"items_count"`
	TotalAmount int64     `json:"total_amount"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListResult is the success payload for the list command.
type ListResult struct {
	Orders []ListedOrder `json:"orders"`
	Cached bool          `json:"cached"`
}

// NewListCommand creates the list command.
func NewListCommand(opts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent orders from the relational store",
		Long: `List the most recent orders, newest first. Results are served from the
in-process cache when fresh; pass --cache-disabled to always hit the store.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of orders to return (0 for all)")

	return cmd
}

func runList(opts *RootOptions, cmd *cobra.Command, limit int) error {
	formatter := formatterFor(opts, cmd)
	ctx := cmd.Context()

	manager := connmgr.NewManager(opts.Settings().Manager, slog.Default())
	defer func() {
		if err := manager.Close(); err != nil {
			slog.Error("error closing connections", "error", err)
		}
	}()

	h, err := manager.Get(ctx)
	if err != nil {
		return outputIngestError(formatter, ExitCommandError, ErrCodeConfig, err.Error())
	}

	key := fmt.Sprintf("orders:recent:%d", limit)
	rows, cached := h.Cache.Get(key)
	if !cached {
		rows, err = h.Rel.ListOrders(ctx, limit)
		if err != nil {
			return outputIngestError(formatter, ExitFailure, ErrCodeGeneric, fmt.Sprintf("listing orders: %v", err))
		}
		h.Cache.Set(key, rows)
	}
	formatter.VerboseLog("Listed %d order(s), cached=%v", len(rows), cached)

	return outputListResult(formatter, rows, cached)
}

func outputListResult(formatter *OutputFormatter, rows []relstore.StoredOrder, cached bool) error {
	result := ListResult{Orders: make([]ListedOrder, 0, len(rows)), Cached: cached}
	for _, row := range rows {
		result.Orders = append(result.Orders, ListedOrder{
			ID:          row.ID,
			Email:       row.Email,
			Status:      string(row.Status),
			ItemsCount:  row.ItemsCount,
			TotalAmount: row.TotalAmount,
			CreatedAt:   row.CreatedAt,
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	if len(result.Orders) == 0 {
		fmt.Fprintln(formatter.Writer, "no orders")
		return nil
	}
	for _, o := range result.Orders {
		fmt.Fprintf(formatter.Writer, "%s  %-9s  %3d item(s)  %8d  %s\n",
			o.ID, o.Status, o.ItemsCount, o.TotalAmount, o.CreatedAt.Format(time.RFC3339))
	}
	return nil
}
