package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	v *viper.Viper
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ordercap CLI.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

func newRootCommand() (*cobra.Command, *RootOptions) {
	opts := &RootOptions{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "ordercap",
		Short: "ordercap - resilient order capture",
		Long: `Capture storefront orders into an append-only ledger and a queryable
relational store, with retry, reconciliation and degraded-mode fallback.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			setupLogging(opts.Verbose)
			return initConfig(opts, cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default ordercap.yaml if present)")

	// Store flags. Environment variables follow the ORDERCAP_<flag> scheme,
	// e.g. ORDERCAP_DB=/var/lib/ordercap/orders.db.
	cmd.PersistentFlags().String("ledger", "data/orders.json", "path to the append-only order ledger")
	cmd.PersistentFlags().String("db", "data/orders.db", "path to the SQLite order database")
	cmd.PersistentFlags().Bool("cache-disabled", false, "disable the in-process listing cache")
	cmd.PersistentFlags().Duration("cache-ttl", 30*time.Second, "listing cache time-to-live")
	cmd.PersistentFlags().Int("retry-max-attempts", 3, "maximum attempts for relational store operations")
	cmd.PersistentFlags().Duration("retry-initial-delay", 100*time.Millisecond, "initial retry backoff delay")
	cmd.PersistentFlags().Duration("retry-max-delay", time.Second, "retry backoff delay ceiling")
	cmd.PersistentFlags().Float64("retry-backoff-factor", 2.0, "multiplier applied to the delay after each attempt")

	// Subcommands
	cmd.AddCommand(NewIngestCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))

	return cmd, opts
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// setupLogging routes structured logs to stderr so they never corrupt
// JSON output on stdout.
func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// formatterFor builds the output formatter for a command invocation.
func formatterFor(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
