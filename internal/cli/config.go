package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/ordercap/internal/connmgr"
)

// defaultConfigFile is consulted when --config is not given.
const defaultConfigFile = "ordercap.yaml"

// Settings is the resolved runtime configuration for a command.
//
// Resolution order: explicit flag, then ORDERCAP_* environment variable,
// then config file entry, then the flag default.
type Settings struct {
	LedgerPath string
	Manager    connmgr.Config
}

// initConfig wires flags, environment and the optional config file into
// the command's viper instance. Runs once per invocation from the root
// command's PersistentPreRunE.
func initConfig(opts *RootOptions, cmd *cobra.Command) error {
	// .env files are a development convenience; missing files are fine.
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	opts.v.SetEnvPrefix("ordercap")
	opts.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	opts.v.AutomaticEnv()

	if err := opts.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := opts.v.BindPFlags(cmd.InheritedFlags()); err != nil {
		return err
	}

	return loadConfigFile(opts)
}

// loadConfigFile applies config-file entries as viper defaults, keeping
// them below flags and environment variables in precedence.
func loadConfigFile(opts *RootOptions) error {
	path := opts.ConfigFile
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err != nil {
			return nil
		}
		path = defaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	var entries map[string]any
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	for key, value := range entries {
		opts.v.SetDefault(key, value)
	}
	return nil
}

// Settings resolves the effective configuration.
func (o *RootOptions) Settings() Settings {
	return Settings{
		LedgerPath: o.v.GetString("ledger"),
		Manager: connmgr.Config{
			DatabasePath:  o.v.GetString("db"),
			CacheDisabled: o.v.GetBool("cache-disabled"),
			CacheTTL:      o.v.GetDuration("cache-ttl"),
			Retry: connmgr.RetryConfig{
				MaxAttempts:   o.v.GetInt("retry-max-attempts"),
				InitialDelay:  o.v.GetDuration("retry-initial-delay"),
				MaxDelay:      o.v.GetDuration("retry-max-delay"),
				BackoffFactor: o.v.GetFloat64("retry-backoff-factor"),
			},
		},
	}
}
