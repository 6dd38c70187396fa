// Package configcmder provides the config command for managing persistent
// recall configuration stored in the .recall/ directory.
package configcmder

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/pkg/config"
)

const configLongDesc string = `Manage persistent recall configuration.

Configuration is stored as config.toml in the .recall/ directory and provides
default values for command flags. CLI flags and RECALL_* environment
variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.driver, storage.sqlite_path, storage.postgres_dsn,
  proxy.upstream, proxy.listen, proxy.timeout, api.listen,
  injection.enabled, injection.template, injection.max_context_length,
  retrieval.packing, retrieval.min_relevance,
  learning.enabled, learning.workers, learning.queue_size,
  learning.reinforce, learning.dedup_threshold,
  eventstream.provider, eventstream.brokers, eventstream.topic

Use subcommands to get, set, or list configuration values:
  recall config set <key> <value>    Set a configuration value
  recall config get <key>            Get a configuration value
  recall config list                 List all configuration values

Examples:
  recall config set injection.template direct
  recall config set eventstream.brokers kafka-1:9092,kafka-2:9092
  recall config get proxy.upstream
  recall config list`

const configShortDesc string = "Manage persistent recall configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// configFile returns the config file path when it exists on disk.
func configFile(cfger *config.Configer) (string, bool) {
	target := cfger.GetTarget()
	if target == "" {
		return "", false
	}
	if _, err := os.Stat(target); err != nil {
		return target, false
	}
	return target, true
}
