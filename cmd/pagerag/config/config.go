// Package configcmder provides the config command for managing persistent
// pagerag configuration stored in the .pagerag/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/pagerag/pkg/cliui"
	"github.com/papercomputeco/pagerag/pkg/config"
)

const configLongDesc string = `Manage persistent pagerag configuration.

Configuration is stored as config.toml in the .pagerag/ directory and provides
default values for command flags. CLI flags and PAGERAG_* environment
variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  loader.url, loader.selector, loader.user_agent, loader.max_bytes,
  splitter.chunk_size, splitter.chunk_overlap, splitter.word_boundary,
  embedding.provider, embedding.target, embedding.model,
  embedding.dimensions, embedding.api_key,
  vector_store.provider, vector_store.target,
  retriever.top_k,
  generation.provider, generation.base_url, generation.model, generation.api_key,
  prompt.template, prompt.question

Use subcommands to get, set, or list configuration values:
  pagerag config set <key> <value>    Set a configuration value
  pagerag config get <key>            Get a configuration value
  pagerag config list                 List all configuration values

Examples:
  pagerag config set loader.url https://example.com/about
  pagerag config set retriever.top_k 3
  pagerag config get generation.model
  pagerag config list`

const configShortDesc string = "Manage persistent pagerag configuration"

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

func validKeysCompletion(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func unknownKeyError(key string) error {
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

func printTarget(w io.Writer, cfger *config.Configer) {
	target := cfger.GetTarget()
	if target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}

// displayValue masks credentials so they never land in terminal scrollback.
func displayValue(key, value string) string {
	if value == "" || !config.IsSecretKey(key) {
		return value
	}
	if len(value) <= 8 {
		return "********"
	}
	return value[:4] + "..." + value[len(value)-4:]
}
