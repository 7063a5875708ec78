// Package pageragcmder is the pagerag root command: it answers one question
// about one web page.
package pageragcmder

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/pagerag/cmd/pagerag/auth"
	configcmder "github.com/papercomputeco/pagerag/cmd/pagerag/config"
	initcmder "github.com/papercomputeco/pagerag/cmd/pagerag/init"
	versioncmder "github.com/papercomputeco/pagerag/cmd/version"
)

const pageragLongDesc string = `pagerag answers a question about a web page.

It fetches the page, splits its text into overlapping chunks, embeds every
chunk, retrieves the chunks closest to the question and asks a chat model to
answer from them.

With no flags and no config file it asks "What is the page about? Who is it?"
about https://ai.nikunja.online/about using Hugging Face embeddings and a free
model on OpenRouter. Keys come from the config, from HUGGINGFACE_API_KEY /
OPENAI_API_KEY / OPENROUTER_API_KEY (a .env file in the working directory is
loaded), or from "pagerag auth".

Examples:
  pagerag
  pagerag -u https://example.com/about -q "Who runs this site?"
  pagerag -q "What do they sell?" --top 3 --sources
  pagerag --embedding-provider ollama --generation-model llama3.1 --quiet`

const pageragShortDesc string = "Answer questions about a web page"

func NewPageragCmd() *cobra.Command {
	cmder := &ragCommander{}

	cmd := &cobra.Command{
		Use:          "pagerag",
		Short:        pageragShortDesc,
		Long:         pageragLongDesc,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadDotEnv(".env")
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .pagerag/ config directory")
	cmd.PersistentFlags().String("log-file", "", "Also write JSON logs to this file")

	cmder.addFlags(cmd)

	// Add subcommands
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

// loadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}
