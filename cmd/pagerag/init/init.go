// Package initcmder provides the init command for initializing a local
// .pagerag directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/pagerag/pkg/cliui"
	"github.com/papercomputeco/pagerag/pkg/config"
	"github.com/papercomputeco/pagerag/pkg/dotdir"
)

const initLongDesc string = `Initialize a new .pagerag/ directory in the current working directory.

Creates a local .pagerag/ directory that takes precedence over the default
~/.pagerag/ directory for configuration and credentials. This is useful for
keeping a separate page, question and model setup per project.

With --preset, a config.toml for the named provider setup is written as well.
An existing config.toml is never overwritten.

Presets:
  openrouter   Hugging Face embeddings, OpenRouter chat model (default stack)
  openai       OpenAI embeddings and chat model
  ollama       Local Ollama embeddings and chat model

Examples:
  pagerag init
  pagerag init --preset ollama`

const initShortDesc string = "Initialize a local .pagerag/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.OutOrStdout(), preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "",
		"Write a config.toml for a provider preset ("+strings.Join(config.ValidPresetNames(), ", ")+")")

	return cmd
}

func runInit(w io.Writer, preset string) error {
	var cfg *config.Config
	if preset != "" {
		var err error
		cfg, err = config.PresetConfig(preset)
		if err != nil {
			return err
		}
	}

	dir, err := dotdir.NewManager().Init("")
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  %s Initialized %s\n", cliui.SuccessMark, cliui.DimStyle.Render(dir))

	if cfg == nil {
		return nil
	}

	path := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(w, "  %s Kept existing %s\n", cliui.WarnStyle.Render("!"), path)
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(w, "  %s Wrote %s preset to %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(preset),
		cliui.DimStyle.Render(path),
	)
	return nil
}
