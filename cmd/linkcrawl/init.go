package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/linkcrawl/internal/config"
)

//go:embed templates/linkcrawl.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new linkcrawl configuration file",
		Long: `Initialize creates a new .linkcrawl configuration file in the current directory.

The generated file includes:
- The API endpoint, User-Agent, and request pacing
- The graph store driver and location
- Pipeline tuning options, all commented with their defaults

Examples:
  # Create .linkcrawl in current directory
  linkcrawl init

  # Create config file at a specific path
  linkcrawl init -o myconfig.yaml

  # Force overwrite existing file
  linkcrawl init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/linkcrawl.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure settings such as:")
	fmt.Fprintln(out, "  - The wiki to crawl and a User-Agent with your contact address")
	fmt.Fprintln(out, "  - SQLite directory or PostgreSQL DSN")
	fmt.Fprintln(out, "  - Request pacing and pipeline buffer sizes")
	fmt.Fprintln(out, "\nSecrets such as the bearer token belong in .env (LINKCRAWL_BEARER_TOKEN).")

	return nil
}
