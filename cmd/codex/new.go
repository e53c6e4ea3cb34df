package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	newForce bool
)

func init() {
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(cleanCmd)

	newCmd.Flags().BoolVarP(&newForce, "force", "f", false, "Replace an existing vault file")
}

var newCmd = &cobra.Command{
	Use:   "new <vault>",
	Short: "Create an empty vault",
	Long: `Create an empty vault file.

An existing file is left alone unless --force is given, in which case it is
atomically replaced by an empty vault.

Examples:
  codex new projects.codex
  codex new projects.codex --force`,
	Args: cobra.ExactArgs(1),
	RunE: runNew,
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove all scratch directories",
	Long: `Remove the scratch root and every extracted project under it.

The scratch root is vault.scratch_root from the config file
(default: <tmp>/codex).`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func runNew(cmd *cobra.Command, args []string) error {
	path := args[0]

	if _, err := os.Stat(path); err == nil {
		if !newForce {
			return fmt.Errorf("%s already exists (use --force to replace it)", path)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	v, err := app.session.Create(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("failed to create vault: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return outputJSON(out, map[string]string{"path": v.Path()})
	}
	fmt.Fprintf(out, "Created vault %s\n", v.Path())
	return nil
}

func runClean(cmd *cobra.Command, args []string) error {
	root := app.session.Options().ScratchRoot
	if err := os.RemoveAll(root); err != nil {
		return fmt.Errorf("failed to remove scratch root %s: %w", root, err)
	}
	app.logger.Info(cmd.Context(), "scratch root removed", zap.String("dir", root))

	out := cmd.OutOrStdout()
	if jsonOutput {
		return outputJSON(out, map[string]string{"removed": root})
	}
	fmt.Fprintf(out, "Removed %s\n", root)
	return nil
}
