package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	extractHold bool
)

func init() {
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(exportAllCmd)

	extractCmd.Flags().BoolVar(&extractHold, "hold", false, "Wait for Enter, then delete the scratch directory")
}

var extractCmd = &cobra.Command{
	Use:   "extract <vault> <id>",
	Short: "Extract a project to its scratch directory",
	Long: `Extract a project's files to <scratch_root>/<id>, replacing anything
already there, and print the directory and entry point.

With --hold the command waits for Enter (or an interrupt) and then deletes
the scratch directory. Otherwise the directory is kept until "codex clean".

Examples:
  codex extract projects.codex 3f2a
  cd "$(codex extract projects.codex 3f2a --json | jq -r .dir)"`,
	Args: cobra.ExactArgs(2),
	RunE: runExtract,
}

var exportCmd = &cobra.Command{
	Use:   "export <vault> <id> <dest>",
	Short: "Copy a project's files to a directory",
	Args:  cobra.ExactArgs(3),
	RunE:  runExport,
}

var exportAllCmd = &cobra.Command{
	Use:   "export-all <vault> <dest>",
	Short: "Copy every project to <dest>/<name>",
	Long: `Copy every project to <dest>/<name>. Projects sharing a name are
written into the same directory in name order, later files overwriting
earlier ones.`,
	Args: cobra.ExactArgs(2),
	RunE: runExportAll,
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	v, err := openVault(ctx, args[0])
	if err != nil {
		return err
	}
	id, err := resolveProject(v, args[1])
	if err != nil {
		return err
	}

	ext, err := app.session.Extract(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to extract project: %w", err)
	}
	if !extractHold {
		app.session.Keep(ext.Dir)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		if err := outputJSON(out, ext); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "Extracted to %s\n", ext.Dir)
		if ext.EntryPoint != "" {
			fmt.Fprintf(out, "Entry point: %s\n", ext.EntryPoint)
		}
	}

	if extractHold {
		fmt.Fprintln(cmd.ErrOrStderr(), "Press Enter to delete the scratch directory")
		waitForEnter(cmd)
		app.logger.Debug(ctx, "releasing scratch directory", zap.String("dir", ext.Dir))
	}
	return nil
}

// waitForEnter blocks until a line is read from the command's input or the
// command context is canceled.
func waitForEnter(cmd *cobra.Command) {
	done := make(chan struct{})
	go func() {
		_, _ = bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		close(done)
	}()
	select {
	case <-done:
	case <-cmd.Context().Done():
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	v, err := openVault(ctx, args[0])
	if err != nil {
		return err
	}
	id, err := resolveProject(v, args[1])
	if err != nil {
		return err
	}

	dest := args[2]
	if err := v.ExportProject(ctx, id, dest); err != nil {
		return fmt.Errorf("failed to export project: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return outputJSON(out, map[string]string{"id": id, "dest": dest})
	}
	fmt.Fprintf(out, "Exported %s to %s\n", id, dest)
	return nil
}

func runExportAll(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	v, err := openVault(ctx, args[0])
	if err != nil {
		return err
	}

	dest := args[1]
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	if err := v.ExportAll(ctx, dest); err != nil {
		return fmt.Errorf("failed to export projects: %w", err)
	}

	count := len(v.Projects())
	out := cmd.OutOrStdout()
	if jsonOutput {
		return outputJSON(out, map[string]any{"dest": dest, "projects": count})
	}
	fmt.Fprintf(out, "Exported %d project(s) to %s\n", count, dest)
	return nil
}
