package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/codex/internal/vault"
)

var (
	// add command flags
	addName          string
	addDescription   string
	addEntryPoint    string
	addRespectIgnore bool
	addScanSecrets   string
)

// defaultEntryPoints are tried in order when --entry-point is omitted.
var defaultEntryPoints = []string{"main.py", "app.py"}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)

	addCmd.Flags().StringVar(&addName, "name", "", "Project name (defaults to the directory name)")
	addCmd.Flags().StringVar(&addDescription, "description", "", "Project description")
	addCmd.Flags().StringVar(&addEntryPoint, "entry-point", "", "Script to run, relative to the directory (default main.py, app.py or the first *.py)")
	addCmd.Flags().BoolVar(&addRespectIgnore, "respect-ignore", false, "Skip files matched by .gitignore and .codexignore")
	addCmd.Flags().StringVar(&addScanSecrets, "scan-secrets", "", "Scan files for credentials: off, warn or block (default from config)")
}

var listCmd = &cobra.Command{
	Use:   "list <vault>",
	Short: "List projects in a vault",
	Long: `List the projects stored in a vault, sorted by name.

Examples:
  codex list projects.codex
  codex list projects.codex --json`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

var showCmd = &cobra.Command{
	Use:   "show <vault> <id>",
	Short: "Show project details",
	Args:  cobra.ExactArgs(2),
	RunE:  runShow,
}

var filesCmd = &cobra.Command{
	Use:   "files <vault> <id>",
	Short: "List the files stored for a project",
	Args:  cobra.ExactArgs(2),
	RunE:  runFiles,
}

var addCmd = &cobra.Command{
	Use:   "add <vault> <dir>",
	Short: "Add a directory as a new project",
	Long: `Copy every file under a directory into the vault as a new project.

Examples:
  # Add with defaults (name from directory, entry point detected)
  codex add projects.codex ./hello

  # Refuse the project if it contains credentials
  codex add projects.codex ./hello --scan-secrets block

  # Add with explicit metadata
  codex add projects.codex ./tools/scraper \
    --name "Scraper" \
    --description "Fetches daily prices" \
    --entry-point run.py`,
	Args: cobra.ExactArgs(2),
	RunE: runAdd,
}

var removeCmd = &cobra.Command{
	Use:   "remove <vault> <id>",
	Short: "Remove a project and its files",
	Args:  cobra.ExactArgs(2),
	RunE:  runRemove,
}

func runList(cmd *cobra.Command, args []string) error {
	v, err := openVault(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	projects := v.Projects()

	out := cmd.OutOrStdout()
	if jsonOutput {
		return outputJSON(out, projects)
	}

	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tENTRY POINT\tDESCRIPTION")
	for _, p := range projects {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			truncate(p.ID, 8),
			truncate(p.Name, 30),
			truncate(p.EntryPoint, 20),
			truncate(p.Description, 40),
		)
	}
	return w.Flush()
}

func runShow(cmd *cobra.Command, args []string) error {
	v, err := openVault(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	id, err := resolveProject(v, args[1])
	if err != nil {
		return err
	}
	p, err := v.Project(id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return outputJSON(out, p)
	}

	fmt.Fprintf(out, "ID: %s\n", p.ID)
	fmt.Fprintf(out, "Name: %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", p.Description)
	}
	if p.EntryPoint != "" {
		fmt.Fprintf(out, "Entry point: %s\n", p.EntryPoint)
	}
	if !p.CreatedAt.IsZero() {
		fmt.Fprintf(out, "Created: %s\n", p.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	if p.Source != nil {
		fmt.Fprintf(out, "Source: %s\n", p.Source.Path)
		if p.Source.Commit != "" {
			fmt.Fprintf(out, "Revision: %s@%s\n", p.Source.Branch, truncate(p.Source.Commit, 12))
		}
	}
	return nil
}

func runFiles(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	v, err := openVault(ctx, args[0])
	if err != nil {
		return err
	}
	id, err := resolveProject(v, args[1])
	if err != nil {
		return err
	}
	files, err := v.Files(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return outputJSON(out, files)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tSIZE\tMODIFIED")
	for _, f := range files {
		fmt.Fprintf(w, "%s\t%d\t%s\n", f.Path, f.Size, f.Modified.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	srcDir := args[1]

	policy, err := vault.ParseSecretPolicy(addScanSecrets)
	if err != nil {
		return err
	}
	app.session.Configure(func(o *vault.Options) {
		if cmd.Flags().Changed("respect-ignore") {
			o.RespectIgnore = addRespectIgnore
		}
		if cmd.Flags().Changed("scan-secrets") {
			o.SecretPolicy = policy
		}
	})

	v, err := openVault(ctx, args[0])
	if err != nil {
		return err
	}

	name := addName
	if name == "" {
		abs, err := filepath.Abs(srcDir)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", srcDir, err)
		}
		name = filepath.Base(abs)
	}

	entryPoint := addEntryPoint
	if entryPoint == "" {
		entryPoint = detectEntryPoint(srcDir)
	}

	id, err := v.AddProject(ctx, vault.AddRequest{
		SourceDir:   srcDir,
		Name:        name,
		Description: addDescription,
		EntryPoint:  entryPoint,
	})
	if err != nil {
		return fmt.Errorf("failed to add project: %w", err)
	}

	p, err := v.Project(id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return outputJSON(out, p)
	}
	fmt.Fprintf(out, "Added project %s\n", p.Name)
	fmt.Fprintf(out, "ID: %s\n", p.ID)
	if p.EntryPoint != "" {
		fmt.Fprintf(out, "Entry point: %s\n", p.EntryPoint)
	}
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	v, err := openVault(ctx, args[0])
	if err != nil {
		return err
	}
	id, err := resolveProject(v, args[1])
	if err != nil {
		return err
	}
	p, err := v.Project(id)
	if err != nil {
		return err
	}

	if err := v.RemoveProject(ctx, id); err != nil {
		return fmt.Errorf("failed to remove project: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return outputJSON(out, map[string]string{"removed": id})
	}
	fmt.Fprintf(out, "Removed project %s (%s)\n", p.Name, p.ID)
	return nil
}

// detectEntryPoint picks main.py, then app.py, then the first *.py in the
// top level of dir. Returns "" when there are no Python files.
func detectEntryPoint(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	var scripts []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".py") {
			continue
		}
		scripts = append(scripts, e.Name())
	}
	for _, name := range defaultEntryPoints {
		if slices.Contains(scripts, name) {
			return name
		}
	}
	if len(scripts) > 0 {
		return scripts[0]
	}
	return ""
}
