package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Iron-Ham/idecore/internal/recent"
	"github.com/spf13/cobra"
)

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recently opened projects",
	RunE:  runRecent,
}

var recentRemoveCmd = &cobra.Command{
	Use:   "remove <project-file>",
	Short: "Remove a project from the recent list",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecentRemove,
}

func init() {
	recentCmd.AddCommand(recentRemoveCmd)
	rootCmd.AddCommand(recentCmd)
}

func openRecent() (*recent.Index, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return recent.New(filepath.Join(cfg.DataDir(), recent.FileName),
		recent.WithLockTimeout(cfg.Recent.LockTimeout()),
	), nil
}

func runRecent(cmd *cobra.Command, args []string) error {
	idx, err := openRecent()
	if err != nil {
		return err
	}
	entries, err := idx.List(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No recent projects")
		return nil
	}

	width := outputWidth(out)
	for _, e := range entries {
		line := fmt.Sprintf("%-24s %s  %s", e.Title, e.Visited.Format("2006-01-02 15:04"), e.Path())
		if langs := e.Languages(); len(langs) > 0 {
			line += "  [" + strings.Join(langs, ", ") + "]"
		}
		fmt.Fprintln(out, truncate(line, width))
	}
	return nil
}

func runRecentRemove(cmd *cobra.Command, args []string) error {
	idx, err := openRecent()
	if err != nil {
		return err
	}
	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	if err := idx.Remove(cmd.Context(), path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", path)
	return nil
}
