package cmd

import (
	"fmt"

	"github.com/Iron-Ham/idecore/internal/config"
	"github.com/Iron-Ham/idecore/internal/navigation"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect navigation history files",
}

var historyShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Print the entries of a history file",
	Long: `Print the entries of a navigation history file, most recent first.
The entry that becomes current when the file is loaded is marked with '*'.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistoryShow,
}

var historyCompactCmd = &cobra.Command{
	Use:   "compact <file>",
	Short: "Rewrite a history file",
	Long: `Load a history file and save it again. Legacy entries are rewritten,
adjacent jumps within a file are merged and at most
history.max_per_target entries are kept for each file.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistoryCompact,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCompactCmd)
}

func loadHistory(cmd *cobra.Command, cfg *config.Config, path string) (*navigation.History, error) {
	h := navigation.NewHistory(
		navigation.WithMaxItems(cfg.History.MaxItems),
		navigation.WithChainer(navigation.LineProximityChainer{MaxLines: uint32(cfg.History.ChainLines)}),
	)
	if err := h.Load(cmd.Context(), path, navigation.WithMaxFileBytes(cfg.History.HistoryMaxFileBytes())); err != nil {
		return nil, err
	}
	return h, nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	h, err := loadHistory(cmd, cfg, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	items := h.Items()
	if len(items) == 0 {
		fmt.Fprintln(out, "No history entries")
		return nil
	}

	width := outputWidth(out)
	current := h.Current()
	for i := len(items) - 1; i >= 0; i-- {
		uri := truncate(items[i].URI(), width-2)
		if items[i] == current {
			fmt.Fprintf(out, "* %s\n", currentStyle.Render(uri))
			continue
		}
		fmt.Fprintf(out, "  %s\n", uri)
	}
	return nil
}

func runHistoryCompact(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	h, err := loadHistory(cmd, cfg, args[0])
	if err != nil {
		return err
	}
	if err := h.Save(cmd.Context(), args[0], navigation.WithMaxPerTarget(cfg.History.MaxPerTarget)); err != nil {
		return err
	}

	after, err := loadHistory(cmd, cfg, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Compacted %s: %d entries\n", args[0], after.Len())
	return nil
}
