package cmd

import (
	"context"
	"fmt"

	"github.com/Iron-Ham/idecore/internal/ide"
	"github.com/spf13/cobra"
)

var openCmd = &cobra.Command{
	Use:   "open <project>",
	Short: "Open a project and report its state",
	Long: `Open a project the way the IDE does: detect the build system and
version control, load the navigation history and unsaved drafts, record
the project as recently used, then unload it again.

With --restore, unsaved drafts are replayed before unloading.`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

var (
	openRestore  bool
	openNoRecent bool
)

func init() {
	openCmd.Flags().BoolVar(&openRestore, "restore", false, "Replay unsaved drafts after opening")
	openCmd.Flags().BoolVar(&openNoRecent, "no-recent", false, "Do not record the project as recently used")
	rootCmd.AddCommand(openCmd)
}

func runOpen(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	defer logger.Close()

	opts := []ide.Option{ide.WithConfig(cfg), ide.WithLogger(logger)}
	if openNoRecent {
		opts = append(opts, ide.WithoutRecent())
	}

	c, err := ide.New(cmd.Context(), args[0], opts...)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", label("Project:"), c.Project().Name())
	fmt.Fprintf(out, "%s %s\n", label("Project file:"), c.ProjectFile())
	if bs := c.BuildSystem(); bs != nil {
		fmt.Fprintf(out, "%s %s\n", label("Build system:"), bs.DisplayName())
	}
	if v := c.Vcs(); v != nil {
		fmt.Fprintf(out, "%s %s (%s)\n", label("VCS:"), v.Name(), v.WorkingDirectory())
	}
	fmt.Fprintf(out, "%s %d entries\n", label("History:"), c.History().Len())
	drafts := c.UnsavedFiles().Snapshot()
	fmt.Fprintf(out, "%s %d\n", label("Drafts:"), len(drafts))

	if openRestore {
		if err := c.Restore(cmd.Context()); err != nil {
			fmt.Fprintf(out, "Restore failed: %v\n", err)
		} else {
			fmt.Fprintf(out, "Restored %d drafts\n", len(drafts))
		}
	}

	ctx := cmd.Context()
	if timeout := cfg.Shutdown.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := c.Unload(ctx); err != nil {
		return fmt.Errorf("failed to unload %s: %w", args[0], err)
	}
	return nil
}
