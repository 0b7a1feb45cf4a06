package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/termpilot/termpilot/internal/config"
	"github.com/termpilot/termpilot/internal/logging"
	"github.com/termpilot/termpilot/internal/session"
	"github.com/termpilot/termpilot/internal/wait"
)

var (
	snapshotInteractive bool
	snapshotTimeout     time.Duration
	snapshotSend        string
	snapshotCwd         string
	snapshotCols        int
	snapshotRows        int
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <command> [args...]",
	Short: "Run a command and print its screen as an accessibility tree",
	Long: `Snapshot spawns the given command in a PTY, waits for its screen to
stabilize, and prints the detected UI elements with their references.
Useful for inspecting what an agent would see.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().BoolVar(&snapshotInteractive, "interactive-only", false, "only show interactive elements")
	snapshotCmd.Flags().DurationVar(&snapshotTimeout, "timeout", 5*time.Second, "how long to wait for a stable screen")
	snapshotCmd.Flags().StringVar(&snapshotSend, "send", "", "text to type before snapshotting")
	snapshotCmd.Flags().StringVar(&snapshotCwd, "cwd", "", "working directory for the command")
	snapshotCmd.Flags().IntVar(&snapshotCols, "cols", 0, "terminal columns (0 = default)")
	snapshotCmd.Flags().IntVar(&snapshotRows, "rows", 0, "terminal rows (0 = default)")
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NopLogger()
	if cfg.Logging.Enabled {
		logger, err = logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer logger.Close()
	}

	registry := session.NewRegistry(cfg, logger)
	defer registry.KillAll()

	s, err := registry.Spawn("", args[0], args[1:], session.SpawnOptions{
		Dir:  snapshotCwd,
		Cols: snapshotCols,
		Rows: snapshotRows,
	})
	if err != nil {
		return fmt.Errorf("failed to spawn %s: %w", args[0], err)
	}

	if snapshotSend != "" {
		if err := s.TypeText(snapshotSend); err != nil {
			return err
		}
	}

	engine := wait.NewEngine(cfg.Wait.PollInterval(), cfg.Wait.StableSamples, logger)
	cond, _ := wait.Parse("stable", "", "")
	if _, err := engine.Wait(cmd.Context(), s, cond, snapshotTimeout); err != nil {
		return err
	}

	as, err := s.AnalyzeScreen(snapshotInteractive)
	if err != nil {
		return err
	}

	fmt.Printf("framework: %s\n", as.Framework)
	fmt.Printf("elements: %d total, %d interactive\n\n", as.Stats.Total, as.Stats.Interactive)
	fmt.Print(as.Tree)
	return nil
}
