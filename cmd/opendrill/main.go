// Package main provides the CLI entrypoint for opendrill.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tmparker/opendrill/internal/backup"
	"github.com/tmparker/opendrill/internal/catalog"
	"github.com/tmparker/opendrill/internal/config"
	"github.com/tmparker/opendrill/internal/fsrs"
	"github.com/tmparker/opendrill/internal/model"
	"github.com/tmparker/opendrill/internal/session"
	"github.com/tmparker/opendrill/internal/stats"
	"github.com/tmparker/opendrill/internal/store"
	"github.com/tmparker/opendrill/internal/tui"
)

const (
	defaultRounds    = session.DefaultRounds
	defaultRoundTime = 25
	defaultWeakTop   = 5
	defaultLast      = 10
)

var (
	drillOpening   string
	drillRounds    int
	drillRoundTime int
	drillTimed     bool
	drillCatalog   string

	reviewOpening string

	statsLast    int
	statsWeakTop int

	resetYes bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "opendrill",
		Short:         "TUI chess openings trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runDrillCmd,
	}

	rootCmd.Flags().StringVar(&drillOpening, "opening", "", "opening filter (default: all)")
	rootCmd.Flags().IntVar(&drillRounds, "rounds", defaultRounds, "rounds in a timed session")
	rootCmd.Flags().IntVar(&drillRoundTime, "round-time", defaultRoundTime, "seconds per round in a timed session")
	rootCmd.Flags().BoolVar(&drillTimed, "timed", false, "play a timed challenge")
	rootCmd.Flags().StringVar(&drillCatalog, "catalog", "", "path to a custom opening catalog")

	rootCmd.AddCommand(newReviewCmd())
	rootCmd.AddCommand(newDueCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newOpeningsCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func runDrillCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "opening", &drillOpening, fileCfg.Drill.Opening)
	applyIntConfig(cmd, "rounds", &drillRounds, fileCfg.Drill.Rounds)
	applyIntConfig(cmd, "round-time", &drillRoundTime, fileCfg.Drill.RoundTime)
	applyStringConfig(cmd, "catalog", &drillCatalog, fileCfg.Drill.Catalog)

	if drillRounds <= 0 {
		return fmt.Errorf("--rounds must be > 0")
	}
	if drillRoundTime <= 0 {
		return fmt.Errorf("--round-time must be > 0")
	}

	mode := model.ModeLearn
	if drillTimed {
		mode = model.ModeTimed
	}
	return runDrill(mode, drillOpening, fileCfg)
}

func newReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Graded review of due positions",
		Args:  cobra.NoArgs,
		RunE:  runReviewCmd,
	}
	cmd.Flags().StringVar(&reviewOpening, "opening", "", "opening filter (default: all)")
	cmd.Flags().StringVar(&drillCatalog, "catalog", "", "path to a custom opening catalog")
	return cmd
}

func runReviewCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "catalog", &drillCatalog, fileCfg.Drill.Catalog)
	return runDrill(model.ModeReview, reviewOpening, fileCfg)
}

func runDrill(mode model.Mode, opening string, fileCfg config.FileConfig) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	positions, ok := cat.Filter(opening)
	if !ok {
		return fmt.Errorf("unknown opening %q (see: opendrill openings)", opening)
	}

	st := openStore()
	defer closeStore(st)

	global, err := st.Stats(context.Background())
	if err != nil {
		logErrf("failed to load stats: %v\n", err)
	}

	sched := fsrs.New(schedulerParams(fileCfg))
	sess := session.New(session.Config{
		Mode:      mode,
		Opening:   opening,
		Rounds:    drillRounds,
		RoundTime: time.Duration(drillRoundTime) * time.Second,
	}, positions, st, sched, session.WithWarnf(logErrf))

	drill := tui.NewModel(sess, global.HighScore)
	program := tea.NewProgram(drill, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newDueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "due",
		Short: "Show how many positions are due for review",
		Args:  cobra.NoArgs,
		RunE:  runDueCmd,
	}
}

func runDueCmd(cmd *cobra.Command, _ []string) error {
	st := openStore()
	defer closeStore(st)

	ctx := context.Background()
	dueCards, err := st.DueCards(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("failed to load due cards: %w", err)
	}
	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(out, "%d positions due\n", len(dueCards)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if len(dueCards) == 0 {
		return nil
	}

	byOpening := map[string]int{}
	var order []string
	for _, card := range dueCards {
		opening := card.Opening
		if opening == "" {
			opening = stats.UnknownOpening
		}
		if _, ok := byOpening[opening]; !ok {
			order = append(order, opening)
		}
		byOpening[opening]++
	}
	for _, opening := range order {
		if _, err := fmt.Fprintf(out, "  %s: %d\n", opening, byOpening[opening]); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show training stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().IntVar(&statsLast, "last", defaultLast, "limit session history to last N sessions")
	cmd.Flags().IntVar(&statsWeakTop, "weak-top", defaultWeakTop, "number of weak spots to show")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "weak-top", &statsWeakTop, fileCfg.Drill.WeakTop)

	st := openStore()
	defer closeStore(st)

	ctx := context.Background()
	global, err := st.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}
	cards, err := st.Cards(ctx)
	if err != nil {
		return fmt.Errorf("failed to load cards: %w", err)
	}
	reviews, err := st.Reviews(ctx)
	if err != nil {
		return fmt.Errorf("failed to load reviews: %w", err)
	}
	sessions, err := st.Sessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}

	sched := fsrs.New(schedulerParams(fileCfg))
	dueCount := 0
	now := time.Now()
	for _, card := range cards {
		if card.IsDue(now) {
			dueCount++
		}
	}

	out := cmd.OutOrStdout()
	if err := stats.RenderSummary(out, global, dueCount); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderOpeningTable(out, stats.OpeningStats(reviews, cards, sched)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderWeakSpots(out, stats.WeakSpots(reviews, statsWeakTop)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderHistory(out, stats.SessionHistory(sessions, statsLast)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Export progress to a JSON file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExportCmd,
	}
}

func runExportCmd(cmd *cobra.Command, args []string) error {
	path := "opendrill-export.json"
	if len(args) == 1 {
		path = args[0]
	}

	st := openStore()
	defer closeStore(st)

	data, err := backup.Export(context.Background(), st, time.Now())
	if err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import progress from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportCmd,
	}
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}

	st := openStore()
	defer closeStore(st)

	if err := backup.Import(context.Background(), st, data); err != nil {
		return fmt.Errorf("failed to import: %w", err)
	}
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Imported %s\n", args[0]); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all progress",
		Args:  cobra.NoArgs,
		RunE:  runResetCmd,
	}
	cmd.Flags().BoolVar(&resetYes, "yes", false, "confirm deletion")
	return cmd
}

func runResetCmd(cmd *cobra.Command, _ []string) error {
	if !resetYes {
		return fmt.Errorf("this deletes all cards, reviews, sessions, and stats; re-run with --yes to confirm")
	}

	st := openStore()
	defer closeStore(st)

	if err := st.ClearAll(context.Background()); err != nil {
		return fmt.Errorf("failed to reset: %w", err)
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), "All progress deleted"); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newOpeningsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "openings",
		Short: "List catalog openings",
		Args:  cobra.NoArgs,
		RunE:  runOpeningsCmd,
	}
}

func runOpeningsCmd(cmd *cobra.Command, _ []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, opening := range cat.Openings {
		if _, err := fmt.Fprintf(out, "%-12s %s (%d positions)\n", opening.Key, opening.Name, len(opening.Positions)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// openStore opens the SQLite store and degrades to the in-memory one
// when that fails, so a broken data dir never blocks a session.
func openStore() store.Store {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		logErrf("failed to open db, progress will not be saved: %v\n", err)
		return store.NewMemory()
	}
	return st
}

func closeStore(st store.Store) {
	if err := st.Close(); err != nil {
		logErrf("failed to close db: %v\n", err)
	}
}

// loadCatalog resolves the catalog source: an explicit --catalog/config
// path, a user catalog at the default location, or the embedded one.
func loadCatalog() (*catalog.Catalog, error) {
	if drillCatalog != "" {
		cat, err := catalog.Load(drillCatalog)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog %s: %w", drillCatalog, err)
		}
		return cat, nil
	}
	userPath := config.DefaultCatalogPath()
	if _, err := os.Stat(userPath); err == nil {
		cat, err := catalog.Load(userPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog %s: %w", userPath, err)
		}
		return cat, nil
	}
	cat, err := catalog.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded catalog: %w", err)
	}
	return cat, nil
}

func schedulerParams(fileCfg config.FileConfig) fsrs.Params {
	params := fsrs.DefaultParams()
	if v := fileCfg.Scheduler.RequestRetention; v != nil {
		params.RequestRetention = *v
	}
	if v := fileCfg.Scheduler.MaximumInterval; v != nil {
		params.MaximumInterval = *v
	}
	if v := fileCfg.Scheduler.MasteryStability; v != nil {
		params.MasteryStability = *v
	}
	return params
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# opendrill configuration
# Uncomment a value to enable it. CLI flags override config values.

[drill]
# opening = "all"           # Opening filter
# rounds = %d               # Rounds in a timed session
# round-time = %d           # Seconds per round in a timed session
# weak-top = %d              # Number of weak spots in stats
# catalog = ""              # Path to a custom opening catalog

[scheduler]
# request-retention = 0.90  # Target recall probability
# maximum-interval = 36500  # Longest interval in days
# mastery-stability = 5.0   # Stability threshold for mastery
`,
		defaultRounds,
		defaultRoundTime,
		defaultWeakTop,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
