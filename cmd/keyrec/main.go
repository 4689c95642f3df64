// Package main provides the CLI entrypoint for keyrec.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/keyrec/internal/config"
	"github.com/verte-zerg/keyrec/internal/generator"
	"github.com/verte-zerg/keyrec/internal/input"
	"github.com/verte-zerg/keyrec/internal/keyboard"
	"github.com/verte-zerg/keyrec/internal/keymap"
	"github.com/verte-zerg/keyrec/internal/keyset"
	"github.com/verte-zerg/keyrec/internal/logging"
	"github.com/verte-zerg/keyrec/internal/model"
	"github.com/verte-zerg/keyrec/internal/replay"
	"github.com/verte-zerg/keyrec/internal/stats"
	"github.com/verte-zerg/keyrec/internal/statsui"
	"github.com/verte-zerg/keyrec/internal/store"
	"github.com/verte-zerg/keyrec/internal/tui"
)

const (
	defaultTrials      = 20
	defaultForeMin     = 1.0
	defaultForeMax     = 3.0
	defaultSlowTop     = 3
	defaultSlowFactor  = 2.0
	defaultSlowWindow  = 20
	defaultCurveWindow = 20
	defaultLogLevel    = "info"
	defaultLogFormat   = "text"
)

var defaultReleaseAfter = input.DefaultReleaseAfter.Seconds()

var (
	taskKeys         string
	taskTrials       int
	taskForeMin      float64
	taskForeMax      float64
	taskCapacity     int
	taskReleaseAfter float64
	taskFocusSlow    bool
	taskSlowTop      int
	taskSlowFactor   float64
	taskSlowWindow   int

	statsKeySet      string
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsKeys        string
	statsText        bool

	replayKeys       string
	replayUnreleased bool
	replayRetire     bool
	replayEvents     bool
	replayCapacity   int
	replayVerbose    bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "keyrec",
		Short:         "Keyboard reaction-time trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTaskCmd,
	}

	rootCmd.Flags().StringVar(&taskKeys, "keys", keyset.Default, "target keys (comma separated) or a named key set")
	rootCmd.Flags().IntVar(&taskTrials, "trials", defaultTrials, "trials per session")
	rootCmd.Flags().Float64Var(&taskForeMin, "fore-min", defaultForeMin, "minimum fore-period in seconds")
	rootCmd.Flags().Float64Var(&taskForeMax, "fore-max", defaultForeMax, "maximum fore-period in seconds")
	rootCmd.Flags().IntVar(&taskCapacity, "capacity", keyboard.DefaultCapacity, "number of key transitions retained")
	rootCmd.Flags().Float64Var(&taskReleaseAfter, "release-after", defaultReleaseAfter, "seconds without auto-repeat before a key counts as released")
	rootCmd.Flags().BoolVar(&taskFocusSlow, "focus-slow", false, "bias targets toward slow keys")
	rootCmd.Flags().IntVar(&taskSlowTop, "slow-top", defaultSlowTop, "number of slow keys to focus on")
	rootCmd.Flags().Float64Var(&taskSlowFactor, "slow-factor", defaultSlowFactor, "weight factor for slow keys")
	rootCmd.Flags().IntVar(&taskSlowWindow, "slow-window", defaultSlowWindow, "number of recent sessions to compute slow keys")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newKeysCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newReplayCmd())

	return rootCmd
}

func runTaskCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyTaskConfig(cmd, fileCfg.Task)

	keys, err := resolveKeys(taskKeys)
	if err != nil {
		return err
	}
	cfg := model.Config{
		Keys:         keys,
		Trials:       taskTrials,
		ForeMin:      seconds(taskForeMin),
		ForeMax:      seconds(taskForeMax),
		Capacity:     taskCapacity,
		ReleaseAfter: seconds(taskReleaseAfter),
		FocusSlow:    taskFocusSlow,
		SlowTop:      taskSlowTop,
		SlowFactor:   taskSlowFactor,
		SlowWindow:   taskSlowWindow,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	logger, closer, err := newLogger(fileCfg.Log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closer.Close(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}()

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	slowSet := map[string]struct{}{}
	if cfg.FocusSlow {
		aggs, err := st.GetSlowKeys(context.Background(), cfg.SlowWindow)
		if err != nil {
			logErrf("failed to load slow keys: %v\n", err)
		} else {
			slowSet = stats.SelectSlowKeys(aggs, cfg.SlowTop)
			if len(slowSet) == 0 {
				logErrln("no stats available for slow-key focus yet; using uniform targets")
			}
		}
	}

	logger.Info("task starting", "keys", strings.Join(cfg.Keys, ","), "trials", cfg.Trials, "capacity", cfg.Capacity)
	m, err := tui.NewModel(cfg, st, generator.New(), slowSet, logger)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
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
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List canonical key names",
		Args:  cobra.NoArgs,
		RunE:  runKeysCmd,
	}
}

func runKeysCmd(cmd *cobra.Command, _ []string) error {
	for _, name := range keymap.Names() {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsKeySet, "key-set", "", "key set filter (comma separated)")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().StringVar(&statsKeys, "keys", "", "keys for per-key curves")
	cmd.Flags().BoolVar(&statsText, "text", false, "print a plain text report instead of the TUI")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if statsCurveWindow < 1 {
		return fmt.Errorf("--curve-window must be >= 1")
	}

	cfg := model.StatsConfig{
		KeySet:      strings.Join(keyset.Parse(statsKeySet), ","),
		Since:       sinceTime,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
		Keys:        statsKeys,
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if statsText {
		return writeTextReport(cmd.OutOrStdout(), st, cfg)
	}
	program := tea.NewProgram(statsui.NewModel(st, cfg), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func writeTextReport(w io.Writer, st *store.Store, cfg model.StatsConfig) error {
	report, err := stats.BuildReport(context.Background(), st, cfg, keyset.Parse(cfg.Keys))
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	if err := stats.RenderSummary(w, report.Sessions); err != nil {
		return err
	}
	if err := stats.RenderKeyTable(w, report.KeyAggsWindow); err != nil {
		return err
	}
	if err := stats.RenderCurves(w, report.Sessions, cfg.CurveWindow, 0, 0, false); err != nil {
		return err
	}
	return stats.RenderKeyCurves(w, report.Sessions, report.KeyCurves, report.CurveKeys, cfg.CurveWindow, 0, 0, false)
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <script>",
		Short: "Replay a scripted key sequence and print reconstructed presses",
		Args:  cobra.ExactArgs(1),
		RunE:  runReplayCmd,
	}
	cmd.Flags().StringVar(&replayKeys, "keys", "", "only report these canonical keys (comma separated)")
	cmd.Flags().BoolVar(&replayUnreleased, "unreleased", false, "include keys still held at the end of the script")
	cmd.Flags().BoolVar(&replayRetire, "retire", false, "retire reported presses and query again")
	cmd.Flags().BoolVar(&replayEvents, "events", false, "also print the retained transitions")
	cmd.Flags().IntVar(&replayCapacity, "capacity", 0, "override the script's capacity")
	cmd.Flags().BoolVar(&replayVerbose, "verbose", false, "log dropped transitions to stderr")
	return cmd
}

func runReplayCmd(cmd *cobra.Command, args []string) error {
	script, err := replay.Load(args[0])
	if err != nil {
		return err
	}
	var opts []keyboard.Option
	if cmd.Flags().Changed("capacity") {
		opts = append(opts, keyboard.WithCapacity(replayCapacity))
	}
	if replayVerbose {
		opts = append(opts, keyboard.WithLogger(logging.NewWithWriter(cmd.ErrOrStderr(), logging.Config{Level: slog.LevelDebug})))
	}
	rec, err := replay.Run(script, opts...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if replayEvents {
		if err := stats.RenderTransitions(out, rec.RetainedEvents()); err != nil {
			return err
		}
	}
	q := keyboard.Query{
		Keys:              keyset.Parse(replayKeys),
		IncludeUnreleased: replayUnreleased,
		Retire:            replayRetire,
	}
	if err := stats.RenderPresses(out, rec.Presses(q)); err != nil {
		return err
	}
	if !replayRetire {
		return nil
	}
	if _, err := fmt.Fprintln(out, "After retiring:"); err != nil {
		return err
	}
	q.Retire = false
	return stats.RenderPresses(out, rec.Presses(q))
}

func applyTaskConfig(cmd *cobra.Command, task config.TaskConfig) {
	applyStringConfig(cmd, "keys", &taskKeys, task.Keys)
	applyIntConfig(cmd, "trials", &taskTrials, task.Trials)
	applyFloatConfig(cmd, "fore-min", &taskForeMin, task.ForeMin)
	applyFloatConfig(cmd, "fore-max", &taskForeMax, task.ForeMax)
	applyIntConfig(cmd, "capacity", &taskCapacity, task.Capacity)
	applyFloatConfig(cmd, "release-after", &taskReleaseAfter, task.ReleaseAfter)
	applyBoolConfig(cmd, "focus-slow", &taskFocusSlow, task.FocusSlow)
	applyIntConfig(cmd, "slow-top", &taskSlowTop, task.SlowTop)
	applyFloatConfig(cmd, "slow-factor", &taskSlowFactor, task.SlowFactor)
	applyIntConfig(cmd, "slow-window", &taskSlowWindow, task.SlowWindow)
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

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func newLogger(cfg config.LogConfig) (*slog.Logger, io.Closer, error) {
	levelName, formatName, path := defaultLogLevel, defaultLogFormat, config.DefaultLogPath()
	if cfg.Level != nil {
		levelName = *cfg.Level
	}
	if cfg.Format != nil {
		formatName = *cfg.Format
	}
	if cfg.File != nil {
		path = *cfg.File
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid [log] level: %w", err)
	}
	format, err := logging.ParseFormat(formatName)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid [log] format: %w", err)
	}
	return logging.New(logging.Config{Level: level, Format: format, Path: path})
}

func resolveKeys(value string) ([]string, error) {
	keys, err := keyset.Resolve(value, config.DefaultKeySetDir())
	if err != nil {
		return nil, err
	}
	valid, unknown := keyset.Split(keys, keymap.Known)
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown keys: %s (run: keyrec keys)", strings.Join(unknown, ", "))
	}
	return valid, nil
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# keyrec configuration
# Uncomment a value to enable it. CLI flags override config values.

[task]
# keys = %q               # Target keys or a named key set
# trials = %d             # Trials per session
# fore-min = %.1f         # Minimum fore-period (seconds)
# fore-max = %.1f         # Maximum fore-period (seconds)
# capacity = %d        # Key transitions retained
# release-after = %.2f    # Seconds without auto-repeat before a key counts as released
# focus-slow = false      # Bias targets toward slow keys
# slow-top = %d            # Number of slow keys to focus on
# slow-factor = %.1f      # Weight factor for slow keys
# slow-window = %d        # Number of recent sessions to compute slow keys

[log]
# level = %q           # debug, info, warn, error
# format = %q          # text or json
# file = %q
`,
		keyset.Default,
		defaultTrials,
		defaultForeMin,
		defaultForeMax,
		keyboard.DefaultCapacity,
		defaultReleaseAfter,
		defaultSlowTop,
		defaultSlowFactor,
		defaultSlowWindow,
		defaultLogLevel,
		defaultLogFormat,
		config.DefaultLogPath(),
	)
}

func validateConfig(cfg model.Config) error {
	if len(cfg.Keys) == 0 {
		return fmt.Errorf("--keys must not be empty")
	}
	if cfg.Trials <= 0 {
		return fmt.Errorf("--trials must be > 0")
	}
	if cfg.ForeMin < 0 {
		return fmt.Errorf("--fore-min must be >= 0")
	}
	if cfg.ForeMax < cfg.ForeMin {
		return fmt.Errorf("--fore-max must be >= --fore-min")
	}
	if cfg.Capacity <= 0 {
		return fmt.Errorf("--capacity must be > 0")
	}
	if cfg.ReleaseAfter <= 0 {
		return fmt.Errorf("--release-after must be > 0")
	}
	if cfg.SlowTop < 0 {
		return fmt.Errorf("--slow-top must be >= 0")
	}
	if cfg.SlowFactor < 0 {
		return fmt.Errorf("--slow-factor must be >= 0")
	}
	if cfg.SlowWindow < 0 {
		return fmt.Errorf("--slow-window must be >= 0")
	}
	return nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
