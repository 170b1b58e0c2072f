package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ivikasavnish/go-replay/pkg/browser"
	"github.com/ivikasavnish/go-replay/pkg/configstore"
	"github.com/ivikasavnish/go-replay/pkg/history"
	"github.com/ivikasavnish/go-replay/pkg/replay"
	"github.com/ivikasavnish/go-replay/pkg/server"
	"github.com/ivikasavnish/go-replay/pkg/settings"
)

var (
	settingsPath string
	speed        float64
	humanDelay   bool
	stopOnError  bool
	live         bool
	headless     bool
	startURL     string
	configDir    string
	historyPath  string
	listenAddr   string
	noHistory    bool
	verbose      bool
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded UI-automation sequences",
		Long: `replay executes recorded UI-automation configurations against a live
browser, or as a purely timed simulation when no browser is attached.`,
	}
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "Settings file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	runCmd := &cobra.Command{
		Use:   "run <config-file>",
		Short: "Execute one configuration to completion",
		Args:  cobra.ExactArgs(1),
		RunE:  runRun,
	}
	runCmd.Flags().Float64Var(&speed, "speed", 1.0, "Speed multiplier (recommended 0.5-2.0)")
	runCmd.Flags().BoolVar(&humanDelay, "human-delay", false, "Randomize inter-action delays")
	runCmd.Flags().BoolVar(&stopOnError, "stop-on-error", true, "Halt the run on the first failed action")
	runCmd.Flags().BoolVar(&live, "live", false, "Attach a browser instead of simulating")
	runCmd.Flags().BoolVar(&headless, "headless", true, "Run the browser headless")
	runCmd.Flags().StringVar(&startURL, "url", "", "Initial URL to open in live mode")
	runCmd.Flags().StringVar(&historyPath, "history", "", "Run history database path")
	runCmd.Flags().BoolVar(&noHistory, "no-history", false, "Skip run history persistence")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP control API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "Listen address")
	serveCmd.Flags().BoolVar(&live, "live", false, "Attach a browser instead of simulating")
	serveCmd.Flags().BoolVar(&headless, "headless", true, "Run the browser headless")
	serveCmd.Flags().StringVar(&startURL, "url", "", "Initial URL to open in live mode")
	serveCmd.Flags().StringVar(&configDir, "config-dir", "", "Configuration directory")
	serveCmd.Flags().StringVar(&historyPath, "history", "", "Run history database path")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List configurations in the configuration directory",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
	listCmd.Flags().StringVar(&configDir, "config-dir", "", "Configuration directory")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration into the configuration directory",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}
	initCmd.Flags().StringVar(&configDir, "config-dir", "", "Configuration directory")

	rootCmd.AddCommand(runCmd, serveCmd, listCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadSettings merges file/env settings with flags the user set explicitly.
func loadSettings(cmd *cobra.Command) (settings.Settings, error) {
	s, err := settings.Load(settingsPath)
	if err != nil {
		return s, err
	}

	flags := cmd.Flags()
	if flags.Changed("speed") {
		s.SpeedMultiplier = speed
	}
	if flags.Changed("human-delay") {
		s.HumanDelay = humanDelay
	}
	if flags.Changed("stop-on-error") {
		s.StopOnError = stopOnError
	}
	if flags.Changed("live") {
		s.Live = live
	}
	if flags.Changed("headless") {
		s.Headless = headless
	}
	if flags.Changed("url") {
		s.StartURL = startURL
	}
	if flags.Changed("config-dir") {
		s.ConfigDir = configDir
	}
	if flags.Changed("history") {
		s.HistoryPath = historyPath
	}
	if flags.Changed("addr") {
		s.ListenAddr = listenAddr
	}

	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// attachBrowser starts a live browser and opens the initial page. The caller
// owns the returned browser and must Stop it.
func attachBrowser(s settings.Settings) (*browser.Browser, error) {
	b := browser.New(&browser.Config{Headless: s.Headless})
	if err := b.Start(); err != nil {
		return nil, err
	}
	if err := b.Open(s.StartURL); err != nil {
		b.Stop()
		return nil, err
	}
	return b, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := configstore.Load(args[0])
	if err != nil {
		return err
	}

	opts := []replay.Option{replay.WithLogger(log)}

	if s.Live {
		fmt.Printf("→ Launching browser... ")
		b, err := attachBrowser(s)
		if err != nil {
			fmt.Println("failed")
			return fmt.Errorf("browser launch failed: %w", err)
		}
		defer b.Stop()
		fmt.Println("done")
		opts = append(opts, replay.WithSurface(b.Surface()))
	}

	var store *history.Store
	if !noHistory {
		store, err = history.Open(s.HistoryPath)
		if err != nil {
			return fmt.Errorf("failed to open run history: %w", err)
		}
		defer store.Close()
		opts = append(opts, replay.WithRunEndHook(func(record replay.RunRecord) {
			if _, err := store.SaveRun(record); err != nil {
				log.Warn("failed to persist run history", zap.Error(err))
			}
		}))
	}

	runner := replay.NewRunner(opts...)
	if err := runner.SetSpeed(s.SpeedMultiplier); err != nil {
		return err
	}
	runner.SetHumanDelay(s.HumanDelay)
	runner.SetStopOnError(s.StopOnError)

	if err := runner.Load(cfg); err != nil {
		return err
	}

	fmt.Printf("→ Running %q (%d actions)...\n", cfg.Name, len(cfg.Actions))
	if err := runner.Start(); err != nil {
		return err
	}
	runner.Wait()

	printSummary(runner)

	if runner.Status() == replay.StatusError {
		return fmt.Errorf("run finished with errors")
	}
	return nil
}

func printSummary(runner *replay.Runner) {
	for _, o := range runner.Outcomes() {
		mark := "✓"
		if !o.Success {
			mark = "✗"
		}
		fmt.Printf("  [%d] %s %s (%dms)", o.Index+1, mark, o.Name, o.DurationMs)
		if o.Error != "" {
			fmt.Printf(" — %s", o.Error)
		}
		fmt.Println()
	}

	summary := runner.Summary()
	if summary == nil {
		return
	}
	fmt.Printf("%s: %d completed, %d failed, %d skipped of %d (%dms)\n",
		runner.Status(), summary.Completed, summary.Failed, summary.Skipped,
		summary.Total, summary.DurationMs)
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	opts := []replay.Option{replay.WithLogger(log)}
	if s.Live {
		b, err := attachBrowser(s)
		if err != nil {
			return fmt.Errorf("browser launch failed: %w", err)
		}
		defer b.Stop()
		opts = append(opts, replay.WithSurface(b.Surface()))
	}

	store, err := history.Open(s.HistoryPath)
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer store.Close()
	opts = append(opts, replay.WithRunEndHook(func(record replay.RunRecord) {
		if _, err := store.SaveRun(record); err != nil {
			log.Warn("failed to persist run history", zap.Error(err))
		}
	}))

	runner := replay.NewRunner(opts...)
	runner.SetHumanDelay(s.HumanDelay)
	runner.SetStopOnError(s.StopOnError)
	if err := runner.SetSpeed(s.SpeedMultiplier); err != nil {
		return err
	}

	srv := server.NewServer(runner,
		server.WithLogger(log),
		server.WithHistory(store),
		server.WithConfigDir(s.ConfigDir),
	)
	return srv.Start(s.ListenAddr)
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	entries, err := configstore.Scan(s.ConfigDir)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Printf("no configurations found in %s\n", s.ConfigDir)
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%-30s %3d actions  %s\n", e.Name, e.Actions, e.Path)
		if e.Description != "" {
			fmt.Printf("  %s\n", e.Description)
		}
	}
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.ConfigDir, 0755); err != nil {
		return err
	}
	sample := configstore.Sample()
	path := filepath.Join(s.ConfigDir, sample.Name+".json")
	if err := configstore.Save(sample, path); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
