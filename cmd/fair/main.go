package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alvmarrod/fair/internal/config"
	"github.com/alvmarrod/fair/internal/crawler"
	"github.com/alvmarrod/fair/internal/memory"
	"github.com/alvmarrod/fair/internal/metrics"
	"github.com/alvmarrod/fair/internal/scoring"
	"github.com/alvmarrod/fair/internal/source"
	"github.com/alvmarrod/fair/internal/storage"
	"github.com/alvmarrod/fair/internal/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.Fatalf("fair failed: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fair",
		Short: "Explore the accounts interacting with an Instagram profile and flag suspicious ones",
		Long: `fair starts at a target account and walks the accounts it interacts with
(mentions, tags and comments on its latest posts), building a directed
interaction graph. With --suspicious-calc it scores the accounts whose only
connection is the target, looking for throwaway bot-like profiles.

Profiles are cached in SQLite; the graph is exported as node-link JSON.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runFair,
	}

	flags := rootCmd.Flags()
	flags.String("config", "config.json", "Path to the JSON config file (optional)")
	flags.StringP("username", "u", "", "Target account to investigate")
	flags.IntP("depth", "d", 0, "Maximum exploration depth (root is depth 1)")
	flags.IntP("posts", "p", 0, "Number of latest posts inspected per account")
	flags.Bool("no-cache", false, "Discard cached profiles and fetch everything again")
	flags.Bool("suspicious-calc", false, "Score isolated leaves of the target after exploring")
	flags.BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newExportCmd())
	return rootCmd
}

func newExportCmd() *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Rebuild the node-link JSON from the stored graph and profile cache",
		Long: `export reads the graph and the cached profiles persisted by a previous run
and writes the node-link JSON again, without fetching anything.`,
		Args: cobra.NoArgs,
		RunE: runExport,
	}

	flags := exportCmd.Flags()
	flags.String("config", "config.json", "Path to the JSON config file (optional)")
	flags.StringP("username", "u", "", "Main account recorded in the export")
	flags.StringP("output", "o", "", "Output path (defaults to graph_path)")
	flags.BoolP("verbose", "v", false, "Enable debug logging")

	return exportCmd
}

func setupLogging(cmd *cobra.Command) {
	logrus.SetLevel(logrus.InfoLevel)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
}

// loadConfig reads the config file and applies command-line overrides on top
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	path, _ := flags.GetString("config")
	cfg, err := config.LoadConfigOrDefault(path)
	if err != nil {
		return nil, err
	}

	if flags.Changed("username") {
		cfg.Username, _ = flags.GetString("username")
	}
	if flags.Changed("depth") {
		cfg.MaxDepth, _ = flags.GetInt("depth")
	}
	if flags.Changed("posts") {
		posts, _ := flags.GetInt("posts")
		cfg.PostsLimit = &posts
	}
	if flags.Changed("no-cache") {
		cfg.NoCache, _ = flags.GetBool("no-cache")
	}
	if flags.Changed("suspicious-calc") {
		cfg.SuspiciousCalc, _ = flags.GetBool("suspicious-calc")
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runFair(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	logrus.Infof("FAIR v%s starting...", version.Version)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logrus.Infof("Configuration loaded: username=%s, depth=%d, posts=%d, suspicious_calc=%t",
		cfg.Username, cfg.MaxDepth, cfg.Posts(), cfg.SuspiciousCalc)

	// Initialize storage
	store, err := storage.NewStorage(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	logrus.Infof("Database initialized: %s", cfg.DBPath)

	cache := memory.NewProfileCache(store)
	if cfg.NoCache {
		logrus.Info("Cache disabled, discarding stored profiles")
		if err := store.DeleteProfiles(); err != nil {
			return err
		}
	} else if err := cache.LoadFromStorage(); err != nil {
		return err
	}

	creds, err := source.LoadCredentials(cfg.KeysPath)
	if err != nil {
		return err
	}
	logrus.Infof("Loaded %d API credentials from %s", len(creds), cfg.KeysPath)

	client := source.NewApifyClient(source.ApifyConfig{
		BaseURL:        cfg.ApifyBaseURL,
		ProfileActor:   cfg.ProfileActor,
		PostsActor:     cfg.PostsActor,
		RequestTimeout: cfg.RequestTimeout(),
		UserAgent:      "fair/" + version.Version,
	})

	// Initialize metrics tracker
	tracker := metrics.NewTracker(cfg.Username)

	// Metrics callback for the explorer
	metricsCallback := func(p crawler.Progress) {
		tracker.AddProfilesExplored(p.Explored)
		tracker.AddNodesDiscovered(p.Discovered)
		tracker.AddEdgesRecorded(p.Edges)
		tracker.AddProfilesResolved(p.Resolved)
		tracker.AddProfilesCached(p.CacheHits)
		tracker.AddAttemptsFailed(p.Failed)
		if p.FetchTime > 0 {
			tracker.RecordFetchTime(p.FetchTime)
		}
	}

	graph := memory.NewInteractionGraph()
	explorer := crawler.NewExplorer(cfg, client, creds, graph, cache, nil, metricsCallback)

	// Setup signal handler for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Handle force quit on second signal
	forceQuitChan := make(chan os.Signal, 1)
	go func() {
		<-ctx.Done()
		signal.Notify(forceQuitChan, os.Interrupt, syscall.SIGTERM)
		sig := <-forceQuitChan
		logrus.Warnf("Received second signal (%v) - forcing immediate exit!", sig)
		logrus.Warn("Attempting emergency save...")

		if err := graph.Flush(store); err != nil {
			logrus.Errorf("Emergency graph flush failed: %v", err)
		} else {
			logrus.Info("Emergency graph flush succeeded")
		}
		if err := tracker.WriteToFile(cfg.MetricsPath, "forced_exit"); err != nil {
			logrus.Errorf("Emergency metrics save failed: %v", err)
		}
		os.Exit(1)
	}()

	// Start progress logger
	var wg sync.WaitGroup
	stopProgress := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				logrus.Info(tracker.LogProgress())
			case <-stopProgress:
				return
			}
		}
	}()

	runErr := explorer.Run(ctx, cfg.Username)

	terminationReason := "completed"
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled):
		terminationReason = "signal"
		logrus.Warn("Exploration interrupted by signal")
		runErr = nil
	default:
		terminationReason = "error"
		logrus.Errorf("Exploration failed: %v", runErr)
	}

	close(stopProgress)
	wg.Wait()

	logrus.Info("Initiating shutdown...")

	logrus.Info("Step 1/5: Scoring isolated leaves...")
	if cfg.SuspiciousCalc && terminationReason == "completed" {
		scored, err := scoring.NewScorer(cfg).Score(graph, cache, cfg.Username)
		tracker.SetNodesScored(len(scored))
		if err != nil {
			terminationReason = "error"
			runErr = errors.Join(runErr, err)
			logrus.Errorf("Scoring failed: %v", err)
		}
	} else {
		logrus.Info("Scoring skipped")
	}

	logrus.Info("Step 2/5: Flushing in-memory graph to database...")
	if err := graph.Flush(store); err != nil {
		runErr = errors.Join(runErr, err)
		logrus.Errorf("Failed to flush graph: %v", err)
	} else {
		logrus.Info("Graph flushed successfully")
	}

	logrus.Info("Step 3/5: Exporting graph...")
	if err := memory.WriteNodeLink(cfg.GraphPath, graph, cache, cfg.Username); err != nil {
		runErr = errors.Join(runErr, err)
		logrus.Errorf("Failed to export graph: %v", err)
	} else {
		logrus.Infof("Graph exported to %s", cfg.GraphPath)
	}

	logrus.Info("Step 4/5: Writing final metrics...")
	logrus.Info("Final stats: " + tracker.LogProgress())
	if err := tracker.WriteToFile(cfg.MetricsPath, terminationReason); err != nil {
		logrus.Errorf("Failed to write metrics: %v", err)
	} else {
		logrus.Infof("Metrics written to %s", cfg.MetricsPath)
	}

	logrus.Info("Step 5/5: Reporting target profile...")
	if err := printProfile(cmd, cache, cfg.Username); err != nil {
		logrus.Warnf("Could not report %s: %v", cfg.Username, err)
	}

	if runErr != nil {
		return runErr
	}
	logrus.Info("Shutdown complete. Goodbye!")
	return nil
}

// runExport regenerates the node-link export from the database alone
func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	flags := cmd.Flags()

	path, _ := flags.GetString("config")
	cfg, err := config.LoadConfigOrDefault(path)
	if err != nil {
		return err
	}
	if flags.Changed("username") {
		cfg.Username, _ = flags.GetString("username")
	}
	if cfg.Username == "" {
		return fmt.Errorf("invalid configuration: username is required")
	}
	output := cfg.GraphPath
	if flags.Changed("output") {
		output, _ = flags.GetString("output")
	}

	store, err := storage.NewStorage(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	graph := memory.NewInteractionGraph()
	if err := graph.LoadFromStorage(store); err != nil {
		return err
	}
	if nodes, _ := graph.GetStats(); nodes == 0 {
		return fmt.Errorf("no stored graph in %s", cfg.DBPath)
	}
	if !graph.HasNode(cfg.Username) {
		logrus.Warnf("%s is not a node of the stored graph", cfg.Username)
	}

	cache := memory.NewProfileCache(store)
	if err := cache.LoadFromStorage(); err != nil {
		return err
	}

	if err := memory.WriteNodeLink(output, graph, cache, cfg.Username); err != nil {
		return err
	}
	logrus.Infof("Graph exported to %s", output)
	return nil
}

// printProfile writes the cached record of username as indented JSON
func printProfile(cmd *cobra.Command, cache *memory.ProfileCache, username string) error {
	profile, ok := cache.Get(username)
	if !ok {
		return fmt.Errorf("profile was not resolved")
	}

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
