package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/LiturgyCast/internal/config"
	"github.com/TobiSchelling/LiturgyCast/internal/database"
	"github.com/TobiSchelling/LiturgyCast/internal/pipeline"
	"github.com/TobiSchelling/LiturgyCast/internal/production"
	"github.com/TobiSchelling/LiturgyCast/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "liturgycast",
	Short:   "Daily liturgy videos",
	Long:    "LiturgyCast turns the day's liturgical readings into short vertical videos: script, images, narration, captions, render, publish.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// API keys and upload credentials live in the environment.
		_ = godotenv.Load()

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(stageCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(closeCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("liturgycast", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/liturgycast/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the liturgy source, LLM provider, and TTS voice.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Today: %s\n\n", database.GetToday())
		fmt.Println("Readings:")
		fmt.Printf("  Cached days: %d\n", stats.CachedDays)
		fmt.Println("\nProductions:")
		fmt.Printf("  Total: %d\n", stats.TotalProductions)
		fmt.Printf("  Active: %d\n", stats.ActiveProductions)
		fmt.Printf("  Published: %d\n", stats.Published)
		return nil
	},
}

// --- fetch command ---

var fetchCmd = &cobra.Command{
	Use:   "fetch [date]",
	Short: "Fetch and cache the readings for a date (default: today)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date := time.Now()
		if len(args) == 1 {
			var err error
			date, err = time.Parse("2006-01-02", args[0])
			if err != nil {
				return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", args[0])
			}
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(db, cfg)
		rs, err := pipe.FetchReadings(cmd.Context(), date)
		if err != nil {
			if err == production.ErrNotFound {
				return fmt.Errorf("no readings available for %s", date.Format("2006-01-02"))
			}
			return err
		}

		fmt.Printf("%s (%s)\n", rs.DayName, rs.Color)
		for _, r := range rs.Readings {
			fmt.Printf("  %s", r.Kind)
			if r.Reference != "" {
				fmt.Printf("  [%s]", r.Reference)
			}
			fmt.Println()
		}
		return nil
	},
}

// --- select command ---

var selectCmd = &cobra.Command{
	Use:   "select <date> <kind>",
	Short: "Open a production for a reading (e.g. select 2026-09-01 Evangelho)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := time.Parse("2006-01-02", args[0]); err != nil {
			return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", args[0])
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(db, cfg)
		st, err := pipe.SelectForWork(args[0], args[1])
		if err != nil {
			return err
		}

		fmt.Printf("Production %s is open (%d/%d stages done).\n",
			st.Key, st.Flags.CompletedCount(), len(production.Stages))
		return nil
	},
}

// --- list command ---

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List active and in-progress productions",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		statuses, err := db.ListActiveOrInProgress()
		if err != nil {
			return err
		}
		if len(statuses) == 0 {
			fmt.Println("No open productions. Start one with: liturgycast select <date> <kind>")
			return nil
		}

		for _, st := range statuses {
			class := production.Classify(st.Flags, st.Active)
			fmt.Printf("  %-40s %-12s %d/%d\n",
				st.Key, class, st.Flags.CompletedCount(), len(production.Stages))
		}
		return nil
	},
}

// --- stage command ---

var stageCmd = &cobra.Command{
	Use:   "stage <key> <stage>",
	Short: "Run a single stage for a production",
	Long:  "Stages: script, images, audio, overlay, captions, video, publish.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		stage := production.Stage(args[1])
		if !production.IsValidStage(stage) {
			return fmt.Errorf("unknown stage %q", stage)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(db, cfg)
		st, err := runStage(cmd.Context(), pipe, key, stage)
		if err != nil {
			return err
		}

		fmt.Printf("Stage %s done for %s (%d/%d stages).\n",
			stage, key, st.Flags.CompletedCount(), len(production.Stages))
		return nil
	},
}

func runStage(ctx context.Context, pipe *pipeline.Pipeline, key string, stage production.Stage) (*production.ProductionStatus, error) {
	switch stage {
	case production.StageScript:
		return pipe.RunScript(ctx, key)
	case production.StageImages:
		return pipe.RunImages(ctx, key)
	case production.StageAudio:
		return pipe.RunAudio(ctx, key)
	case production.StageOverlay:
		return pipe.ConfigureOverlay(ctx, key, nil)
	case production.StageCaptions:
		return pipe.RunCaptions(ctx, key)
	case production.StageVideo:
		return pipe.RunVideo(ctx, key)
	case production.StagePublish:
		return pipe.RunPublish(ctx, key)
	}
	return nil, fmt.Errorf("unknown stage %q", stage)
}

// --- run command ---

var runCmd = &cobra.Command{
	Use:   "run <key>",
	Short: "Run every remaining stage for a production in order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(db, cfg)
		results := pipe.Run(cmd.Context(), args[0])

		failed := false
		for i, step := range results {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(production.Stages), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
				failed = true
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if failed {
			return fmt.Errorf("pipeline stopped early")
		}
		fmt.Println("\nProduction complete! Run 'liturgycast serve' to review it.")
		return nil
	},
}

// --- close / reset commands ---

var closeCmd = &cobra.Command{
	Use:   "close <key>",
	Short: "Close a production, keeping its progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(db, cfg)
		if err := pipe.Deactivate(args[0]); err != nil {
			if err == production.ErrNotFound {
				return fmt.Errorf("production %q not found", args[0])
			}
			return err
		}
		fmt.Printf("Closed %s.\n", args[0])
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset <key>",
	Short: "Discard a production's progress entirely",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(db, cfg)
		if err := pipe.Reset(args[0]); err != nil {
			return err
		}
		fmt.Printf("Reset %s. The cached readings are kept.\n", args[0])
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		pipe := pipeline.New(db, cfg)
		fmt.Printf("Starting dashboard at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, pipe, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "liturgycast.db")
	return database.Open(dbPath)
}
