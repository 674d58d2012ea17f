package main

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"imagededup/config"
	"imagededup/database"
	"imagededup/logging"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	dbPath   string
	logPath  string
	debug    bool
	progress bool

	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "imagededup",
	Short: "Clean up experiment photos and sensor logs",
	Long: `imagededup moves near-duplicate photos out of a capture folder, either by
comparing every photo against the ones kept before it (dedup) or against a
single reference photo (similar). It also sorts photos by capture date and
trims sensor CSV logs to a time window.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseLogger()
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "database", "", "journal database path (no journal if empty)")
	rootCmd.PersistentFlags().StringVar(&logPath, "logfile", "", "write logs to this file instead of stderr")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&progress, "progress", false, "show a progress bar while scanning")

	rootCmd.AddCommand(dedupCmd)
	rootCmd.AddCommand(similarCmd)
	rootCmd.AddCommand(sortCmd)
	rootCmd.AddCommand(csvFilterCmd)
	rootCmd.AddCommand(runsCmd)
}

func initConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded

	flags := cmd.Flags()
	if flags.Changed("database") {
		cfg.Database = dbPath
	}
	if flags.Changed("logfile") {
		cfg.LogFile = logPath
	}
	if flags.Changed("debug") {
		cfg.Debug = debug
	}
	if flags.Changed("progress") {
		cfg.Progress = progress
	}

	if err := logging.SetupLogger(cfg.LogFile, cfg.Debug); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to setup logging: %v\n", err)
	} else if cfg.Debug && cfg.LogFile != "" {
		fmt.Printf("Debug mode enabled. Logging to: %s\n", cfg.LogFile)
	}
	return nil
}

// openJournal opens the journal database if one is configured. A nil
// handle means journaling is off.
func openJournal(path string) (*sql.DB, error) {
	if path == "" {
		return nil, nil
	}

	var db *sql.DB
	var err error
	const maxRetries = 3
	for i := 0; i < maxRetries; i++ {
		db, err = database.InitDatabase(path)
		if err == nil {
			return db, nil
		}
		if i < maxRetries-1 {
			logging.LogWarning("Error initializing database (attempt %d/%d): %v - retrying...",
				i+1, maxRetries, err)
			time.Sleep(time.Second * time.Duration(i+1))
		}
	}
	return nil, fmt.Errorf("error initializing database after %d attempts: %w", maxRetries, err)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
