package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/calebmorris/prospector/internal/config"
	"github.com/calebmorris/prospector/internal/db"
	"github.com/calebmorris/prospector/internal/remote"
)

var (
	cfgFile string
	dbPath  string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "prospector",
	Short: "Local mirror and enrichment toolkit for account research",
	Long: `Prospector keeps a local SQLite mirror of accounts, contacts,
timeline events, and partnerships pulled from a workspace system of
record, merges contact records from multiple enrichment providers, and
tracks research work per account.

The mirror is the query surface: all reads are local and fast. A
background daemon (prospector daemon) keeps it fresh; prospector sync
forces a pull on demand.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if dbPath != "" {
			cfg.DB.Path = dbPath
		}
		return nil
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./prospector.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the local mirror database (overrides config)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "sync", Title: "Sync commands:"},
		&cobra.Group{ID: "research", Title: "Research commands:"},
	)
}

// openStore opens the mirror database and ensures the schema exists.
func openStore() (*db.DB, error) {
	database, err := db.Open(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("open mirror database: %w", err)
	}
	if err := database.InitSchema(); err != nil {
		database.Close()
		return nil, fmt.Errorf("initialize mirror schema: %w", err)
	}
	return database, nil
}

// newRemoteClient builds the system-of-record client from config.
func newRemoteClient() (remote.Client, error) {
	if cfg.Remote.BaseURL == "" {
		return nil, fmt.Errorf("remote.base_url is not configured (set it in prospector.yaml or PROSPECTOR_REMOTE_BASE_URL)")
	}
	return remote.NewHTTPClient(remote.HTTPClientConfig{
		BaseURL:            cfg.Remote.BaseURL,
		APIToken:           cfg.Remote.APIToken,
		RequestTimeout:     cfg.Remote.RequestTimeout,
		MinRequestInterval: cfg.Remote.MinRequestInterval,
	})
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
