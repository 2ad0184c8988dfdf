package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/calebmorris/prospector/internal/daemon"
	"github.com/calebmorris/prospector/internal/dashboard"
	"github.com/calebmorris/prospector/internal/mapping"
	syncengine "github.com/calebmorris/prospector/internal/sync"
	"github.com/calebmorris/prospector/internal/ui"
)

var daemonNoDashboard bool

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "sync",
	Short:   "Run the background sync loop and dashboard",
	Long: `Run the sync daemon: pull all entity types on the configured
interval, retry with backoff after failed passes, hot-reload the field
mapping override on change, and serve the monitoring dashboard.

Stops cleanly on SIGINT/SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close()

		client, err := newRemoteClient()
		if err != nil {
			return err
		}

		logWriter := io.Writer(os.Stderr)
		if cfg.Log.File != "" {
			logWriter = &lumberjack.Logger{
				Filename:   cfg.Log.File,
				MaxSize:    cfg.Log.MaxSizeMB,
				MaxBackups: cfg.Log.MaxBackups,
				MaxAge:     cfg.Log.MaxAgeDays,
			}
		}

		var server *dashboard.Server
		var handler *dashboard.Handler
		if !daemonNoDashboard {
			server, err = dashboard.NewServer(dashboard.Config{
				Addr:   cfg.Dashboard.Addr,
				Store:  database,
				Logger: log.New(logWriter, "[dashboard] ", log.LstdFlags),
			})
			if err != nil {
				return err
			}
			handler = dashboard.NewHandler(server, log.New(logWriter, "[dashboard] ", log.LstdFlags))
		}

		engineCfg := syncengine.Config{
			DB:     database,
			Client: client,
			Logger: log.New(logWriter, "[sync] ", log.LstdFlags),
		}
		if handler != nil {
			engineCfg.Notify = handler.OnSyncResult
		}
		if cfg.Sync.MappingPath != "" {
			if table, err := mapping.LoadFile(cfg.Sync.MappingPath); err == nil {
				engineCfg.Mappings = table
			} else {
				return err
			}
		}
		engine, err := syncengine.New(engineCfg)
		if err != nil {
			return err
		}

		d, err := daemon.New(engine, &daemon.Config{
			SyncInterval: cfg.Sync.Interval,
			RetryBackoff: cfg.Sync.Backoff,
			MappingPath:  cfg.Sync.MappingPath,
			Logger:       log.New(logWriter, "[daemon] ", log.LstdFlags),
		})
		if err != nil {
			return err
		}

		if server != nil {
			if err := server.Start(); err != nil {
				return err
			}
			defer server.Stop()
			fmt.Printf("%s Dashboard on http://%s\n", ui.RenderAccent("▸"), server.GetAddr())
		}
		fmt.Printf("%s Syncing every %v (Ctrl-C to stop)\n", ui.RenderAccent("▸"), cfg.Sync.Interval)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := d.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		fmt.Println("Stopped.")
		return nil
	},
}

func init() {
	daemonCmd.Flags().BoolVar(&daemonNoDashboard, "no-dashboard", false, "disable the monitoring dashboard")
	rootCmd.AddCommand(daemonCmd)
}
