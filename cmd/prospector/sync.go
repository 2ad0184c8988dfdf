package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/calebmorris/prospector/internal/mapping"
	"github.com/calebmorris/prospector/internal/schema"
	syncengine "github.com/calebmorris/prospector/internal/sync"
	"github.com/calebmorris/prospector/internal/ui"
)

var (
	syncTimeout time.Duration
)

var syncCmd = &cobra.Command{
	Use:     "sync [entity-type...]",
	GroupID: "sync",
	Short:   "Pull entity types from the system of record now",
	Long: `Force an on-demand pull into the local mirror, independent of the
background daemon. With no arguments all entity types are pulled:
accounts, contacts, timeline_events, partnerships.

Each entity type syncs in isolation; a failure for one is reported and
recorded in its status row without aborting the others.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		types := make([]schema.EntityType, 0, len(args))
		for _, arg := range args {
			et, err := schema.ParseEntityType(arg)
			if err != nil {
				return err
			}
			types = append(types, et)
		}

		database, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close()

		client, err := newRemoteClient()
		if err != nil {
			return err
		}

		engineCfg := syncengine.Config{DB: database, Client: client}
		if cfg.Sync.MappingPath != "" {
			table, err := mapping.LoadFile(cfg.Sync.MappingPath)
			if err != nil {
				return err
			}
			engineCfg.Mappings = table
		}
		engine, err := syncengine.New(engineCfg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), syncTimeout)
		defer cancel()

		fmt.Printf("%s Pulling from %s...\n", ui.RenderAccent("⇅"), cfg.Remote.BaseURL)
		results := engine.Sync(ctx, types...)

		failed := false
		for _, r := range results {
			switch r.Status {
			case schema.SyncStateSynced:
				fmt.Printf("  %s %-16s fetched=%d upserted=%d (%v)\n",
					ui.RenderPass("✓"), r.EntityType, r.Fetched, r.Upserted,
					r.Duration.Round(time.Millisecond))
			case schema.SyncStateDrift:
				fmt.Printf("  %s %-16s fetched=%d upserted=%d skipped=%d (%v)\n",
					ui.RenderWarn("!"), r.EntityType, r.Fetched, r.Upserted, r.Conflicts,
					r.Duration.Round(time.Millisecond))
			default:
				failed = true
				fmt.Printf("  %s %-16s %v\n", ui.RenderFail("✗"), r.EntityType, r.Err)
			}
		}
		if failed {
			return fmt.Errorf("one or more entity types failed to sync")
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().DurationVar(&syncTimeout, "timeout", 2*time.Minute, "overall time budget for this pull")
	rootCmd.AddCommand(syncCmd)
}
