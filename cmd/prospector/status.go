package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/calebmorris/prospector/internal/schema"
	"github.com/calebmorris/prospector/internal/ui"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show per-entity-type sync health",
	Long: `Show the mirror's sync status table: last pull time, record counts,
conflicts detected, and state per entity type.

States: synced (clean pull), drift (pull succeeded but records were
skipped), error (the pull itself failed; the message names the cause).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close()

		statuses, err := database.GetSyncStatuses(cmd.Context())
		if err != nil {
			return err
		}

		switch statusFormat {
		case "yaml":
			out, err := yaml.Marshal(statuses)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(statuses)
		case "table":
			printStatusTable(statuses)
			return nil
		default:
			return fmt.Errorf("unknown format %q (table, yaml, json)", statusFormat)
		}
	},
}

func printStatusTable(statuses []*schema.SyncStatus) {
	if len(statuses) == 0 {
		fmt.Println("No sync has run yet. Try: prospector sync")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ENTITY TYPE\tSTATE\tLAST PULL\tREMOTE\tLOCAL\tCONFLICTS\tMESSAGE")
	for _, s := range statuses {
		state := string(s.Status)
		switch s.Status {
		case schema.SyncStateSynced:
			state = ui.RenderPass(state)
		case schema.SyncStateDrift:
			state = ui.RenderWarn(state)
		case schema.SyncStateError:
			state = ui.RenderFail(state)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			s.EntityType, state, formatTimePtr(s.LastRemotePullAt),
			s.RemoteRecordCount, s.LocalRecordCount, s.ConflictsDetected,
			s.Message)
	}
	w.Flush()
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "table", "output format: table, yaml, json")
	rootCmd.AddCommand(statusCmd)
}
