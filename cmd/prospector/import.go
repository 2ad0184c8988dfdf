package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calebmorris/prospector/internal/dashboard"
	"github.com/calebmorris/prospector/internal/enrich"
	"github.com/calebmorris/prospector/internal/merge"
	"github.com/calebmorris/prospector/internal/ui"
)

var importSource string

var importCmd = &cobra.Command{
	Use:     "import <file.jsonl>",
	GroupID: "research",
	Short:   "Import enrichment provider contacts",
	Long: `Import a JSON Lines export of provider contacts and merge each
record into the mirror through the field conflict resolver. Records are
matched to existing contacts by email; unmatched records become new
local contacts.

The --source flag names the provider trust level:
  manual    deliberate human entry
  profile   scraped from public profiles
  inferred  algorithmically inferred`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := parseSourceName(importSource)
		if err != nil {
			return err
		}
		if source.Name == merge.SourceWorkspace.Name {
			return fmt.Errorf("the workspace source is reserved for the sync engine")
		}

		database, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close()

		importer, err := enrich.New(database, nil, nil)
		if err != nil {
			return err
		}
		// Conflicts show up on the daemon's dashboard when one is
		// running; best effort otherwise.
		importer.NotifyConflicts(dashboard.NewPublisher(cfg.Dashboard.Addr, nil).PublishConflict)

		summary, err := importer.ImportFile(cmd.Context(), args[0], source)
		if err != nil {
			return err
		}

		fmt.Printf("%s Imported from %s: %d processed, %d created, %d merged, %d conflicts, %d skipped\n",
			ui.RenderPass("✓"), source.Name, summary.Processed, summary.Created,
			summary.Merged, summary.Conflicts, summary.Skipped)
		return nil
	},
}

// parseSourceName maps a CLI source name to its static trust profile.
func parseSourceName(name string) (merge.Source, error) {
	switch name {
	case merge.SourceWorkspace.Name:
		return merge.SourceWorkspace, nil
	case merge.SourceManual.Name:
		return merge.SourceManual, nil
	case merge.SourceProfile.Name:
		return merge.SourceProfile, nil
	case merge.SourceInferred.Name:
		return merge.SourceInferred, nil
	default:
		return merge.Source{}, fmt.Errorf("unknown source %q (workspace, manual, profile, inferred)", name)
	}
}

func init() {
	importCmd.Flags().StringVar(&importSource, "source", "profile", "provider trust level: manual, profile, inferred")
	rootCmd.AddCommand(importCmd)
}
