package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/calebmorris/prospector/internal/merge"
	"github.com/calebmorris/prospector/internal/schema"
)

var (
	mergeBaseSource     string
	mergeIncomingSource string
)

var mergeCmd = &cobra.Command{
	Use:     "merge <base.json> <incoming.json>",
	GroupID: "research",
	Short:   "Preview a contact merge without persisting it",
	Long: `Run the field conflict resolver over two contact JSON files and
print the full merge result: merged record, per-field provenance,
conflict log, quality score, and source summary. Nothing is written to
the mirror; use this to preview how two provider records reconcile.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		baseSource, err := parseSourceName(mergeBaseSource)
		if err != nil {
			return err
		}
		incomingSource, err := parseSourceName(mergeIncomingSource)
		if err != nil {
			return err
		}

		base, err := readContactFile(args[0])
		if err != nil {
			return err
		}
		incoming, err := readContactFile(args[1])
		if err != nil {
			return err
		}

		result, err := merge.NewResolver().Resolve(base, incoming, baseSource, incomingSource)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func readContactFile(path string) (*schema.Contact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read contact file: %w", err)
	}
	var c schema.Contact
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse contact file %s: %w", path, err)
	}
	return &c, nil
}

func init() {
	mergeCmd.Flags().StringVar(&mergeBaseSource, "base-source", "workspace", "trust level of the base record")
	mergeCmd.Flags().StringVar(&mergeIncomingSource, "incoming-source", "profile", "trust level of the incoming record")
	rootCmd.AddCommand(mergeCmd)
}
