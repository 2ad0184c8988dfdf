package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/calebmorris/prospector/internal/db"
	"github.com/calebmorris/prospector/internal/ui"
)

var (
	querySince    string
	queryMinScore float64
	queryLimit    int

	queryIndustry string
	queryDomain   string

	queryAccount    string
	queryMinQuality float64
	queryOrderBy    string
)

var queryCmd = &cobra.Command{
	Use:     "query",
	GroupID: "research",
	Short:   "Query the local mirror",
	Long: `Query mirrored records. All queries run against the local SQLite
mirror and never touch the remote system.`,
}

var queryAccountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List mirrored accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close()

		filter := db.AccountFilter{
			Industry:     queryIndustry,
			Domain:       queryDomain,
			MinLeadScore: queryMinScore,
			Limit:        queryLimit,
		}
		if filter.UpdatedSince, err = parseSince(querySince); err != nil {
			return err
		}

		accounts, err := database.ListAccounts(cmd.Context(), filter)
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			fmt.Println("No matching accounts.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "LOCAL ID\tNAME\tDOMAIN\tINDUSTRY\tSCORE\tUPDATED")
		for _, a := range accounts {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f\t%s\n",
				ui.RenderDim(shortID(a.LocalID)), a.Name, a.Domain, a.Industry,
				a.LeadScore, a.LastUpdatedAt.Local().Format("2006-01-02"))
		}
		return w.Flush()
	},
}

var queryContactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "List mirrored contacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close()

		filter := db.ContactFilter{
			AccountLocalID:  queryAccount,
			MinLeadScore:    queryMinScore,
			MinQualityScore: queryMinQuality,
			OrderBy:         queryOrderBy,
			Limit:           queryLimit,
		}
		if filter.UpdatedSince, err = parseSince(querySince); err != nil {
			return err
		}

		contacts, err := database.ListContacts(cmd.Context(), filter)
		if err != nil {
			return err
		}
		if len(contacts) == 0 {
			fmt.Println("No matching contacts.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "LOCAL ID\tNAME\tEMAIL\tTITLE\tLEAD\tQUALITY")
		for _, c := range contacts {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f\t%.1f\n",
				ui.RenderDim(shortID(c.LocalID)), c.DisplayName(), c.Email, c.Title,
				c.LeadScore, c.QualityScore)
		}
		return w.Flush()
	},
}

// parseSince turns a natural-language time expression ("last week",
// "3 days ago", "yesterday") into a cutoff time.
func parseSince(text string) (time.Time, error) {
	if text == "" {
		return time.Time{}, nil
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	result, err := w.Parse(text, time.Now())
	if err != nil {
		return time.Time{}, fmt.Errorf("parse --since %q: %w", text, err)
	}
	if result == nil {
		return time.Time{}, fmt.Errorf("could not understand --since %q (try \"last week\" or \"3 days ago\")", text)
	}
	return result.Time, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	for _, c := range []*cobra.Command{queryAccountsCmd, queryContactsCmd} {
		c.Flags().StringVar(&querySince, "since", "", "only records updated since a natural-language time (\"last week\")")
		c.Flags().Float64Var(&queryMinScore, "min-lead-score", 0, "minimum lead score")
		c.Flags().IntVar(&queryLimit, "limit", 50, "maximum rows (0 = all)")
	}
	queryAccountsCmd.Flags().StringVar(&queryIndustry, "industry", "", "filter by industry")
	queryAccountsCmd.Flags().StringVar(&queryDomain, "domain", "", "filter by domain")

	queryContactsCmd.Flags().StringVar(&queryAccount, "account", "", "filter by account local id")
	queryContactsCmd.Flags().Float64Var(&queryMinQuality, "min-quality", 0, "minimum data-quality score")
	queryContactsCmd.Flags().StringVar(&queryOrderBy, "order-by", "", "order: lead_score, quality_score, last_updated_at, full_name")

	queryCmd.AddCommand(queryAccountsCmd, queryContactsCmd)
	rootCmd.AddCommand(queryCmd)
}
