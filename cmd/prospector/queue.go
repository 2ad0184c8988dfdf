package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/calebmorris/prospector/internal/dashboard"
	"github.com/calebmorris/prospector/internal/queue"
	"github.com/calebmorris/prospector/internal/schema"
	"github.com/calebmorris/prospector/internal/ui"
)

var (
	queuePhases   []string
	queuePriority int

	queueListStatus string

	queueProgressPct   int
	queueProgressPhase string

	queueFailMessage string
)

var queueCmd = &cobra.Command{
	Use:     "queue",
	GroupID: "research",
	Short:   "Manage the research workflow queue",
	Long: `Track research work per account. Items move queued -> active ->
completed (or failed). The queue is purely local bookkeeping; it never
participates in sync.`,
}

func openQueue() (*queue.Queue, func(), error) {
	database, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	q, err := queue.New(database, nil)
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	// Queue transitions show up on the daemon's dashboard when one is
	// running; best effort otherwise.
	q.NotifyUpdates(dashboard.NewPublisher(cfg.Dashboard.Addr, nil).PublishQueueUpdate)
	return q, func() { database.Close() }, nil
}

var queueAddCmd = &cobra.Command{
	Use:   "add <account-local-id>",
	Short: "Enqueue research for an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, closeStore, err := openQueue()
		if err != nil {
			return err
		}
		defer closeStore()

		id, err := q.Enqueue(cmd.Context(), args[0], queuePhases, queuePriority)
		if err != nil {
			return err
		}
		fmt.Printf("%s Enqueued %s\n", ui.RenderPass("✓"), id)
		return nil
	},
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queue items by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, closeStore, err := openQueue()
		if err != nil {
			return err
		}
		defer closeStore()

		items, err := q.ListByStatus(cmd.Context(), schema.QueueStatus(queueListStatus))
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Printf("No %s items.\n", queueListStatus)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tACCOUNT\tPRIORITY\tPHASE\tPROGRESS\tPHASES")
		for _, item := range items {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d%%\t%s\n",
				ui.RenderDim(shortID(item.ID)), item.AccountName, item.Priority,
				item.CurrentPhase, item.ProgressPercentage,
				strings.Join(item.Phases, ","))
		}
		return w.Flush()
	},
}

var queueStartCmd = &cobra.Command{
	Use:   "start <queue-id>",
	Short: "Mark a queued item active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, closeStore, err := openQueue()
		if err != nil {
			return err
		}
		defer closeStore()
		return q.MarkStarted(cmd.Context(), args[0])
	},
}

var queueProgressCmd = &cobra.Command{
	Use:   "progress <queue-id>",
	Short: "Update an active item's progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, closeStore, err := openQueue()
		if err != nil {
			return err
		}
		defer closeStore()
		return q.MarkProgress(cmd.Context(), args[0], queueProgressPct, queueProgressPhase)
	},
}

var queueDoneCmd = &cobra.Command{
	Use:   "done <queue-id>",
	Short: "Mark an active item completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, closeStore, err := openQueue()
		if err != nil {
			return err
		}
		defer closeStore()
		return q.MarkCompleted(cmd.Context(), args[0])
	},
}

var queueFailCmd = &cobra.Command{
	Use:   "fail <queue-id>",
	Short: "Mark an active item failed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, closeStore, err := openQueue()
		if err != nil {
			return err
		}
		defer closeStore()
		return q.MarkFailed(cmd.Context(), args[0], queueFailMessage)
	},
}

func init() {
	queueAddCmd.Flags().StringSliceVar(&queuePhases, "phases", []string{"discovery", "enrichment", "scoring"}, "research phases, in order")
	queueAddCmd.Flags().IntVar(&queuePriority, "priority", 0, "priority (higher runs first)")

	queueListCmd.Flags().StringVar(&queueListStatus, "status", "queued", "status: queued, active, completed, failed")

	queueProgressCmd.Flags().IntVar(&queueProgressPct, "percent", 0, "progress percentage (0-100)")
	queueProgressCmd.Flags().StringVar(&queueProgressPhase, "phase", "", "current phase")

	queueFailCmd.Flags().StringVar(&queueFailMessage, "message", "", "failure reason")

	queueCmd.AddCommand(queueAddCmd, queueListCmd, queueStartCmd, queueProgressCmd, queueDoneCmd, queueFailCmd)
	rootCmd.AddCommand(queueCmd)
}
