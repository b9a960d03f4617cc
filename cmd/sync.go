package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crm-enrich/internal/model"
	"github.com/sells-group/crm-enrich/internal/store"
	"github.com/sells-group/crm-enrich/internal/syncer"
)

var (
	syncLimit    int
	syncMinScore int
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync email engagement for top-priority contacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		dg, err := initDatagen()
		if err != nil {
			return err
		}

		limit := syncLimit
		if !cmd.Flags().Changed("limit") {
			limit = cfg.Sync.Limit
		}
		minScore := syncMinScore
		if !cmd.Flags().Changed("min-score") {
			minScore = cfg.Sync.MinScore
		}

		contacts, err := st.TopContacts(ctx, store.ContactFilter{
			Limit:    limit,
			MinScore: minScore,
		})
		if err != nil {
			return eris.Wrap(err, "sync: list contacts")
		}
		if len(contacts) == 0 {
			zap.L().Info("no contacts matched the sync criteria")
			return nil
		}

		zap.L().Info("syncing contacts",
			zap.Int("contacts", len(contacts)),
			zap.Int("workers", cfg.Sync.MaxWorkers),
		)

		startedAt := time.Now().UTC()
		s := syncer.New(dg, st, syncerOptions()...)
		tally := s.SyncBatch(ctx, contacts)
		recordRun(ctx, st, "sync", startedAt, tally.Total, tally.Synced, tally.Failed)
		printTally(cmd, tally)

		if ctx.Err() != nil {
			return eris.Wrap(ctx.Err(), "sync interrupted")
		}
		return nil
	},
}

func printTally(cmd *cobra.Command, tally *syncer.Tally) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nSynced %d/%d contacts (%d failed)\n", tally.Synced, tally.Total, tally.Failed)

	for _, status := range []model.EmailStatus{
		model.StatusNotContacted, model.StatusContacted,
		model.StatusReplied, model.StatusNeedsFollowup,
	} {
		if n := tally.ByStatus[status]; n > 0 {
			fmt.Fprintf(out, "  %-15s %d\n", status, n)
		}
	}

	for _, o := range tally.Errors {
		fmt.Fprintf(out, "  ✗ %s: %v\n", o.Contact.Email, o.Err)
	}
}

var syncTouchCmd = &cobra.Command{
	Use:   "touch <contact-id>",
	Short: "Record an outbound email without querying mail history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return eris.Wrapf(err, "invalid contact id %q", args[0])
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		s := syncer.New(nil, st, syncerOptions()...)
		tr, err := s.UpdateAfterSend(ctx, model.Contact{ID: id})
		if err != nil {
			return eris.Wrap(err, "sync touch")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Updated: %s | Sent: %d\n", tr.Status, tr.EmailsSent)
		return nil
	},
}

func init() {
	syncCmd.Flags().IntVar(&syncLimit, "limit", 50, "max contacts to sync")
	syncCmd.Flags().IntVar(&syncMinScore, "min-score", 1, "minimum priority score")
	syncCmd.AddCommand(syncTouchCmd)
	rootCmd.AddCommand(syncCmd)
}
