package main

import (
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/crm-enrich/internal/resolver"
)

var (
	profilesLimit       int
	profilesConcurrency int
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Fetch full profile fields for contacts with a resolved LinkedIn URL",
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

		contacts, err := st.ListUnfetchedProfiles(ctx, profilesLimit)
		if err != nil {
			return eris.Wrap(err, "profiles: list contacts")
		}
		if len(contacts) == 0 {
			zap.L().Info("no unfetched profiles")
			return nil
		}

		out := cmd.OutOrStdout()
		startedAt := time.Now().UTC()

		var mu sync.Mutex
		var updated, empty, failed int

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(profilesConcurrency)

		for _, c := range contacts {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				pauseJitter(gctx)
				if gctx.Err() != nil {
					return nil
				}

				upd, err := resolver.FetchProfile(gctx, dg, c.LinkedInURL)
				if err != nil {
					// Leave the row unfetched so the next run retries it.
					mu.Lock()
					failed++
					mu.Unlock()
					zap.L().Warn("profile fetch failed",
						zap.Int64("contact_id", c.ID),
						zap.String("url", c.LinkedInURL),
						zap.Error(err),
					)
					return nil
				}

				mu.Lock()
				defer mu.Unlock()
				if upd != nil {
					if err := st.UpdateProfile(gctx, c.ID, *upd); err != nil {
						failed++
						zap.L().Warn("profile save failed",
							zap.Int64("contact_id", c.ID), zap.Error(err))
						return nil
					}
					updated++
					fmt.Fprintf(out, "✓ %s updated from %s\n", c.Email, c.LinkedInURL)
				} else {
					empty++
					zap.L().Info("profile returned no usable fields",
						zap.Int64("contact_id", c.ID),
						zap.String("url", c.LinkedInURL),
					)
				}

				if err := st.MarkProfileFetched(gctx, c.ID); err != nil {
					zap.L().Warn("could not mark profile fetched",
						zap.Int64("contact_id", c.ID), zap.Error(err))
				}
				return nil
			})
		}
		g.Wait() //nolint:errcheck

		recordRun(ctx, st, "profiles", startedAt, len(contacts), updated, failed)
		fmt.Fprintf(out, "\nFetched %d/%d profiles (%d empty, %d failed)\n",
			updated, len(contacts), empty, failed)

		if ctx.Err() != nil {
			return eris.Wrap(ctx.Err(), "profiles interrupted")
		}
		return nil
	},
}

func init() {
	profilesCmd.Flags().IntVar(&profilesLimit, "limit", 50, "max profiles to fetch")
	profilesCmd.Flags().IntVar(&profilesConcurrency, "concurrency", 3, "parallel fetch workers")
	rootCmd.AddCommand(profilesCmd)
}
