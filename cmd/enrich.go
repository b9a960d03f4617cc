package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/crm-enrich/internal/model"
	"github.com/sells-group/crm-enrich/internal/resolver"
	"github.com/sells-group/crm-enrich/internal/store"
	"github.com/sells-group/crm-enrich/pkg/datagen"
)

var (
	enrichLimit       int
	enrichConcurrency int
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Resolve missing LinkedIn URLs through the provider cascade",
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

		rcfg, err := resolver.LoadConfig(cfg.Enrich.ResolverPath)
		if err != nil {
			return eris.Wrap(err, "enrich: load resolver config")
		}
		cascade := resolver.NewCascade(dg, initLinkup(), initExa(), rcfg)

		limit := enrichLimit
		if !cmd.Flags().Changed("limit") {
			limit = cfg.Enrich.Limit
		}

		contacts, err := st.ListMissingLinkedIn(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "enrich: list contacts")
		}
		if len(contacts) == 0 {
			zap.L().Info("no contacts are missing a LinkedIn URL")
			return nil
		}

		out := cmd.OutOrStdout()
		startedAt := time.Now().UTC()

		var mu sync.Mutex
		var resolved, missed, failed int

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(enrichConcurrency)

		for _, c := range contacts {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				url, source, err := enrichContact(gctx, st, dg, cascade, c)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err != nil:
					failed++
					zap.L().Warn("enrich failed",
						zap.Int64("contact_id", c.ID),
						zap.String("email", c.Email),
						zap.Error(err),
					)
				case url == "":
					missed++
					zap.L().Info("no profile found",
						zap.Int64("contact_id", c.ID),
						zap.String("email", c.Email),
					)
				default:
					resolved++
					fmt.Fprintf(out, "✓ %s → %s (via %s)\n", c.Email, url, source)
				}
				return nil
			})
		}
		g.Wait() //nolint:errcheck

		recordRun(ctx, st, "enrich", startedAt, len(contacts), resolved, failed)
		fmt.Fprintf(out, "\nResolved %d/%d contacts (%d not found, %d failed)\n",
			resolved, len(contacts), missed, failed)

		if ctx.Err() != nil {
			return eris.Wrap(ctx.Err(), "enrich interrupted")
		}
		return nil
	},
}

// enrichContact resolves a LinkedIn URL for the contact and, on a hit, deep
// enriches title/company/location/industry from the profile behind it. The
// URL is saved even when the deep fetch fails; a later profiles run retries.
func enrichContact(ctx context.Context, st store.Store, dg datagen.Client, cascade *resolver.Resolver, c model.Contact) (url, source string, err error) {
	id := resolver.IdentityFromContact(c)
	url, source = cascade.Resolve(ctx, id)
	if url == "" {
		return "", "", nil
	}

	upd := model.ProfileUpdate{LinkedInURL: &url, EnrichSource: &source}

	profile, fetchErr := resolver.FetchProfile(ctx, dg, url)
	if fetchErr == nil && profile != nil {
		upd.Title = profile.Title
		upd.Company = profile.Company
		upd.Location = profile.Location
		upd.Industry = profile.Industry
	}

	if err := st.UpdateProfile(ctx, c.ID, upd); err != nil {
		return "", "", eris.Wrapf(err, "enrich: save profile for contact %d", c.ID)
	}
	if fetchErr != nil {
		zap.L().Warn("deep enrichment failed, URL saved",
			zap.Int64("contact_id", c.ID),
			zap.String("url", url),
			zap.Error(fetchErr),
		)
		return url, source, nil
	}

	if err := st.MarkProfileFetched(ctx, c.ID); err != nil {
		return "", "", eris.Wrapf(err, "enrich: mark contact %d fetched", c.ID)
	}
	return url, source, nil
}

func init() {
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 20, "max contacts to enrich")
	enrichCmd.Flags().IntVar(&enrichConcurrency, "concurrency", 3, "parallel enrichment workers")
	rootCmd.AddCommand(enrichCmd)
}
