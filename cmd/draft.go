package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crm-enrich/internal/drafter"
	"github.com/sells-group/crm-enrich/internal/model"
)

var (
	draftLimit int
	draftID    int64
	draftShow  bool
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Generate follow-up email drafts for contacts that need one",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		client, err := initAnthropic()
		if err != nil {
			return err
		}

		var contacts []model.Contact
		if draftID > 0 {
			c, err := st.GetContact(ctx, draftID)
			if err != nil {
				return eris.Wrap(err, "draft: load contact")
			}
			contacts = []model.Contact{c}
		} else {
			contacts, err = st.ListNeedsFollowup(ctx, draftLimit)
			if err != nil {
				return eris.Wrap(err, "draft: list contacts")
			}
			if len(contacts) == 0 {
				zap.L().Info("no contacts need a follow-up")
				return nil
			}
		}

		gen := drafter.New(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens)
		out := cmd.OutOrStdout()
		var saved int

		for _, c := range contacts {
			if ctx.Err() != nil {
				break
			}

			draft, err := gen.Generate(ctx, c)
			if err != nil {
				zap.L().Warn("draft generation failed",
					zap.Int64("contact_id", c.ID),
					zap.String("email", c.Email),
					zap.Error(err),
				)
				continue
			}
			if err := st.SaveDraft(ctx, c.ID, draft); err != nil {
				return eris.Wrap(err, "draft: save")
			}
			saved++

			fmt.Fprintf(out, "✓ %s: %s\n", c.Email, draft.Subject)
			if draftShow {
				fmt.Fprintf(out, "\n%s\n\n", draft.Body)
			}
		}

		fmt.Fprintf(out, "\nDrafted %d/%d contacts\n", saved, len(contacts))

		if ctx.Err() != nil {
			return eris.Wrap(ctx.Err(), "draft interrupted")
		}
		return nil
	},
}

func init() {
	draftCmd.Flags().IntVar(&draftLimit, "limit", 10, "max follow-up drafts to generate")
	draftCmd.Flags().Int64Var(&draftID, "id", 0, "draft a single contact by id instead")
	draftCmd.Flags().BoolVar(&draftShow, "show", false, "print draft bodies")
	rootCmd.AddCommand(draftCmd)
}
