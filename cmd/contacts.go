package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/crm-enrich/internal/export"
	"github.com/sells-group/crm-enrich/internal/store"
)

var (
	contactsLimit    int
	contactsMinScore int
	contactsShowAll  bool
	contactsExport   string
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Print today's top-priority contacts, optionally exporting a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		contacts, err := st.TopContacts(ctx, store.ContactFilter{
			Limit:    contactsLimit,
			MinScore: contactsMinScore,
		})
		if err != nil {
			return eris.Wrap(err, "contacts: list")
		}

		out := cmd.OutOrStdout()
		opts := export.ConsoleOptions{ShowAll: contactsShowAll}
		if err := export.WriteConsole(out, contacts, opts); err != nil {
			return eris.Wrap(err, "contacts: print")
		}

		if contactsExport != "" {
			// File extension picks the format; anything but .xlsx writes CSV.
			if strings.HasSuffix(strings.ToLower(contactsExport), ".xlsx") {
				err = export.WriteXLSX(contactsExport, contacts)
			} else {
				err = export.WriteCSVFile(contactsExport, contacts)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\n💾 Exported to %s\n", contactsExport)
		}

		return nil
	},
}

func init() {
	contactsCmd.Flags().IntVar(&contactsLimit, "limit", 10, "number of contacts to show")
	contactsCmd.Flags().IntVar(&contactsMinScore, "min-score", 0, "minimum priority score")
	contactsCmd.Flags().BoolVar(&contactsShowAll, "all", false, "include location and engagement detail")
	contactsCmd.Flags().StringVar(&contactsExport, "export", "", "also write the list to a file (.xlsx or CSV)")
	rootCmd.AddCommand(contactsCmd)
}
