// Package export renders contact lists to the console, CSV, and XLSX.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sells-group/crm-enrich/internal/model"
)

// ConsoleOptions tunes the console rendering.
type ConsoleOptions struct {
	ShowAll bool // include location and engagement detail
	Now     func() time.Time
}

// WriteConsole pretty-prints the daily contact list.
func WriteConsole(w io.Writer, contacts []model.Contact, opts ConsoleOptions) error {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	if len(contacts) == 0 {
		_, err := fmt.Fprintln(w, "\nNo contacts found with current criteria.\nRun 'crm-enrich score' to calculate scores first.")
		return err
	}

	rule := strings.Repeat("=", 70)
	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintf(w, "📋 Top %d Priority Contacts for %s\n", len(contacts), now().Format("2006-01-02"))
	fmt.Fprintln(w, rule)

	for i, c := range contacts {
		fmt.Fprintf(w, "\n%d. %s [Score: %d] %s\n", i+1, tierIcon(c.PriorityScore), c.PriorityScore, c.DisplayName())
		fmt.Fprintf(w, "   %s @ %s\n", orUnknown(c.Title, "Unknown Title"), orUnknown(c.Company, "Unknown Company"))
		fmt.Fprintf(w, "   📧 %s\n", orUnknown(c.Email, "No email"))
		if c.LinkedInURL != "" {
			fmt.Fprintf(w, "   🔗 %s\n", c.LinkedInURL)
		}
		fmt.Fprintf(w, "   📅 Signed up: %s\n", timeAgo(c.SignupTime(), now()))

		if opts.ShowAll {
			if c.Location != "" {
				fmt.Fprintf(w, "   📍 %s\n", c.Location)
			}
			if c.EmailStatus != "" {
				fmt.Fprintf(w, "   ✉️  %s (sent %d, received %d)\n", c.EmailStatus, c.EmailsSent, c.EmailsReceived)
			}
		}
	}

	_, err := fmt.Fprintf(w, "\n%s\n", rule)
	return err
}

// tierIcon marks the score band next to each contact.
func tierIcon(score int) string {
	switch {
	case score >= 90:
		return "🔥"
	case score >= 75:
		return "⭐"
	case score >= 50:
		return "✓"
	default:
		return "·"
	}
}

// timeAgo renders a timestamp as a rough human-readable age.
func timeAgo(t *time.Time, now time.Time) string {
	if t == nil {
		return "Unknown"
	}

	seconds := now.Sub(*t).Seconds()
	switch {
	case seconds < 60:
		return "Just now"
	case seconds < 3600:
		return plural(int(seconds/60), "minute")
	case seconds < 86400:
		return plural(int(seconds/3600), "hour")
	default:
		return plural(int(seconds/86400), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

func orUnknown(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
