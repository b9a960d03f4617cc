package classifier

import (
	"net/mail"
	"strings"
	"time"
)

// isoLayouts are tried in order after RFC 2822 parsing fails. Layouts
// without a zone are interpreted as UTC.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseEventDate parses a provider date string. Gmail results carry RFC 2822
// dates; other providers return ISO 8601 variants. A failed parse is not an
// error; the event is simply treated as undated by the caller.
func ParseEventDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	if t, err := mail.ParseDate(raw); err == nil {
		return t.UTC(), true
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}
