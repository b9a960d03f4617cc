// Package classifier derives a contact's email engagement status and
// follow-up flag from sent/received counts and timestamps. All functions are
// pure: they accept already-fetched data and never touch I/O, so callers can
// recompute freely and get identical results.
package classifier

import (
	"sort"
	"strings"
	"time"

	"github.com/sells-group/crm-enrich/internal/model"
)

// FollowupAfterDays is the follow-up window: a message sent this many whole
// days ago with no newer reply flags the contact for follow-up.
const FollowupAfterDays = 3

// Classify derives the engagement status and follow-up flag for a contact.
//
// Status precedence: no sends at all means not_contacted. Any reply means
// replied, even when the reply predates a more recent unanswered send; the
// follow-up flag is still computed independently so a stale-replied contact
// can be replied with needsFollowup true.
func Classify(sent, received int, lastSent, lastReceived *time.Time, now time.Time) (model.EmailStatus, bool) {
	if sent == 0 {
		return model.StatusNotContacted, false
	}

	followup := NeedsFollowup(lastSent, lastReceived, now)

	if received > 0 {
		return model.StatusReplied, followup
	}
	if followup {
		return model.StatusNeedsFollowup, true
	}
	return model.StatusContacted, false
}

// NeedsFollowup reports whether the last sent message is 3+ whole days old
// with no reply since. Naive timestamps are treated as UTC.
func NeedsFollowup(lastSent, lastReceived *time.Time, now time.Time) bool {
	if lastSent == nil {
		return false
	}

	days := int(now.UTC().Sub(lastSent.UTC()).Hours() / 24)
	if days < FollowupAfterDays {
		return false
	}

	// Either they never replied, or their last reply came before our last
	// message went out.
	return lastReceived == nil || lastReceived.UTC().Before(lastSent.UTC())
}

// Partition splits raw mail events into sent and received timestamp lists,
// each sorted most recent first. An event counts as received when the
// contact's address appears (case-insensitively) in its from field;
// otherwise we sent it. Events whose date cannot be parsed are excluded from
// both the lists and the totals, matching the upstream tracker's behavior.
func Partition(events []model.EmailEvent, contactEmail string) (sent, received []time.Time) {
	needle := strings.ToLower(contactEmail)

	for _, ev := range events {
		ts, ok := ParseEventDate(ev.Date)
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(ev.From), needle) {
			received = append(received, ts)
		} else {
			sent = append(sent, ts)
		}
	}

	sortDesc(sent)
	sortDesc(received)
	return sent, received
}

// TrackingFromEvents folds partitioned events into the full set of derived
// engagement fields for one contact.
func TrackingFromEvents(events []model.EmailEvent, contactEmail string, now time.Time) model.Tracking {
	sent, received := Partition(events, contactEmail)

	var lastSent, lastRecv *time.Time
	if len(sent) > 0 {
		lastSent = &sent[0]
	}
	if len(received) > 0 {
		lastRecv = &received[0]
	}

	status, followup := Classify(len(sent), len(received), lastSent, lastRecv, now)
	return model.Tracking{
		Status:         status,
		EmailsSent:     len(sent),
		EmailsReceived: len(received),
		LastSentAt:     lastSent,
		LastRecvAt:     lastRecv,
		NeedsFollowup:  followup,
	}
}

func sortDesc(ts []time.Time) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].After(ts[j]) })
}
