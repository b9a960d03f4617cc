// Package syncer keeps contact email-engagement state current by querying
// mail history, classifying it, and persisting the result.
package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-enrich/internal/classifier"
	"github.com/sells-group/crm-enrich/internal/model"
	"github.com/sells-group/crm-enrich/internal/resilience"
	"github.com/sells-group/crm-enrich/pkg/datagen"
)

const maxMailResults = 50

// MailSearcher is the slice of the gateway client the syncer needs.
type MailSearcher interface {
	SearchMail(ctx context.Context, query string, maxResults int) ([]datagen.EmailMessage, error)
}

// TrackingStore persists per-contact engagement state.
type TrackingStore interface {
	GetTracking(ctx context.Context, contactID int64) (model.Tracking, error)
	UpdateTracking(ctx context.Context, contactID int64, tr model.Tracking) error
}

// Syncer runs per-contact sync units and batches of them.
type Syncer struct {
	mail  MailSearcher
	store TrackingStore

	workers   int
	minJitter time.Duration
	maxJitter time.Duration
	retry     resilience.RetryConfig
	now       func() time.Time
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithWorkers bounds batch concurrency.
func WithWorkers(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithJitter sets the random inter-task delay bounds. Zero disables it.
func WithJitter(min, max time.Duration) Option {
	return func(s *Syncer) {
		s.minJitter = min
		s.maxJitter = max
	}
}

// WithRetry enables bounded per-task retries for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(s *Syncer) {
		s.retry = cfg
	}
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Syncer) {
		s.now = now
	}
}

// New creates a Syncer. Defaults: 3 workers, 0.5-2s jitter, no retry.
func New(mail MailSearcher, store TrackingStore, opts ...Option) *Syncer {
	s := &Syncer{
		mail:      mail,
		store:     store,
		workers:   3,
		minJitter: 500 * time.Millisecond,
		maxJitter: 2 * time.Second,
		retry:     resilience.Single(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SyncContact queries the contact's mail history, classifies it, and
// persists the refreshed tracking state.
func (s *Syncer) SyncContact(ctx context.Context, c model.Contact) (model.Tracking, error) {
	query := fmt.Sprintf("to:%s OR from:%s", c.Email, c.Email)

	msgs, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) ([]datagen.EmailMessage, error) {
		return s.mail.SearchMail(ctx, query, maxMailResults)
	})
	if err != nil {
		return model.Tracking{}, eris.Wrapf(err, "syncer: search mail for %s", c.Email)
	}

	events := make([]model.EmailEvent, len(msgs))
	for i, m := range msgs {
		events[i] = model.EmailEvent{From: m.From, Date: m.Date, Subject: m.Subject}
	}

	tr := classifier.TrackingFromEvents(events, c.Email, s.now())
	if err := s.store.UpdateTracking(ctx, c.ID, tr); err != nil {
		return model.Tracking{}, eris.Wrapf(err, "syncer: persist tracking for %s", c.Email)
	}
	return tr, nil
}

// UpdateAfterSend records an outbound email without a mail round trip:
// sent count bumps, last-sent moves to now, and the followup flag clears.
func (s *Syncer) UpdateAfterSend(ctx context.Context, c model.Contact) (model.Tracking, error) {
	tr, err := s.store.GetTracking(ctx, c.ID)
	if err != nil {
		return model.Tracking{}, eris.Wrapf(err, "syncer: load tracking for %s", c.Email)
	}

	now := s.now().UTC()
	tr.EmailsSent++
	tr.LastSentAt = &now
	tr.Status, _ = classifier.Classify(tr.EmailsSent, tr.EmailsReceived, tr.LastSentAt, tr.LastRecvAt, now)
	// Just sent, so no follow-up needed yet regardless of the classifier.
	tr.NeedsFollowup = false

	if err := s.store.UpdateTracking(ctx, c.ID, tr); err != nil {
		return model.Tracking{}, eris.Wrapf(err, "syncer: persist tracking for %s", c.Email)
	}
	return tr, nil
}
