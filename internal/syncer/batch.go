package syncer

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/crm-enrich/internal/model"
)

// Outcome is the result of one contact's sync unit.
type Outcome struct {
	Contact  model.Contact
	Tracking model.Tracking
	Err      error
}

// Tally aggregates a batch run. Counters commute, so worker order never
// changes the result.
type Tally struct {
	mu       sync.Mutex
	Total    int
	Synced   int
	Failed   int
	ByStatus map[model.EmailStatus]int
	Errors   []Outcome
}

func newTally(total int) *Tally {
	return &Tally{
		Total:    total,
		ByStatus: make(map[model.EmailStatus]int),
	}
}

func (t *Tally) record(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if o.Err != nil {
		t.Failed++
		t.Errors = append(t.Errors, o)
		return
	}
	t.Synced++
	t.ByStatus[o.Tracking.Status]++
}

// SyncBatch syncs contacts concurrently under the worker limit. A failing
// contact is tallied and logged; it never aborts its siblings. Cancellation
// stops dispatch and the partial tally is still returned.
func (s *Syncer) SyncBatch(ctx context.Context, contacts []model.Contact) *Tally {
	tally := newTally(len(contacts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, c := range contacts {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			s.pause(ctx)
			if ctx.Err() != nil {
				return nil
			}

			tr, err := s.SyncContact(ctx, c)
			if err != nil {
				zap.L().Warn("syncer: contact sync failed",
					zap.Int64("contact_id", c.ID),
					zap.String("email", c.Email),
					zap.Error(err),
				)
			}
			tally.record(Outcome{Contact: c, Tracking: tr, Err: err})
			return nil
		})
	}

	g.Wait() //nolint:errcheck
	return tally
}

// pause sleeps a random duration inside the jitter bounds to spread load on
// the mail provider. Returns early on cancellation.
func (s *Syncer) pause(ctx context.Context) {
	if s.maxJitter <= 0 {
		return
	}
	d := s.minJitter
	if span := s.maxJitter - s.minJitter; span > 0 {
		d += time.Duration(rand.Int63n(int64(span)))
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
