package scorer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/crm-enrich/internal/db"
	"github.com/sells-group/crm-enrich/internal/model"
)

// ScoreStore is the slice of the contact store the updater needs.
type ScoreStore interface {
	ListForScoring(ctx context.Context) ([]model.Contact, error)
	UpdateScore(ctx context.Context, contactID int64, score int) error
}

// BulkScoreStore is implemented by backends that can flush a scoring pass in
// one round trip instead of row-by-row updates.
type BulkScoreStore interface {
	BulkUpdateScores(ctx context.Context, updates []db.ScoreUpdate) (int64, error)
}

// Stats summarizes one scoring pass.
type Stats struct {
	Total        int
	Updated      int
	Errors       int
	Distribution Distribution
}

// Updater recomputes and persists priority scores for every contact.
type Updater struct {
	store  ScoreStore
	decay  float64
	dryRun bool
	now    func() time.Time
}

// NewUpdater creates an Updater. decayPerDay <= 0 selects the default.
func NewUpdater(store ScoreStore, decayPerDay float64, dryRun bool) *Updater {
	if decayPerDay <= 0 {
		decayPerDay = DefaultDecayPerDay
	}
	return &Updater{
		store:  store,
		decay:  decayPerDay,
		dryRun: dryRun,
		now:    time.Now,
	}
}

// WithNow fixes the clock for testing.
func (u *Updater) WithNow(now func() time.Time) *Updater {
	u.now = now
	return u
}

// Run scores every contact and writes the result back unless dry-run is set.
// Per-contact store failures are counted and logged, never fatal; the pass
// always completes with a full tally.
func (u *Updater) Run(ctx context.Context) (*Stats, error) {
	contacts, err := u.store.ListForScoring(ctx)
	if err != nil {
		return nil, err
	}

	now := u.now().UTC()
	stats := &Stats{Total: len(contacts)}

	bulk, useBulk := u.store.(BulkScoreStore)
	var pending []db.ScoreUpdate

	for _, c := range contacts {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		score := Score(c.SignupTime(), u.decay, now)
		stats.Distribution.Add(score)

		if u.dryRun {
			stats.Updated++
			continue
		}

		if useBulk {
			pending = append(pending, db.ScoreUpdate{ContactID: c.ID, Score: score})
			continue
		}

		if err := u.store.UpdateScore(ctx, c.ID, score); err != nil {
			stats.Errors++
			zap.L().Warn("scorer: update failed",
				zap.Int64("contact_id", c.ID),
				zap.String("email", c.Email),
				zap.Error(err),
			)
			continue
		}
		stats.Updated++
	}

	if len(pending) > 0 {
		u.flush(ctx, bulk, pending, stats)
	}

	return stats, nil
}

// flush writes the batched updates. A batch failure degrades to per-row
// writes so a single bad row never loses the rest of the pass.
func (u *Updater) flush(ctx context.Context, bulk BulkScoreStore, pending []db.ScoreUpdate, stats *Stats) {
	n, err := bulk.BulkUpdateScores(ctx, pending)
	if err == nil {
		stats.Updated = int(n)
		stats.Errors = len(pending) - int(n)
		return
	}

	zap.L().Warn("scorer: batch update failed, retrying row by row", zap.Error(err))
	for _, p := range pending {
		if err := u.store.UpdateScore(ctx, p.ContactID, p.Score); err != nil {
			stats.Errors++
			zap.L().Warn("scorer: update failed",
				zap.Int64("contact_id", p.ContactID),
				zap.Error(err),
			)
			continue
		}
		stats.Updated++
	}
}
