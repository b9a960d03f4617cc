package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// ScoreUpdate pairs a contact with its recomputed priority score.
type ScoreUpdate struct {
	ContactID int64
	Score     int
}

const updateScoreSQL = `UPDATE crm SET priority_score = $1, priority_calculated_at = now() WHERE id = $2`

// BulkUpdateScores writes a batch of score updates in one round trip using
// the pgx batch protocol. Returns the number of rows actually updated.
func BulkUpdateScores(ctx context.Context, pool Pool, updates []ScoreUpdate) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(updateScoreSQL, u.Score, u.ContactID)
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close() //nolint:errcheck

	var updated int64
	for i := range updates {
		tag, err := results.Exec()
		if err != nil {
			return updated, eris.Wrapf(err, "db: batch score update for contact %d", updates[i].ContactID)
		}
		updated += tag.RowsAffected()
	}
	return updated, nil
}
