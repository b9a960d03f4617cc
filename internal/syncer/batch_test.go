package syncer

import (
	"context"
	"fmt"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-enrich/internal/model"
	"github.com/sells-group/crm-enrich/pkg/datagen"
)

func TestSyncBatch(t *testing.T) {
	mail := &fakeMail{byQuery: map[string][]datagen.EmailMessage{}}
	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		mail.byQuery[fmt.Sprintf("to:%s OR from:%s", email, email)] = []datagen.EmailMessage{
			{From: "me@sells.group", Date: "Tue, 10 Jun 2025 09:00:00 +0000", Subject: "hi"},
		}
	}

	store := newFakeStore()
	store.failIDs = map[int64]bool{2: true}
	s := newTestSyncer(mail, store, WithWorkers(2))

	contacts := []model.Contact{
		{ID: 1, Email: "a@x.com"},
		{ID: 2, Email: "b@x.com"},
		{ID: 3, Email: "c@x.com"},
	}

	tally := s.SyncBatch(context.Background(), contacts)
	assert.Equal(t, 3, tally.Total)
	assert.Equal(t, 2, tally.Synced)
	assert.Equal(t, 1, tally.Failed)
	require.Len(t, tally.Errors, 1)
	assert.Equal(t, int64(2), tally.Errors[0].Contact.ID)

	// Sent 5 days ago with no reply crosses the follow-up threshold.
	assert.Equal(t, 2, tally.ByStatus[model.StatusNeedsFollowup])
	_, wrote := store.tracking[2]
	assert.False(t, wrote)
}

func TestSyncBatch_Empty(t *testing.T) {
	s := newTestSyncer(&fakeMail{}, newFakeStore())
	tally := s.SyncBatch(context.Background(), nil)
	assert.Zero(t, tally.Total)
	assert.Zero(t, tally.Synced)
	assert.Zero(t, tally.Failed)
}

func TestSyncBatch_CanceledContextReportsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mail := &fakeMail{failWith: eris.New("should not be called")}
	s := newTestSyncer(mail, newFakeStore())

	tally := s.SyncBatch(ctx, []model.Contact{{ID: 1, Email: "a@x.com"}})
	assert.Equal(t, 1, tally.Total)
	assert.Zero(t, tally.Synced)
	assert.Zero(t, mail.calls)
}
