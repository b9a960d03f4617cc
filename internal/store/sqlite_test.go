package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-enrich/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "crm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func insertContact(t *testing.T, s *SQLiteStore, email string, score int, linkedin string) int64 {
	t.Helper()
	res, err := s.db.Exec(
		`INSERT INTO crm (email, priority_score, linkedin_url, user_signup_date) VALUES (?, ?, ?, ?)`,
		email, score, linkedin, time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func TestSQLiteStore_TopContacts(t *testing.T) {
	s := newTestSQLite(t)
	insertContact(t, s, "low@x.com", 10, "")
	insertContact(t, s, "high@x.com", 95, "")
	insertContact(t, s, "mid@x.com", 50, "")

	contacts, err := s.TopContacts(context.Background(), ContactFilter{Limit: 2, MinScore: 20})
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "high@x.com", contacts[0].Email)
	assert.Equal(t, "mid@x.com", contacts[1].Email)
}

func TestSQLiteStore_GetContact(t *testing.T) {
	s := newTestSQLite(t)
	id := insertContact(t, s, "jane@acme.com", 80, "")

	c, err := s.GetContact(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "jane@acme.com", c.Email)
	assert.Equal(t, 80, c.PriorityScore)

	_, err = s.GetContact(context.Background(), id+1000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contact not found")
}

func TestSQLiteStore_ListForScoring(t *testing.T) {
	s := newTestSQLite(t)
	insertContact(t, s, "a@x.com", 0, "")
	insertContact(t, s, "b@x.com", 0, "")

	contacts, err := s.ListForScoring(context.Background())
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	require.NotNil(t, contacts[0].SignupAt)
	assert.Equal(t, 2025, contacts[0].SignupAt.Year())
}

func TestSQLiteStore_ListMissingLinkedIn(t *testing.T) {
	s := newTestSQLite(t)
	insertContact(t, s, "has@x.com", 80, "https://www.linkedin.com/in/has")
	want := insertContact(t, s, "missing@x.com", 60, "")

	contacts, err := s.ListMissingLinkedIn(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, want, contacts[0].ID)
}

func TestSQLiteStore_ListUnfetchedProfiles(t *testing.T) {
	s := newTestSQLite(t)
	id := insertContact(t, s, "a@x.com", 80, "https://www.linkedin.com/in/a")
	insertContact(t, s, "b@x.com", 60, "")

	contacts, err := s.ListUnfetchedProfiles(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, id, contacts[0].ID)

	require.NoError(t, s.MarkProfileFetched(context.Background(), id))

	contacts, err = s.ListUnfetchedProfiles(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, contacts)
}

func TestSQLiteStore_ListNeedsFollowup(t *testing.T) {
	s := newTestSQLite(t)
	insertContact(t, s, "fresh@x.com", 90, "")
	stale := insertContact(t, s, "stale@x.com", 70, "")

	sent := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpdateTracking(context.Background(), stale, model.Tracking{
		Status:        model.StatusNeedsFollowup,
		EmailsSent:    1,
		LastSentAt:    &sent,
		NeedsFollowup: true,
	}))

	contacts, err := s.ListNeedsFollowup(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, stale, contacts[0].ID)
}

func TestSQLiteStore_TrackingRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	id := insertContact(t, s, "jane@acme.com", 80, "")

	sent := time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC)
	in := model.Tracking{
		Status:        model.StatusNeedsFollowup,
		EmailsSent:    2,
		LastSentAt:    &sent,
		NeedsFollowup: true,
	}
	require.NoError(t, s.UpdateTracking(context.Background(), id, in))

	out, err := s.GetTracking(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNeedsFollowup, out.Status)
	assert.Equal(t, 2, out.EmailsSent)
	require.NotNil(t, out.LastSentAt)
	assert.True(t, out.LastSentAt.Equal(sent))
	assert.Nil(t, out.LastRecvAt)
	assert.True(t, out.NeedsFollowup)
}

func TestSQLiteStore_UpdateProfile(t *testing.T) {
	s := newTestSQLite(t)
	id := insertContact(t, s, "jane@acme.com", 80, "")

	title := "CTO"
	source := "exa"
	url := "https://www.linkedin.com/in/janedoe"
	require.NoError(t, s.UpdateProfile(context.Background(), id, model.ProfileUpdate{
		LinkedInURL:  &url,
		EnrichSource: &source,
		Title:        &title,
	}))

	contacts, err := s.TopContacts(context.Background(), ContactFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "CTO", contacts[0].Title)
	assert.Equal(t, "exa", contacts[0].EnrichSource)
	assert.Equal(t, url, contacts[0].LinkedInURL)
	// Fields not in the update keep their old values.
	assert.Equal(t, "jane@acme.com", contacts[0].Email)
}

func TestSQLiteStore_UpdateScore_NotFound(t *testing.T) {
	s := newTestSQLite(t)

	err := s.UpdateScore(context.Background(), 12345, 50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contact not found")
}

func TestSQLiteStore_RecordRun(t *testing.T) {
	s := newTestSQLite(t)

	started := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordRun(context.Background(), model.RunRecord{
		Command:    "enrich",
		StartedAt:  started,
		FinishedAt: started.Add(30 * time.Second),
		Processed:  5,
		Succeeded:  4,
		Failed:     1,
	}))

	var id, command string
	var processed int
	err := s.db.QueryRow(`SELECT id, command, processed FROM enrich_runs`).
		Scan(&id, &command, &processed)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, "enrich", command)
	assert.Equal(t, 5, processed)
}

func TestSQLiteStore_SaveDraft(t *testing.T) {
	s := newTestSQLite(t)
	id := insertContact(t, s, "jane@acme.com", 80, "")

	require.NoError(t, s.SaveDraft(context.Background(), id, model.Draft{
		Subject:     "Quick follow-up",
		Body:        "Hi Jane,",
		GeneratedAt: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
	}))

	var raw string
	require.NoError(t, s.db.QueryRow(`SELECT email_draft FROM crm WHERE id = ?`, id).Scan(&raw))
	assert.Contains(t, raw, "Quick follow-up")
}
