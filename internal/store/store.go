// Package store persists CRM contacts and their derived enrichment state.
// Postgres is the primary backend; SQLite serves local and offline use.
package store

import (
	"context"

	"github.com/sells-group/crm-enrich/internal/model"
)

// ContactFilter specifies criteria for listing top contacts.
type ContactFilter struct {
	Limit    int `json:"limit,omitempty"`
	MinScore int `json:"min_score,omitempty"`
}

// Store defines the persistence interface for the enrichment commands.
type Store interface {
	// Contact reads
	GetContact(ctx context.Context, contactID int64) (model.Contact, error)
	ListForScoring(ctx context.Context) ([]model.Contact, error)
	TopContacts(ctx context.Context, filter ContactFilter) ([]model.Contact, error)
	ListMissingLinkedIn(ctx context.Context, limit int) ([]model.Contact, error)
	ListUnfetchedProfiles(ctx context.Context, limit int) ([]model.Contact, error)
	ListNeedsFollowup(ctx context.Context, limit int) ([]model.Contact, error)

	// Engagement tracking
	GetTracking(ctx context.Context, contactID int64) (model.Tracking, error)
	UpdateTracking(ctx context.Context, contactID int64, tr model.Tracking) error

	// Enrichment writes
	UpdateScore(ctx context.Context, contactID int64, score int) error
	UpdateProfile(ctx context.Context, contactID int64, upd model.ProfileUpdate) error
	MarkProfileFetched(ctx context.Context, contactID int64) error

	// Drafts
	SaveDraft(ctx context.Context, contactID int64, draft model.Draft) error

	// Run audit log
	RecordRun(ctx context.Context, run model.RunRecord) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
