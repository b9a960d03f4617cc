package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-enrich/internal/db"
	"github.com/sells-group/crm-enrich/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const contactColumns = `id, email, first_name, last_name, company, title, location, industry,
	linkedin_url, enrich_source, priority_score, created_at, user_signup_date,
	email_status, emails_sent_count, emails_received_count,
	last_email_sent_at, last_email_received_at, needs_followup`

// NewPostgres creates a PostgresStore with a connection pool. Statement
// caching is left to pgx, which prepares repeated queries per connection.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need direct
// query access (e.g., batched score writes).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS crm (
	id                            BIGSERIAL PRIMARY KEY,
	email                         TEXT,
	first_name                    TEXT,
	last_name                     TEXT,
	company                       TEXT,
	title                         TEXT,
	location                      TEXT,
	industry                      TEXT,
	linkedin_url                  TEXT,
	enrich_source                 TEXT,
	created_at                    TIMESTAMPTZ NOT NULL DEFAULT now(),
	user_signup_date              TIMESTAMPTZ,
	priority_score                INTEGER NOT NULL DEFAULT 0,
	priority_calculated_at        TIMESTAMPTZ,
	email_status                  TEXT NOT NULL DEFAULT 'not_contacted',
	emails_sent_count             INTEGER NOT NULL DEFAULT 0,
	emails_received_count         INTEGER NOT NULL DEFAULT 0,
	last_email_sent_at            TIMESTAMPTZ,
	last_email_received_at        TIMESTAMPTZ,
	needs_followup                BOOLEAN NOT NULL DEFAULT false,
	email_tracking_last_synced_at TIMESTAMPTZ,
	linkedin_profile_fetched_at   TIMESTAMPTZ,
	email_draft                   JSONB
);

CREATE TABLE IF NOT EXISTS enrich_runs (
	id          TEXT PRIMARY KEY,
	command     TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	processed   INTEGER NOT NULL DEFAULT 0,
	succeeded   INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_crm_priority_score ON crm(priority_score DESC);
CREATE INDEX IF NOT EXISTS idx_crm_email_status ON crm(email_status);
CREATE INDEX IF NOT EXISTS idx_crm_needs_followup ON crm(needs_followup) WHERE needs_followup;
CREATE INDEX IF NOT EXISTS idx_crm_unfetched_profiles ON crm(id DESC)
	WHERE linkedin_url IS NOT NULL AND linkedin_profile_fetched_at IS NULL;
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetContact(ctx context.Context, contactID int64) (model.Contact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+contactColumns+` FROM crm WHERE id = $1`,
		contactID,
	)
	if err != nil {
		return model.Contact{}, eris.Wrapf(err, "postgres: get contact %d", contactID)
	}
	defer rows.Close()

	contacts, err := scanContacts(rows, "get contact")
	if err != nil {
		return model.Contact{}, err
	}
	if len(contacts) == 0 {
		return model.Contact{}, eris.Errorf("contact not found: %d", contactID)
	}
	return contacts[0], nil
}

func (s *PostgresStore) ListForScoring(ctx context.Context) ([]model.Contact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, email, created_at, user_signup_date FROM crm ORDER BY id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list for scoring")
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		var c model.Contact
		var email *string
		if err := rows.Scan(&c.ID, &email, &c.CreatedAt, &c.SignupAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan scoring row")
		}
		if email != nil {
			c.Email = *email
		}
		contacts = append(contacts, c)
	}
	return contacts, eris.Wrap(rows.Err(), "postgres: list for scoring iterate")
}

func (s *PostgresStore) TopContacts(ctx context.Context, filter ContactFilter) ([]model.Contact, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+contactColumns+` FROM crm
		 WHERE email IS NOT NULL AND email != '' AND priority_score >= $1
		 ORDER BY priority_score DESC, user_signup_date DESC NULLS LAST
		 LIMIT $2`,
		filter.MinScore, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: top contacts")
	}
	defer rows.Close()

	return scanContacts(rows, "top contacts")
}

func (s *PostgresStore) ListMissingLinkedIn(ctx context.Context, limit int) ([]model.Contact, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+contactColumns+` FROM crm
		 WHERE email IS NOT NULL AND email != ''
		   AND (linkedin_url IS NULL OR linkedin_url = '')
		 ORDER BY priority_score DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list missing linkedin")
	}
	defer rows.Close()

	return scanContacts(rows, "missing linkedin")
}

func (s *PostgresStore) ListUnfetchedProfiles(ctx context.Context, limit int) ([]model.Contact, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+contactColumns+` FROM crm
		 WHERE linkedin_url IS NOT NULL AND linkedin_url != ''
		   AND linkedin_profile_fetched_at IS NULL
		 ORDER BY id DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list unfetched profiles")
	}
	defer rows.Close()

	return scanContacts(rows, "unfetched profiles")
}

func (s *PostgresStore) ListNeedsFollowup(ctx context.Context, limit int) ([]model.Contact, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+contactColumns+` FROM crm
		 WHERE needs_followup AND email IS NOT NULL AND email != ''
		 ORDER BY priority_score DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list needs followup")
	}
	defer rows.Close()

	return scanContacts(rows, "needs followup")
}

func (s *PostgresStore) GetTracking(ctx context.Context, contactID int64) (model.Tracking, error) {
	var tr model.Tracking
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT email_status, emails_sent_count, emails_received_count,
		 last_email_sent_at, last_email_received_at, needs_followup FROM crm WHERE id = $1`,
		contactID,
	).Scan(&status, &tr.EmailsSent, &tr.EmailsReceived, &tr.LastSentAt, &tr.LastRecvAt, &tr.NeedsFollowup)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Tracking{}, eris.Errorf("contact not found: %d", contactID)
		}
		return model.Tracking{}, eris.Wrapf(err, "postgres: get tracking %d", contactID)
	}
	tr.Status = model.EmailStatus(status)
	return tr, nil
}

func (s *PostgresStore) UpdateTracking(ctx context.Context, contactID int64, tr model.Tracking) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE crm SET email_status = $1, emails_sent_count = $2,
		 emails_received_count = $3, last_email_sent_at = $4, last_email_received_at = $5,
		 needs_followup = $6, email_tracking_last_synced_at = now() WHERE id = $7`,
		string(tr.Status), tr.EmailsSent, tr.EmailsReceived,
		tr.LastSentAt, tr.LastRecvAt, tr.NeedsFollowup, contactID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update tracking %d", contactID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("contact not found: %d", contactID)
	}
	return nil
}

func (s *PostgresStore) UpdateScore(ctx context.Context, contactID int64, score int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE crm SET priority_score = $1, priority_calculated_at = now() WHERE id = $2`,
		score, contactID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update score %d", contactID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("contact not found: %d", contactID)
	}
	return nil
}

// profileColumns maps update fields to their CRM columns in a fixed order so
// generated SQL stays deterministic.
func profileColumns(upd model.ProfileUpdate) (cols []string, vals []any) {
	add := func(col string, v *string) {
		if v != nil {
			cols = append(cols, col)
			vals = append(vals, *v)
		}
	}
	add("linkedin_url", upd.LinkedInURL)
	add("enrich_source", upd.EnrichSource)
	add("title", upd.Title)
	add("company", upd.Company)
	add("location", upd.Location)
	add("industry", upd.Industry)
	return cols, vals
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, contactID int64, upd model.ProfileUpdate) error {
	cols, vals := profileColumns(upd)
	if len(cols) == 0 {
		return nil
	}

	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", col, i+1)
	}
	vals = append(vals, contactID)

	query := fmt.Sprintf(`UPDATE crm SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(vals))
	tag, err := s.pool.Exec(ctx, query, vals...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update profile %d", contactID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("contact not found: %d", contactID)
	}
	return nil
}

func (s *PostgresStore) MarkProfileFetched(ctx context.Context, contactID int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE crm SET linkedin_profile_fetched_at = now() WHERE id = $1`,
		contactID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark profile fetched %d", contactID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("contact not found: %d", contactID)
	}
	return nil
}

func (s *PostgresStore) SaveDraft(ctx context.Context, contactID int64, draft model.Draft) error {
	draftJSON, err := json.Marshal(draft)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal draft")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE crm SET email_draft = $1 WHERE id = $2`,
		draftJSON, contactID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save draft %d", contactID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("contact not found: %d", contactID)
	}
	return nil
}

// BulkUpdateScores flushes a scoring pass with the pgx batch protocol.
func (s *PostgresStore) BulkUpdateScores(ctx context.Context, updates []db.ScoreUpdate) (int64, error) {
	return db.BulkUpdateScores(ctx, s.pool, updates)
}

func (s *PostgresStore) RecordRun(ctx context.Context, run model.RunRecord) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO enrich_runs (id, command, started_at, finished_at, processed, succeeded, failed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.Command, run.StartedAt.UTC(), run.FinishedAt.UTC(),
		run.Processed, run.Succeeded, run.Failed,
	)
	return eris.Wrapf(err, "postgres: record %s run", run.Command)
}

// scanContacts reads full contact rows in contactColumns order.
func scanContacts(rows pgx.Rows, op string) ([]model.Contact, error) {
	var contacts []model.Contact
	for rows.Next() {
		var c model.Contact
		var email, firstName, lastName, company, title, location, industry *string
		var linkedinURL, enrichSource *string
		var status *string

		if err := rows.Scan(
			&c.ID, &email, &firstName, &lastName, &company, &title, &location, &industry,
			&linkedinURL, &enrichSource, &c.PriorityScore, &c.CreatedAt, &c.SignupAt,
			&status, &c.EmailsSent, &c.EmailsReceived,
			&c.LastEmailSentAt, &c.LastEmailRecvAt, &c.NeedsFollowup,
		); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan %s row", op)
		}

		c.Email = deref(email)
		c.FirstName = deref(firstName)
		c.LastName = deref(lastName)
		c.Company = deref(company)
		c.Title = deref(title)
		c.Location = deref(location)
		c.Industry = deref(industry)
		c.LinkedInURL = deref(linkedinURL)
		c.EnrichSource = deref(enrichSource)
		if status != nil {
			c.EmailStatus = model.EmailStatus(*status)
		}
		contacts = append(contacts, c)
	}
	return contacts, eris.Wrapf(rows.Err(), "postgres: %s iterate", op)
}

func deref(s *string) string {
	if s != nil {
		return *s
	}
	return ""
}
