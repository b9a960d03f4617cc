package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/crm-enrich/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS crm (
	id                            INTEGER PRIMARY KEY AUTOINCREMENT,
	email                         TEXT,
	first_name                    TEXT,
	last_name                     TEXT,
	company                       TEXT,
	title                         TEXT,
	location                      TEXT,
	industry                      TEXT,
	linkedin_url                  TEXT,
	enrich_source                 TEXT,
	created_at                    DATETIME NOT NULL DEFAULT (datetime('now')),
	user_signup_date              DATETIME,
	priority_score                INTEGER NOT NULL DEFAULT 0,
	priority_calculated_at        DATETIME,
	email_status                  TEXT NOT NULL DEFAULT 'not_contacted',
	emails_sent_count             INTEGER NOT NULL DEFAULT 0,
	emails_received_count         INTEGER NOT NULL DEFAULT 0,
	last_email_sent_at            DATETIME,
	last_email_received_at        DATETIME,
	needs_followup                BOOLEAN NOT NULL DEFAULT 0,
	email_tracking_last_synced_at DATETIME,
	linkedin_profile_fetched_at   DATETIME,
	email_draft                   TEXT
);

CREATE TABLE IF NOT EXISTS enrich_runs (
	id          TEXT PRIMARY KEY,
	command     TEXT NOT NULL,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	processed   INTEGER NOT NULL DEFAULT 0,
	succeeded   INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_crm_priority_score ON crm(priority_score DESC);
CREATE INDEX IF NOT EXISTS idx_crm_email_status ON crm(email_status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetContact(ctx context.Context, contactID int64) (model.Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM crm WHERE id = ?`,
		contactID,
	)
	if err != nil {
		return model.Contact{}, eris.Wrapf(err, "sqlite: get contact %d", contactID)
	}
	defer rows.Close()

	contacts, err := scanSQLiteContacts(rows, "get contact")
	if err != nil {
		return model.Contact{}, err
	}
	if len(contacts) == 0 {
		return model.Contact{}, eris.Errorf("contact not found: %d", contactID)
	}
	return contacts[0], nil
}

func (s *SQLiteStore) ListForScoring(ctx context.Context) ([]model.Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, created_at, user_signup_date FROM crm ORDER BY id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list for scoring")
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		var c model.Contact
		var email sql.NullString
		var created, signup sql.NullTime
		if err := rows.Scan(&c.ID, &email, &created, &signup); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan scoring row")
		}
		c.Email = email.String
		c.CreatedAt = nullTimePtr(created)
		c.SignupAt = nullTimePtr(signup)
		contacts = append(contacts, c)
	}
	return contacts, eris.Wrap(rows.Err(), "sqlite: list for scoring iterate")
}

func (s *SQLiteStore) TopContacts(ctx context.Context, filter ContactFilter) ([]model.Contact, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM crm
		 WHERE email IS NOT NULL AND email != '' AND priority_score >= ?
		 ORDER BY priority_score DESC, user_signup_date DESC
		 LIMIT ?`,
		filter.MinScore, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: top contacts")
	}
	defer rows.Close()

	return scanSQLiteContacts(rows, "top contacts")
}

func (s *SQLiteStore) ListMissingLinkedIn(ctx context.Context, limit int) ([]model.Contact, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM crm
		 WHERE email IS NOT NULL AND email != ''
		   AND (linkedin_url IS NULL OR linkedin_url = '')
		 ORDER BY priority_score DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list missing linkedin")
	}
	defer rows.Close()

	return scanSQLiteContacts(rows, "missing linkedin")
}

func (s *SQLiteStore) ListUnfetchedProfiles(ctx context.Context, limit int) ([]model.Contact, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM crm
		 WHERE linkedin_url IS NOT NULL AND linkedin_url != ''
		   AND linkedin_profile_fetched_at IS NULL
		 ORDER BY id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list unfetched profiles")
	}
	defer rows.Close()

	return scanSQLiteContacts(rows, "unfetched profiles")
}

func (s *SQLiteStore) ListNeedsFollowup(ctx context.Context, limit int) ([]model.Contact, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM crm
		 WHERE needs_followup AND email IS NOT NULL AND email != ''
		 ORDER BY priority_score DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list needs followup")
	}
	defer rows.Close()

	return scanSQLiteContacts(rows, "needs followup")
}

func (s *SQLiteStore) GetTracking(ctx context.Context, contactID int64) (model.Tracking, error) {
	var tr model.Tracking
	var status string
	var lastSent, lastRecv sql.NullTime

	err := s.db.QueryRowContext(ctx,
		`SELECT email_status, emails_sent_count, emails_received_count,
		 last_email_sent_at, last_email_received_at, needs_followup FROM crm WHERE id = ?`,
		contactID,
	).Scan(&status, &tr.EmailsSent, &tr.EmailsReceived, &lastSent, &lastRecv, &tr.NeedsFollowup)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Tracking{}, eris.Errorf("contact not found: %d", contactID)
		}
		return model.Tracking{}, eris.Wrapf(err, "sqlite: get tracking %d", contactID)
	}

	tr.Status = model.EmailStatus(status)
	tr.LastSentAt = nullTimePtr(lastSent)
	tr.LastRecvAt = nullTimePtr(lastRecv)
	return tr, nil
}

func (s *SQLiteStore) UpdateTracking(ctx context.Context, contactID int64, tr model.Tracking) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE crm SET email_status = ?, emails_sent_count = ?,
		 emails_received_count = ?, last_email_sent_at = ?, last_email_received_at = ?,
		 needs_followup = ?, email_tracking_last_synced_at = ? WHERE id = ?`,
		string(tr.Status), tr.EmailsSent, tr.EmailsReceived,
		timePtrArg(tr.LastSentAt), timePtrArg(tr.LastRecvAt), tr.NeedsFollowup,
		time.Now().UTC(), contactID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update tracking %d", contactID)
	}
	return checkRowsAffected(res, contactID)
}

func (s *SQLiteStore) UpdateScore(ctx context.Context, contactID int64, score int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE crm SET priority_score = ?, priority_calculated_at = ? WHERE id = ?`,
		score, time.Now().UTC(), contactID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update score %d", contactID)
	}
	return checkRowsAffected(res, contactID)
}

func (s *SQLiteStore) UpdateProfile(ctx context.Context, contactID int64, upd model.ProfileUpdate) error {
	cols, vals := profileColumns(upd)
	if len(cols) == 0 {
		return nil
	}

	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = col + " = ?"
	}
	vals = append(vals, contactID)

	query := fmt.Sprintf(`UPDATE crm SET %s WHERE id = ?`, strings.Join(sets, ", "))
	res, err := s.db.ExecContext(ctx, query, vals...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update profile %d", contactID)
	}
	return checkRowsAffected(res, contactID)
}

func (s *SQLiteStore) MarkProfileFetched(ctx context.Context, contactID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE crm SET linkedin_profile_fetched_at = ? WHERE id = ?`,
		time.Now().UTC(), contactID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark profile fetched %d", contactID)
	}
	return checkRowsAffected(res, contactID)
}

func (s *SQLiteStore) SaveDraft(ctx context.Context, contactID int64, draft model.Draft) error {
	draftJSON, err := json.Marshal(draft)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal draft")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE crm SET email_draft = ? WHERE id = ?`,
		string(draftJSON), contactID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save draft %d", contactID)
	}
	return checkRowsAffected(res, contactID)
}

func (s *SQLiteStore) RecordRun(ctx context.Context, run model.RunRecord) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO enrich_runs (id, command, started_at, finished_at, processed, succeeded, failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Command, run.StartedAt.UTC(), run.FinishedAt.UTC(),
		run.Processed, run.Succeeded, run.Failed,
	)
	return eris.Wrapf(err, "sqlite: record %s run", run.Command)
}

func scanSQLiteContacts(rows *sql.Rows, op string) ([]model.Contact, error) {
	var contacts []model.Contact
	for rows.Next() {
		var c model.Contact
		var email, firstName, lastName, company, title, location, industry sql.NullString
		var linkedinURL, enrichSource, status sql.NullString
		var created, signup, lastSent, lastRecv sql.NullTime

		if err := rows.Scan(
			&c.ID, &email, &firstName, &lastName, &company, &title, &location, &industry,
			&linkedinURL, &enrichSource, &c.PriorityScore, &created, &signup,
			&status, &c.EmailsSent, &c.EmailsReceived,
			&lastSent, &lastRecv, &c.NeedsFollowup,
		); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s row", op)
		}

		c.Email = email.String
		c.FirstName = firstName.String
		c.LastName = lastName.String
		c.Company = company.String
		c.Title = title.String
		c.Location = location.String
		c.Industry = industry.String
		c.LinkedInURL = linkedinURL.String
		c.EnrichSource = enrichSource.String
		c.EmailStatus = model.EmailStatus(status.String)
		c.CreatedAt = nullTimePtr(created)
		c.SignupAt = nullTimePtr(signup)
		c.LastEmailSentAt = nullTimePtr(lastSent)
		c.LastEmailRecvAt = nullTimePtr(lastRecv)
		contacts = append(contacts, c)
	}
	return contacts, eris.Wrapf(rows.Err(), "sqlite: %s iterate", op)
}

func checkRowsAffected(res sql.Result, contactID int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("contact not found: %d", contactID)
	}
	return nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// timePtrArg converts a *time.Time into a driver-friendly NULL when unset.
func timePtrArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
