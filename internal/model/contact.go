// Package model defines the core domain types shared across the enrichment
// commands: CRM contacts, email engagement tracking, and profile updates.
package model

import (
	"strings"
	"time"
)

// EmailStatus is the derived engagement state of a contact.
type EmailStatus string

const (
	StatusNotContacted  EmailStatus = "not_contacted"
	StatusContacted     EmailStatus = "contacted"
	StatusReplied       EmailStatus = "replied"
	StatusNeedsFollowup EmailStatus = "needs_followup"
)

// Contact is a CRM record. PriorityScore, EmailStatus, and NeedsFollowup are
// always derived by the scorer/classifier, never hand-edited; recomputing
// them from the same inputs yields the same values.
type Contact struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name,omitempty"`
	LastName     string     `json:"last_name,omitempty"`
	Company      string     `json:"company,omitempty"`
	Title        string     `json:"title,omitempty"`
	Location     string     `json:"location,omitempty"`
	Industry     string     `json:"industry,omitempty"`
	LinkedInURL  string     `json:"linkedin_url,omitempty"`
	EnrichSource string     `json:"enrich_source,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	SignupAt     *time.Time `json:"user_signup_date,omitempty"`

	PriorityScore int         `json:"priority_score"`
	EmailStatus   EmailStatus `json:"email_status,omitempty"`

	EmailsSent      int        `json:"emails_sent_count"`
	EmailsReceived  int        `json:"emails_received_count"`
	LastEmailSentAt *time.Time `json:"last_email_sent_at,omitempty"`
	LastEmailRecvAt *time.Time `json:"last_email_received_at,omitempty"`
	NeedsFollowup   bool       `json:"needs_followup"`
}

// SignupTime returns the signup timestamp, falling back to the creation
// timestamp when the signup date was never recorded.
func (c Contact) SignupTime() *time.Time {
	if c.SignupAt != nil {
		return c.SignupAt
	}
	return c.CreatedAt
}

// DisplayName formats the contact's name, falling back to the email
// local-part when both name fields are empty.
func (c Contact) DisplayName() string {
	switch {
	case c.FirstName != "" && c.LastName != "":
		return c.FirstName + " " + c.LastName
	case c.FirstName != "":
		return c.FirstName
	case c.LastName != "":
		return c.LastName
	}
	if local, _, ok := strings.Cut(c.Email, "@"); ok && local != "" {
		return strings.ToUpper(local[:1]) + local[1:]
	}
	return "Unknown"
}

// EmailEvent is a single historical message returned by the mail history
// provider. Date is the provider's raw string; direction is derived later by
// comparing From against the contact's address. Transient, never persisted.
type EmailEvent struct {
	From    string `json:"from"`
	Date    string `json:"date"`
	Subject string `json:"subject"`
}

// Tracking holds the derived engagement fields written back per contact.
type Tracking struct {
	Status         EmailStatus
	EmailsSent     int
	EmailsReceived int
	LastSentAt     *time.Time
	LastRecvAt     *time.Time
	NeedsFollowup  bool
}

// ProfileUpdate carries enrichment fields resolved from a LinkedIn profile.
// Nil fields are omitted from the store update, never written as nulls.
type ProfileUpdate struct {
	LinkedInURL  *string
	EnrichSource *string
	Title        *string
	Company      *string
	Location     *string
	Industry     *string
}

// IsEmpty reports whether the update carries no fields at all.
func (u ProfileUpdate) IsEmpty() bool {
	return u.LinkedInURL == nil && u.EnrichSource == nil && u.Title == nil &&
		u.Company == nil && u.Location == nil && u.Industry == nil
}

// Draft is a generated follow-up email stored as JSON on the contact row.
type Draft struct {
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	GeneratedAt time.Time `json:"generated_at"`
}
