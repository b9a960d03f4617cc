// Package drafter generates follow-up email drafts for contacts using the
// Anthropic API and stores them on the contact row for later review.
package drafter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-enrich/internal/model"
	"github.com/sells-group/crm-enrich/pkg/anthropic"
)

const systemPrompt = `You write short, personal follow-up emails for a B2B sales team.
Keep the email under 120 words, reference what you know about the recipient,
and end with a single low-friction question. Output the subject on the first
line prefixed with "Subject:", then a blank line, then the body. No signature.`

const defaultSubject = "Following up"

// Generator produces drafts for contacts.
type Generator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	now       func() time.Time
}

func New(client anthropic.Client, model string, maxTokens int64) *Generator {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Generator{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		now:       time.Now,
	}
}

// WithNow overrides the clock. Used in tests.
func (g *Generator) WithNow(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate asks the model for a follow-up draft tailored to the contact's
// known profile and engagement state.
func (g *Generator) Generate(ctx context.Context, c model.Contact) (model.Draft, error) {
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		System:    systemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: buildPrompt(c)},
		},
	})
	if err != nil {
		return model.Draft{}, eris.Wrapf(err, "drafter: generate for contact %d", c.ID)
	}
	resp.Usage.LogUsage(g.model, "draft")

	subject, body := splitDraft(resp.Text)
	if body == "" {
		return model.Draft{}, eris.Errorf("drafter: model returned empty draft for contact %d", c.ID)
	}

	return model.Draft{
		Subject:     subject,
		Body:        body,
		GeneratedAt: g.now().UTC(),
	}, nil
}

// buildPrompt lays out everything known about the contact, skipping fields
// that were never enriched.
func buildPrompt(c model.Contact) string {
	var b strings.Builder
	b.WriteString("Write a follow-up email to this contact:\n\n")
	fmt.Fprintf(&b, "Name: %s\n", c.DisplayName())
	fmt.Fprintf(&b, "Email: %s\n", c.Email)

	add := func(label, v string) {
		if v != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, v)
		}
	}
	add("Company", c.Company)
	add("Title", c.Title)
	add("Industry", c.Industry)
	add("Location", c.Location)

	if t := c.SignupTime(); t != nil {
		fmt.Fprintf(&b, "Signed up: %s\n", t.UTC().Format("2006-01-02"))
	}

	fmt.Fprintf(&b, "Engagement: %s (%d sent, %d received)\n",
		c.EmailStatus, c.EmailsSent, c.EmailsReceived)
	if c.LastEmailSentAt != nil {
		fmt.Fprintf(&b, "Last email sent: %s\n", c.LastEmailSentAt.UTC().Format("2006-01-02"))
	}
	if c.LastEmailRecvAt != nil {
		fmt.Fprintf(&b, "Last reply received: %s\n", c.LastEmailRecvAt.UTC().Format("2006-01-02"))
	}

	return b.String()
}

// splitDraft separates the "Subject:" first line from the body. Models
// occasionally skip the subject line; the body still gets saved under a
// default subject.
func splitDraft(text string) (subject, body string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return defaultSubject, ""
	}

	first, rest, found := strings.Cut(text, "\n")
	if s, ok := strings.CutPrefix(first, "Subject:"); ok {
		subject = strings.TrimSpace(s)
		if subject == "" {
			subject = defaultSubject
		}
		if !found {
			return subject, ""
		}
		return subject, strings.TrimSpace(rest)
	}
	return defaultSubject, text
}
