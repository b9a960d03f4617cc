package drafter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-enrich/internal/model"
	"github.com/sells-group/crm-enrich/pkg/anthropic"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fakeAnthropicClient struct {
	reply    string
	err      error
	lastReq  anthropic.MessageRequest
	numCalls int
}

func (f *fakeAnthropicClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.numCalls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.MessageResponse{
		ID:         "msg_test",
		Model:      req.Model,
		Text:       f.reply,
		StopReason: "end_turn",
	}, nil
}

func testContact() model.Contact {
	signup := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	lastSent := time.Date(2025, 6, 12, 15, 30, 0, 0, time.UTC)
	return model.Contact{
		ID:              42,
		Email:           "jane.doe@acme.com",
		FirstName:       "Jane",
		LastName:        "Doe",
		Company:         "Acme",
		Title:           "VP Engineering",
		SignupAt:        &signup,
		EmailStatus:     model.StatusContacted,
		EmailsSent:      2,
		LastEmailSentAt: &lastSent,
	}
}

func TestGenerate(t *testing.T) {
	client := &fakeAnthropicClient{
		reply: "Subject: Quick question about Acme\n\nHi Jane,\n\nJust checking in. Worth a chat?",
	}
	gen := New(client, "claude-sonnet-4-5-20250929", 1024).
		WithNow(func() time.Time { return testNow })

	draft, err := gen.Generate(context.Background(), testContact())
	require.NoError(t, err)

	assert.Equal(t, "Quick question about Acme", draft.Subject)
	assert.Equal(t, "Hi Jane,\n\nJust checking in. Worth a chat?", draft.Body)
	assert.Equal(t, testNow, draft.GeneratedAt)

	req := client.lastReq
	assert.Equal(t, "claude-sonnet-4-5-20250929", req.Model)
	assert.Equal(t, int64(1024), req.MaxTokens)
	assert.NotEmpty(t, req.System)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", req.Messages[0].Role)
}

func TestGenerate_PromptIncludesKnownFields(t *testing.T) {
	client := &fakeAnthropicClient{reply: "Subject: Hi\n\nBody"}
	gen := New(client, "m", 100)

	_, err := gen.Generate(context.Background(), testContact())
	require.NoError(t, err)

	prompt := client.lastReq.Messages[0].Content
	assert.Contains(t, prompt, "Name: Jane Doe")
	assert.Contains(t, prompt, "Email: jane.doe@acme.com")
	assert.Contains(t, prompt, "Company: Acme")
	assert.Contains(t, prompt, "Title: VP Engineering")
	assert.Contains(t, prompt, "Signed up: 2025-06-10")
	assert.Contains(t, prompt, "Engagement: contacted (2 sent, 0 received)")
	assert.Contains(t, prompt, "Last email sent: 2025-06-12")
	assert.NotContains(t, prompt, "Industry:")
	assert.NotContains(t, prompt, "Location:")
	assert.NotContains(t, prompt, "Last reply received:")
}

func TestGenerate_ClientError(t *testing.T) {
	client := &fakeAnthropicClient{err: errors.New("overloaded")}
	gen := New(client, "m", 100)

	_, err := gen.Generate(context.Background(), testContact())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contact 42")
}

func TestGenerate_EmptyReply(t *testing.T) {
	client := &fakeAnthropicClient{reply: "   \n  "}
	gen := New(client, "m", 100)

	_, err := gen.Generate(context.Background(), testContact())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty draft")
}

func TestGenerate_DefaultsMaxTokens(t *testing.T) {
	client := &fakeAnthropicClient{reply: "Subject: x\n\ny"}
	gen := New(client, "m", 0)

	_, err := gen.Generate(context.Background(), testContact())
	require.NoError(t, err)
	assert.Equal(t, int64(1024), client.lastReq.MaxTokens)
}

func TestSplitDraft(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantSubject string
		wantBody    string
	}{
		{
			name:        "subject and body",
			text:        "Subject: Hello there\n\nHi Jane,\nshort body.",
			wantSubject: "Hello there",
			wantBody:    "Hi Jane,\nshort body.",
		},
		{
			name:        "no subject line",
			text:        "Hi Jane,\njust the body.",
			wantSubject: defaultSubject,
			wantBody:    "Hi Jane,\njust the body.",
		},
		{
			name:        "subject only",
			text:        "Subject: Lonely subject",
			wantSubject: "Lonely subject",
			wantBody:    "",
		},
		{
			name:        "blank subject falls back",
			text:        "Subject:\n\nBody text.",
			wantSubject: defaultSubject,
			wantBody:    "Body text.",
		},
		{
			name:        "surrounding whitespace trimmed",
			text:        "\n  Subject: Padded\n\n  Body.  \n",
			wantSubject: "Padded",
			wantBody:    "Body.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, body := splitDraft(tt.text)
			assert.Equal(t, tt.wantSubject, subject)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestBuildPrompt_FallbackName(t *testing.T) {
	prompt := buildPrompt(model.Contact{ID: 1, Email: "bob@x.com"})
	assert.True(t, strings.Contains(prompt, "Name: Bob"))
}
