package datagen

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-enrich/internal/resilience"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL))
}

func TestExecuteTool_SendsAuthAndBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tools/execute", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "web_search", req["tool_name"])

		w.Write([]byte(`{"result": {"ok": true}}`))
	})

	raw, err := c.ExecuteTool(context.Background(), "web_search", map[string]any{"query": "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok": true}`, string(raw))
}

func TestExecuteTool_UnwrapsNestedArrays(t *testing.T) {
	// SQL-style results arrive double-wrapped: [[{...}]].
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"result": [[{"id": 1}]]}`))
	})

	raw, err := c.ExecuteTool(context.Background(), "run_sql", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": 1}`, string(raw))
}

func TestExecuteTool_TransientStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.ExecuteTool(context.Background(), "web_search", nil)
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestExecuteTool_ToolError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"error": "tool not installed"}`))
	})

	_, err := c.ExecuteTool(context.Background(), "nope", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool not installed")
}

func TestSearchPerson_EnvelopeAndMiss(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req executeRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "jane.doe@acme.com", req.Arguments["email"])

		w.Write([]byte(`{"result": {"person": {"linkedInUrl": "https://www.linkedin.com/in/janedoe", "headline": "CTO"}}}`))
	})

	p, err := c.SearchPerson(context.Background(), PersonQuery{Email: "jane.doe@acme.com", FirstName: "Jane"})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "https://www.linkedin.com/in/janedoe", p.LinkedInURL)

	miss := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"result": {"person": null}}`))
	})
	p, err = miss.SearchPerson(context.Background(), PersonQuery{Email: "nobody@x.com"})
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestPersonProfile_BarePersonObject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"result": {"headline": "VP Engineering", "company": {"name": "Acme", "industry": "Software"}}}`))
	})

	p, err := c.PersonProfile(context.Background(), "https://www.linkedin.com/in/janedoe")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Acme", p.Company.Name)
	assert.Equal(t, "Software", p.Company.Industry)
}

func TestCompanyField_StringOrObject(t *testing.T) {
	var p Person
	require.NoError(t, json.Unmarshal([]byte(`{"company": "Acme"}`), &p))
	assert.Equal(t, "Acme", p.Company.Name)

	var p2 Person
	require.NoError(t, json.Unmarshal([]byte(`{"company": {"name": "Acme", "industry": "SaaS"}}`), &p2))
	assert.Equal(t, "SaaS", p2.Company.Industry)
}

func TestSearchMail_WrappedEnvelope(t *testing.T) {
	// Gmail results arrive as [{"emails": [...]}].
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"result": [{"emails": [
			{"from": "jane@acme.com", "date": "Mon, 09 Jun 2025 10:00:00 +0000", "subject": "Re: intro"}
		]}]}`))
	})

	msgs, err := c.SearchMail(context.Background(), "to:jane@acme.com OR from:jane@acme.com", 50)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "jane@acme.com", msgs[0].From)
}

func TestSearchMail_Empty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"result": {"emails": []}}`))
	})

	msgs, err := c.SearchMail(context.Background(), "to:x@y.com", 50)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
