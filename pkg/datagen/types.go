package datagen

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Tool names exposed by the gateway.
const (
	toolSearchPerson  = "search_linkedin_person"
	toolPersonProfile = "get_linkedin_person_data"
	toolSearchMail    = "gmail_search_emails"
)

// PersonQuery holds the identity fields for a structured person search.
// Empty fields are omitted from the tool arguments.
type PersonQuery struct {
	Email     string
	FirstName string
	LastName  string
	Company   string
}

// Person is a LinkedIn person record as returned by the gateway tools.
type Person struct {
	FirstName   string       `json:"firstName,omitempty"`
	LastName    string       `json:"lastName,omitempty"`
	Headline    string       `json:"headline,omitempty"`
	JobTitle    string       `json:"jobTitle,omitempty"`
	LinkedInURL string       `json:"linkedInUrl,omitempty"`
	Location    string       `json:"location,omitempty"`
	Industry    string       `json:"industry,omitempty"`
	Company     CompanyField `json:"company,omitempty"`
	Positions   Positions    `json:"positions,omitempty"`
}

// CompanyField tolerates the gateway returning company as either a bare
// string or a nested object with name and industry.
type CompanyField struct {
	Name     string `json:"name,omitempty"`
	Industry string `json:"industry,omitempty"`
}

// UnmarshalJSON accepts both `"Acme"` and `{"name": "Acme", ...}`.
func (f *CompanyField) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.Name = s
		return nil
	}

	type alias CompanyField
	var obj alias
	if err := json.Unmarshal(data, &obj); err != nil {
		return eris.Wrap(err, "datagen: decode company field")
	}
	*f = CompanyField(obj)
	return nil
}

// Positions holds a person's employment history, most recent first.
type Positions struct {
	PositionHistory []Position `json:"positionHistory,omitempty"`
}

// Position is one entry in the employment history.
type Position struct {
	Title       string `json:"title,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
}

// EmailMessage is one Gmail search hit. Date is the provider's raw string;
// parsing is the caller's concern.
type EmailMessage struct {
	From    string `json:"from"`
	Date    string `json:"date"`
	Subject string `json:"subject"`
}

// personEnvelope tolerates tools returning either {"person": {...}} or the
// person object directly.
type personEnvelope struct {
	Person *Person `json:"person"`
}

// SearchPerson runs the structured LinkedIn person search. A miss returns
// (nil, nil): no match is a normal outcome, not an error.
func (c *httpClient) SearchPerson(ctx context.Context, q PersonQuery) (*Person, error) {
	args := map[string]any{}
	if q.Email != "" {
		args["email"] = q.Email
	}
	if q.FirstName != "" {
		args["firstName"] = q.FirstName
	}
	if q.LastName != "" {
		args["lastName"] = q.LastName
	}
	if q.Company != "" {
		args["companyName"] = q.Company
	}

	raw, err := c.ExecuteTool(ctx, toolSearchPerson, args)
	if err != nil {
		return nil, err
	}
	return decodePerson(raw)
}

// PersonProfile fetches the full profile behind a resolved LinkedIn URL.
func (c *httpClient) PersonProfile(ctx context.Context, linkedinURL string) (*Person, error) {
	raw, err := c.ExecuteTool(ctx, toolPersonProfile, map[string]any{"linkedin_url": linkedinURL})
	if err != nil {
		return nil, err
	}
	return decodePerson(raw)
}

func decodePerson(raw json.RawMessage) (*Person, error) {
	var env personEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Person != nil {
		return env.Person, nil
	}

	var p Person
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, eris.Wrap(err, "datagen: decode person")
	}
	if p.isEmpty() {
		return nil, nil
	}
	return &p, nil
}

func (p Person) isEmpty() bool {
	return p.FirstName == "" && p.LastName == "" && p.Headline == "" &&
		p.JobTitle == "" && p.LinkedInURL == "" && p.Location == "" &&
		p.Industry == "" && p.Company.Name == "" &&
		len(p.Positions.PositionHistory) == 0
}

// mailEnvelope is the Gmail tool's result shape.
type mailEnvelope struct {
	Emails []EmailMessage `json:"emails"`
}

// SearchMail searches Gmail history. Zero hits returns an empty slice.
func (c *httpClient) SearchMail(ctx context.Context, query string, maxResults int) ([]EmailMessage, error) {
	raw, err := c.ExecuteTool(ctx, toolSearchMail, map[string]any{
		"query":       query,
		"max_results": maxResults,
	})
	if err != nil {
		return nil, err
	}

	var env mailEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, eris.Wrap(err, "datagen: decode mail results")
	}
	return env.Emails, nil
}
