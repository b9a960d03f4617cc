package resolver

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/crm-enrich/internal/model"
)

// Identity carries the fields used to locate a person across providers.
type Identity struct {
	Email     string
	FirstName string
	LastName  string
	Company   string
}

// IdentityFromContact builds an Identity, inferring missing names from the
// email local-part.
func IdentityFromContact(c model.Contact) Identity {
	id := Identity{
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Company:   c.Company,
	}
	if id.FirstName == "" && id.LastName == "" {
		id.FirstName, id.LastName = InferName(c.Email)
	}
	return id
}

var titleCaser = cases.Title(language.Und)

// InferName guesses first and last name from an email local-part. Splits on
// "." then "_"; the first two segments become first/last name, otherwise
// the whole local-part becomes the first name.
func InferName(email string) (first, last string) {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return "", ""
	}

	sep := ""
	if strings.Contains(local, ".") {
		sep = "."
	} else if strings.Contains(local, "_") {
		sep = "_"
	}

	if sep != "" {
		if parts := strings.Split(local, sep); len(parts) >= 2 {
			return titleCaser.String(parts[0]), titleCaser.String(parts[1])
		}
	}

	return titleCaser.String(local), ""
}

// DisplayQuery renders the search string used by the web search providers.
func (id Identity) DisplayQuery() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{id.FirstName, id.LastName, id.Company} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
