// Package resolver locates LinkedIn profile URLs for contacts by running a
// ranked cascade of search providers, then hydrates full profile fields for
// contacts whose URL is known.
package resolver

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/crm-enrich/pkg/datagen"
	"github.com/sells-group/crm-enrich/pkg/exa"
	"github.com/sells-group/crm-enrich/pkg/linkup"
)

const profileURLPrefix = "https://www.linkedin.com/in/"

var profileURLPattern = regexp.MustCompile(`https?://www\.linkedin\.com/in/[^\s)\]>,"']+`)

// Provider attempts to resolve an identity to a LinkedIn profile URL.
// An empty URL with a nil error means the provider had no match.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, id Identity) (string, error)
}

// Resolver runs providers in rank order. The first non-empty URL wins;
// provider errors count as misses so a flaky provider never blocks the
// ones below it.
type Resolver struct {
	providers []Provider
}

// New builds a Resolver over the given providers, highest rank first.
func New(providers ...Provider) *Resolver {
	return &Resolver{providers: providers}
}

// NewCascade wires the standard provider order from the configured clients.
// Nil clients and providers disabled in cfg are skipped.
func NewCascade(dg datagen.Client, lk linkup.Client, ex exa.Client, cfg Config) *Resolver {
	var providers []Provider
	if dg != nil && cfg.Providers.Datagen.Enabled {
		providers = append(providers, &datagenProvider{client: dg})
	}
	if lk != nil && cfg.Providers.Linkup.Enabled {
		providers = append(providers, &linkupProvider{client: lk})
	}
	if ex != nil && cfg.Providers.Exa.Enabled {
		providers = append(providers, &exaProvider{client: ex, numResults: cfg.Providers.Exa.NumResults})
	}
	return New(providers...)
}

// Resolve returns the first provider's hit and that provider's name as the
// enrichment source. All-miss returns ("", "") without error.
func (r *Resolver) Resolve(ctx context.Context, id Identity) (url, source string) {
	for _, p := range r.providers {
		if ctx.Err() != nil {
			return "", ""
		}

		got, err := p.Resolve(ctx, id)
		if err != nil {
			zap.L().Warn("resolver: provider failed, trying next",
				zap.String("provider", p.Name()),
				zap.String("email", id.Email),
				zap.Error(err),
			)
			continue
		}
		if got != "" {
			zap.L().Debug("resolver: profile found",
				zap.String("provider", p.Name()),
				zap.String("email", id.Email),
				zap.String("url", got),
			)
			return got, p.Name()
		}
	}
	return "", ""
}

// datagenProvider runs the gateway's structured person search.
type datagenProvider struct {
	client datagen.Client
}

func (p *datagenProvider) Name() string { return "datagen" }

func (p *datagenProvider) Resolve(ctx context.Context, id Identity) (string, error) {
	person, err := p.client.SearchPerson(ctx, datagen.PersonQuery{
		Email:     id.Email,
		FirstName: id.FirstName,
		LastName:  id.LastName,
		Company:   id.Company,
	})
	if err != nil {
		return "", err
	}
	if person == nil {
		return "", nil
	}
	return person.LinkedInURL, nil
}

// linkupProvider runs a site-scoped web search and takes the first result
// whose URL is a profile URL.
type linkupProvider struct {
	client linkup.Client
}

func (p *linkupProvider) Name() string { return "linkup" }

func (p *linkupProvider) Resolve(ctx context.Context, id Identity) (string, error) {
	query := id.DisplayQuery() + " site:linkedin.com/in/"
	results, err := p.client.Search(ctx, query)
	if err != nil {
		return "", err
	}
	for _, r := range results {
		if strings.HasPrefix(r.URL, profileURLPrefix) {
			return r.URL, nil
		}
	}
	return "", nil
}

// exaProvider runs a natural-language search; profile URLs may appear in a
// result's URL field or buried in its text excerpt.
type exaProvider struct {
	client     exa.Client
	numResults int
}

func (p *exaProvider) Name() string { return "exa" }

func (p *exaProvider) Resolve(ctx context.Context, id Identity) (string, error) {
	query := id.DisplayQuery() + " LinkedIn profile"
	results, err := p.client.Search(ctx, query, p.numResults)
	if err != nil {
		return "", err
	}
	for _, r := range results {
		if strings.Contains(r.URL, "linkedin.com/in/") {
			return r.URL, nil
		}
		if m := profileURLPattern.FindString(r.Text); m != "" {
			return m, nil
		}
	}
	return "", nil
}
