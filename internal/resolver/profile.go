package resolver

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-enrich/internal/model"
	"github.com/sells-group/crm-enrich/pkg/datagen"
)

// FetchProfile pulls the full profile behind a resolved URL and maps it to
// a sparse update. A nil update with nil error means the provider returned
// nothing usable.
func FetchProfile(ctx context.Context, client datagen.Client, linkedinURL string) (*model.ProfileUpdate, error) {
	person, err := client.PersonProfile(ctx, linkedinURL)
	if err != nil {
		return nil, eris.Wrap(err, "resolver: fetch profile")
	}
	if person == nil {
		return nil, nil
	}

	upd := ExtractProfile(person)
	if upd.IsEmpty() {
		return nil, nil
	}
	return &upd, nil
}

// ExtractProfile maps a provider person record to the fields we persist.
// Missing fields stay nil so they are never written as empty strings.
func ExtractProfile(p *datagen.Person) model.ProfileUpdate {
	var upd model.ProfileUpdate

	title := p.Headline
	if title == "" {
		title = p.JobTitle
	}
	if title == "" && len(p.Positions.PositionHistory) > 0 {
		title = p.Positions.PositionHistory[0].Title
	}
	if title != "" {
		upd.Title = &title
	}

	company := p.Company.Name
	if company == "" && len(p.Positions.PositionHistory) > 0 {
		company = p.Positions.PositionHistory[0].CompanyName
	}
	if company != "" {
		upd.Company = &company
	}

	if p.Location != "" {
		loc := p.Location
		upd.Location = &loc
	}

	industry := p.Industry
	if industry == "" {
		industry = p.Company.Industry
	}
	if industry != "" {
		upd.Industry = &industry
	}

	return upd
}
