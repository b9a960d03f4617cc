package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-enrich/internal/model"
)

var csvHeader = []string{
	"rank", "score", "name", "email", "company", "title", "linkedin_url", "signed_up_at",
}

// WriteCSV writes the ranked contact list in the daily-export column layout.
func WriteCSV(w io.Writer, contacts []model.Contact) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}

	for i, c := range contacts {
		signedUp := ""
		if t := c.SignupTime(); t != nil {
			signedUp = t.UTC().Format(time.RFC3339)
		}
		row := []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(c.PriorityScore),
			c.DisplayName(),
			c.Email,
			c.Company,
			c.Title,
			c.LinkedInURL,
			signedUp,
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteCSVFile writes the contact list to a file at path.
func WriteCSVFile(path string, contacts []model.Contact) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, fmt.Sprintf("export: create csv %s", path))
	}
	defer f.Close() //nolint:errcheck

	if err := WriteCSV(f, contacts); err != nil {
		return err
	}
	return eris.Wrap(f.Close(), "export: close csv")
}
