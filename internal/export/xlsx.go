package export

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/crm-enrich/internal/model"
)

// WriteXLSX writes the ranked contact list as a spreadsheet at path.
func WriteXLSX(path string, contacts []model.Contact) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Contacts")
	if err != nil {
		return eris.Wrap(err, "export: add xlsx sheet")
	}

	header := sheet.AddRow()
	for _, h := range csvHeader {
		header.AddCell().SetString(h)
	}

	for i, c := range contacts {
		row := sheet.AddRow()
		row.AddCell().SetInt(i + 1)
		row.AddCell().SetInt(c.PriorityScore)
		row.AddCell().SetString(c.DisplayName())
		row.AddCell().SetString(c.Email)
		row.AddCell().SetString(c.Company)
		row.AddCell().SetString(c.Title)
		row.AddCell().SetString(c.LinkedInURL)
		if t := c.SignupTime(); t != nil {
			row.AddCell().SetString(t.UTC().Format(time.RFC3339))
		} else {
			row.AddCell().SetString("")
		}
	}

	return eris.Wrap(f.Save(path), "export: save xlsx")
}
