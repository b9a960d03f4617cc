package export

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/crm-enrich/internal/model"
)

var exportNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func sampleContacts() []model.Contact {
	signup := exportNow.Add(-72 * time.Hour)
	return []model.Contact{
		{
			ID: 1, Email: "jane@acme.com", FirstName: "Jane", LastName: "Doe",
			Company: "Acme", Title: "CTO", PriorityScore: 95,
			LinkedInURL: "https://www.linkedin.com/in/janedoe", SignupAt: &signup,
		},
		{
			ID: 2, Email: "bob@x.com", PriorityScore: 40,
		},
	}
}

func TestTierIcon(t *testing.T) {
	assert.Equal(t, "🔥", tierIcon(95))
	assert.Equal(t, "⭐", tierIcon(75))
	assert.Equal(t, "✓", tierIcon(50))
	assert.Equal(t, "·", tierIcon(49))
	assert.Equal(t, "·", tierIcon(0))
}

func TestTimeAgo(t *testing.T) {
	tp := func(d time.Duration) *time.Time {
		v := exportNow.Add(-d)
		return &v
	}
	tests := []struct {
		name string
		at   *time.Time
		want string
	}{
		{"nil", nil, "Unknown"},
		{"just now", tp(30 * time.Second), "Just now"},
		{"one minute", tp(90 * time.Second), "1 minute ago"},
		{"minutes", tp(10 * time.Minute), "10 minutes ago"},
		{"hours", tp(5 * time.Hour), "5 hours ago"},
		{"days", tp(72 * time.Hour), "3 days ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, timeAgo(tt.at, exportNow))
		})
	}
}

func TestWriteConsole(t *testing.T) {
	var buf bytes.Buffer
	err := WriteConsole(&buf, sampleContacts(), ConsoleOptions{Now: func() time.Time { return exportNow }})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Top 2 Priority Contacts for 2025-06-15")
	assert.Contains(t, out, "1. 🔥 [Score: 95] Jane Doe")
	assert.Contains(t, out, "CTO @ Acme")
	assert.Contains(t, out, "https://www.linkedin.com/in/janedoe")
	assert.Contains(t, out, "Signed up: 3 days ago")
	// Missing fields fall back, name falls back to the email local-part.
	assert.Contains(t, out, "2. · [Score: 40] Bob")
	assert.Contains(t, out, "Unknown Title @ Unknown Company")
	assert.Contains(t, out, "Signed up: Unknown")
}

func TestWriteConsole_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteConsole(&buf, nil, ConsoleOptions{}))
	assert.Contains(t, buf.String(), "No contacts found")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleContacts()))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"1", "95", "Jane Doe", "jane@acme.com", "Acme", "CTO",
		"https://www.linkedin.com/in/janedoe", "2025-06-12T12:00:00Z"}, records[1])
	assert.Equal(t, "2", records[2][0])
	assert.Equal(t, "Bob", records[2][2])
	assert.Empty(t, records[2][7])
}

func TestWriteXLSX_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.xlsx")
	require.NoError(t, WriteXLSX(path, sampleContacts()))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet := f.Sheets[0]
	assert.Equal(t, "Contacts", sheet.Name)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "rank", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "Jane Doe", sheet.Rows[1].Cells[2].String())
	score, err := sheet.Rows[1].Cells[1].Int()
	require.NoError(t, err)
	assert.Equal(t, 95, score)
}
