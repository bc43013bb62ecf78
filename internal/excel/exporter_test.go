package excel

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"prospect-tracker-api/internal/model"
)

func sampleProspects() []model.Prospect {
	return []model.Prospect{
		{
			Prospect:  "Acme",
			Geo:       "EMEA",
			Month:     "March",
			Quarter:   "Q1",
			Category:  "Finance",
			OppID:     "OPP-1",
			RAG:       "Green",
			Call1:     model.CallRecord{Checked: true, Notes: "intro"},
			Call3:     model.CallRecord{Notes: "closing"},
			Deck:      "https://files.example.com/decks/a.pdf",
			CreatedAt: time.Date(2025, 3, 4, 23, 30, 0, 0, time.UTC),
		},
		{
			Prospect:  "Globex",
			Geo:       "APAC",
			OppID:     "OPP-2",
			CreatedAt: time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC),
		},
	}
}

// roundTrip serialises the workbook and opens it again the way a client would.
func roundTrip(t *testing.T, f *excelize.File) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	reopened, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })
	return reopened
}

func TestBuild_HeaderAndRows(t *testing.T) {
	f, err := NewExporter().Build(sampleProspects())
	require.NoError(t, err)
	out := roundTrip(t, f)

	assert.Equal(t, []string{SheetName}, out.GetSheetList())

	rows, err := out.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, Headers(), rows[0])
	assert.Len(t, rows[0], 20)

	first := rows[1]
	assert.Equal(t, "Acme", first[0])
	assert.Equal(t, "EMEA", first[1])
	assert.Equal(t, "intro", first[5])
	assert.Equal(t, "", first[6])
	assert.Equal(t, "closing", first[7])
	assert.Equal(t, "Finance", first[11])
	assert.Equal(t, "OPP-1", first[14])
	assert.Equal(t, "https://files.example.com/decks/a.pdf", first[16])
	assert.Equal(t, "Green", first[17])
	assert.Equal(t, "2025-03-04", first[19])
}

func TestBuild_DeckIsHyperlink(t *testing.T) {
	f, err := NewExporter().Build(sampleProspects())
	require.NoError(t, err)
	out := roundTrip(t, f)

	linked, target, err := out.GetCellHyperLink(SheetName, "Q2")
	require.NoError(t, err)
	assert.True(t, linked)
	assert.Equal(t, "https://files.example.com/decks/a.pdf", target)

	linked, _, err = out.GetCellHyperLink(SheetName, "Q3")
	require.NoError(t, err)
	assert.False(t, linked)
}

func TestBuild_StylesApplied(t *testing.T) {
	f, err := NewExporter().Build(sampleProspects())
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellStyle(SheetName, "A1")
	require.NoError(t, err)
	data, err := f.GetCellStyle(SheetName, "B3")
	require.NoError(t, err)
	link, err := f.GetCellStyle(SheetName, "Q2")
	require.NoError(t, err)
	emptyCell, err := f.GetCellStyle(SheetName, "P3")
	require.NoError(t, err)

	assert.NotZero(t, header)
	assert.NotZero(t, data)
	assert.NotEqual(t, header, data)
	assert.NotEqual(t, data, link)
	assert.Equal(t, data, emptyCell, "empty data cells are bordered too")

	width, err := f.GetColWidth(SheetName, "S")
	require.NoError(t, err)
	assert.Equal(t, float64(40), width)
}

func TestBuild_NoRowsStillHasHeader(t *testing.T) {
	f, err := NewExporter().Build(nil)
	require.NoError(t, err)
	out := roundTrip(t, f)

	rows, err := out.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
