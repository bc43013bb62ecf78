package excel

import (
	"fmt"

	"prospect-tracker-api/internal/model"

	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Prospects"
	Filename    = "prospect_data.xlsx"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// excelize refuses more hyperlinks than this on one sheet
	maxHyperlinks = 65529
)

type column struct {
	header string
	width  float64
	value  func(p *model.Prospect) string
}

// columns is the export layout. Call slots contribute their notes only.
var columns = []column{
	{"Prospect", 25, func(p *model.Prospect) string { return p.Prospect }},
	{"Geo", 15, func(p *model.Prospect) string { return p.Geo }},
	{"Month", 12, func(p *model.Prospect) string { return p.Month }},
	{"Quarter", 12, func(p *model.Prospect) string { return p.Quarter }},
	{"LOB", 20, func(p *model.Prospect) string { return p.LOB }},
	{"Call 1", 30, callNotes(0)},
	{"Call 2", 30, callNotes(1)},
	{"Call 3", 30, callNotes(2)},
	{"Core Offerings", 30, func(p *model.Prospect) string { return p.CoreOfferings }},
	{"Primary Need", 30, func(p *model.Prospect) string { return p.PrimaryNeed }},
	{"Secondary Need", 30, func(p *model.Prospect) string { return p.SecondaryNeed }},
	{"Category", 30, func(p *model.Prospect) string { return p.Category }},
	{"Trace", 30, func(p *model.Prospect) string { return p.Trace }},
	{"Sales SPOC", 30, func(p *model.Prospect) string { return p.SalesSPOC }},
	{"Opp ID", 30, func(p *model.Prospect) string { return p.OppID }},
	{"Opp Details", 30, func(p *model.Prospect) string { return p.OppDetails }},
	{"Deck", 30, func(p *model.Prospect) string { return p.Attachment().URL }},
	{"RAG", 10, func(p *model.Prospect) string { return p.RAG }},
	{"Remark", 40, func(p *model.Prospect) string { return p.Remark }},
	{"Created At", 22, func(p *model.Prospect) string { return createdDate(p) }},
}

func callNotes(slot int) func(p *model.Prospect) string {
	return func(p *model.Prospect) string { return p.Calls()[slot].Notes }
}

// deckColumn is the 1-based position of the Deck column.
const deckColumn = 17

func createdDate(p *model.Prospect) string {
	if p.CreatedAt.IsZero() {
		return ""
	}
	return p.CreatedAt.UTC().Format("2006-01-02")
}

// Headers returns the export column titles in order.
func Headers() []string {
	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = col.header
	}
	return headers
}

type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

type styles struct {
	header int
	cell   int
	link   int
}

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
}

func newStyles(f *excelize.File) (*styles, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 12},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"000000"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder(),
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	cell, err := f.NewStyle(&excelize.Style{Border: thinBorder()})
	if err != nil {
		return nil, fmt.Errorf("cell style: %w", err)
	}

	link, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Color: "0000FF", Underline: "single"},
		Border: thinBorder(),
	})
	if err != nil {
		return nil, fmt.Errorf("link style: %w", err)
	}

	return &styles{header: header, cell: cell, link: link}, nil
}

// Build writes prospects into a new workbook, one row per record after the
// header row. The caller owns the returned file and must Close it.
func (e *Exporter) Build(prospects []model.Prospect) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := e.fill(f, prospects); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (e *Exporter) fill(f *excelize.File, prospects []model.Prospect) error {
	st, err := newStyles(f)
	if err != nil {
		return err
	}

	lastCol, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		return err
	}

	for i, col := range columns {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, name, name, col.width); err != nil {
			return fmt.Errorf("column width %s: %w", name, err)
		}
	}

	headers := Headers()
	if err := f.SetSheetRow(SheetName, "A1", &headers); err != nil {
		return fmt.Errorf("header row: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", st.header); err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	if len(prospects) == 0 {
		return nil
	}

	for i := range prospects {
		p := &prospects[i]
		row := make([]interface{}, len(columns))
		for c, col := range columns {
			row[c] = col.value(p)
		}

		start, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, start, &row); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	lastRow := len(prospects) + 1
	if err := f.SetCellStyle(SheetName, "A2", fmt.Sprintf("%s%d", lastCol, lastRow), st.cell); err != nil {
		return fmt.Errorf("data borders: %w", err)
	}

	links := 0
	for i := range prospects {
		deck := prospects[i].Attachment().URL
		if deck == "" || links >= maxHyperlinks {
			continue
		}

		cell, err := excelize.CoordinatesToCellName(deckColumn, i+2)
		if err != nil {
			return err
		}
		if err := f.SetCellHyperLink(SheetName, cell, deck, "External"); err != nil {
			return fmt.Errorf("deck link %s: %w", cell, err)
		}
		if err := f.SetCellStyle(SheetName, cell, cell, st.link); err != nil {
			return fmt.Errorf("deck style %s: %w", cell, err)
		}
		links++
	}

	return nil
}
