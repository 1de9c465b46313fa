// Package registry loads the institution spreadsheet into normalized
// in-memory records. It owns the canonical record list; the crawler and
// geocoder only ever see copies and return results for the orchestrator
// to merge back.
package registry

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/painel-rs/enrich-cli/internal/model"
)

// columns holds the resolved index of each field of interest, -1 if the
// header was not found.
type columns struct {
	name         int
	abbreviation int
	sector       int
	city         int
	state        int
	contact      int
	site         int
	email        int
}

// placeholders are cell values that mean "no data". Spreadsheets exported
// from pandas carry literal "nan" strings in empty cells.
var placeholders = map[string]bool{
	"": true, "nan": true, "none": true, "null": true, "n/a": true, "-": true,
	"nome não disponível": true,
}

// Load reads the institution spreadsheet at path and returns normalized
// records. This is the only operation in the system whose failure aborts a
// run.
func Load(path string) ([]model.InstitutionRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("registry: %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) < 2 {
		return nil, eris.Errorf("registry: %s has no data rows", path)
	}

	header := rowToStrings(sheet.Rows[0])
	cols := probeColumns(header)
	if cols.name == -1 {
		return nil, eris.Errorf("registry: no institution name column in header %v", header)
	}

	records := make([]model.InstitutionRecord, 0, len(sheet.Rows)-1)
	for _, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		rec := buildRecord(cells, cols)
		if rec.Name == "" && rec.City == "" && rec.Site == "" {
			continue // fully blank row
		}
		records = append(records, rec)
	}

	zap.L().Info("registry loaded",
		zap.String("path", path),
		zap.Int("records", len(records)),
	)
	return records, nil
}

// probeColumns resolves field indexes by case-insensitive substring match
// on header names, tolerating naming drift across spreadsheet versions.
// The email header is claimed before the contact-person header because
// "E-mail de contato" also contains "contato".
func probeColumns(header []string) columns {
	cols := columns{name: -1, abbreviation: -1, sector: -1, city: -1, state: -1, contact: -1, site: -1, email: -1}
	claimed := make(map[int]bool, len(header))

	find := func(keys ...string) int {
		for i, h := range header {
			if claimed[i] {
				continue
			}
			lower := strings.ToLower(strings.TrimSpace(h))
			for _, k := range keys {
				if strings.Contains(lower, k) {
					claimed[i] = true
					return i
				}
			}
		}
		return -1
	}

	cols.email = find("e-mail", "email")
	cols.abbreviation = find("abreviatura", "abbreviation")
	cols.name = find("nome", "name")
	cols.sector = find("setor", "sector")
	cols.city = find("cidade", "city")
	cols.state = find("estado", "state")
	cols.contact = find("contato", "contact")
	cols.site = find("site", "website", "url")
	return cols
}

// buildRecord normalizes one spreadsheet row into a record. Placeholder
// cells become defined empties here, once, instead of being re-checked at
// every use site.
func buildRecord(cells []string, cols columns) model.InstitutionRecord {
	rec := model.InstitutionRecord{
		Name:         cleanCell(cells, cols.name),
		Abbreviation: cleanCell(cells, cols.abbreviation),
		Sector:       cleanCell(cells, cols.sector),
		City:         cleanCell(cells, cols.city),
		State:        normalizeState(cleanCell(cells, cols.state)),
		Contact:      cleanCell(cells, cols.contact),
		Site:         cleanCell(cells, cols.site),
		Email:        strings.ToLower(cleanCell(cells, cols.email)),
		CoordStatus:  model.CoordStatusUnresolved,
	}
	if rec.Sector == "" {
		rec.Sector = "Outros"
	}
	return rec
}

func cleanCell(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	v := strings.TrimSpace(cells[idx])
	if placeholders[strings.ToLower(v)] {
		return ""
	}
	return v
}

// normalizeState collapses full state names to their two-letter code and
// uppercases bare codes.
func normalizeState(state string) string {
	switch strings.ToLower(state) {
	case "rio grande do sul":
		return "RS"
	case "santa catarina":
		return "SC"
	case "paraná", "parana":
		return "PR"
	case "são paulo", "sao paulo":
		return "SP"
	}
	if len(state) == 2 {
		return strings.ToUpper(state)
	}
	return state
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		cells[i] = c.String()
	}
	return cells
}
