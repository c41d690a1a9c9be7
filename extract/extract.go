// Package extract turns a fetched listing page into contract records.
// Field extraction matches the table's header labels, with positional
// fallback when the portal omits a thead.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/noahcordero1/multi-subsidiary-scraper/models"
)

// column identifies one semantic field of the listing table.
type column int

const (
	colDescription column = iota
	colSupplier
	colCPV
	colBidders
	colValue
	colDate
	numColumns
)

// headerLabels maps a lowercased substring of the portal's header text to
// the semantic column it carries.
var headerLabels = map[string]column{
	"beschreibung": colDescription,
	"lieferant":    colSupplier,
	"kategorie":    colCPV,
	"cpv":          colCPV,
	"bieter":       colBidders,
	"summe":        colValue,
	"aktualisiert": colDate,
}

// defaultOrder is the positional fallback: the portal's column order as
// observed when no thead is present.
var defaultOrder = []column{colDescription, colSupplier, colCPV, colBidders, colValue, colDate}

// PageResult is the outcome of extracting one listing page.
type PageResult struct {
	Records []models.ContractRecord

	// TotalRows is the number of body rows the page carried.
	TotalRows int

	// MalformedRows counts rows skipped for lacking both identifying
	// fields (description and supplier).
	MalformedRows int

	// NoResults is true when the page carries no listing: no table, an
	// empty tbody, or the portal's explicit no-results marker. It is the
	// walker's end-of-listing signal.
	NoResults bool
}

// Extractor parses listing pages. malformedThreshold is the malformed-row
// ratio above which a non-empty page is reported as a structural parse
// failure rather than a partial result.
type Extractor struct {
	malformedThreshold float64
}

// New creates an Extractor.
func New(malformedThreshold float64) *Extractor {
	return &Extractor{malformedThreshold: malformedThreshold}
}

// Page extracts all contract records from a fetched page. One pass; the
// raw page is not consulted again afterwards.
func (e *Extractor) Page(raw *models.RawPage) (*PageResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw.HTML))
	if err != nil {
		return nil, models.NewCrawlError(models.ErrCodeStructuralParse, "listing page is not parsable HTML", err)
	}

	result := &PageResult{}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		result.NoResults = true
		return result, nil
	}

	cols := mapColumns(table)

	rows := table.Find("tbody tr")
	if rows.Length() == 0 {
		result.NoResults = true
		return result, nil
	}

	rows.Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th").Map(func(_ int, c *goquery.Selection) string {
			return strings.TrimSpace(c.Text())
		})
		if len(cells) == 0 {
			return
		}
		result.TotalRows++

		rec, ok := buildRecord(cells, cols, raw)
		if !ok {
			result.MalformedRows++
			return
		}
		result.Records = append(result.Records, rec)
	})

	if result.TotalRows > 0 {
		ratio := float64(result.MalformedRows) / float64(result.TotalRows)
		if ratio > e.malformedThreshold {
			return nil, models.NewCrawlError(
				models.ErrCodeStructuralParse,
				fmt.Sprintf("%d of %d rows malformed on page %d of %s, listing layout may have changed",
					result.MalformedRows, result.TotalRows, raw.PageIndex, raw.SubsidiaryID),
				nil,
			)
		}
	}

	if len(result.Records) == 0 && result.MalformedRows == 0 {
		result.NoResults = true
	}
	return result, nil
}

// mapColumns derives the cell index of each semantic column from the
// table's header labels, falling back to the known positional order.
func mapColumns(table *goquery.Selection) map[column]int {
	cols := make(map[column]int, numColumns)

	table.Find("thead tr").First().Find("th, td").Each(func(i int, h *goquery.Selection) {
		label := strings.ToLower(strings.TrimSpace(h.Text()))
		for substr, col := range headerLabels {
			if strings.Contains(label, substr) {
				if _, taken := cols[col]; !taken {
					cols[col] = i
				}
				break
			}
		}
	})

	if len(cols) == 0 {
		for i, col := range defaultOrder {
			cols[col] = i
		}
	}
	return cols
}

// buildRecord assembles one record from a row's cell texts. A row missing
// description or supplier is malformed; missing optional fields become
// explicit unknown markers, never guessed defaults.
func buildRecord(cells []string, cols map[column]int, raw *models.RawPage) (models.ContractRecord, bool) {
	cell := func(col column) string {
		idx, ok := cols[col]
		if !ok || idx >= len(cells) {
			return ""
		}
		return cells[idx]
	}

	description := strings.TrimSpace(cell(colDescription))
	supplier := strings.TrimSpace(cell(colSupplier))
	if description == "" || supplier == "" {
		return models.ContractRecord{}, false
	}

	rec := models.ContractRecord{
		Description:     description,
		SupplierName:    supplier,
		CPVCategory:     strings.TrimSpace(cell(colCPV)),
		BidderCount:     models.UnknownBidderCount,
		ContractValue:   models.UnknownValue,
		SubsidiaryID:    raw.SubsidiaryID,
		SourcePageIndex: raw.PageIndex,
	}

	if n, err := parseBidderCount(cell(colBidders)); err == nil {
		rec.BidderCount = n
	}
	if v, err := parseAmount(cell(colValue)); err == nil {
		rec.ContractValue = v
	}
	if d, err := parseDate(cell(colDate)); err == nil {
		rec.LastUpdated = d
	}

	return rec, true
}
