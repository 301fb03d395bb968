package scraper

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

const recordTableSelector = "#main_gvRecord"

// record table columns
const (
	colStart    = 1
	colEnd      = 2
	colFacility = 5
	colStatus   = 6
	minCells    = colStatus + 1
)

// ListBookings returns the rows of the user's booking record page, in page
// order.
func (c *Client) ListBookings(ctx context.Context) ([]Record, error) {
	body, err := c.get(ctx, c.baseURL+bookingRecordPath)
	if err != nil {
		return nil, fmt.Errorf("error fetching booking records: %w", err)
	}
	return ParseRecords(strings.NewReader(body))
}

// ParseRecords reads the booking record table from an HTML document.
func ParseRecords(r io.Reader) ([]Record, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("error parsing booking record HTML: %w", err)
	}

	table := doc.Find(recordTableSelector).First()
	if table.Length() == 0 {
		return nil, ErrRecordTableMissing
	}

	records := []Record{}
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		// header
		if i == 0 {
			return
		}
		cells := row.Find("td")
		n := cells.Length()
		// pager and empty-result rows
		if n <= 3 {
			return
		}
		if n < minCells {
			log.Warn().Int("row", i).Int("cells", n).Msg("Skipping booking record row with unexpected layout")
			return
		}

		text := func(col int) string {
			return strings.TrimSpace(cells.Eq(col).Text())
		}

		startFields := strings.Fields(text(colStart))
		endFields := strings.Fields(text(colEnd))
		if len(startFields) == 0 || len(endFields) == 0 {
			log.Warn().Int("row", i).Msg("Skipping booking record row without times")
			return
		}

		records = append(records, Record{
			Date:         strings.Join(startFields[:len(startFields)-1], " "),
			Time:         startFields[len(startFields)-1] + " - " + endFields[len(endFields)-1],
			FacilityName: text(colFacility),
			Status:       text(colStatus),
		})
	})

	return records, nil
}
