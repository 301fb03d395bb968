package scraper

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recordPage = `<html><body>
<table class="grid" id="main_gvRecord">
  <tr><th>&nbsp;</th><th>Start</th><th>End</th><th>Library</th><th>Type</th><th>Facility</th><th>Status</th></tr>
  <tr>
    <td><input type="submit" value="Cancel" /></td>
    <td>30 Sep 2021 08:30</td>
    <td>30 Sep 09:30</td>
    <td>Main Library</td>
    <td>Discussion Room</td>
    <td>Discussion Room A</td>
    <td>Confirmed</td>
  </tr>
  <tr><td colspan="7">&nbsp;</td></tr>
  <tr>
    <td></td>
    <td>2021-10-01 (Fri) 20:30</td>
    <td>2021-10-01 (Fri) 22:00</td>
    <td>Main Library</td>
    <td>Discussion Room</td>
    <td>  Discussion Room F </td>
    <td>Cancelled</td>
  </tr>
  <tr><td>a</td><td>b</td><td>c</td><td>d</td><td>e</td></tr>
</table>
</body></html>`

func TestParseRecords(t *testing.T) {
	records, err := ParseRecords(strings.NewReader(recordPage))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, Record{
		Date:         "30 Sep 2021",
		Time:         "08:30 - 09:30",
		FacilityName: "Discussion Room A",
		Status:       "Confirmed",
	}, records[0])

	assert.Equal(t, Record{
		Date:         "2021-10-01 (Fri)",
		Time:         "20:30 - 22:00",
		FacilityName: "Discussion Room F",
		Status:       "Cancelled",
	}, records[1])
}

func TestParseRecordsSingleRow(t *testing.T) {
	page := `<table id="main_gvRecord">
<tr><th>h</th></tr>
<tr><td>_</td><td>30 Sep 2021 08:30</td><td>_ _ 09:30</td><td>_</td><td>_</td><td>Discussion Room A</td><td>Confirmed</td></tr>
</table>`
	records, err := ParseRecords(strings.NewReader(page))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "08:30 - 09:30", records[0].Time)
}

func TestParseRecordsEmptyTable(t *testing.T) {
	page := `<table id="main_gvRecord"><tr><th>h</th></tr><tr><td>No record</td></tr></table>`
	records, err := ParseRecords(strings.NewReader(page))
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, records)
}

func TestParseRecordsMissingTable(t *testing.T) {
	_, err := ParseRecords(strings.NewReader(`<html><body>Please sign in</body></html>`))
	assert.ErrorIs(t, err, ErrRecordTableMissing)
}

func TestListBookings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Secure/MyBookingRecord.aspx", r.URL.Path)
		io.WriteString(w, recordPage)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	records, err := c.ListBookings(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestRecordSpan(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Hong_Kong")
	require.NoError(t, err)

	start, end, err := Record{Date: "30 Sep 2021", Time: "08:30 - 09:30"}.Span(loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, time.September, 30, 8, 30, 0, 0, loc), start)
	assert.Equal(t, time.Date(2021, time.September, 30, 9, 30, 0, 0, loc), end)

	start, end, err = Record{Date: "2021-10-01 (Fri)", Time: "20:30 - 22:00"}.Span(loc)
	require.NoError(t, err)
	assert.Equal(t, 20, start.Hour())
	assert.Equal(t, 22, end.Hour())

	_, end, err = Record{Date: "01/10/2021", Time: "23:00 - 00:00"}.Span(loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, time.October, 2, 0, 0, 0, 0, loc), end)

	_, _, err = Record{Date: "someday", Time: "08:30 - 09:30"}.Span(loc)
	assert.Error(t, err)

	_, _, err = Record{Date: "30 Sep 2021", Time: "08:30"}.Span(loc)
	assert.Error(t, err)
}
