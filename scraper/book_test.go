package scraper

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hkulib-booker/metrics"
)

type fakePortal struct {
	mu          sync.Mutex
	page        string
	confirmBody string
	failStatus  int
	gets        []string
	posts       []string
}

func (p *fakePortal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failStatus != 0 {
		w.WriteHeader(p.failStatus)
		return
	}
	switch r.Method {
	case http.MethodGet:
		p.gets = append(p.gets, r.URL.RequestURI())
		io.WriteString(w, p.page)
	case http.MethodPost:
		body, _ := io.ReadAll(r.Body)
		p.posts = append(p.posts, string(body))
		if len(p.posts) == 1 {
			io.WriteString(w, "1|#||4|0|pageRedirect||")
			return
		}
		io.WriteString(w, p.confirmBody)
	}
}

func newTestClient(t *testing.T, p *fakePortal) *Client {
	t.Helper()
	srv := httptest.NewServer(p)
	t.Cleanup(srv.Close)
	return NewClient(WithBaseURL(srv.URL))
}

func TestBookSuccess(t *testing.T) {
	portal := &fakePortal{
		page:        bookingPage(testTokens),
		confirmBody: `<span id="main_lblResult">Your Booking is successful. Booking ref: 123</span>`,
	}
	c := newTestClient(t, portal)
	before := testutil.ToFloat64(metrics.BookingAttempts.WithLabelValues(metrics.OutcomeSuccess))

	req, err := NewBookingRequest("2021-09-30", "09301030", "130")
	require.NoError(t, err)
	require.NoError(t, c.Book(context.Background(), req))

	require.Len(t, portal.gets, 1)
	assert.Equal(t, "/Secure/NewBooking.aspx?library=3&ftype=21&facility=130&date=20210930&session=1", portal.gets[0])

	require.Len(t, portal.posts, 2)
	hold := decodeForm(t, portal.posts[0])
	confirm := decodeForm(t, portal.posts[1])
	assert.Equal(t, newHoldForm(testTokens, req), hold)
	assert.Equal(t, newHoldForm(testTokens, req).confirm(), confirm)
	assert.Equal(t, hold[:4], confirm[:4], "tokens must be reused for the confirmation")

	after := testutil.ToFloat64(metrics.BookingAttempts.WithLabelValues(metrics.OutcomeSuccess))
	assert.Equal(t, before+1, after)
}

func TestBookRejected(t *testing.T) {
	body := `<span id="main_lblResult">The session is fully booked.</span>`
	portal := &fakePortal{page: bookingPage(testTokens), confirmBody: body}
	c := newTestClient(t, portal)

	req, err := NewBookingRequest("2021-09-30", "08300930", "129")
	require.NoError(t, err)
	err = c.Book(context.Background(), req)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBookingRejected)
	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, body, rejected.Body)
	assert.Len(t, portal.posts, 2)
}

func TestBookTokenMissing(t *testing.T) {
	portal := &fakePortal{page: `<html><body>Please sign in</body></html>`}
	c := newTestClient(t, portal)

	req, err := NewBookingRequest("2021-09-30", "08300930", "129")
	require.NoError(t, err)
	err = c.Book(context.Background(), req)

	assert.ErrorIs(t, err, ErrProtocolTokenMissing)
	assert.Empty(t, portal.posts)
}

func TestBookStatusError(t *testing.T) {
	portal := &fakePortal{failStatus: http.StatusInternalServerError}
	c := newTestClient(t, portal)

	req, err := NewBookingRequest("2021-09-30", "08300930", "129")
	require.NoError(t, err)
	err = c.Book(context.Background(), req)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, http.MethodGet, statusErr.Method)
}

func TestBookCancelledContext(t *testing.T) {
	portal := &fakePortal{page: bookingPage(testTokens)}
	c := newTestClient(t, portal)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := NewExplicitBookingRequest("2021-09-30", "08300930", "0", "3", "3", "21", "129")
	err := c.Book(ctx, req)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBookingOutcome(t *testing.T) {
	assert.Equal(t, metrics.OutcomeSuccess, bookingOutcome(nil))
	assert.Equal(t, metrics.OutcomeRejected, bookingOutcome(&RejectedError{}))
	assert.Equal(t, metrics.OutcomeTokenMissing, bookingOutcome(ErrProtocolTokenMissing))
	assert.Equal(t, metrics.OutcomeError, bookingOutcome(io.EOF))
}
