package scraper

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"hkulib-booker/facility"
)

const (
	DefaultBookingBaseURL = "https://booking.lib.hku.hk"

	newBookingPath    = "/Secure/NewBooking.aspx"
	bookingRecordPath = "/Secure/MyBookingRecord.aspx"
)

// NewBookingRequest resolves facilityID through the catalog and finds slot in
// its session table. A slot that is not in the table selects session 0, which
// is the portal's first slot; use NewStrictBookingRequest to reject it instead.
func NewBookingRequest(date, slot, facilityID string) (BookingRequest, error) {
	req, matched, err := newCatalogRequest(date, slot, facilityID)
	if err != nil {
		return BookingRequest{}, err
	}
	if !matched {
		log.Warn().
			Str("facility_id", req.facilityID).
			Str("time", slot).
			Msg("Time slot not in session table, falling back to session 0")
	}
	return req, nil
}

// NewStrictBookingRequest is NewBookingRequest without the session 0 fallback.
func NewStrictBookingRequest(date, slot, facilityID string) (BookingRequest, error) {
	req, matched, err := newCatalogRequest(date, slot, facilityID)
	if err != nil {
		return BookingRequest{}, err
	}
	if !matched {
		return BookingRequest{}, fmt.Errorf("%w: %q for facility %s", ErrUnknownSession, slot, req.facilityID)
	}
	return req, nil
}

func newCatalogRequest(date, slot, facilityID string) (BookingRequest, bool, error) {
	f, id, err := facility.LookupString(facilityID)
	if err != nil {
		return BookingRequest{}, false, err
	}
	session, matched := f.SessionIndex(slot)

	return BookingRequest{
		date:         date,
		slot:         slot,
		session:      strconv.Itoa(session),
		library:      strconv.Itoa(f.Library),
		floor:        strconv.Itoa(f.Floor),
		facilityType: strconv.Itoa(f.Type),
		facilityID:   strconv.Itoa(id),
	}, matched, nil
}

// NewExplicitBookingRequest builds a request for facilities outside the
// catalog. Nothing is validated.
func NewExplicitBookingRequest(date, slot, session, library, floor, facilityType, facilityID string) BookingRequest {
	return BookingRequest{
		date:         date,
		slot:         slot,
		session:      session,
		library:      library,
		floor:        floor,
		facilityType: facilityType,
		facilityID:   facilityID,
	}
}

// BookingURL returns the NewBooking page URL on the public portal.
func (r BookingRequest) BookingURL() string {
	return r.bookingURL(DefaultBookingBaseURL)
}

// The query is assembled by hand: the portal expects this exact parameter
// order and the date with its hyphens removed.
func (r BookingRequest) bookingURL(base string) string {
	return fmt.Sprintf("%s%s?library=%s&ftype=%s&facility=%s&date=%s&session=%s",
		strings.TrimRight(base, "/"),
		newBookingPath,
		r.library,
		r.facilityType,
		r.facilityID,
		compactDate(r.date),
		r.session,
	)
}

// SessionField is the name of the form control for the selected session.
func (r BookingRequest) SessionField() string {
	return "ctl00$main$listSession$" + r.session
}

func compactDate(date string) string {
	return strings.ReplaceAll(date, "-", "")
}
