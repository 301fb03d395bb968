package scraper

import (
	"errors"
	"fmt"

	"hkulib-booker/facility"
)

var (
	// ErrInvalidFacilityID is returned when a facility id is outside every
	// catalog range.
	ErrInvalidFacilityID = facility.ErrInvalidFacilityID

	// ErrUnknownSession is returned by the strict constructor when the time
	// slot is not in the facility's session table.
	ErrUnknownSession = errors.New("time slot not in session table")

	// ErrProtocolTokenMissing means a hidden postback field was not found on
	// the booking page: the layout changed or the session is not logged in.
	ErrProtocolTokenMissing = errors.New("postback token missing from page")

	// ErrBookingRejected is matched by *RejectedError.
	ErrBookingRejected = errors.New("booking rejected")

	ErrRecordTableMissing = errors.New("booking record table not found")

	ErrLoginFailed = errors.New("login failed")
)

// RejectedError carries the portal's final response when the success marker
// is absent. The portal gives no structured reason.
type RejectedError struct {
	Body string
}

func (e *RejectedError) Error() string {
	return "booking rejected: success marker not found in confirmation response"
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrBookingRejected
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status code %d", e.Method, e.URL, e.StatusCode)
}
