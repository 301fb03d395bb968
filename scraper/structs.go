package scraper

import (
	"fmt"
	"strings"
	"time"
)

// BookingRequest holds the values the booking form expects for one attempt.
// Fields are unexported so a request cannot change between building the URL
// and building the postback.
type BookingRequest struct {
	date         string
	slot         string
	session      string
	library      string
	floor        string
	facilityType string
	facilityID   string
}

func (r BookingRequest) Date() string         { return r.date }
func (r BookingRequest) Time() string         { return r.slot }
func (r BookingRequest) Session() string      { return r.session }
func (r BookingRequest) Library() string      { return r.library }
func (r BookingRequest) Floor() string        { return r.floor }
func (r BookingRequest) FacilityType() string { return r.facilityType }
func (r BookingRequest) FacilityID() string   { return r.facilityID }

// Record is one row of the "my bookings" table.
type Record struct {
	Date         string `json:"date"`
	Time         string `json:"time"`
	FacilityName string `json:"facility_name"`
	Status       string `json:"status"`
}

var recordDateLayouts = []string{
	"2 Jan 2006",
	"02 Jan 2006",
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"Jan 2, 2006",
}

// Span parses the record's date and time range in loc.
func (r Record) Span(loc *time.Location) (start, end time.Time, err error) {
	day, err := parseRecordDate(r.Date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	parts := strings.Split(r.Time, " - ")
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("unexpected time range %q", r.Time)
	}
	startClock, err := time.Parse("15:04", strings.TrimSpace(parts[0]))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("error parsing start time: %w", err)
	}
	endClock, err := time.Parse("15:04", strings.TrimSpace(parts[1]))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("error parsing end time: %w", err)
	}

	start = time.Date(day.Year(), day.Month(), day.Day(), startClock.Hour(), startClock.Minute(), 0, 0, loc)
	end = time.Date(day.Year(), day.Month(), day.Day(), endClock.Hour(), endClock.Minute(), 0, 0, loc)
	if !end.After(start) {
		// 24:00 is rendered as 00:00 of the next day
		end = end.AddDate(0, 0, 1)
	}
	return start, end, nil
}

func parseRecordDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	// drop a weekday in parentheses, e.g. "2021-09-30 (Thu)"
	if i := strings.Index(s, "("); i > 0 {
		s = strings.TrimSpace(s[:i])
	}
	for _, layout := range recordDateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised record date %q", s)
}
