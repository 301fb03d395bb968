package icsfile

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/rs/zerolog/log"

	"hkulib-booker/scraper"
)

const productID = "-//hkulib-booker//bookings//EN"

// Build turns booking records into a calendar. Cancelled bookings and rows
// whose date cannot be parsed are left out.
func Build(records []scraper.Record, loc *time.Location, now time.Time) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)

	for _, r := range records {
		if isCancelled(r.Status) {
			continue
		}
		start, end, err := r.Span(loc)
		if err != nil {
			log.Warn().Err(err).Str("facility", r.FacilityName).Msg("Skipping booking record")
			continue
		}

		event := cal.AddEvent(EventID(r.FacilityName, start, end))
		event.SetDtStampTime(now)
		event.SetStartAt(start)
		event.SetEndAt(end)
		event.SetSummary(r.FacilityName)
		event.SetLocation("HKU Libraries")
		event.SetDescription("Status: " + r.Status)
	}
	return cal
}

// Write serializes the records' calendar to filename.
func Write(filename string, records []scraper.Record, loc *time.Location) error {
	cal := Build(records, loc, time.Now())
	if err := os.WriteFile(filename, []byte(cal.Serialize()), 0o644); err != nil {
		return fmt.Errorf("error writing ICS file: %w", err)
	}
	log.Info().Str("file", filename).Int("events", len(cal.Events())).Msg("ICS file written")
	return nil
}

// EventID derives a stable identifier for a booking.
func EventID(summary string, start, end time.Time) string {
	hash := md5.New()
	hash.Write([]byte(summary + start.UTC().Format(time.RFC3339) + end.UTC().Format(time.RFC3339)))
	return hex.EncodeToString(hash.Sum(nil))
}

func isCancelled(status string) bool {
	return strings.Contains(strings.ToLower(status), "cancel")
}
