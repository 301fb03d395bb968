package googlecalendar

import (
	"fmt"
	"os"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/calendar/v3"

	"hkulib-booker/icsfile"
)

const (
	sourceKey   = "source"
	sourceValue = "hkulib-booker"
)

// syncPlan lists the calendar changes needed to mirror the ICS file.
type syncPlan struct {
	Insert []*calendar.Event
	Update map[string]*calendar.Event // Google event id -> new content
	Delete []*calendar.Event
}

// AddICSEventsToCalendar mirrors the bookings ICS file into the calendar.
// Only events carrying this program's private property are touched.
func AddICSEventsToCalendar(service *calendar.Service, calendarID, filename string, loc *time.Location, clearAll bool) error {
	if clearAll {
		if err := ClearCalendar(service, calendarID); err != nil {
			return fmt.Errorf("error clearing Google Calendar: %w", err)
		}
	}

	desired, err := eventsFromICS(filename, loc)
	if err != nil {
		return err
	}

	existingEvents, err := GetAllEvents(service, calendarID)
	if err != nil {
		return fmt.Errorf("error fetching all events from Google Calendar: %w", err)
	}

	plan := planSync(existingEvents, desired)

	for _, event := range plan.Delete {
		if err := deleteEvent(service, calendarID, event); err != nil {
			return err
		}
	}
	for id, event := range plan.Update {
		log.Info().Str("summary", event.Summary).Str("event_id", id).Msg("Updating event")
		if _, err := service.Events.Update(calendarID, id, event).Do(); err != nil {
			return fmt.Errorf("error updating event in Google Calendar: %w", err)
		}
	}
	for _, event := range plan.Insert {
		log.Info().Str("summary", event.Summary).Str("start", event.Start.DateTime).Msg("Inserting new event")
		if _, err := service.Events.Insert(calendarID, event).Do(); err != nil {
			return fmt.Errorf("error inserting event into Google Calendar: %w", err)
		}
	}

	log.Info().
		Int("inserted", len(plan.Insert)).
		Int("updated", len(plan.Update)).
		Int("deleted", len(plan.Delete)).
		Msg("ICS file synced with Google Calendar")
	return nil
}

// eventsFromICS reads the ICS file into Google events keyed by booking id.
func eventsFromICS(filename string, loc *time.Location) (map[string]*calendar.Event, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading ICS file: %w", err)
	}
	defer f.Close()

	cal, err := ics.ParseCalendar(f)
	if err != nil {
		return nil, fmt.Errorf("error parsing ICS data: %w", err)
	}

	out := make(map[string]*calendar.Event)
	for _, event := range cal.Events() {
		if event == nil {
			continue
		}
		startProperty := event.GetProperty(ics.ComponentPropertyDtStart)
		endProperty := event.GetProperty(ics.ComponentPropertyDtEnd)
		if startProperty == nil || endProperty == nil {
			continue
		}
		start, err := time.Parse("20060102T150405Z", startProperty.Value)
		if err != nil {
			log.Warn().Err(err).Msg("Error parsing event start time")
			continue
		}
		end, err := time.Parse("20060102T150405Z", endProperty.Value)
		if err != nil {
			log.Warn().Err(err).Msg("Error parsing event end time")
			continue
		}

		var summary, description, location string
		if p := event.GetProperty(ics.ComponentPropertySummary); p != nil {
			summary = p.Value
		}
		if p := event.GetProperty(ics.ComponentPropertyDescription); p != nil {
			description = p.Value
		}
		if p := event.GetProperty(ics.ComponentPropertyLocation); p != nil {
			location = p.Value
		}

		id := icsfile.EventID(summary, start, end)
		out[id] = newEvent(id, summary, description, location, start.In(loc), end.In(loc))
	}
	return out, nil
}

func newEvent(bookingID, summary, description, location string, start, end time.Time) *calendar.Event {
	return &calendar.Event{
		Summary:     summary,
		Description: description,
		Location:    location,
		Start: &calendar.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: start.Location().String(),
		},
		End: &calendar.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: end.Location().String(),
		},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				sourceKey:   sourceValue,
				"bookingId": bookingID,
			},
		},
	}
}

func planSync(existing []*calendar.Event, desired map[string]*calendar.Event) syncPlan {
	plan := syncPlan{Update: make(map[string]*calendar.Event)}
	seen := make(map[string]bool)

	for _, event := range existing {
		if event == nil || event.Status == "cancelled" || event.Start == nil || event.End == nil {
			continue
		}
		id := existingBookingID(event)
		want, ok := desired[id]
		if !ok || seen[id] {
			plan.Delete = append(plan.Delete, event)
			continue
		}
		seen[id] = true
		if changed(event, want) {
			plan.Update[event.Id] = want
		}
	}

	for id, event := range desired {
		if !seen[id] {
			plan.Insert = append(plan.Insert, event)
		}
	}
	return plan
}

func existingBookingID(event *calendar.Event) string {
	if event.ExtendedProperties != nil {
		if id := event.ExtendedProperties.Private["bookingId"]; id != "" {
			return id
		}
	}
	start, err1 := time.Parse(time.RFC3339, event.Start.DateTime)
	end, err2 := time.Parse(time.RFC3339, event.End.DateTime)
	if err1 != nil || err2 != nil {
		return ""
	}
	return icsfile.EventID(event.Summary, start, end)
}

func changed(existing, want *calendar.Event) bool {
	return existing.Summary != want.Summary ||
		strings.TrimSpace(existing.Description) != strings.TrimSpace(want.Description) ||
		!sameInstant(existing.Start.DateTime, want.Start.DateTime) ||
		!sameInstant(existing.End.DateTime, want.End.DateTime)
}

func sameInstant(a, b string) bool {
	ta, errA := time.Parse(time.RFC3339, a)
	tb, errB := time.Parse(time.RFC3339, b)
	if errA != nil || errB != nil {
		return a == b
	}
	return ta.Equal(tb)
}
