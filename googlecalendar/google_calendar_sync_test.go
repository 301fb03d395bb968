package googlecalendar

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"

	"hkulib-booker/icsfile"
	"hkulib-booker/scraper"
)

func hongKong(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Hong_Kong")
	require.NoError(t, err)
	return loc
}

func TestEventsFromICS(t *testing.T) {
	loc := hongKong(t)
	path := filepath.Join(t.TempDir(), "bookings.ics")
	require.NoError(t, icsfile.Write(path, []scraper.Record{
		{Date: "30 Sep 2021", Time: "08:30 - 09:30", FacilityName: "Discussion Room A", Status: "Confirmed"},
	}, loc))

	events, err := eventsFromICS(path, loc)
	require.NoError(t, err)
	require.Len(t, events, 1)

	for id, event := range events {
		assert.Equal(t, "Discussion Room A", event.Summary)
		assert.Equal(t, "2021-09-30T08:30:00+08:00", event.Start.DateTime)
		assert.Equal(t, "2021-09-30T09:30:00+08:00", event.End.DateTime)
		assert.Equal(t, "Asia/Hong_Kong", event.Start.TimeZone)
		assert.Equal(t, sourceValue, event.ExtendedProperties.Private[sourceKey])
		assert.Equal(t, id, event.ExtendedProperties.Private["bookingId"])
	}
}

func TestEventsFromICSMissingFile(t *testing.T) {
	_, err := eventsFromICS(filepath.Join(t.TempDir(), "missing.ics"), time.UTC)
	assert.Error(t, err)
}

func TestPlanSync(t *testing.T) {
	loc := hongKong(t)
	start := time.Date(2021, 9, 30, 8, 30, 0, 0, loc)
	keepID := icsfile.EventID("Room A", start, start.Add(time.Hour))
	moveID := icsfile.EventID("Room B", start, start.Add(time.Hour))
	newID := icsfile.EventID("Room C", start, start.Add(time.Hour))

	keep := newEvent(keepID, "Room A", "Status: Confirmed", "", start, start.Add(time.Hour))
	keep.Id = "g-keep"
	stale := newEvent("gone", "Room Z", "", "", start, start.Add(time.Hour))
	stale.Id = "g-stale"
	changedEvent := newEvent(moveID, "Room B", "Status: Pending", "", start, start.Add(time.Hour))
	changedEvent.Id = "g-changed"
	cancelled := &calendar.Event{Id: "g-cancelled", Status: "cancelled"}

	desired := map[string]*calendar.Event{
		keepID: newEvent(keepID, "Room A", "Status: Confirmed", "", start, start.Add(time.Hour)),
		moveID: newEvent(moveID, "Room B", "Status: Confirmed", "", start, start.Add(time.Hour)),
		newID:  newEvent(newID, "Room C", "Status: Confirmed", "", start, start.Add(time.Hour)),
	}

	plan := planSync([]*calendar.Event{keep, stale, changedEvent, cancelled}, desired)

	require.Len(t, plan.Delete, 1)
	assert.Equal(t, "g-stale", plan.Delete[0].Id)
	require.Len(t, plan.Update, 1)
	assert.Equal(t, "Status: Confirmed", plan.Update["g-changed"].Description)
	require.Len(t, plan.Insert, 1)
	assert.Equal(t, "Room C", plan.Insert[0].Summary)
}

func TestPlanSyncDropsDuplicates(t *testing.T) {
	start := time.Date(2021, 9, 30, 8, 30, 0, 0, time.UTC)
	id := icsfile.EventID("Room A", start, start.Add(time.Hour))
	a := newEvent(id, "Room A", "", "", start, start.Add(time.Hour))
	a.Id = "g-1"
	b := newEvent(id, "Room A", "", "", start, start.Add(time.Hour))
	b.Id = "g-2"

	plan := planSync([]*calendar.Event{a, b}, map[string]*calendar.Event{
		id: newEvent(id, "Room A", "", "", start, start.Add(time.Hour)),
	})
	require.Len(t, plan.Delete, 1)
	assert.Equal(t, "g-2", plan.Delete[0].Id)
	assert.Empty(t, plan.Insert)
	assert.Empty(t, plan.Update)
}

func TestSameInstant(t *testing.T) {
	assert.True(t, sameInstant("2021-09-30T08:30:00+08:00", "2021-09-30T00:30:00Z"))
	assert.False(t, sameInstant("2021-09-30T08:30:00+08:00", "2021-09-30T08:30:00Z"))
}
