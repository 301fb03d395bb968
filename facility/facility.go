package facility

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// UnusedSession fills the trailing slots of a session table.
const UnusedSession = "00000000"

// MaxSessions is the number of session controls the booking form renders.
const MaxSessions = 20

var ErrInvalidFacilityID = errors.New("invalid facility id")

// Facility describes a range of bookable rooms sharing the same form fields
// and session table on the booking portal.
type Facility struct {
	Name     string
	Library  int
	Floor    int
	Type     int
	InitID   int
	FinalID  int
	Sessions [MaxSessions]string
}

var discussionRoom = Facility{
	Name:    "Discussion Room",
	Library: 3,
	Floor:   3,
	Type:    21,
	InitID:  129,
	FinalID: 134,
	Sessions: [MaxSessions]string{
		"08300930", "09301030", "10301130", "11301230", "12301330", "13301430", "14301530",
		"15301630", "16301730", "17301830", "18301930", "19302030", "20302200", UnusedSession,
		UnusedSession, UnusedSession, UnusedSession, UnusedSession, UnusedSession, UnusedSession,
	},
}

var catalog = [...]Facility{discussionRoom}

// Catalog returns a copy of the known facilities.
func Catalog() []Facility {
	out := make([]Facility, len(catalog))
	copy(out, catalog[:])
	return out
}

// Lookup returns the first facility whose id range contains id.
func Lookup(id int) (Facility, bool) {
	for _, f := range catalog {
		if f.Contains(id) {
			return f, true
		}
	}
	return Facility{}, false
}

// LookupString parses a decimal facility id and resolves it.
func LookupString(id string) (Facility, int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil {
		return Facility{}, 0, fmt.Errorf("%w: %q is not a number", ErrInvalidFacilityID, id)
	}
	f, ok := Lookup(n)
	if !ok {
		return Facility{}, 0, fmt.Errorf("%w: %d is not in any known range", ErrInvalidFacilityID, n)
	}
	return f, n, nil
}

// Contains reports whether id falls inside [InitID, FinalID].
func (f Facility) Contains(id int) bool {
	return id >= f.InitID && id <= f.FinalID
}

// SessionIndex returns the position of slot in the session table.
// The unused sentinel never matches.
func (f Facility) SessionIndex(slot string) (int, bool) {
	if slot == UnusedSession {
		return 0, false
	}
	for i, s := range f.Sessions {
		if s == slot {
			return i, true
		}
	}
	return 0, false
}

// ActiveSessions returns the slots before the first unused entry.
func (f Facility) ActiveSessions() []string {
	var out []string
	for _, s := range f.Sessions {
		if s == UnusedSession {
			break
		}
		out = append(out, s)
	}
	return out
}
