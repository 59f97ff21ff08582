// Package domain contains the core data types for the Tripboard application.
// This package has zero external dependencies beyond uuid and is imported by
// every other internal package (repo, gateway, sync, service, handler).
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Trip is the single root itinerary document. Days are exclusively owned by
// the trip; their slice order is the user-chosen display order and is not
// required to be chronological.
//
// JSON field names are camelCase because the document wire format predates
// this codebase: existing exports and stored documents use it.
type Trip struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	DateRange string `json:"dateRange"`
	StartDate string `json:"startDate"` // "2006-01-02"
	EndDate   string `json:"endDate"`   // "2006-01-02"
	Days      []Day  `json:"days"`
}

// Day is one ordered leg (station) of the trip. Duration is advisory only —
// explicit day-separator entries are authoritative for date placement.
type Day struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Duration int     `json:"duration"` // nights/days
	Color    string  `json:"color"`
	Entries  Entries `json:"entries"`
}

// DayColors is the set of known display color keys for a Day.
// Unknown keys render as DefaultDayColor; they are normalized, not rejected.
var DayColors = map[string]bool{
	"orange": true,
	"blue":   true,
	"green":  true,
	"red":    true,
	"purple": true,
	"gray":   true,
}

// DefaultDayColor is used when a day carries no color or an unknown key.
const DefaultDayColor = "gray"

// NormalizeColor maps unknown or empty color keys to DefaultDayColor.
func NormalizeColor(color string) string {
	if DayColors[color] {
		return color
	}
	return DefaultDayColor
}

// PreTripDayID identifies the special station that collects entries dated
// before departure. It is created on demand by AddEntry/UpdateEntry and
// always sits at the front of the day list.
const PreTripDayID = "before-trip"

// preTripDayTitle is the display title of the on-demand pre-trip station.
// Kept in the document's original language, like the seed data.
const preTripDayTitle = "Vor dem Urlaub"

// NewDayID returns a fresh day identifier. IDs embed the creation timestamp
// (millisecond precision) plus a random suffix so concurrent creations on the
// same millisecond cannot collide. IDs are never reassigned.
func NewDayID() string {
	return fmt.Sprintf("day-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// NewEntryID returns a fresh entry identifier, unique within the trip.
func NewEntryID() string {
	return fmt.Sprintf("entry-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// FindDay returns a pointer into t.Days for the given id, or nil.
// The pointer is invalidated by any mutation that reslices Days.
func (t *Trip) FindDay(dayID string) *Day {
	for i := range t.Days {
		if t.Days[i].ID == dayID {
			return &t.Days[i]
		}
	}
	return nil
}

// FindEntry returns the entry with the given id inside the given day, or nil.
func (t *Trip) FindEntry(dayID, entryID string) Entry {
	day := t.FindDay(dayID)
	if day == nil {
		return nil
	}
	for _, e := range day.Entries {
		if e.EntryID() == entryID {
			return e
		}
	}
	return nil
}
