package production

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a requested reading set or production status
// does not exist. Callers recover by fetching or creating a default.
var ErrNotFound = errors.New("not found")

// Reading is a single liturgical text unit for a given date.
type Reading struct {
	Kind      string `json:"kind"`
	Title     string `json:"title,omitempty"`
	Reference string `json:"reference"`
	Text      string `json:"text"`
}

// ReadingSet is one liturgical day's readings, in liturgical order
// (first reading, psalm, second reading, gospel, extras). Order is
// meaningful and preserved as fetched.
type ReadingSet struct {
	Date     string    `json:"date"`
	DayName  string    `json:"day_name"`
	Color    string    `json:"color"`
	Readings []Reading `json:"readings"`
}

// FindReading returns the reading with the given kind, or nil.
func (rs *ReadingSet) FindReading(kind string) *Reading {
	for i := range rs.Readings {
		if rs.Readings[i].Kind == kind {
			return &rs.Readings[i]
		}
	}
	return nil
}

// ProductionStatus tracks one reading's progress through the pipeline.
// One record exists per (date, reading kind) pair.
type ProductionStatus struct {
	Key         string
	Date        string
	Kind        string
	Flags       StageFlags
	Artifacts   Artifacts
	Active      bool
	LastTouched string
}

// MakeKey derives the unique production key for a date and reading kind.
func MakeKey(date, kind string) string {
	return date + "-" + kind
}

// ParseKey splits a production key back into date and kind. Keys are
// "YYYY-MM-DD-<kind>"; the date prefix is fixed-width.
func ParseKey(key string) (date, kind string, ok bool) {
	if len(key) < 12 || key[10] != '-' {
		return "", "", false
	}
	date = key[:10]
	kind = key[11:]
	if strings.Count(date, "-") != 2 || kind == "" {
		return "", "", false
	}
	return date, kind, true
}
