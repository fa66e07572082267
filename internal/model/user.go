package model

import (
	"fmt"
	"strings"
	"time"
)

// Gender partitions the medical service catalog. Only the two catalog
// partitions are valid values.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Valid reports whether g is one of the known catalog partitions.
func (g Gender) Valid() bool { return g == GenderMale || g == GenderFemale }

// Date is a calendar date serialized as YYYY-MM-DD, matching the wire format
// used for date_of_birth. It deliberately carries no time-of-day or zone.
type Date struct {
	time.Time
}

// NewDate builds a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// MarshalJSON encodes the date as a quoted YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

// UnmarshalJSON decodes a quoted YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// User is the person a booking is made for. Gender selects the catalog
// partition and, together with DateOfBirth, feeds the birthday discount rule.
type User struct {
	Name        string `json:"name"`
	Gender      Gender `json:"gender"`
	DateOfBirth Date   `json:"date_of_birth"`
}
