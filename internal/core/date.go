package core

import (
	"fmt"
	"strings"
	"time"
)

// Date is a timezone-free calendar date. The embedded time.Time is always
// midnight UTC so that two dates built from the same "YYYY-MM-DD" string
// compare equal regardless of the host timezone.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar date, read in the
// timestamp's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseLocalDate parses user-facing date input. A plain "YYYY-MM-DD" is
// read as a local calendar date with no time-of-day or timezone shift;
// anything containing a "T" is parsed as a full RFC 3339 timestamp and
// truncated to its date. Empty input yields today.
func ParseLocalDate(input string) (Date, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return DateOf(time.Now()), nil
	}
	if strings.Contains(input, "T") {
		t, err := time.Parse(time.RFC3339, input)
		if err != nil {
			return Date{}, fmt.Errorf("parse timestamp %q: %w", input, err)
		}
		return DateOf(t), nil
	}
	t, err := time.Parse(dateLayout, input)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", input, err)
	}
	return DateOf(t), nil
}

// Input formats the date as "YYYY-MM-DD", the inverse of ParseLocalDate
// for plain dates.
func (d Date) Input() string {
	return d.Format(dateLayout)
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as an int.
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d is strictly after other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// SameDay reports whether two dates fall on the same calendar day.
func SameDay(a, b Date) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// SameMonth reports whether two dates fall in the same calendar month.
func SameMonth(a, b Date) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// DaysInMonth returns the number of days in a month. The zeroth day of
// the next month is the last day of this one.
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonthsSafe adds n calendar months preserving the day of month. When
// the target month is shorter, the day clamps to its last day (Jan 31 + 1
// month is Feb 28/29, never Mar 3). Holds for negative n as well.
func AddMonthsSafe(d Date, n int) Date {
	// Normalize month arithmetic by hand; time.AddDate overflows short
	// months into the next one.
	months := (d.Year()*12 + d.Month() - 1) + n
	year := months / 12
	month := months%12 + 1
	if month < 1 {
		// Go integer division truncates toward zero; fix up negatives.
		month += 12
		year--
	}
	day := d.Day()
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

// MonthsBetween returns the signed whole-month difference between two
// dates, ignoring the day of month.
func MonthsBetween(a, b Date) int {
	return (b.Year()-a.Year())*12 + (b.Month() - a.Month())
}
