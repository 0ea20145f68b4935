package temporal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTime is returned for time strings that do not follow the
// Wikidata format.
var ErrInvalidTime = errors.New("invalid wikidata time")

const maxYearDigits = 11

// ParseTime parses a Wikidata time string such as "+2013-01-01T00:00:00Z".
// The year may be signed and longer than four digits. Month and day are
// "00" for year or month precision and are read as 1. timezone is the
// offset from UTC in minutes carried alongside the value.
func ParseTime(s string, timezone int) (time.Time, error) {
	rest := s
	sign := 1
	switch {
	case strings.HasPrefix(rest, "+"):
		rest = rest[1:]
	case strings.HasPrefix(rest, "-"):
		sign = -1
		rest = rest[1:]
	}

	datePart, clockPart, ok := strings.Cut(rest, "T")
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q: missing time separator", ErrInvalidTime, s)
	}

	fields := strings.Split(datePart, "-")
	if len(fields) != 3 {
		return time.Time{}, fmt.Errorf("%w: %q: malformed date", ErrInvalidTime, s)
	}
	if len(fields[0]) == 0 || len(fields[0]) > maxYearDigits {
		return time.Time{}, fmt.Errorf("%w: %q: malformed year", ErrInvalidTime, s)
	}
	year, err := parseDigits(fields[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidTime, s, err)
	}
	month, err := parseField(fields[1], 0, 12)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: month: %v", ErrInvalidTime, s, err)
	}
	day, err := parseField(fields[2], 0, 31)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: day: %v", ErrInvalidTime, s, err)
	}
	if month == 0 {
		month = 1
	}
	if day == 0 {
		day = 1
	}

	clockPart = strings.TrimSuffix(clockPart, "Z")
	clock := strings.Split(clockPart, ":")
	if len(clock) != 3 {
		return time.Time{}, fmt.Errorf("%w: %q: malformed clock", ErrInvalidTime, s)
	}
	hour, err := parseField(clock[0], 0, 23)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: hour: %v", ErrInvalidTime, s, err)
	}
	minute, err := parseField(clock[1], 0, 59)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: minute: %v", ErrInvalidTime, s, err)
	}
	second, err := parseField(clock[2], 0, 60)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: second: %v", ErrInvalidTime, s, err)
	}

	loc := time.UTC
	if timezone != 0 {
		loc = time.FixedZone("", timezone*60)
	}
	return time.Date(sign*year, time.Month(month), day, hour, minute, second, 0, loc), nil
}

func parseDigits(s string) (int, error) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-digit in %q", s)
		}
	}
	return strconv.Atoi(s)
}

func parseField(s string, lo, hi int) (int, error) {
	if len(s) == 0 {
		return 0, errors.New("empty field")
	}
	n, err := parseDigits(s)
	if err != nil {
		return 0, err
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%d out of range", n)
	}
	return n, nil
}
