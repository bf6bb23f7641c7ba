package utils

import "time"

const dateLayout = "2006-01-02"

// ParseDate parses a calendar date in ISO form (YYYY-MM-DD).
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// Nights returns the whole-day span between check-in and check-out, floored
// at one night. Unparseable dates also count as one night rather than an
// error; pricing stays fail-soft.
func Nights(checkIn, checkOut string) int {
	ci, errIn := ParseDate(checkIn)
	co, errOut := ParseDate(checkOut)
	if errIn != nil || errOut != nil {
		return 1
	}
	n := int(co.Sub(ci).Hours() / 24)
	if n < 1 {
		return 1
	}
	return n
}
