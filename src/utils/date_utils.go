package utils

import (
	"time"
)

// Ledger dates are stored as ISO day strings (YYYY-MM-DD), which also
// compare chronologically as plain strings.
const ISODateFormat = "2006-01-02"

// IsISODate reports whether s is a valid YYYY-MM-DD day.
func IsISODate(s string) bool {
	_, err := time.Parse(ISODateFormat, s)
	return err == nil
}

// TodayString returns today's date in YYYY-MM-DD.
func TodayString() string {
	return time.Now().Format(ISODateFormat)
}
