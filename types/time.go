package types

import (
	"errors"
	"time"
)

var timeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"20060102150405",
	"20060102",
}

// ParseLocalTime parses str with the supported layouts in the local zone
func ParseLocalTime(str string) (t time.Time, err error) {
	return ParseTimeIn(str, time.Now().Location())
}

// ParseTimeIn parses str with the supported layouts in loc
func ParseTimeIn(str string, loc *time.Location) (t time.Time, err error) {
	for _, format := range timeFormats {
		t, err = time.ParseInLocation(format, str, loc)
		if err == nil {
			return
		}
	}
	err = errors.New("can't parse string as time: " + str)
	return
}

// DaysAgo returns the instant days*24h before now
func DaysAgo(now time.Time, days int) time.Time {
	return now.Add(-time.Duration(days) * 24 * time.Hour)
}
