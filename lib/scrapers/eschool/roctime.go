package eschool

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// the portal prints dates in the republican (minguo) calendar,
// ex. "114年02月13日" for 2025-02-13
var rocDateRegex = regexp.MustCompile(`(\d{1,3})年(\d{1,2})月(\d{1,2})日`)

const rocYearOffset = 1911

// ParseROCDate converts a republican calendar date string into UTC
// midnight of the equivalent gregorian day. UTC is deliberate: local
// offsets would shift Year()/Month()/Day() on machines outside taipei.
func ParseROCDate(s string) (time.Time, error) {
	match := rocDateRegex.FindStringSubmatch(s)
	if len(match) < 4 {
		return time.Time{}, fmt.Errorf("%w: invalid republican date %q", ErrParse, s)
	}

	year, err := strconv.Atoi(match[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrParse, err.Error())
	}
	month, err := strconv.Atoi(match[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrParse, err.Error())
	}
	day, err := strconv.Atoi(match[3])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrParse, err.Error())
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("%w: republican date %q out of range", ErrParse, s)
	}

	date := time.Date(year+rocYearOffset, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes impossible dates (feb 30 becomes mar 2)
	// instead of failing, so the components must survive unchanged
	if date.Year() != year+rocYearOffset || date.Month() != time.Month(month) || date.Day() != day {
		return time.Time{}, fmt.Errorf("%w: republican date %q out of range", ErrParse, s)
	}
	return date, nil
}
