package profile

import (
	"fmt"
	"time"
)

var dateLayouts = []string{"2006-01-02", "2006-01", "01/2006", "01/02/2006", "2006"}

// ParseDate parses a profile date string in the local calendar.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("profile: unparseable date %q", s)
}

// Month2 renders a date's month as a 2-digit string.
func Month2(t time.Time) string {
	return fmt.Sprintf("%02d", int(t.Month()))
}

// Year4 renders a date's year as a 4-digit string.
func Year4(t time.Time) string {
	return fmt.Sprintf("%04d", t.Year())
}

// Day2 renders a date's day as a 2-digit string.
func Day2(t time.Time) string {
	return fmt.Sprintf("%02d", t.Day())
}

// CurrentlyWorking reports whether a work experience is ongoing: the end date
// is absent, unparseable, or in the future.
func (w WorkExperience) CurrentlyWorking(now time.Time) bool {
	if w.EndDate == "" {
		return true
	}
	end, err := ParseDate(w.EndDate)
	if err != nil {
		return true
	}
	return end.After(now)
}
