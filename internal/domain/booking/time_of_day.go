package booking

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeOfDay is a wall-clock time on a 24h clock with minute precision.
type TimeOfDay struct {
	minutes int
}

// ParseTimeOfDay parses "H:MM" or "HH:MM" with hours 0-23 and minutes 0-59.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay{minutes: h*60 + m}, nil
}

// Minutes returns minutes since midnight.
func (t TimeOfDay) Minutes() int { return t.minutes }

// String formats the time as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.minutes/60, t.minutes%60)
}
