// Package schedule holds the pure scheduling core: candidate slot
// generation from a weekly business-hours table and half-open interval
// overlap. No I/O, no clocks.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Window is a single day's opening window, "HH:mm" local times with
// Start < End.
type Window struct {
	Start string
	End   string
}

// WeekHours maps ISO weekdays (1=Monday..7=Sunday) to an opening window.
// A nil entry or a missing key means closed.
type WeekHours map[int]*Window

// SlotConfig controls candidate generation. StepMin is the cursor
// granularity, BufferMin the gap required after a slot before the next may
// start.
type SlotConfig struct {
	DurationMin int
	StepMin     int
	BufferMin   int
}

// gridMin is the minute grid slot starts are snapped onto. Business hours
// may start off-grid (15:30 is on-grid, 15:45 is not); user-facing starts
// always land on it.
const gridMin = 30

// ISOWeekday returns the weekday of t with Monday=1..Sunday=7.
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// ParseHHMM converts "HH:mm" to minutes since midnight.
func ParseHHMM(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

func formatHHMM(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Generate produces the ordered, deduplicated list of candidate slot start
// times ("HH:mm") for the given date. The cursor walks the window in
// StepMin increments; each position is snapped forward onto the 30-minute
// grid and accepted iff the full duration still fits before the window end.
// A day whose window cannot fit duration+buffer yields no slots.
func Generate(date time.Time, hours WeekHours, cfg SlotConfig) []string {
	window := hours[ISOWeekday(date)]
	if window == nil {
		return nil
	}

	start, err := ParseHHMM(window.Start)
	if err != nil {
		return nil
	}
	end, err := ParseHHMM(window.End)
	if err != nil || end <= start {
		return nil
	}

	var slots []string
	seen := make(map[int]bool)

	for cursor := start; cursor+cfg.DurationMin+cfg.BufferMin <= end; cursor += cfg.StepMin {
		snapped := cursor
		if rem := cursor % gridMin; rem != 0 {
			snapped = cursor + (gridMin - rem)
		}
		if snapped+cfg.DurationMin > end {
			continue
		}
		if seen[snapped] {
			continue
		}
		seen[snapped] = true
		slots = append(slots, formatHHMM(snapped))
	}

	return slots
}

// Overlaps reports whether the half-open intervals [aStart,aEnd) and
// [bStart,bEnd) intersect. Equal boundaries do not overlap, so back-to-back
// bookings are allowed; zero-length intervals never overlap anything.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
