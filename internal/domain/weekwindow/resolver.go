package weekwindow

import (
	"strings"
	"time"
)

// WednesdayOnOrBefore returns the most recent Wednesday at 00:00 that is not after date,
// in date's location.
func WednesdayOnOrBefore(date time.Time) time.Time {
	day := startOfDay(date)

	var back int
	switch day.Weekday() {
	case time.Wednesday:
		back = 0
	case time.Thursday:
		back = 1
	case time.Friday:
		back = 2
	case time.Saturday:
		back = 3
	case time.Sunday:
		back = 4
	case time.Monday:
		back = 5
	case time.Tuesday:
		back = 6
	}

	return shiftDays(day, -back)
}

// WeekRangeFromTuesday derives the reporting window that ends on tuesday.
// A non-Tuesday input is snapped to the Tuesday closing its week.
func WeekRangeFromTuesday(tuesday time.Time) Range {
	closing := tuesdayOf(tuesday)
	opening := shiftDays(closing, -(daysPerWeek - 1))

	return Range{
		Start: time.Date(opening.Year(), opening.Month(), opening.Day(), windowStartHour, 0, 0, 0, opening.Location()),
		End:   endOfDay(closing),
	}
}

// GenerateWeeks lists every week from the season start up to and including the week in
// progress on today, most recent first. Weeks whose Wednesday is still ahead are never listed.
func GenerateWeeks(seasonStart, today time.Time) []Week {
	loc := seasonStart.Location()
	first := WednesdayOnOrBefore(seasonStart)
	anchor := WednesdayOnOrBefore(today.In(loc))
	lastTuesday := tuesdayOf(anchor)

	if tuesdayOf(first).After(lastTuesday) {
		return []Week{}
	}

	total := daysBetween(first, anchor)/daysPerWeek + 1
	count := total
	if count > MaxWeeks {
		count = MaxWeeks
	}

	weeks := make([]Week, 0, count)
	for i := 0; i < count; i++ {
		start := shiftDays(anchor, -daysPerWeek*i)
		weeks = append(weeks, newWeek(total-i, start))
	}

	return weeks
}

// DefaultSelectorValue returns the selector of the week in progress on today.
func DefaultSelectorValue(today time.Time) string {
	return SelectorValue(tuesdayOf(WednesdayOnOrBefore(today)))
}

func SelectorValue(tuesday time.Time) string {
	return tuesday.Format(SelectorLayout)
}

// ParseSelectorValue parses a selector value in loc. Surrounding whitespace is ignored.
func ParseSelectorValue(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}

	parsed, err := time.ParseInLocation(SelectorLayout, value, loc)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// ResolveSelection maps a selector value onto one of the generated weeks. Values that do
// not fall inside any generated week resolve to the most recent week. ok is false only
// when the season has no weeks yet.
func ResolveSelection(value string, seasonStart, today time.Time) (week Week, ok bool) {
	weeks := GenerateWeeks(seasonStart, today)
	if len(weeks) == 0 {
		return Week{}, false
	}

	parsed, valid := ParseSelectorValue(value, seasonStart.Location())
	if !valid {
		return weeks[0], true
	}

	selector := SelectorValue(tuesdayOf(parsed))
	for _, candidate := range weeks {
		if candidate.SelectorValue == selector {
			return candidate, true
		}
	}

	return weeks[0], true
}

func newWeek(index int, wednesday time.Time) Week {
	tuesday := tuesdayOf(wednesday)
	return Week{
		Index:         index,
		Start:         wednesday,
		End:           endOfDay(tuesday),
		SelectorValue: SelectorValue(tuesday),
	}
}

func tuesdayOf(date time.Time) time.Time {
	return shiftDays(WednesdayOnOrBefore(date), daysPerWeek-1)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// shiftDays moves by calendar days so DST transitions never skew the wall clock.
func shiftDays(t time.Time, days int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+days, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
