package weekwindow

import "time"

const (
	// SelectorLayout is the wire format of a week selector value (the week's Tuesday).
	SelectorLayout = "2006-01-02"

	// MaxWeeks bounds week enumeration for malformed season inputs.
	MaxWeeks = 100

	windowStartHour = 19
	daysPerWeek     = 7
)

// Week is one Wednesday-to-Tuesday reporting period of a season.
type Week struct {
	Index         int
	Start         time.Time
	End           time.Time
	SelectorValue string
}

// Range is a concrete reporting window sent to the ranking service.
type Range struct {
	Start time.Time
	End   time.Time
}

// Window returns the reporting window of the week (Wednesday 19:00 to Tuesday 23:59:59).
func (w Week) Window() Range {
	return WeekRangeFromTuesday(w.End)
}

func (w Week) Contains(t time.Time) bool {
	t = t.In(w.Start.Location())
	return !t.Before(w.Start) && !t.After(w.End)
}

func (w Week) IsZero() bool {
	return w.SelectorValue == ""
}
