package weekwindow_test

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/riskibarqy/global-standings/internal/domain/weekwindow"
	. "github.com/smartystreets/goconvey/convey"
)

func date(y int, m time.Month, d, h, min, s int) time.Time {
	return time.Date(y, m, d, h, min, s, 0, time.UTC)
}

func TestWednesdayOnOrBefore(t *testing.T) {
	Convey("Given every instant across several weeks", t, func() {
		start := date(2025, time.July, 28, 0, 0, 0)

		Convey("The result is always a Wednesday at midnight within the previous seven days", func() {
			for h := 0; h < 24*30; h += 5 {
				d := start.Add(time.Duration(h) * time.Hour)
				got := weekwindow.WednesdayOnOrBefore(d)

				So(got.Weekday(), ShouldEqual, time.Wednesday)
				So(got.Hour()+got.Minute()+got.Second(), ShouldEqual, 0)
				So(got.After(d), ShouldBeFalse)
				So(d.Sub(got), ShouldBeLessThan, 7*24*time.Hour)
			}
		})

		Convey("A Wednesday maps onto its own midnight", func() {
			got := weekwindow.WednesdayOnOrBefore(date(2025, time.August, 13, 21, 30, 0))
			So(got, ShouldEqual, date(2025, time.August, 13, 0, 0, 0))
		})

		Convey("A Tuesday maps six days back", func() {
			got := weekwindow.WednesdayOnOrBefore(date(2025, time.August, 19, 23, 59, 59))
			So(got, ShouldEqual, date(2025, time.August, 13, 0, 0, 0))
		})
	})
}

func TestWeekRangeFromTuesday(t *testing.T) {
	Convey("Given a Tuesday selector", t, func() {
		tuesday := date(2025, time.August, 19, 0, 0, 0)
		got := weekwindow.WeekRangeFromTuesday(tuesday)

		Convey("The window opens Wednesday evening and closes Tuesday end of day", func() {
			So(got.Start, ShouldEqual, date(2025, time.August, 13, 19, 0, 0))
			So(got.End, ShouldEqual, date(2025, time.August, 19, 23, 59, 59))
		})

		Convey("A non-Tuesday input snaps to the Tuesday closing its week", func() {
			snapped := weekwindow.WeekRangeFromTuesday(date(2025, time.August, 15, 10, 0, 0))
			So(snapped, ShouldResemble, got)
		})
	})
}

func TestGenerateWeeks(t *testing.T) {
	Convey("Given a season starting on a Wednesday", t, func() {
		seasonStart := date(2025, time.August, 6, 0, 0, 0)

		Convey("When today is the season start itself", func() {
			weeks := weekwindow.GenerateWeeks(seasonStart, seasonStart)

			Convey("Exactly one week through the following Tuesday is listed", func() {
				So(weeks, ShouldHaveLength, 1)
				So(weeks[0].Index, ShouldEqual, 1)
				So(weeks[0].Start, ShouldEqual, date(2025, time.August, 6, 0, 0, 0))
				So(weeks[0].End, ShouldEqual, date(2025, time.August, 12, 23, 59, 59))
				So(weeks[0].SelectorValue, ShouldEqual, "2025-08-12")
			})
		})

		Convey("When today is the last second of the second week", func() {
			weeks := weekwindow.GenerateWeeks(seasonStart, date(2025, time.August, 19, 23, 59, 59))

			Convey("The third week is not listed yet", func() {
				So(weeks, ShouldHaveLength, 2)
				So(weeks[0].SelectorValue, ShouldEqual, "2025-08-19")
				So(weeks[1].SelectorValue, ShouldEqual, "2025-08-12")
			})
		})

		Convey("When today is the first instant of the third week", func() {
			weeks := weekwindow.GenerateWeeks(seasonStart, date(2025, time.August, 20, 0, 0, 0))

			Convey("The in-progress week is listed first", func() {
				So(weeks, ShouldHaveLength, 3)
				So(weeks[0].Index, ShouldEqual, 3)
				So(weeks[0].SelectorValue, ShouldEqual, "2025-08-26")
			})
		})

		Convey("When today is before the season", func() {
			weeks := weekwindow.GenerateWeeks(seasonStart, date(2025, time.July, 1, 0, 0, 0))
			So(weeks, ShouldBeEmpty)
		})

		Convey("Weeks never pass the Tuesday of the anchor week and round-trip through their selector", func() {
			for offset := 0; offset < 60; offset++ {
				today := seasonStart.AddDate(0, 0, offset).Add(13 * time.Hour)
				anchorTuesday := weekwindow.WednesdayOnOrBefore(today).AddDate(0, 0, 6)

				weeks := weekwindow.GenerateWeeks(seasonStart, today)
				So(weeks, ShouldNotBeEmpty)
				So(weeks[0].SelectorValue, ShouldEqual, weekwindow.DefaultSelectorValue(today))

				for i, w := range weeks {
					tuesday, ok := weekwindow.ParseSelectorValue(w.SelectorValue, time.UTC)
					So(ok, ShouldBeTrue)
					So(tuesday.After(anchorTuesday), ShouldBeFalse)

					window := weekwindow.WeekRangeFromTuesday(tuesday)
					So(w.Window().Start.Equal(window.Start), ShouldBeTrue)
					So(w.Window().End.Equal(window.End), ShouldBeTrue)
					So(window.End, ShouldEqual, w.End)
					So(window.Start.Equal(w.Start.Add(19*time.Hour)), ShouldBeTrue)
					So(w.End.Sub(w.Start), ShouldBeLessThan, 7*24*time.Hour)
					So(w.End.Sub(w.Start), ShouldBeGreaterThanOrEqualTo, 6*24*time.Hour)

					if i > 0 {
						So(weeks[i-1].Index, ShouldEqual, w.Index+1)
						So(weeks[i-1].Start.After(w.End), ShouldBeTrue)
					}
				}
			}
		})
	})

	Convey("Given a season far in the past", t, func() {
		weeks := weekwindow.GenerateWeeks(date(2020, time.January, 1, 0, 0, 0), date(2026, time.October, 18, 12, 0, 0))

		Convey("The list is capped and keeps the most recent weeks", func() {
			So(weeks, ShouldHaveLength, weekwindow.MaxWeeks)
			So(weeks[0].SelectorValue, ShouldEqual, "2026-10-20")
		})
	})

	Convey("Given a season in a zone with daylight saving", t, func() {
		loc, err := time.LoadLocation("Europe/Madrid")
		So(err, ShouldBeNil)

		seasonStart := time.Date(2025, time.October, 1, 0, 0, 0, 0, loc)
		weeks := weekwindow.GenerateWeeks(seasonStart, time.Date(2025, time.November, 5, 9, 0, 0, 0, loc))

		Convey("Every week still starts at midnight on a Wednesday", func() {
			So(weeks, ShouldHaveLength, 6)
			for _, w := range weeks {
				So(w.Start.Weekday(), ShouldEqual, time.Wednesday)
				So(w.Start.Hour(), ShouldEqual, 0)
				So(w.End.Hour(), ShouldEqual, 23)
			}
		})
	})
}

func TestResolveSelection(t *testing.T) {
	Convey("Given a running season", t, func() {
		seasonStart := date(2025, time.August, 6, 0, 0, 0)
		today := date(2025, time.September, 4, 10, 0, 0)

		Convey("A listed selector resolves to its week", func() {
			week, ok := weekwindow.ResolveSelection("2025-08-19", seasonStart, today)
			So(ok, ShouldBeTrue)
			So(week.SelectorValue, ShouldEqual, "2025-08-19")
		})

		Convey("Any date inside a listed week resolves to that week", func() {
			week, ok := weekwindow.ResolveSelection("2025-08-14", seasonStart, today)
			So(ok, ShouldBeTrue)
			So(week.SelectorValue, ShouldEqual, "2025-08-19")
		})

		Convey("Future, pre-season and malformed selectors fall back to the default week", func() {
			for _, value := range []string{"2025-12-30", "2024-01-02", "not-a-date", ""} {
				week, ok := weekwindow.ResolveSelection(value, seasonStart, today)
				So(ok, ShouldBeTrue)
				So(week.SelectorValue, ShouldEqual, weekwindow.DefaultSelectorValue(today))
			}
		})

		Convey("Nothing resolves before the season opens", func() {
			_, ok := weekwindow.ResolveSelection("2025-08-12", seasonStart, date(2025, time.June, 1, 0, 0, 0))
			So(ok, ShouldBeFalse)
		})
	})
}
