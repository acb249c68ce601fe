package dinner

import (
	"fmt"
	"time"

	"github.com/staldhusene/faellesspisning/internal/mapper"
)

// TodayLabel replaces the date for dinners happening today.
const TodayLabel = "I dag"

var weekdays = [7]string{"Søndag", "Mandag", "Tirsdag", "Onsdag", "Torsdag", "Fredag", "Lørdag"}

// WeekdayName returns the Danish name of the weekday.
func WeekdayName(d time.Weekday) string {
	return weekdays[d]
}

// Deadline is the signup cutoff: days before the dinner, at hour o'clock.
func Deadline(date time.Time, days, hour int) time.Time {
	d := date.AddDate(0, 0, -days)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, d.Location())
}

// DateLabel formats date relative to now. Dinners today read "I dag", the
// rest of the current week only the weekday, later dates "Onsdag d. 12/6".
func DateLabel(date, now time.Time) string {
	now = now.In(date.Location())
	if sameDay(date, now) {
		return TodayLabel
	}
	day := WeekdayName(date.Weekday())
	if date.Before(nextMonday(now)) {
		return day
	}
	return fmt.Sprintf("%s d. %d/%d", day, date.Day(), int(date.Month()))
}

// DeadlineLabel is DateLabel followed by the hour, e.g. "Mandag kl 18".
func DeadlineLabel(deadline, now time.Time) string {
	return fmt.Sprintf("%s kl %d", DateLabel(deadline, now), deadline.Hour())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// nextMonday is midnight of the first Monday after now's day.
func nextMonday(now time.Time) time.Time {
	today := mapper.Midnight(now)
	add := 8 - int(today.Weekday())
	if today.Weekday() == time.Sunday {
		add = 1
	}
	return today.AddDate(0, 0, add)
}

// WeekNumber is the ISO 8601 week of t.
func WeekNumber(t time.Time) int {
	_, w := t.ISOWeek()
	return w
}
