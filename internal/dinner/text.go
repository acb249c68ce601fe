package dinner

import (
	"fmt"
	"time"

	"github.com/staldhusene/faellesspisning/internal/models"
)

// ParticipationText is the status line of a dinner card.
func ParticipationText(e models.DinnerEvent) string {
	if p := e.Participation; p != nil {
		mode := "Deltager"
		if p.Takeaway {
			mode = "Takeaway"
		}
		return fmt.Sprintf("%s (%d %s, %d %s)", mode, p.Adults, plural(p.Adults, "voksen", "voksne"), p.Children, plural(p.Children, "barn", "børn"))
	}
	if e.Editable {
		return "Tilmeld"
	}
	return "Tilmelding lukket"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// WeekHeading returns the heading shown above events[i], or "" when the
// event shares its week with the previous one or falls in the current week.
func WeekHeading(events []models.DinnerEvent, i int, now time.Time) string {
	loc := now.Location()
	week := eventWeek(events[i], loc)
	current := WeekNumber(now)
	if week == current {
		return ""
	}
	if i > 0 && eventWeek(events[i-1], loc) == week {
		return ""
	}
	if week == current+1 {
		return "Næste uge:"
	}
	return fmt.Sprintf("Uge %d:", week)
}

func eventWeek(e models.DinnerEvent, loc *time.Location) int {
	return WeekNumber(time.UnixMilli(e.DateAsNumber).In(loc))
}
