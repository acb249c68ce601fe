// Package dinner joins cook sheet and house sheet rows into the dinner
// events shown to one house, and owns the read/write flows around them.
package dinner

import (
	"time"

	"github.com/staldhusene/faellesspisning/internal/models"
)

// Assemble builds the events and open dates for one house. Labels and
// editability are relative to now; schedule order is kept.
func Assemble(schedule []models.ScheduleRow, house []models.HouseRow, open []models.OpenRow, now time.Time) models.DinnerInformation {
	byRow := make(map[int]models.HouseRow, len(house))
	for _, h := range house {
		byRow[h.Row] = h
	}

	info := models.DinnerInformation{
		Events:         make([]models.DinnerEvent, 0, len(schedule)),
		AvailableDates: make([]models.OpenDate, 0, len(open)),
	}

	for _, o := range open {
		info.AvailableDates = append(info.AvailableDates, models.OpenDate{
			Row:  o.Row,
			Date: DateLabel(o.Date, now),
		})
	}

	for _, s := range schedule {
		var participation *models.Participation
		if h, ok := byRow[s.Row]; ok {
			participation = Summarize(h)
		}
		deadline := Deadline(s.Date, s.DeadlineDays, s.DeadlineHour)

		info.Events = append(info.Events, models.DinnerEvent{
			Index:         s.Row,
			Date:          DateLabel(s.Date, now),
			DateAsNumber:  s.Date.UnixMilli(),
			Menu:          s.Menu,
			Editable:      now.Before(deadline),
			ChefCanAvoid:  s.Possible,
			Participation: participation,
			ExtraInfo:     extraInfo(s, deadline, now),
		})
	}
	return info
}

// Summarize picks the takeaway counts when any takeaway is registered,
// otherwise the eat-in counts. A row without any signup gives nil.
func Summarize(h models.HouseRow) *models.Participation {
	if h.NoSignup() {
		return nil
	}
	takeaway := h.AdultsTakeaway+h.ChildrenTakeaway > 0
	p := &models.Participation{
		Adults:    h.AdultsEatingIn,
		Children:  h.ChildrenEatingIn,
		Takeaway:  takeaway,
		Allergens: h.Allergens,
	}
	if takeaway {
		p.Adults = h.AdultsTakeaway
		p.Children = h.ChildrenTakeaway
	}
	return p
}

func extraInfo(s models.ScheduleRow, deadline, now time.Time) models.DinnerEventExtraInfo {
	return models.DinnerEventExtraInfo{
		Deadline:      DeadlineLabel(deadline, now),
		Chefs:         s.Chefs,
		PriceAdults:   s.PriceAdults,
		PriceChildren: s.PriceChildren,
		ExpenseHouse:  s.ExpenseHouse,
		Expenses:      s.Expenses,
		ParticipantsInfo: models.ParticipantsInfo{
			EatingInSum:      s.EatingInSum,
			AdultsEatingIn:   s.AdultsEatingIn,
			ChildrenEatingIn: s.ChildrenEatingIn,
			AdultsTakeaway:   s.AdultsTakeaway,
			ChildrenTakeaway: s.ChildrenTakeaway,
			PortionsSum:      s.PortionsSum,
			AllergenCounts:   s.Participants,
		},
		DeadlineDays: s.DeadlineDays,
		DeadlineHour: s.DeadlineHour,
	}
}

// FindEvent returns the event with the given row.
func FindEvent(info models.DinnerInformation, row int) (models.DinnerEvent, bool) {
	for _, e := range info.Events {
		if e.Index == row {
			return e, true
		}
	}
	return models.DinnerEvent{}, false
}
