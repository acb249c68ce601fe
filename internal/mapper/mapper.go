// Package mapper turns the raw string grids of the cook sheet and the house
// sheets into typed rows.
package mapper

import (
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/staldhusene/faellesspisning/internal/models"
)

const (
	// MinScheduleColumns is the narrowest cook sheet row that is mapped (A..AF).
	MinScheduleColumns = 32
	// PriceColumns is the width a row needs before AH and AI are read.
	PriceColumns = 35
)

// Cook sheet column indexes, A = 0.
const (
	colDate             = 0
	colDeadlineDays     = 3
	colDeadlineHour     = 4
	colExpenseHouse     = 5
	colExpenses         = 6
	colEatingInSum      = 8
	colAdultsEatingIn   = 9
	colChildrenEatingIn = 10
	colAdultsTakeaway   = 11
	colChildrenTakeaway = 12
	colPortionsSum      = 13
	colParticipants     = 14
	colChefs            = 22
	colMenu             = 23
	colPossible         = 24
	colPriceAdults      = 33
	colPriceChildren    = 34
)

// DefaultDateLayouts are tried in order when the date cell is parsed.
var DefaultDateLayouts = []string{"2006-01-02", "1/2/2006", "02-01-2006"}

type Mapper struct {
	loc     *time.Location
	layouts []string
}

func New(loc *time.Location, layouts []string) *Mapper {
	if loc == nil {
		loc = time.Local
	}
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	return &Mapper{loc: loc, layouts: layouts}
}

// Location is the zone dates are interpreted in.
func (m *Mapper) Location() *time.Location {
	return m.loc
}

// ScheduleResult is the mapped cook sheet window.
type ScheduleResult struct {
	Rows []models.ScheduleRow
	Open []models.OpenRow
	// FirstUpcoming is the absolute row of the first row dated today or later, 0 if none.
	FirstUpcoming int
}

// ScheduleRows maps the cook sheet grid whose first row sits at startRow.
// Rows dated before today, short rows and rows with an unreadable date are skipped.
func (m *Mapper) ScheduleRows(grid [][]string, startRow int, now time.Time) ScheduleResult {
	var res ScheduleResult
	today := Midnight(now.In(m.loc))

	for i, cells := range grid {
		row := startRow + i
		if len(cells) < MinScheduleColumns {
			slog.Debug("skipping short cook sheet row", "row", row, "columns", len(cells))
			continue
		}
		date, ok := m.ParseDate(cells[colDate])
		if !ok {
			slog.Debug("skipping cook sheet row with unreadable date", "row", row, "value", cells[colDate])
			continue
		}
		if date.Before(today) {
			continue
		}
		if res.FirstUpcoming == 0 {
			res.FirstUpcoming = row
		}

		if cells[colMenu] == "" {
			res.Open = append(res.Open, models.OpenRow{Row: row, Date: date})
			continue
		}
		res.Rows = append(res.Rows, scheduleRow(cells, row, date))
	}
	return res
}

func scheduleRow(cells []string, row int, date time.Time) models.ScheduleRow {
	s := models.ScheduleRow{
		Row:  row,
		Date: date,

		DeadlineDays: ParseInt(cells[colDeadlineDays]),
		DeadlineHour: ParseInt(cells[colDeadlineHour]),
		ExpenseHouse: cells[colExpenseHouse],
		Expenses:     cells[colExpenses],

		EatingInSum:      ParseInt(cells[colEatingInSum]),
		AdultsEatingIn:   ParseInt(cells[colAdultsEatingIn]),
		ChildrenEatingIn: ParseInt(cells[colChildrenEatingIn]),
		AdultsTakeaway:   ParseInt(cells[colAdultsTakeaway]),
		ChildrenTakeaway: ParseInt(cells[colChildrenTakeaway]),
		PortionsSum:      ParseDecimal(cells[colPortionsSum]),

		Participants: models.AllergenCounts{
			Meat:       ParseInt(cells[colParticipants]),
			Gluten:     ParseInt(cells[colParticipants+1]),
			Lactose:    ParseInt(cells[colParticipants+2]),
			Milk:       ParseInt(cells[colParticipants+3]),
			Nuts:       ParseInt(cells[colParticipants+4]),
			FreshFruit: ParseInt(cells[colParticipants+5]),
			Onions:     ParseInt(cells[colParticipants+6]),
			Carrots:    ParseInt(cells[colParticipants+7]),
		},

		Chefs:    cells[colChefs],
		Menu:     cells[colMenu],
		Possible: allergens(cells[colPossible : colPossible+models.AllergenCount]),
	}
	if len(cells) >= PriceColumns {
		s.PriceAdults = cells[colPriceAdults]
		s.PriceChildren = cells[colPriceChildren]
	}
	return s
}

// HouseRows picks the house sheet row for every schedule row.
// A house grid shorter than the cook sheet window yields no signup for the
// missing rows. Rows without a signup are left out.
func HouseRows(grid [][]string, startRow int, schedule []models.ScheduleRow) []models.HouseRow {
	var rows []models.HouseRow
	for _, s := range schedule {
		idx := s.Row - startRow
		if idx < 0 || idx >= len(grid) {
			continue
		}
		h := ParseHouseRow(grid[idx], s.Row)
		if h.NoSignup() {
			continue
		}
		rows = append(rows, h)
	}
	return rows
}

// ParseHouseRow maps the D..O cells of one house sheet row.
// The API trims trailing empty cells, so missing cells read as empty.
func ParseHouseRow(cells []string, row int) models.HouseRow {
	padded := make([]string, models.HouseColumns)
	copy(padded, cells)
	return models.HouseRow{
		Row:              row,
		AdultsEatingIn:   ParseInt(padded[0]),
		ChildrenEatingIn: ParseInt(padded[1]),
		AdultsTakeaway:   ParseInt(padded[2]),
		ChildrenTakeaway: ParseInt(padded[3]),
		Allergens:        allergens(padded[4:]),
	}
}

func allergens(cells []string) models.Allergens {
	var f [models.AllergenCount]bool
	for i := range f {
		f[i] = ParseBool(cells[i])
	}
	return models.AllergensFromFlags(f)
}

// ParseDate reads a date cell in the mapper's location.
func (m *Mapper) ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range m.layouts {
		if t, err := time.ParseInLocation(layout, s, m.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseBool is true only for the literal "TRUE".
func ParseBool(s string) bool {
	return s == "TRUE"
}

// ParseInt reads the leading integer of s, like a lenient form field,
// and returns 0 when there is none.
func ParseInt(s string) int {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n, digits := 0, 0
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
		digits++
	}
	if digits == 0 {
		return 0
	}
	if neg {
		return -n
	}
	return n
}

// ParseDecimal reads a number written with a decimal comma, 0 on failure.
func ParseDecimal(s string) float64 {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

// Midnight truncates t to the start of its calendar day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
