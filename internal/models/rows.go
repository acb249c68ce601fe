package models

import (
	"strconv"
	"time"
)

// Allergens holds one flag per dietary concern, in the column order of the sheets.
type Allergens struct {
	Meat       bool `json:"meat"`
	Gluten     bool `json:"gluten"`
	Lactose    bool `json:"lactose"`
	Milk       bool `json:"milk"`
	Nuts       bool `json:"nuts"`
	FreshFruit bool `json:"freshFruit"`
	Onions     bool `json:"onions"`
	Carrots    bool `json:"carrots"`
}

// AllergenCount is the number of allergen columns in both sheets.
const AllergenCount = 8

// AllergenNames are the display names in column order.
var AllergenNames = [AllergenCount]string{"Kød", "Gluten", "Laktose", "Mælk", "Nødder", "Frisk frugt", "Løg", "Gulerødder"}

// Flags returns the allergens in column order.
func (a Allergens) Flags() [AllergenCount]bool {
	return [AllergenCount]bool{a.Meat, a.Gluten, a.Lactose, a.Milk, a.Nuts, a.FreshFruit, a.Onions, a.Carrots}
}

// AllergensFromFlags is the inverse of Flags.
func AllergensFromFlags(f [AllergenCount]bool) Allergens {
	return Allergens{
		Meat:       f[0],
		Gluten:     f[1],
		Lactose:    f[2],
		Milk:       f[3],
		Nuts:       f[4],
		FreshFruit: f[5],
		Onions:     f[6],
		Carrots:    f[7],
	}
}

// AllergenCounts holds per-allergen participant counts from the cook sheet.
type AllergenCounts struct {
	Meat       int `json:"meat"`
	Gluten     int `json:"gluten"`
	Lactose    int `json:"lactose"`
	Milk       int `json:"milk"`
	Nuts       int `json:"nuts"`
	FreshFruit int `json:"freshFruit"`
	Onions     int `json:"onions"`
	Carrots    int `json:"carrots"`
}

// ScheduleRow is one row of the shared cook sheet that has a menu.
// Row is the absolute sheet row and doubles as the event identifier.
type ScheduleRow struct {
	Row  int
	Date time.Time

	DeadlineDays int
	DeadlineHour int
	ExpenseHouse string
	Expenses     string

	EatingInSum      int
	AdultsEatingIn   int
	ChildrenEatingIn int
	AdultsTakeaway   int
	ChildrenTakeaway int
	PortionsSum      float64

	Participants AllergenCounts

	Chefs string
	Menu  string

	Possible Allergens

	PriceAdults   string
	PriceChildren string
}

// OpenRow is a cook sheet row without a menu.
type OpenRow struct {
	Row  int
	Date time.Time
}

// HouseRow is one house's signup for the schedule row with the same Row.
type HouseRow struct {
	Row int

	AdultsEatingIn   int
	ChildrenEatingIn int
	AdultsTakeaway   int
	ChildrenTakeaway int

	Allergens Allergens
}

// HouseColumns is the width of the house sheet range D:O.
const HouseColumns = 4 + AllergenCount

// NoSignup reports whether all four counts are zero.
func (h HouseRow) NoSignup() bool {
	return h.AdultsEatingIn+h.ChildrenEatingIn+h.AdultsTakeaway+h.ChildrenTakeaway == 0
}

// Values renders the row in house sheet column order D..O.
// Zero counts become empty cells, flags become "TRUE"/"FALSE".
func (h HouseRow) Values() []string {
	values := make([]string, 0, HouseColumns)
	for _, n := range []int{h.AdultsEatingIn, h.ChildrenEatingIn, h.AdultsTakeaway, h.ChildrenTakeaway} {
		values = append(values, countCell(n))
	}
	for _, f := range h.Allergens.Flags() {
		values = append(values, BoolCell(f))
	}
	return values
}

// BoolCell renders a flag the way the sheet stores checkboxes.
func BoolCell(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func countCell(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}
