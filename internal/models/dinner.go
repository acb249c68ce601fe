package models

// Participation is a house's signup summarised for display.
// Adults and Children come from takeaway counts when Takeaway is set.
type Participation struct {
	Adults    int       `json:"adults"`
	Children  int       `json:"children"`
	Takeaway  bool      `json:"takeaway"`
	Allergens Allergens `json:"allergens"`
}

type ParticipantsInfo struct {
	EatingInSum      int     `json:"eatingInSum"`
	AdultsEatingIn   int     `json:"adultsEatingIn"`
	ChildrenEatingIn int     `json:"childrenEatingIn"`
	AdultsTakeaway   int     `json:"adultsTakeaway"`
	ChildrenTakeaway int     `json:"childrenTakeaway"`
	PortionsSum      float64 `json:"portionsSum"`
	AllergenCounts
}

type DinnerEventExtraInfo struct {
	Deadline         string           `json:"deadline"`
	Chefs            string           `json:"chefs"`
	PriceAdults      string           `json:"priceAdults"`
	PriceChildren    string           `json:"priceChildren"`
	ExpenseHouse     string           `json:"expenseHouse"`
	Expenses         string           `json:"expenses"`
	ParticipantsInfo ParticipantsInfo `json:"participantsInfo"`
	DeadlineDays     int              `json:"deadlineDays"`
	DeadlineHour     int              `json:"deadlineTimeOfDay"`
}

// DinnerEvent is the read-only view of one scheduled dinner for one house.
type DinnerEvent struct {
	Index         int                  `json:"index"`
	Date          string               `json:"date"`
	DateAsNumber  int64                `json:"dateAsNumber"`
	Menu          string               `json:"menu"`
	Editable      bool                 `json:"editable"`
	ChefCanAvoid  Allergens            `json:"chefCanAvoid"`
	Participation *Participation       `json:"participation"`
	ExtraInfo     DinnerEventExtraInfo `json:"extraInfo"`
}

// OpenDate is a schedule row without a menu that a cook can claim.
type OpenDate struct {
	Row  int    `json:"row"`
	Date string `json:"date"`
}

type DinnerInformation struct {
	Events         []DinnerEvent `json:"events"`
	AvailableDates []OpenDate    `json:"availableDatesForDinnerEvents"`
}
