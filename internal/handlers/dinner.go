package handlers

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/staldhusene/faellesspisning/internal/dinner"
	"github.com/staldhusene/faellesspisning/internal/models"
)

// DinnerService is the part of dinner.Service the handlers use.
type DinnerService interface {
	Fetch(ctx context.Context, house string) (models.DinnerInformation, error)
	Event(ctx context.Context, house string, row int) (models.DinnerEvent, error)
	SetParticipation(ctx context.Context, house string, row int, u dinner.ParticipationUpdate) error
	SetSchedule(ctx context.Context, row int, u dinner.ScheduleUpdate) error
	SetExpense(ctx context.Context, row int, amount decimal.Decimal) error
	History(ctx context.Context, house string, limit int) ([]models.ChangeLog, error)
}

// HouseDirectory lists the houses that have a sheet.
type HouseDirectory interface {
	List(ctx context.Context) ([]models.House, error)
	Get(ctx context.Context, name string) (models.House, error)
}

type DinnerHandler struct {
	svc    DinnerService
	houses HouseDirectory
}

func NewDinnerHandler(svc DinnerService, houses HouseDirectory) *DinnerHandler {
	return &DinnerHandler{svc: svc, houses: houses}
}

type HousesOutput struct {
	Body []models.House
}

func (h *DinnerHandler) HandleListHouses(ctx context.Context, input *struct{}) (*HousesOutput, error) {
	houses, err := h.houses.List(ctx)
	if err != nil {
		return nil, apiError(err)
	}
	return &HousesOutput{Body: houses}, nil
}

type HouseInput struct {
	House string `path:"house" pattern:"^P[0-9]+$" doc:"House sheet name, e.g. P47"`
}

type EventsOutput struct {
	Body models.DinnerInformation
}

func (h *DinnerHandler) HandleEvents(ctx context.Context, input *HouseInput) (*EventsOutput, error) {
	info, err := h.svc.Fetch(ctx, input.House)
	if err != nil {
		return nil, apiError(err)
	}
	return &EventsOutput{Body: info}, nil
}

type EventInput struct {
	House string `path:"house" pattern:"^P[0-9]+$" doc:"House sheet name, e.g. P47"`
	Row   int    `path:"row" minimum:"3" doc:"Cook sheet row of the dinner"`
}

type EventOutput struct {
	Body models.DinnerEvent
}

func (h *DinnerHandler) HandleEvent(ctx context.Context, input *EventInput) (*EventOutput, error) {
	e, err := h.svc.Event(ctx, input.House, input.Row)
	if err != nil {
		return nil, apiError(err)
	}
	return &EventOutput{Body: e}, nil
}

type ParticipationInput struct {
	House string `path:"house" pattern:"^P[0-9]+$" doc:"House sheet name, e.g. P47"`
	Row   int    `path:"row" minimum:"3" doc:"Cook sheet row of the dinner"`
	Body  struct {
		Adults    int              `json:"adults" minimum:"0" maximum:"50" doc:"Number of adults"`
		Children  int              `json:"children" minimum:"0" maximum:"50" doc:"Number of children"`
		Takeaway  bool             `json:"takeaway" required:"false" doc:"Pick up instead of eating in"`
		Allergens models.Allergens `json:"allergens" required:"false" doc:"Dietary restrictions of the house"`
	}
}

// HandleParticipation overwrites the house's signup and returns the event as
// read back from the sheet.
func (h *DinnerHandler) HandleParticipation(ctx context.Context, input *ParticipationInput) (*EventOutput, error) {
	u := dinner.ParticipationUpdate{
		Adults:    input.Body.Adults,
		Children:  input.Body.Children,
		Takeaway:  input.Body.Takeaway,
		Allergens: input.Body.Allergens,
	}
	if err := h.svc.SetParticipation(ctx, input.House, input.Row, u); err != nil {
		return nil, apiError(err)
	}
	e, err := h.svc.Event(ctx, input.House, input.Row)
	if err != nil {
		return nil, apiError(err)
	}
	return &EventOutput{Body: e}, nil
}

type ScheduleInput struct {
	Row  int `path:"row" minimum:"3" doc:"Cook sheet row of the dinner"`
	Body struct {
		DeadlineDays int              `json:"deadlineDays" minimum:"0" maximum:"14" doc:"Days before the dinner signup closes"`
		DeadlineHour int              `json:"deadlineTimeOfDay" minimum:"0" maximum:"23" doc:"Hour of day signup closes"`
		ExpenseHouse string           `json:"expenseHouse" pattern:"^P[0-9]+$" doc:"House paying for the groceries"`
		Chefs        string           `json:"chefs" maxLength:"200"`
		Menu         string           `json:"menu" maxLength:"2000"`
		Possible     models.Allergens `json:"chefCanAvoid" required:"false" doc:"Restrictions the cook can accommodate"`
	}
}

type MessageOutput struct {
	Body struct {
		Message string `json:"message"`
	}
}

func (h *DinnerHandler) HandleSchedule(ctx context.Context, input *ScheduleInput) (*MessageOutput, error) {
	u := dinner.ScheduleUpdate{
		DeadlineDays: input.Body.DeadlineDays,
		DeadlineHour: input.Body.DeadlineHour,
		ExpenseHouse: input.Body.ExpenseHouse,
		Chefs:        input.Body.Chefs,
		Menu:         input.Body.Menu,
		Possible:     input.Body.Possible,
	}
	if err := h.svc.SetSchedule(ctx, input.Row, u); err != nil {
		return nil, apiError(err)
	}
	res := &MessageOutput{}
	res.Body.Message = "Dinner updated"
	return res, nil
}

type ExpenseInput struct {
	Row  int `path:"row" minimum:"3" doc:"Cook sheet row of the dinner"`
	Body struct {
		Amount float64 `json:"amount" minimum:"0" doc:"Grocery expense in DKK"`
	}
}

func (h *DinnerHandler) HandleExpense(ctx context.Context, input *ExpenseInput) (*MessageOutput, error) {
	if err := h.svc.SetExpense(ctx, input.Row, decimal.NewFromFloat(input.Body.Amount)); err != nil {
		return nil, apiError(err)
	}
	res := &MessageOutput{}
	res.Body.Message = "Expense updated"
	return res, nil
}

type HistoryInput struct {
	House string `path:"house" pattern:"^P[0-9]+$" doc:"House sheet name, e.g. P47"`
	Limit int    `query:"limit" default:"20" minimum:"1" maximum:"200"`
}

type HistoryOutput struct {
	Body []models.ChangeLog
}

func (h *DinnerHandler) HandleHistory(ctx context.Context, input *HistoryInput) (*HistoryOutput, error) {
	changes, err := h.svc.History(ctx, input.House, input.Limit)
	if err != nil {
		return nil, apiError(err)
	}
	if changes == nil {
		changes = []models.ChangeLog{}
	}
	return &HistoryOutput{Body: changes}, nil
}
