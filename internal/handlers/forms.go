package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/staldhusene/faellesspisning/internal/dinner"
	"github.com/staldhusene/faellesspisning/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// allergenKeys are the form field names of the dietary checkboxes, in sheet order.
var allergenKeys = [models.AllergenCount]string{"meat", "gluten", "lactose", "milk", "nuts", "freshFruit", "onions", "carrots"}

var fieldLabels = map[string]string{
	"Adults":       "Voksne",
	"Children":     "Børn",
	"Row":          "Dato",
	"DeadlineDays": "Dage før",
	"DeadlineHour": "Klokkeslæt",
	"Chefs":        "Kokke",
	"Menu":         "Menu",
	"Amount":       "Udlæg",
}

type participationForm struct {
	Adults    int `validate:"gte=0,lte=50"`
	Children  int `validate:"gte=0,lte=50"`
	Takeaway  bool
	Allergens models.Allergens
}

func (f participationForm) update() dinner.ParticipationUpdate {
	return dinner.ParticipationUpdate{
		Adults:    f.Adults,
		Children:  f.Children,
		Takeaway:  f.Takeaway,
		Allergens: f.Allergens,
	}
}

type scheduleForm struct {
	Row          int    `validate:"gte=3"`
	DeadlineDays int    `validate:"gte=0,lte=14"`
	DeadlineHour int    `validate:"gte=0,lte=23"`
	Chefs        string `validate:"required,max=200"`
	Menu         string `validate:"required,max=2000"`
	Possible     models.Allergens
}

func (f scheduleForm) update(house string) dinner.ScheduleUpdate {
	return dinner.ScheduleUpdate{
		DeadlineDays: f.DeadlineDays,
		DeadlineHour: f.DeadlineHour,
		ExpenseHouse: house,
		Chefs:        f.Chefs,
		Menu:         f.Menu,
		Possible:     f.Possible,
	}
}

type expenseForm struct {
	Amount string `validate:"required,max=20"`
}

// formErrors collects human readable problems with a submitted form.
type formErrors []string

func (e formErrors) Error() string {
	return strings.Join(e, ", ")
}

func parseParticipationForm(r *http.Request) (participationForm, error) {
	if err := r.ParseForm(); err != nil {
		return participationForm{}, formErrors{"Formularen kunne ikke læses"}
	}
	var problems formErrors
	f := participationForm{
		Adults:    formInt(r, "adults", &problems),
		Children:  formInt(r, "children", &problems),
		Takeaway:  formBool(r, "takeaway"),
		Allergens: formAllergens(r, ""),
	}
	return f, check(f, problems)
}

func parseScheduleForm(r *http.Request, row int) (scheduleForm, error) {
	if err := r.ParseForm(); err != nil {
		return scheduleForm{}, formErrors{"Formularen kunne ikke læses"}
	}
	var problems formErrors
	if row == 0 {
		row = formInt(r, "row", &problems)
	}
	f := scheduleForm{
		Row:          row,
		DeadlineDays: formInt(r, "deadlineDays", &problems),
		DeadlineHour: formInt(r, "deadlineHour", &problems),
		Chefs:        strings.TrimSpace(r.PostFormValue("chefs")),
		Menu:         strings.TrimSpace(r.PostFormValue("menu")),
		Possible:     formAllergens(r, "possible-"),
	}
	return f, check(f, problems)
}

// parseExpenseForm accepts both "349,50" and "349.50".
func parseExpenseForm(r *http.Request) (decimal.Decimal, error) {
	if err := r.ParseForm(); err != nil {
		return decimal.Zero, formErrors{"Formularen kunne ikke læses"}
	}
	f := expenseForm{Amount: strings.TrimSpace(r.PostFormValue("amount"))}
	if err := check(f, nil); err != nil {
		return decimal.Zero, err
	}
	amount, err := decimal.NewFromString(strings.Replace(f.Amount, ",", ".", 1))
	if err != nil {
		return decimal.Zero, formErrors{"Udlæg skal være et beløb"}
	}
	if amount.IsNegative() {
		return decimal.Zero, formErrors{"Udlæg kan ikke være negativt"}
	}
	return amount, nil
}

func formInt(r *http.Request, key string, problems *formErrors) int {
	v := strings.TrimSpace(r.PostFormValue(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("%q er ikke et tal", v))
	}
	return n
}

// formBool treats any submitted checkbox value as checked.
func formBool(r *http.Request, key string) bool {
	return r.PostFormValue(key) != ""
}

func formAllergens(r *http.Request, prefix string) models.Allergens {
	var flags [models.AllergenCount]bool
	for i, key := range allergenKeys {
		flags[i] = formBool(r, prefix+key)
	}
	return models.AllergensFromFlags(flags)
}

// check runs the struct validation and merges its findings with problems
// found while parsing.
func check(form any, problems formErrors) error {
	err := validate.Struct(form)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	} else if err != nil {
		return err
	}
	if len(problems) > 0 {
		return problems
	}
	return nil
}

func describe(fe validator.FieldError) string {
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return label + " skal udfyldes"
	case "gte", "lte", "max":
		return fmt.Sprintf("%s er uden for det tilladte (%s %s)", label, fe.Tag(), fe.Param())
	default:
		return label + " er ugyldig"
	}
}
