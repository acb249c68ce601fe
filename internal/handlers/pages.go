package handlers

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"github.com/staldhusene/faellesspisning/internal/auth"
	"github.com/staldhusene/faellesspisning/internal/dinner"
	"github.com/staldhusene/faellesspisning/internal/models"
	"github.com/staldhusene/faellesspisning/internal/sheets"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"index.html", "participation.html", "edit.html", "error.html"}

// timeNow is a variable for testability.
var timeNow = time.Now

// mdRenderer escapes raw HTML in menus (WithUnsafe is not set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

const (
	defaultDeadlineDays = 2
	defaultDeadlineHour = 18
)

var funcMap = template.FuncMap{
	"renderMarkdown": func(md string) template.HTML {
		var buf bytes.Buffer
		if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
			return template.HTML(template.HTMLEscapeString(md))
		}
		return template.HTML(buf.String())
	},
}

type PageHandler struct {
	svc           DinnerService
	houses        HouseDirectory
	auth          *auth.AuthHandler
	spreadsheetID string
	loc           *time.Location
	pages         map[string]*template.Template
}

func NewPageHandler(svc DinnerService, houses HouseDirectory, authHandler *auth.AuthHandler, spreadsheetID string, loc *time.Location) (*PageHandler, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tpl
	}
	return &PageHandler{
		svc:           svc,
		houses:        houses,
		auth:          authHandler,
		spreadsheetID: spreadsheetID,
		loc:           loc,
		pages:         pages,
	}, nil
}

func (h *PageHandler) Routes(r chi.Router) {
	r.Get("/", h.Index)
	r.Post("/house", h.SelectHouse)
	r.Post("/house/clear", h.ClearHouse)
	r.Get("/participation/{house}/{row}", h.ParticipationPage)
	r.Post("/participation/{house}/{row}", h.SubmitParticipation)
	r.Get("/edit/{house}/{row}", h.EditPage)
	r.Post("/edit/{house}/{row}", h.SubmitEdit)
	r.Post("/edit/{house}/{row}/expense", h.SubmitExpense)
}

type layoutData struct {
	Title     string
	HouseName string
	House     *models.House
	SheetLink string
	CSRFField template.HTML
}

func (h *PageHandler) layout(r *http.Request, title string) layoutData {
	data := layoutData{
		Title:     title,
		SheetLink: "https://docs.google.com/spreadsheets/d/" + h.spreadsheetID + "/edit",
		CSRFField: csrf.TemplateField(r),
	}
	name, ok := auth.HouseFromContext(r.Context())
	if !ok {
		return data
	}
	data.HouseName = name
	if house, err := h.houses.Get(r.Context(), name); err == nil {
		data.House = &house
		data.SheetLink += "?gid=" + house.SheetGID
	}
	return data
}

type card struct {
	models.DinnerEvent
	Heading string
	Status  string
	CanEdit bool
}

type indexView struct {
	layoutData
	Houses []models.House
	Cards  []card
	Error  string
}

type checkbox struct {
	Key     string
	Label   string
	Checked bool
}

func checkboxes(a models.Allergens) []checkbox {
	flags := a.Flags()
	boxes := make([]checkbox, 0, models.AllergenCount)
	for i, key := range allergenKeys {
		boxes = append(boxes, checkbox{Key: key, Label: models.AllergenNames[i], Checked: flags[i]})
	}
	return boxes
}

type participationView struct {
	layoutData
	Event     models.DinnerEvent
	Adults    int
	Children  int
	Takeaway  bool
	Allergens []checkbox
	Errors    []string
}

type editView struct {
	layoutData
	Row          int
	SelectedRow  int
	HasEvent     bool
	DateLabel    string
	OpenDates    []models.OpenDate
	DeadlineDays int
	DeadlineHour int
	Chefs        string
	Menu         string
	Possible     []checkbox
	Expenses     string
	Errors       []string
}

type errorView struct {
	layoutData
	Status  int
	Message string
}

// Index shows the dinners of the selected house, or the house picker.
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	view := indexView{layoutData: h.layout(r, "Fællesspisning")}
	if view.HouseName == "" {
		h.renderHousePicker(w, r, view, http.StatusOK)
		return
	}

	info, err := h.svc.Fetch(r.Context(), view.HouseName)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	now := timeNow().In(h.loc)
	for i, e := range info.Events {
		view.Cards = append(view.Cards, card{
			DinnerEvent: e,
			Heading:     dinner.WeekHeading(info.Events, i, now),
			Status:      dinner.ParticipationText(e),
			CanEdit:     e.ExtraInfo.ExpenseHouse == view.HouseName,
		})
	}
	h.render(w, r, http.StatusOK, "index.html", view)
}

func (h *PageHandler) renderHousePicker(w http.ResponseWriter, r *http.Request, view indexView, status int) {
	houses, err := h.houses.List(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	view.Houses = houses
	h.render(w, r, status, "index.html", view)
}

func (h *PageHandler) SelectHouse(w http.ResponseWriter, r *http.Request) {
	name := r.PostFormValue("house")
	_, cookie, err := h.auth.SelectHouse(r.Context(), name)
	if err != nil {
		slog.Info("house selection rejected", "house", name, "error", err)
		view := indexView{layoutData: h.layout(r, "Vælg hus"), Error: "Ukendt hus"}
		view.HouseName = ""
		h.renderHousePicker(w, r, view, http.StatusBadRequest)
		return
	}
	http.SetCookie(w, cookie)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *PageHandler) ClearHouse(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.auth.ClearCookie())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *PageHandler) ParticipationPage(w http.ResponseWriter, r *http.Request) {
	house, row, ok := h.pathParams(w, r)
	if !ok {
		return
	}
	e, err := h.svc.Event(r.Context(), house, row)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	view := participationView{layoutData: h.layout(r, "Deltagelse"), Event: e}
	view.HouseName = house
	if p := e.Participation; p != nil {
		view.Adults, view.Children, view.Takeaway = p.Adults, p.Children, p.Takeaway
		view.Allergens = checkboxes(p.Allergens)
	} else {
		view.Allergens = checkboxes(models.Allergens{})
	}
	h.render(w, r, http.StatusOK, "participation.html", view)
}

func (h *PageHandler) SubmitParticipation(w http.ResponseWriter, r *http.Request) {
	house, row, ok := h.pathParams(w, r)
	if !ok || !h.requireHouse(w, r, house) {
		return
	}

	form, err := parseParticipationForm(r)
	var problems formErrors
	if errors.As(err, &problems) {
		e, err := h.svc.Event(r.Context(), house, row)
		if err != nil {
			h.renderError(w, r, err)
			return
		}
		view := participationView{
			layoutData: h.layout(r, "Deltagelse"),
			Event:      e,
			Adults:     form.Adults,
			Children:   form.Children,
			Takeaway:   form.Takeaway,
			Allergens:  checkboxes(form.Allergens),
			Errors:     problems,
		}
		h.render(w, r, http.StatusBadRequest, "participation.html", view)
		return
	} else if err != nil {
		h.renderError(w, r, err)
		return
	}

	if err := h.svc.SetParticipation(r.Context(), house, row, form.update()); err != nil {
		h.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// editTarget resolves the row being edited. An existing dinner may only be
// edited by its expense house; an open date may be claimed by anyone.
func (h *PageHandler) editTarget(w http.ResponseWriter, r *http.Request, house string, row int) (editView, bool) {
	info, err := h.svc.Fetch(r.Context(), house)
	if err != nil {
		h.renderError(w, r, err)
		return editView{}, false
	}

	view := editView{
		layoutData:   h.layout(r, "Rediger fællesspisning"),
		Row:          row,
		DeadlineDays: defaultDeadlineDays,
		DeadlineHour: defaultDeadlineHour,
		Possible:     checkboxes(models.Allergens{}),
	}
	view.HouseName = house

	if row == 0 {
		view.OpenDates = info.AvailableDates
		return view, true
	}
	if e, ok := dinner.FindEvent(info, row); ok {
		if e.ExtraInfo.ExpenseHouse != "" && e.ExtraInfo.ExpenseHouse != house {
			h.fail(w, r, http.StatusForbidden, "Kun "+e.ExtraInfo.ExpenseHouse+" kan rette denne fællesspisning")
			return editView{}, false
		}
		view.HasEvent = true
		view.DateLabel = e.Date
		view.DeadlineDays = e.ExtraInfo.DeadlineDays
		view.DeadlineHour = e.ExtraInfo.DeadlineHour
		view.Chefs = e.ExtraInfo.Chefs
		view.Menu = e.Menu
		view.Possible = checkboxes(e.ChefCanAvoid)
		view.Expenses = e.ExtraInfo.Expenses
		return view, true
	}
	for _, o := range info.AvailableDates {
		if o.Row == row {
			view.DateLabel = o.Date
			return view, true
		}
	}
	h.renderError(w, r, fmt.Errorf("%w: row %d", dinner.ErrNotFound, row))
	return editView{}, false
}

func (h *PageHandler) EditPage(w http.ResponseWriter, r *http.Request) {
	house, row, ok := h.pathParams(w, r)
	if !ok {
		return
	}
	view, ok := h.editTarget(w, r, house, row)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, "edit.html", view)
}

func (h *PageHandler) SubmitEdit(w http.ResponseWriter, r *http.Request) {
	house, row, ok := h.pathParams(w, r)
	if !ok || !h.requireHouse(w, r, house) {
		return
	}

	form, formErr := parseScheduleForm(r, row)
	var problems formErrors
	if formErr != nil && !errors.As(formErr, &problems) {
		h.renderError(w, r, formErr)
		return
	}

	// A claimed open date is checked like a direct edit of that row.
	target := row
	if row == 0 && form.Row >= sheets.FirstDataRow {
		target = form.Row
	}
	if _, ok := h.editTarget(w, r, house, target); !ok {
		return
	}

	if len(problems) > 0 {
		view, ok := h.editTarget(w, r, house, row)
		if !ok {
			return
		}
		view.SelectedRow = form.Row
		view.Chefs, view.Menu = form.Chefs, form.Menu
		view.DeadlineDays, view.DeadlineHour = form.DeadlineDays, form.DeadlineHour
		view.Possible = checkboxes(form.Possible)
		view.Errors = problems
		h.render(w, r, http.StatusBadRequest, "edit.html", view)
		return
	}

	if err := h.svc.SetSchedule(r.Context(), form.Row, form.update(house)); err != nil {
		h.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *PageHandler) SubmitExpense(w http.ResponseWriter, r *http.Request) {
	house, row, ok := h.pathParams(w, r)
	if !ok || !h.requireHouse(w, r, house) {
		return
	}
	view, ok := h.editTarget(w, r, house, row)
	if !ok {
		return
	}
	if !view.HasEvent {
		h.fail(w, r, http.StatusBadRequest, "Udlæg kan kun registreres for en planlagt fællesspisning")
		return
	}

	amount, err := parseExpenseForm(r)
	var problems formErrors
	if errors.As(err, &problems) {
		view.Errors = problems
		h.render(w, r, http.StatusBadRequest, "edit.html", view)
		return
	} else if err != nil {
		h.renderError(w, r, err)
		return
	}

	if err := h.svc.SetExpense(r.Context(), row, amount); err != nil {
		h.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/edit/%s/%d", house, row), http.StatusSeeOther)
}

// pathParams reads {house} and {row}. Row 0 is only meaningful on edit pages
// where it stands for "pick an open date".
func (h *PageHandler) pathParams(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	house := chi.URLParam(r, "house")
	if err := sheets.ValidateHouse(house); err != nil {
		h.renderError(w, r, err)
		return "", 0, false
	}
	row, err := strconv.Atoi(chi.URLParam(r, "row"))
	if err != nil || row < 0 || (row > 0 && row < sheets.FirstDataRow) {
		h.fail(w, r, http.StatusBadRequest, "Ugyldig række")
		return "", 0, false
	}
	return house, row, true
}

// requireHouse only lets a browser write on behalf of the house it selected.
func (h *PageHandler) requireHouse(w http.ResponseWriter, r *http.Request, house string) bool {
	selected, ok := auth.HouseFromContext(r.Context())
	if !ok || selected != house {
		h.fail(w, r, http.StatusForbidden, "Vælg "+house+" på forsiden før du retter")
		return false
	}
	return true
}

func (h *PageHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	h.fail(w, r, status, msg)
}

func (h *PageHandler) fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.render(w, r, status, "error.html", errorView{
		layoutData: h.layout(r, "Fejl"),
		Status:     status,
		Message:    msg,
	})
}

// render executes the page into a buffer so a failing template never sends a
// partial page.
func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	tpl, ok := h.pages[name]
	if !ok {
		internalError(w, fmt.Errorf("unknown page %s", name))
		return
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		internalError(w, fmt.Errorf("render %s: %w", name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
