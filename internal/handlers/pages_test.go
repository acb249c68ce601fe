package handlers

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/staldhusene/faellesspisning/internal/auth"
	"github.com/staldhusene/faellesspisning/internal/config"
)

var cph = mustLoad("Europe/Copenhagen")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

type pageTest struct {
	svc    *fakeService
	auth   *auth.AuthHandler
	router *chi.Mux
}

func newPageTest(t *testing.T) *pageTest {
	t.Helper()
	houses := newHouseStore(t)
	svc := newFakeService()
	svc.info["P3"] = sampleInfo()
	authHandler := auth.NewAuthHandler(&config.Config{CookieSecret: "test-secret"}, houses)

	pages, err := NewPageHandler(svc, houses, authHandler, "sheet-id", cph)
	if err != nil {
		t.Fatalf("NewPageHandler returned error: %v", err)
	}
	r := chi.NewRouter()
	r.Use(authHandler.HouseMiddleware)
	pages.Routes(r)
	return &pageTest{svc: svc, auth: authHandler, router: r}
}

func (p *pageTest) do(t *testing.T, method, target, house string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if house != "" {
		cookie, err := p.auth.Cookie(house)
		if err != nil {
			t.Fatal(err)
		}
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	p.router.ServeHTTP(rr, req)
	return rr
}

func TestIndex(t *testing.T) {
	p := newPageTest(t)

	t.Run("HousePicker", func(t *testing.T) {
		rr := p.do(t, "GET", "/", "", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		body := rr.Body.String()
		if !strings.Contains(body, `<option value="P47">P47</option>`) {
			t.Error("expected the house picker to list P47")
		}
		if !strings.Contains(body, "https://docs.google.com/spreadsheets/d/sheet-id/edit") {
			t.Error("expected a link to the spreadsheet")
		}
	})

	t.Run("Dinners", func(t *testing.T) {
		rr := p.do(t, "GET", "/", "P3", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		body := rr.Body.String()
		for _, want := range []string{
			"Onsdag: Tilmeld",
			"Torsdag: Takeaway (2 voksne, 1 barn)",
			"Tilmelding før I dag kl 18",
			`href="/edit/P3/4"`,
			"Pilotvej 3",
			"?gid=1861036449",
		} {
			if !strings.Contains(body, want) {
				t.Errorf("expected page to contain %q", want)
			}
		}
		if strings.Contains(body, `href="/edit/P3/5"`) {
			t.Error("did not expect an edit link for a dinner paid by another house")
		}
	})

	t.Run("NoDinners", func(t *testing.T) {
		rr := p.do(t, "GET", "/", "P5", nil)
		if !strings.Contains(rr.Body.String(), "Der er ikke nogen fremtidige middage planlagt") {
			t.Error("expected the empty list message")
		}
	})
}

func TestSelectHouse(t *testing.T) {
	p := newPageTest(t)

	rr := p.do(t, "POST", "/house", "", url.Values{"house": {"P47"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("expected a house cookie")
	}
	if house, _, err := p.auth.ParseToken(cookie.Value); err != nil || house != "P47" {
		t.Errorf("cookie holds %q, %v", house, err)
	}

	rr = p.do(t, "POST", "/house", "", url.Values{"house": {"P2"}})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an unknown house, got %d", rr.Code)
	}

	rr = p.do(t, "POST", "/house/clear", "P47", url.Values{})
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName && c.MaxAge >= 0 {
			t.Errorf("expected the cookie to be cleared, got %+v", c)
		}
	}
}

func TestParticipation(t *testing.T) {
	p := newPageTest(t)

	t.Run("Form", func(t *testing.T) {
		rr := p.do(t, "GET", "/participation/P3/5", "P3", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "Tilmelding lukket") {
			t.Error("expected a closed dinner to show no form")
		}
	})

	t.Run("Submit", func(t *testing.T) {
		form := url.Values{"adults": {"2"}, "children": {"3"}, "takeaway": {"on"}, "gluten": {"on"}}
		rr := p.do(t, "POST", "/participation/P3/4", "P3", form)
		if rr.Code != http.StatusSeeOther {
			t.Fatalf("expected redirect, got %d: %s", rr.Code, rr.Body.String())
		}
		got := p.svc.participation["P3/4"]
		if got.Adults != 2 || got.Children != 3 || !got.Takeaway || !got.Allergens.Gluten || got.Allergens.Meat {
			t.Errorf("unexpected update %+v", got)
		}
	})

	t.Run("OtherHouse", func(t *testing.T) {
		rr := p.do(t, "POST", "/participation/P3/4", "P5", url.Values{"adults": {"1"}})
		if rr.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", rr.Code)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		rr := p.do(t, "POST", "/participation/P3/4", "P3", url.Values{"adults": {"mange"}, "children": {"99"}})
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
		body := rr.Body.String()
		if !strings.Contains(body, "er ikke et tal") || !strings.Contains(body, "Børn") {
			t.Errorf("expected both problems to be reported: %s", body)
		}
	})

	t.Run("Closed", func(t *testing.T) {
		rr := p.do(t, "POST", "/participation/P3/5", "P3", url.Values{"adults": {"1"}})
		if rr.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", rr.Code)
		}
	})

	t.Run("UnknownRow", func(t *testing.T) {
		rr := p.do(t, "GET", "/participation/P3/40", "P3", nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rr.Code)
		}
	})
}

func TestEdit(t *testing.T) {
	p := newPageTest(t)

	t.Run("OwnDinner", func(t *testing.T) {
		rr := p.do(t, "GET", "/edit/P3/4", "P3", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "Lasagne") {
			t.Error("expected the form to be filled with the menu")
		}
	})

	t.Run("ForeignDinner", func(t *testing.T) {
		rr := p.do(t, "GET", "/edit/P3/5", "P3", nil)
		if rr.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", rr.Code)
		}
	})

	t.Run("PickOpenDate", func(t *testing.T) {
		rr := p.do(t, "GET", "/edit/P3/0", "P3", nil)
		if !strings.Contains(rr.Body.String(), `<option value="9">Fredag d. 21/6</option>`) {
			t.Errorf("expected the open date to be offered: %s", rr.Body.String())
		}
	})

	t.Run("ClaimOpenDate", func(t *testing.T) {
		form := url.Values{
			"row":             {"9"},
			"chefs":           {"Anna og Bo"},
			"menu":            {"Tarteletter"},
			"deadlineDays":    {"1"},
			"deadlineHour":    {"12"},
			"possible-onions": {"on"},
		}
		rr := p.do(t, "POST", "/edit/P3/0", "P3", form)
		if rr.Code != http.StatusSeeOther {
			t.Fatalf("expected redirect, got %d: %s", rr.Code, rr.Body.String())
		}
		u := p.svc.schedules[9]
		if u.ExpenseHouse != "P3" || u.Menu != "Tarteletter" || u.DeadlineDays != 1 || !u.Possible.Onions {
			t.Errorf("unexpected schedule update %+v", u)
		}
	})

	t.Run("MissingMenu", func(t *testing.T) {
		rr := p.do(t, "POST", "/edit/P3/4", "P3", url.Values{"chefs": {"Anna"}})
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "Menu skal udfyldes") {
			t.Error("expected the missing menu to be reported")
		}
	})

	t.Run("Expense", func(t *testing.T) {
		rr := p.do(t, "POST", "/edit/P3/4/expense", "P3", url.Values{"amount": {"349,50"}})
		if rr.Code != http.StatusSeeOther {
			t.Fatalf("expected redirect, got %d: %s", rr.Code, rr.Body.String())
		}
		if got := p.svc.expenses[4]; got.String() != "349.5" {
			t.Errorf("expected 349.5, got %s", got)
		}
		if loc := rr.Header().Get("Location"); loc != "/edit/P3/4" {
			t.Errorf("unexpected redirect %q", loc)
		}
	})

	t.Run("NegativeExpense", func(t *testing.T) {
		rr := p.do(t, "POST", "/edit/P3/4/expense", "P3", url.Values{"amount": {"-5"}})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rr.Code)
		}
	})
}

func TestMenuMarkdownEscapesHTML(t *testing.T) {
	render := funcMap["renderMarkdown"].(func(string) template.HTML)
	got := string(render("Lasagne\nmed <script>alert(1)</script>"))
	if strings.Contains(got, "<script>") {
		t.Errorf("expected raw HTML to be dropped, got %s", got)
	}
	if !strings.Contains(got, "Lasagne<br") {
		t.Errorf("expected a hard line break, got %s", got)
	}
}
