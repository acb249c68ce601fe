package dinner

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/staldhusene/faellesspisning/internal/cache"
	"github.com/staldhusene/faellesspisning/internal/mapper"
	"github.com/staldhusene/faellesspisning/internal/models"
	"github.com/staldhusene/faellesspisning/internal/notifier"
	"github.com/staldhusene/faellesspisning/internal/sheets"
)

type fakeGateway struct {
	mu    sync.Mutex
	cook  [][]string // starts at sheets.FirstDataRow
	house map[string][][]string
	err   error

	reads  []int // hints passed to Read
	writes []string
}

func (f *fakeGateway) Read(_ context.Context, house string, hint int) (sheets.Grids, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads = append(f.reads, hint)
	if f.err != nil {
		return sheets.Grids{}, f.err
	}
	start, _ := sheets.Window(hint, sheets.DefaultWindowRows)
	skip := min(start-sheets.FirstDataRow, len(f.cook))
	g := sheets.Grids{StartRow: start, Cook: f.cook[skip:]}
	if h := f.house[house]; skip < len(h) {
		g.House = h[skip:]
	}
	return g, nil
}

func (f *fakeGateway) UpdateParticipation(_ context.Context, house string, row int, values []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rng := fmt.Sprintf("%s!D%d:O%d", house, row, row)
	f.writes = append(f.writes, rng)
	if f.house == nil {
		f.house = map[string][][]string{}
	}
	grid := f.house[house]
	for len(grid) <= row-sheets.FirstDataRow {
		grid = append(grid, nil)
	}
	grid[row-sheets.FirstDataRow] = values
	f.house[house] = grid
	return rng, nil
}

func (f *fakeGateway) UpdateSchedule(_ context.Context, row int, short, long []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ranges := []string{fmt.Sprintf("KOK!D%d:F%d", row, row), fmt.Sprintf("KOK!W%d:AF%d", row, row)}
	f.writes = append(f.writes, ranges...)
	return ranges, nil
}

func (f *fakeGateway) UpdateExpense(_ context.Context, row int, amount decimal.Decimal) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rng := fmt.Sprintf("KOK!G%d:G%d", row, row)
	f.writes = append(f.writes, rng)
	return rng, nil
}

func (f *fakeGateway) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reads)
}

type fakeChanges struct {
	entries []models.ChangeLog
	err     error
}

func (f *fakeChanges) Record(_ context.Context, entry *models.ChangeLog) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeChanges) List(_ context.Context, house string, limit int) ([]models.ChangeLog, error) {
	var out []models.ChangeLog
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if house == "" || f.entries[i].House == house {
			out = append(out, f.entries[i])
		}
	}
	return out, nil
}

type fakeNotifier struct {
	dinners []notifier.Dinner
}

func (f *fakeNotifier) NotifyDinnerPublished(d notifier.Dinner) error {
	f.dinners = append(f.dinners, d)
	return nil
}

// cookCells is a cook sheet row wide enough to be mapped.
func cookCells(date, menu string, deadlineDays, deadlineHour int) []string {
	cells := make([]string, mapper.MinScheduleColumns)
	cells[0] = date
	cells[3] = fmt.Sprint(deadlineDays)
	cells[4] = fmt.Sprint(deadlineHour)
	cells[23] = menu
	return cells
}

func setNow(t *testing.T, now time.Time) {
	t.Helper()
	old := timeNow
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = old })
}

func newTestService(t *testing.T) (*Service, *fakeGateway, *fakeChanges, *fakeNotifier) {
	t.Helper()
	setNow(t, time.Date(2024, 6, 10, 15, 30, 0, 0, cph))

	gw := &fakeGateway{
		cook: [][]string{
			cookCells("2024-06-07", "Gammel mad", 1, 12), // row 3, past
			cookCells("2024-06-12", "Lasagne", 1, 18),    // row 4, open for signup
			cookCells("2024-06-11", "Suppe", 1, 12),      // row 5, closed
			cookCells("2024-06-14", "", 0, 0),            // row 6, no cook yet
		},
		house: map[string][][]string{
			"P3": {nil, {"2", "1", "", "", "FALSE", "FALSE", "FALSE", "FALSE", "FALSE", "FALSE", "FALSE", "FALSE"}},
		},
	}
	changes := &fakeChanges{}
	n := &fakeNotifier{}
	svc := NewService(gw, mapper.New(cph, nil), cache.New[sheets.Grids](time.Minute), changes, n)
	return svc, gw, changes, n
}

func TestFetch(t *testing.T) {
	svc, gw, _, _ := newTestService(t)

	info, err := svc.Fetch(context.Background(), "P3")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(info.Events) != 2 || info.Events[0].Index != 4 || info.Events[1].Index != 5 {
		t.Fatalf("unexpected events: %+v", info.Events)
	}
	if p := info.Events[0].Participation; p == nil || p.Adults != 2 || p.Children != 1 || p.Takeaway {
		t.Errorf("Participation = %+v", p)
	}
	if len(info.AvailableDates) != 1 || info.AvailableDates[0].Row != 6 {
		t.Errorf("AvailableDates = %+v", info.AvailableDates)
	}

	if _, err := svc.Fetch(context.Background(), "P3"); err != nil {
		t.Fatalf("second Fetch failed: %v", err)
	}
	if gw.readCount() != 1 {
		t.Errorf("expected cached second Fetch, got %d reads", gw.readCount())
	}
}

func TestFetch_InvalidHouse(t *testing.T) {
	svc, gw, _, _ := newTestService(t)

	_, err := svc.Fetch(context.Background(), "KOK")
	if !errors.Is(err, sheets.ErrInvalidHouse) {
		t.Errorf("expected ErrInvalidHouse, got %v", err)
	}
	if gw.readCount() != 0 {
		t.Error("expected no sheet read for an invalid house")
	}
}

func TestFetch_RemoteError(t *testing.T) {
	svc, gw, _, _ := newTestService(t)
	gw.err = fmt.Errorf("sheets batch_get: %w: quota", sheets.ErrRemote)

	if _, err := svc.Fetch(context.Background(), "P3"); !errors.Is(err, sheets.ErrRemote) {
		t.Errorf("expected ErrRemote, got %v", err)
	}
}

func TestFetch_WindowHint(t *testing.T) {
	svc, gw, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Fetch(ctx, "P3"); err != nil {
		t.Fatal(err)
	}
	svc.cache.Invalidate()
	info, err := svc.Fetch(ctx, "P3")
	if err != nil {
		t.Fatal(err)
	}
	if len(info.Events) != 2 {
		t.Errorf("windowed read lost events: %+v", info.Events)
	}
	if p := info.Events[0].Participation; p == nil || p.Adults != 2 {
		t.Errorf("windowed read misaligned the house rows: %+v", p)
	}

	// Everything in the window is in the past now, so the hint is dropped.
	setNow(t, time.Date(2024, 8, 1, 12, 0, 0, 0, cph))
	svc.cache.Invalidate()
	if _, err := svc.Fetch(ctx, "P3"); err != nil {
		t.Fatal(err)
	}
	svc.cache.Invalidate()
	if _, err := svc.Fetch(ctx, "P3"); err != nil {
		t.Fatal(err)
	}

	want := []int{0, 4, 4, 0}
	if !reflect.DeepEqual(gw.reads, want) {
		t.Errorf("read hints = %v, want %v", gw.reads, want)
	}
}

func TestEvent_NotFound(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Event(context.Background(), "P3", 6)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for an open date, got %v", err)
	}
}

func TestSetParticipation(t *testing.T) {
	svc, gw, changes, _ := newTestService(t)
	ctx := context.Background()

	// Warm the cache for another house to check that writes invalidate it too.
	if _, err := svc.Fetch(ctx, "P5"); err != nil {
		t.Fatal(err)
	}

	update := ParticipationUpdate{Adults: 1, Children: 2, Takeaway: true, Allergens: models.Allergens{Gluten: true}}
	if err := svc.SetParticipation(ctx, "P7", 4, update); err != nil {
		t.Fatalf("SetParticipation failed: %v", err)
	}

	want := []string{"", "", "1", "2", "FALSE", "TRUE", "FALSE", "FALSE", "FALSE", "FALSE", "FALSE", "FALSE"}
	if got := gw.house["P7"][1]; !reflect.DeepEqual(got, want) {
		t.Errorf("written values = %q, want %q", got, want)
	}

	reads := gw.readCount()
	if _, err := svc.Fetch(ctx, "P5"); err != nil {
		t.Fatal(err)
	}
	if gw.readCount() != reads+1 {
		t.Error("expected the write to invalidate every house")
	}

	e, err := svc.Event(ctx, "P7", 4)
	if err != nil {
		t.Fatal(err)
	}
	if p := e.Participation; p == nil || !p.Takeaway || p.Adults != 1 || p.Children != 2 || !p.Allergens.Gluten {
		t.Errorf("read back participation = %+v", p)
	}

	if len(changes.entries) != 1 {
		t.Fatalf("expected one change log entry, got %d", len(changes.entries))
	}
	entry := changes.entries[0]
	if entry.Kind != models.ChangeParticipation || entry.House != "P7" || entry.Row != 4 || entry.Range != "P7!D4:O4" || entry.ChangeID == "" {
		t.Errorf("unexpected change log entry: %+v", entry)
	}
}

func TestSetParticipation_Rejected(t *testing.T) {
	svc, gw, _, _ := newTestService(t)
	ctx := context.Background()

	t.Run("closed", func(t *testing.T) {
		err := svc.SetParticipation(ctx, "P3", 5, ParticipationUpdate{Adults: 1})
		if !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	})

	t.Run("unknown row", func(t *testing.T) {
		err := svc.SetParticipation(ctx, "P3", 40, ParticipationUpdate{Adults: 1})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	if len(gw.writes) != 0 {
		t.Errorf("expected no writes, got %v", gw.writes)
	}
}

func TestSetParticipation_ChangeLogFailureIgnored(t *testing.T) {
	svc, _, changes, _ := newTestService(t)
	changes.err = errors.New("disk full")

	if err := svc.SetParticipation(context.Background(), "P3", 4, ParticipationUpdate{Adults: 2}); err != nil {
		t.Errorf("expected the sheet write to succeed, got %v", err)
	}
}

func TestSetSchedule(t *testing.T) {
	svc, gw, changes, n := newTestService(t)
	ctx := context.Background()

	update := ScheduleUpdate{
		DeadlineDays: 2,
		DeadlineHour: 17,
		ExpenseHouse: "P12",
		Chefs:        "Anna og Bo",
		Menu:         "Tarteletter",
		Possible:     models.Allergens{Meat: true, Carrots: true},
	}
	if got, want := update.Short(), []string{"2", "17", "P12"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Short = %q, want %q", got, want)
	}
	wantLong := []string{"Anna og Bo", "Tarteletter", "TRUE", "FALSE", "FALSE", "FALSE", "FALSE", "FALSE", "FALSE", "TRUE"}
	if got := update.Long(); !reflect.DeepEqual(got, wantLong) {
		t.Errorf("Long = %q, want %q", got, wantLong)
	}

	if err := svc.SetSchedule(ctx, 6, update); err != nil {
		t.Fatalf("SetSchedule failed: %v", err)
	}
	if want := []string{"KOK!D6:F6", "KOK!W6:AF6"}; !reflect.DeepEqual(gw.writes, want) {
		t.Errorf("writes = %v, want %v", gw.writes, want)
	}
	if len(n.dinners) != 1 || n.dinners[0].Menu != "Tarteletter" || !n.dinners[0].CanAvoid.Carrots {
		t.Errorf("notifications = %+v", n.dinners)
	}
	if len(changes.entries) != 1 || changes.entries[0].Kind != models.ChangeSchedule {
		t.Errorf("change log = %+v", changes.entries)
	}

	if err := svc.SetSchedule(ctx, 6, ScheduleUpdate{ExpenseHouse: "P12"}); err != nil {
		t.Fatal(err)
	}
	if len(n.dinners) != 1 {
		t.Error("expected no announcement for an empty menu")
	}
}

func TestSetExpense(t *testing.T) {
	svc, gw, changes, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Fetch(ctx, "P3"); err != nil {
		t.Fatal(err)
	}
	if err := svc.SetExpense(ctx, 4, decimal.RequireFromString("349.955")); err != nil {
		t.Fatalf("SetExpense failed: %v", err)
	}
	if len(gw.writes) != 1 || gw.writes[0] != "KOK!G4:G4" {
		t.Errorf("writes = %v", gw.writes)
	}
	if len(changes.entries) != 1 || changes.entries[0].Values != `["349.96"]` {
		t.Errorf("change log = %+v", changes.entries)
	}

	if _, err := svc.Fetch(ctx, "P3"); err != nil {
		t.Fatal(err)
	}
	if gw.readCount() != 2 {
		t.Error("expected the expense write to invalidate the cache")
	}
}

func TestHistory(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	for _, row := range []int{4, 4} {
		if err := svc.SetParticipation(ctx, "P3", row, ParticipationUpdate{Adults: 1}); err != nil {
			t.Fatal(err)
		}
	}
	if err := svc.SetExpense(ctx, 4, decimal.NewFromInt(100)); err != nil {
		t.Fatal(err)
	}

	history, err := svc.History(ctx, "P3", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Errorf("expected 2 entries for P3, got %d", len(history))
	}
}
