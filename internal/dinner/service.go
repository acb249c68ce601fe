package dinner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/staldhusene/faellesspisning/internal/cache"
	"github.com/staldhusene/faellesspisning/internal/mapper"
	"github.com/staldhusene/faellesspisning/internal/models"
	"github.com/staldhusene/faellesspisning/internal/notifier"
	"github.com/staldhusene/faellesspisning/internal/sheets"
)

var (
	// ErrNotFound is returned when a row is not among the upcoming dinners.
	ErrNotFound = errors.New("dinner event not found")
	// ErrClosed is returned for signups after the deadline.
	ErrClosed = errors.New("signup deadline has passed")
)

// timeNow is a variable for testability.
var timeNow = time.Now

// Gateway is the spreadsheet access the service needs.
type Gateway interface {
	Read(ctx context.Context, house string, hint int) (sheets.Grids, error)
	UpdateParticipation(ctx context.Context, house string, row int, values []string) (string, error)
	UpdateSchedule(ctx context.Context, row int, short, long []string) ([]string, error)
	UpdateExpense(ctx context.Context, row int, amount decimal.Decimal) (string, error)
}

// ChangeStore persists the log of writes.
type ChangeStore interface {
	Record(ctx context.Context, entry *models.ChangeLog) error
	List(ctx context.Context, house string, limit int) ([]models.ChangeLog, error)
}

// ParticipationUpdate is one house's signup as entered in the form.
type ParticipationUpdate struct {
	Adults    int
	Children  int
	Takeaway  bool
	Allergens models.Allergens
}

// HouseRow places the counts in the takeaway or eat-in columns.
func (u ParticipationUpdate) HouseRow(row int) models.HouseRow {
	h := models.HouseRow{Row: row, Allergens: u.Allergens}
	if u.Takeaway {
		h.AdultsTakeaway = u.Adults
		h.ChildrenTakeaway = u.Children
	} else {
		h.AdultsEatingIn = u.Adults
		h.ChildrenEatingIn = u.Children
	}
	return h
}

// ScheduleUpdate is what a cook edits about a dinner.
type ScheduleUpdate struct {
	DeadlineDays int
	DeadlineHour int
	ExpenseHouse string
	Chefs        string
	Menu         string
	Possible     models.Allergens
}

// Short is the value group for cook sheet columns D:F.
func (u ScheduleUpdate) Short() []string {
	return []string{strconv.Itoa(u.DeadlineDays), strconv.Itoa(u.DeadlineHour), u.ExpenseHouse}
}

// Long is the value group for cook sheet columns W:AF.
func (u ScheduleUpdate) Long() []string {
	values := []string{u.Chefs, u.Menu}
	for _, f := range u.Possible.Flags() {
		values = append(values, models.BoolCell(f))
	}
	return values
}

type Service struct {
	gateway  Gateway
	mapper   *mapper.Mapper
	cache    *cache.Cache[sheets.Grids]
	changes  ChangeStore
	notifier notifier.Notifier

	// hint is the first upcoming cook sheet row seen so far, 0 when unknown.
	hint atomic.Int64
}

func NewService(gateway Gateway, m *mapper.Mapper, c *cache.Cache[sheets.Grids], changes ChangeStore, n notifier.Notifier) *Service {
	return &Service{
		gateway:  gateway,
		mapper:   m,
		cache:    c,
		changes:  changes,
		notifier: n,
	}
}

// Fetch returns the upcoming dinners and open dates as seen by house.
func (s *Service) Fetch(ctx context.Context, house string) (models.DinnerInformation, error) {
	if err := sheets.ValidateHouse(house); err != nil {
		return models.DinnerInformation{}, err
	}

	hint := int(s.hint.Load())
	grids, err := s.cache.Get(house, func() (sheets.Grids, error) {
		// Shared by coalesced callers, so one caller leaving must not cancel it.
		return s.gateway.Read(context.WithoutCancel(ctx), house, hint)
	})
	if err != nil {
		return models.DinnerInformation{}, err
	}

	now := timeNow().In(s.mapper.Location())
	schedule := s.mapper.ScheduleRows(grids.Cook, grids.StartRow, now)
	s.updateHint(grids.StartRow, schedule.FirstUpcoming)

	houseRows := mapper.HouseRows(grids.House, grids.StartRow, schedule.Rows)
	return Assemble(schedule.Rows, houseRows, schedule.Open, now), nil
}

// updateHint moves the read window forward. A window without any upcoming
// row means the hint is stale, so the next read scans the whole sheet.
func (s *Service) updateHint(start, firstUpcoming int) {
	current := s.hint.Load()
	switch {
	case firstUpcoming > 0 && int64(firstUpcoming) > current:
		s.hint.CompareAndSwap(current, int64(firstUpcoming))
	case firstUpcoming == 0 && current > 0 && int64(start) == current:
		s.hint.CompareAndSwap(current, 0)
	}
}

// Event returns one dinner as seen by house.
func (s *Service) Event(ctx context.Context, house string, row int) (models.DinnerEvent, error) {
	info, err := s.Fetch(ctx, house)
	if err != nil {
		return models.DinnerEvent{}, err
	}
	e, ok := FindEvent(info, row)
	if !ok {
		return models.DinnerEvent{}, fmt.Errorf("%w: row %d", ErrNotFound, row)
	}
	return e, nil
}

// SetParticipation overwrites house's signup for the dinner at row. The
// dinner must exist and still be open for signups.
func (s *Service) SetParticipation(ctx context.Context, house string, row int, u ParticipationUpdate) error {
	e, err := s.Event(ctx, house, row)
	if err != nil {
		return err
	}
	if !e.Editable {
		return fmt.Errorf("%w: row %d", ErrClosed, row)
	}

	values := u.HouseRow(row).Values()
	rng, err := s.gateway.UpdateParticipation(ctx, house, row, values)
	if err != nil {
		return err
	}
	s.cache.Invalidate()
	s.record(ctx, models.ChangeParticipation, house, row, rng, values)
	return nil
}

// SetSchedule writes the cook's details for the dinner at row.
func (s *Service) SetSchedule(ctx context.Context, row int, u ScheduleUpdate) error {
	short, long := u.Short(), u.Long()
	ranges, err := s.gateway.UpdateSchedule(ctx, row, short, long)
	if err != nil {
		return err
	}
	s.cache.Invalidate()
	s.record(ctx, models.ChangeSchedule, u.ExpenseHouse, row, ranges[0]+","+ranges[1], append(short, long...))

	if s.notifier != nil && u.Menu != "" {
		err := s.notifier.NotifyDinnerPublished(notifier.Dinner{
			Row:          row,
			Menu:         u.Menu,
			Chefs:        u.Chefs,
			ExpenseHouse: u.ExpenseHouse,
			CanAvoid:     u.Possible,
		})
		if err != nil {
			slog.Warn("failed to announce dinner", "row", row, "error", err)
		}
	}
	return nil
}

// SetExpense records what the cook spent on the dinner at row.
func (s *Service) SetExpense(ctx context.Context, row int, amount decimal.Decimal) error {
	rng, err := s.gateway.UpdateExpense(ctx, row, amount)
	if err != nil {
		return err
	}
	s.cache.Invalidate()
	s.record(ctx, models.ChangeExpense, "", row, rng, []string{amount.StringFixed(2)})
	return nil
}

// History lists recent writes, newest first.
func (s *Service) History(ctx context.Context, house string, limit int) ([]models.ChangeLog, error) {
	if s.changes == nil {
		return nil, nil
	}
	return s.changes.List(ctx, house, limit)
}

// record logs a write that already reached the spreadsheet. Failing to
// store it does not undo the write.
func (s *Service) record(ctx context.Context, kind, house string, row int, rng string, values []string) {
	if s.changes == nil {
		return
	}
	payload, err := json.Marshal(values)
	if err != nil {
		slog.Warn("failed to encode change", "kind", kind, "error", err)
		return
	}
	entry := &models.ChangeLog{
		ChangeID: uuid.NewString(),
		Kind:     kind,
		House:    house,
		Row:      row,
		Range:    rng,
		Values:   string(payload),
	}
	if err := s.changes.Record(ctx, entry); err != nil {
		slog.Warn("failed to record change", "kind", kind, "row", row, "error", err)
	}
}
