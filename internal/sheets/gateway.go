// Package sheets is the only reader and writer of the dinner spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/staldhusene/faellesspisning/internal/metrics"
	"github.com/staldhusene/faellesspisning/internal/models"
)

const (
	// FirstDataRow skips the two header rows of every sheet.
	FirstDataRow = 3

	DefaultCookSheet  = "KOK"
	DefaultWindowRows = 30
	DefaultTimeout    = 10 * time.Second

	ScheduleShortFields = 3
	ScheduleLongFields  = 2 + models.AllergenCount
)

var (
	// ErrRemote wraps every failure reported by the spreadsheet service,
	// including timeouts.
	ErrRemote         = errors.New("spreadsheet service failure")
	ErrInvalidHouse   = errors.New("invalid house")
	ErrInvalidRow     = errors.New("invalid row")
	ErrInvalidPayload = errors.New("invalid payload")
)

var houseName = regexp.MustCompile(`^P[0-9]{1,3}$`)

// ValidateHouse checks that house names a house sheet tab, e.g. "P47".
func ValidateHouse(house string) error {
	if !houseName.MatchString(house) {
		return fmt.Errorf("%w: %q", ErrInvalidHouse, house)
	}
	return nil
}

// ValidateRow checks that row is below the header rows.
func ValidateRow(row int) error {
	if row < FirstDataRow {
		return fmt.Errorf("%w: %d", ErrInvalidRow, row)
	}
	return nil
}

// RangeValues is one row of values destined for an A1 range.
type RangeValues struct {
	Range  string
	Values []any
}

// ValuesAPI is the subset of the spreadsheet values API the gateway needs.
type ValuesAPI interface {
	// BatchGet returns one grid per requested range, in request order.
	BatchGet(ctx context.Context, ranges []string) ([][][]string, error)
	Update(ctx context.Context, data RangeValues) error
	BatchUpdate(ctx context.Context, data []RangeValues) error
}

// Grids is the raw content of one read window.
type Grids struct {
	StartRow int
	House    [][]string
	Cook     [][]string
}

type Options struct {
	CookSheet  string
	WindowRows int
	Timeout    time.Duration
}

type Gateway struct {
	api       ValuesAPI
	cookSheet string
	window    int
	timeout   time.Duration
}

func NewGateway(api ValuesAPI, opts Options) *Gateway {
	g := &Gateway{
		api:       api,
		cookSheet: opts.CookSheet,
		window:    opts.WindowRows,
		timeout:   opts.Timeout,
	}
	if g.cookSheet == "" {
		g.cookSheet = DefaultCookSheet
	}
	if g.window <= 0 {
		g.window = DefaultWindowRows
	}
	if g.timeout <= 0 {
		g.timeout = DefaultTimeout
	}
	return g
}

// Window returns the first row and the (possibly open) last row to fetch.
// Without a hint the whole sheet below the headers is read.
func Window(hint, size int) (int, string) {
	if hint > 0 {
		return hint, strconv.Itoa(hint + size)
	}
	return FirstDataRow, ""
}

// Read fetches the house columns D:O and the cook sheet columns A:AI for the
// same row window in one batched call.
func (g *Gateway) Read(ctx context.Context, house string, hint int) (Grids, error) {
	if err := ValidateHouse(house); err != nil {
		return Grids{}, err
	}
	start, end := Window(hint, g.window)
	ranges := []string{
		fmt.Sprintf("%s!D%d:O%s", house, start, end),
		fmt.Sprintf("%s!A%d:AI%s", g.cookSheet, start, end),
	}
	slog.Debug("reading sheet ranges", "house", ranges[0], "cook", ranges[1])

	var grids [][][]string
	err := g.call(ctx, "batch_get", func(ctx context.Context) error {
		var err error
		grids, err = g.api.BatchGet(ctx, ranges)
		return err
	})
	if err != nil {
		return Grids{}, err
	}

	res := Grids{StartRow: start}
	if len(grids) > 0 {
		res.House = grids[0]
	}
	if len(grids) > 1 {
		res.Cook = grids[1]
	}
	return res, nil
}

// UpdateParticipation overwrites D:O of one house row with the 12 values in
// sheet column order and returns the written range.
func (g *Gateway) UpdateParticipation(ctx context.Context, house string, row int, values []string) (string, error) {
	if err := ValidateHouse(house); err != nil {
		return "", err
	}
	if err := ValidateRow(row); err != nil {
		return "", err
	}
	if len(values) != models.HouseColumns {
		return "", fmt.Errorf("%w: participation needs %d values, got %d", ErrInvalidPayload, models.HouseColumns, len(values))
	}
	data := RangeValues{Range: fmt.Sprintf("%s!D%d:O%d", house, row, row), Values: cells(values)}
	slog.Info("updating participation", "range", data.Range)
	return data.Range, g.call(ctx, "update", func(ctx context.Context) error {
		return g.api.Update(ctx, data)
	})
}

// UpdateSchedule writes D:F (deadline days, deadline hour, expense house) and
// W:AF (chefs, menu, allergen flags) of one cook sheet row in one batch.
func (g *Gateway) UpdateSchedule(ctx context.Context, row int, short, long []string) ([]string, error) {
	if err := ValidateRow(row); err != nil {
		return nil, err
	}
	if len(short) != ScheduleShortFields || len(long) != ScheduleLongFields {
		return nil, fmt.Errorf("%w: schedule needs %d+%d values, got %d+%d", ErrInvalidPayload, ScheduleShortFields, ScheduleLongFields, len(short), len(long))
	}
	data := []RangeValues{
		{Range: fmt.Sprintf("%s!D%d:F%d", g.cookSheet, row, row), Values: cells(short)},
		{Range: fmt.Sprintf("%s!W%d:AF%d", g.cookSheet, row, row), Values: cells(long)},
	}
	slog.Info("updating dinner event", "ranges", []string{data[0].Range, data[1].Range})
	err := g.call(ctx, "batch_update", func(ctx context.Context) error {
		return g.api.BatchUpdate(ctx, data)
	})
	return []string{data[0].Range, data[1].Range}, err
}

// UpdateExpense writes the expense amount, rounded to two decimals, to G.
func (g *Gateway) UpdateExpense(ctx context.Context, row int, amount decimal.Decimal) (string, error) {
	if err := ValidateRow(row); err != nil {
		return "", err
	}
	if amount.IsNegative() {
		return "", fmt.Errorf("%w: negative expense %s", ErrInvalidPayload, amount)
	}
	data := RangeValues{
		Range:  fmt.Sprintf("%s!G%d:G%d", g.cookSheet, row, row),
		Values: []any{amount.Round(2).InexactFloat64()},
	}
	slog.Info("updating expense", "range", data.Range, "amount", amount.StringFixed(2))
	return data.Range, g.call(ctx, "update", func(ctx context.Context) error {
		return g.api.Update(ctx, data)
	})
}

// call runs fn under the gateway timeout and marks any failure as ErrRemote.
func (g *Gateway) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	metrics.ObserveSheetsCall(op, start, err)
	if err != nil {
		slog.Error("sheets call failed", "op", op, "error", err)
		return fmt.Errorf("sheets %s: %w: %w", op, ErrRemote, err)
	}
	return nil
}

func cells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
