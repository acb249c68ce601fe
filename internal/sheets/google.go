package sheets

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	sheetsapi "google.golang.org/api/sheets/v4"
	"google.golang.org/api/option"
)

const valueInputOption = "USER_ENTERED"

// GoogleValues implements ValuesAPI on the Google Sheets v4 client.
type GoogleValues struct {
	svc           *sheetsapi.Service
	spreadsheetID string
}

// NewGoogleValues authenticates with a service account key. The key is
// loaded once by the caller and only the derived token source is kept.
func NewGoogleValues(ctx context.Context, spreadsheetID string, credentialsJSON []byte) (*GoogleValues, error) {
	conf, err := google.JWTConfigFromJSON(credentialsJSON, sheetsapi.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	return NewGoogleValuesWithOptions(ctx, spreadsheetID, option.WithTokenSource(conf.TokenSource(ctx)))
}

func NewGoogleValuesWithOptions(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*GoogleValues, error) {
	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &GoogleValues{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (g *GoogleValues) BatchGet(ctx context.Context, ranges []string) ([][][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.BatchGet(g.spreadsheetID).Ranges(ranges...).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	grids := make([][][]string, len(ranges))
	for i, vr := range resp.ValueRanges {
		if i >= len(grids) || vr == nil {
			break
		}
		grids[i] = toStrings(vr.Values)
	}
	return grids, nil
}

func (g *GoogleValues) Update(ctx context.Context, data RangeValues) error {
	vr := &sheetsapi.ValueRange{Values: [][]any{data.Values}}
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, data.Range, vr).
		ValueInputOption(valueInputOption).
		Context(ctx).
		Do()
	return err
}

func (g *GoogleValues) BatchUpdate(ctx context.Context, data []RangeValues) error {
	req := &sheetsapi.BatchUpdateValuesRequest{ValueInputOption: valueInputOption}
	for _, d := range data {
		req.Data = append(req.Data, &sheetsapi.ValueRange{Range: d.Range, Values: [][]any{d.Values}})
	}
	_, err := g.svc.Spreadsheets.Values.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do()
	return err
}

func toStrings(values [][]any) [][]string {
	grid := make([][]string, len(values))
	for i, row := range values {
		grid[i] = make([]string, len(row))
		for j, cell := range row {
			if s, ok := cell.(string); ok {
				grid[i][j] = s
			} else if cell != nil {
				grid[i][j] = fmt.Sprint(cell)
			}
		}
	}
	return grid
}
