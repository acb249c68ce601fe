package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/staldhusene/faellesspisning/internal/database"
	"github.com/staldhusene/faellesspisning/internal/dinner"
	"github.com/staldhusene/faellesspisning/internal/sheets"
)

// classify maps a service error to a status and a message that is safe to
// show. Remote and unexpected failures are logged and reported generically.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, dinner.ErrNotFound):
		return http.StatusNotFound, "Fællesspisningen findes ikke"
	case errors.Is(err, database.ErrHouseNotFound):
		return http.StatusNotFound, "Ukendt hus"
	case errors.Is(err, dinner.ErrClosed):
		return http.StatusConflict, "Tilmeldingen er lukket"
	case errors.Is(err, sheets.ErrInvalidHouse),
		errors.Is(err, sheets.ErrInvalidRow),
		errors.Is(err, sheets.ErrInvalidPayload):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, sheets.ErrRemote):
		slog.Error("spreadsheet unavailable", "error", err)
		return http.StatusBadGateway, "spreadsheet unavailable"
	default:
		slog.Error("internal_error", "error", err)
		return http.StatusInternalServerError, "internal server error"
	}
}

func apiError(err error) error {
	status, msg := classify(err)
	return huma.NewError(status, msg)
}
