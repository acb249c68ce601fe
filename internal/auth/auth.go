// Package auth keeps the chosen house in a signed cookie.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/staldhusene/faellesspisning/internal/config"
	"github.com/staldhusene/faellesspisning/internal/models"
	"github.com/staldhusene/faellesspisning/internal/sheets"
)

const (
	CookieName    = "house"
	TokenDuration = 90 * 24 * time.Hour
)

var ErrNoHouse = errors.New("no house selected")

// HouseLookup resolves a house name to its directory entry.
type HouseLookup interface {
	Get(ctx context.Context, name string) (models.House, error)
}

type AuthHandler struct {
	cfg    *config.Config
	houses HouseLookup
}

func NewAuthHandler(cfg *config.Config, houses HouseLookup) *AuthHandler {
	return &AuthHandler{cfg: cfg, houses: houses}
}

func (h *AuthHandler) GenerateToken(house string) (string, error) {
	claims := jwt.MapClaims{
		"house": house,
		"exp":   time.Now().Add(TokenDuration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.cfg.CookieSecret))
}

// ParseToken verifies a cookie value and returns the house and expiry in it.
func (h *AuthHandler) ParseToken(tokenString string) (string, time.Time, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(h.cfg.CookieSecret), nil
	})
	if err != nil || !token.Valid {
		return "", time.Time{}, fmt.Errorf("invalid house token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", time.Time{}, errors.New("invalid house token claims")
	}
	house, ok := claims["house"].(string)
	if !ok || sheets.ValidateHouse(house) != nil {
		return "", time.Time{}, errors.New("invalid house token claims")
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return "", time.Time{}, errors.New("house token without expiry")
	}
	return house, exp.Time, nil
}

// Cookie builds the house cookie for a freshly signed token.
func (h *AuthHandler) Cookie(house string) (*http.Cookie, error) {
	token, err := h.GenerateToken(house)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Expires:  time.Now().Add(TokenDuration),
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	}, nil
}

// ClearCookie expires the house cookie.
func (h *AuthHandler) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	}
}

// SelectHouse checks that the house exists and returns its cookie.
func (h *AuthHandler) SelectHouse(ctx context.Context, name string) (models.House, *http.Cookie, error) {
	house, err := h.houses.Get(ctx, name)
	if err != nil {
		return models.House{}, nil, err
	}
	cookie, err := h.Cookie(house.Name)
	if err != nil {
		return models.House{}, nil, err
	}
	return house, cookie, nil
}

type AuthInput struct {
	House string `cookie:"house"`
}

type HouseOutput struct {
	Body models.House
}

// HandleMe returns the house stored in the cookie.
func (h *AuthHandler) HandleMe(ctx context.Context, input *AuthInput) (*HouseOutput, error) {
	if input.House == "" {
		return nil, huma.Error401Unauthorized("No house selected")
	}
	name, _, err := h.ParseToken(input.House)
	if err != nil {
		return nil, huma.Error401Unauthorized("Invalid house cookie")
	}
	house, err := h.houses.Get(ctx, name)
	if err != nil {
		return nil, huma.Error404NotFound("Unknown house")
	}
	return &HouseOutput{Body: house}, nil
}

type SelectHouseInput struct {
	Body struct {
		House string `json:"house" pattern:"^P[0-9]+$" doc:"House name, e.g. P47"`
	}
}

type SelectHouseOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      models.House
}

func (h *AuthHandler) HandleSelect(ctx context.Context, input *SelectHouseInput) (*SelectHouseOutput, error) {
	house, cookie, err := h.SelectHouse(ctx, input.Body.House)
	if err != nil {
		return nil, huma.Error404NotFound("Unknown house")
	}
	return &SelectHouseOutput{SetCookie: *cookie, Body: house}, nil
}
