package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type contextKey string

const HouseKey contextKey = "house"

// HouseFromContext returns the house put there by HouseMiddleware.
func HouseFromContext(ctx context.Context) (string, bool) {
	house, ok := ctx.Value(HouseKey).(string)
	return house, ok && house != ""
}

// HouseMiddleware reads the house cookie. A missing or invalid cookie is not
// an error: the request continues without a house and pages fall back to
// house selection.
func (h *AuthHandler) HouseMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		house, exp, err := h.ParseToken(cookie.Value)
		if err != nil {
			slog.Debug("ignoring house cookie", "error", err)
			http.SetCookie(w, h.ClearCookie())
			next.ServeHTTP(w, r)
			return
		}

		// Sliding session: refresh the cookie once half its lifetime is used.
		if time.Until(exp) < TokenDuration/2 {
			if fresh, err := h.Cookie(house); err == nil {
				http.SetCookie(w, fresh)
			}
		}

		ctx := context.WithValue(r.Context(), HouseKey, house)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
