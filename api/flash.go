package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	flashCookieName = "taskflow_flash"
	flashTTL        = 5 * time.Minute
)

type flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

type flashClaims struct {
	Flashes []flash `json:"flashes"`
	jwt.RegisteredClaims
}

func (app *application) signFlashes(flashes []flash) (string, error) {
	claims := flashClaims{
		Flashes: flashes,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(flashTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(app.config.secretKey))
}

func (app *application) parseFlashes(tokenStr string) ([]flash, error) {
	var claims flashClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(app.config.secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid flash token")
	}
	return claims.Flashes, nil
}

// addFlash queues a notice for the next rendered page, keeping any notice
// that has not been shown yet.
func (app *application) addFlash(w http.ResponseWriter, r *http.Request, category, message string) {
	var flashes []flash
	if c, err := r.Cookie(flashCookieName); err == nil {
		flashes, _ = app.parseFlashes(c.Value)
	}
	flashes = append(flashes, flash{Category: category, Message: message})
	value, err := app.signFlashes(flashes)
	if err != nil {
		app.logger.Error("sign flash", "error", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(flashTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlashes returns the queued notices and clears the cookie.
func (app *application) popFlashes(w http.ResponseWriter, r *http.Request) []flash {
	c, err := r.Cookie(flashCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	flashes, err := app.parseFlashes(c.Value)
	if err != nil {
		app.logger.Warn("discarding flash cookie", "error", err)
		return nil
	}
	return flashes
}

func (app *application) redirectWithFlash(w http.ResponseWriter, r *http.Request, url, category, message string) {
	app.addFlash(w, r, category, message)
	http.Redirect(w, r, url, http.StatusSeeOther)
}
