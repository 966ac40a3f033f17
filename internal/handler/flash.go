package handler

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/pavelanni/vidya/internal/handler/views"
)

const flashCookieName = "flash"

// setFlash stores a one-shot notice for the page the client is redirected to.
func (h *Handler) setFlash(w http.ResponseWriter, kind, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(kind + "\n" + message)),
		Path:     h.cookiePath(),
		MaxAge:   60,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads and clears the pending notice.
func (h *Handler) popFlash(w http.ResponseWriter, r *http.Request) views.Flash {
	c, err := r.Cookie(flashCookieName)
	if err != nil || c.Value == "" {
		return views.Flash{}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     h.cookiePath(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return views.Flash{}
	}
	kind, msg, ok := strings.Cut(string(raw), "\n")
	if !ok || (kind != "success" && kind != "error") {
		return views.Flash{}
	}
	return views.Flash{Kind: kind, Message: msg}
}
