package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/vidya/internal/handler/views"
	appI18n "github.com/pavelanni/vidya/internal/i18n"
	"github.com/pavelanni/vidya/internal/model"
	"github.com/pavelanni/vidya/internal/store"
)

const (
	sessionCookieName = "session"
	csrfCookieName    = "csrf_token"

	minPasswordLen = 8
	// Forms carry at most one small text attachment.
	maxFormBytes = 2 << 20
	langMaxAge   = 365 * 24 * 60 * 60
)

func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func (h *Handler) setCSRFCookie(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	token, err := generateCSRFToken()
	if err != nil {
		slog.Error("failed to generate CSRF token", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return r, false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     h.cookiePath(),
		HttpOnly: false,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return r.WithContext(model.ContextWithCSRFToken(r.Context(), token)), true
}

// csrfMiddleware implements the double-submit cookie pattern. The token is
// rotated on every request.
func (h *Handler) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			r, ok := h.setCSRFCookie(w, r)
			if ok {
				next.ServeHTTP(w, r)
			}
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

		cookie, err := r.Cookie(csrfCookieName)
		if err != nil || cookie.Value == "" {
			slog.Warn("CSRF cookie missing")
			http.Error(w, "csrf token missing", http.StatusForbidden)
			return
		}

		formToken := r.FormValue("csrf_token")
		if formToken == "" {
			slog.Warn("CSRF form token missing")
			http.Error(w, "csrf token missing", http.StatusForbidden)
			return
		}

		if len(formToken) != len(cookie.Value) || subtle.ConstantTimeCompare([]byte(formToken), []byte(cookie.Value)) != 1 {
			slog.Warn("CSRF token mismatch")
			http.Error(w, "invalid csrf token", http.StatusForbidden)
			return
		}

		r, ok := h.setCSRFCookie(w, r)
		if ok {
			next.ServeHTTP(w, r)
		}
	})
}

// requireAuth is middleware that checks for a valid session cookie.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			h.redirectToLogin(w, r)
			return
		}

		authSess, err := h.store.GetAuthSession(cookie.Value)
		if err != nil {
			slog.Error("failed to get auth session", "error", err)
			h.redirectToLogin(w, r)
			return
		}
		if authSess == nil {
			h.redirectToLogin(w, r)
			return
		}

		account, err := h.store.GetAccountByID(authSess.AccountID)
		if err != nil || account == nil || !account.Active {
			h.redirectToLogin(w, r)
			return
		}

		ctx := model.ContextWithAccount(r.Context(), account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireProfile loads the profile of the signed-in principal and sends
// principals without one to onboarding.
func (h *Handler) requireProfile(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account := model.AccountFromContext(r.Context())
		if account == nil {
			h.redirectToLogin(w, r)
			return
		}
		profile, err := h.store.GetProfileByPrincipal(account.Principal)
		if errors.Is(err, store.ErrNotFound) {
			http.Redirect(w, r, h.path("/onboarding"), http.StatusSeeOther)
			return
		}
		if err != nil {
			h.internalError(w, r, "failed to load profile", err)
			return
		}
		ctx := model.ContextWithProfile(r.Context(), &profile)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole returns middleware that checks the profile has one of the allowed roles.
func (h *Handler) requireRole(allowed ...model.ProfileRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile := model.ProfileFromContext(r.Context())
			if profile == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			for _, role := range allowed {
				if profile.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			h.renderError(w, r, http.StatusForbidden, "Forbidden")
		})
	}
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account := model.AccountFromContext(r.Context())
		if account == nil || !account.IsAdmin {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.path("/login"), http.StatusSeeOther)
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, views.LoginPage(""))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	account, err := h.store.GetAccountByUsername(username)
	if err != nil {
		slog.Error("failed to get account", "error", err)
		h.renderLoginError(w, r)
		return
	}
	if account == nil || !account.Active {
		h.renderLoginError(w, r)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		h.renderLoginError(w, r)
		return
	}

	if h.startSession(w, r, account.ID) {
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
	}
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, accountID int64) bool {
	token, err := h.store.CreateAuthSession(accountID)
	if err != nil {
		h.internalError(w, r, "failed to create auth session", err)
		return false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     h.cookiePath(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
	return true
}

func (h *Handler) renderLoginError(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusUnauthorized, views.LoginPage(appI18n.T(r.Context(), "InvalidCredentials")))
}

func (h *Handler) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, views.RegisterPage(views.AuthData{}))
}

// handleRegister creates a regular account and signs it in. The new
// principal has no profile yet, so it lands on onboarding.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	fail := func(msgID string) {
		d := views.AuthData{Username: username, Error: appI18n.T(r.Context(), msgID)}
		h.render(w, r, http.StatusUnprocessableEntity, views.RegisterPage(d))
	}
	switch {
	case username == "":
		fail("UsernameRequired")
		return
	case len(password) < minPasswordLen:
		fail("PasswordTooShort")
		return
	case password != r.FormValue("confirm"):
		fail("PasswordsDoNotMatch")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.internalError(w, r, "failed to hash password", err)
		return
	}
	id, err := h.store.CreateAccount(model.Account{
		Username:     username,
		PasswordHash: string(hash),
		Active:       true,
	})
	if errors.Is(err, store.ErrUsernameTaken) {
		fail("UsernameTaken")
		return
	}
	if err != nil {
		h.internalError(w, r, "failed to create account", err)
		return
	}

	if h.startSession(w, r, id) {
		http.Redirect(w, r, h.path("/onboarding"), http.StatusSeeOther)
	}
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		_ = h.store.DeleteAuthSession(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     h.cookiePath(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	http.Redirect(w, r, h.path("/login"), http.StatusSeeOther)
}

// handleSetLanguage stores the UI language in a cookie read by the i18n
// middleware.
func (h *Handler) handleSetLanguage(w http.ResponseWriter, r *http.Request) {
	lang := strings.TrimSpace(r.FormValue("lang"))
	if h.catalog.Supported(lang) {
		http.SetCookie(w, &http.Cookie{
			Name:     appI18n.CookieName,
			Value:    lang,
			Path:     h.cookiePath(),
			MaxAge:   langMaxAge,
			HttpOnly: true,
			Secure:   h.config.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
	http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
}
