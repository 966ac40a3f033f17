package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/vidya/internal/exam"
	"github.com/pavelanni/vidya/internal/handler/views"
	appI18n "github.com/pavelanni/vidya/internal/i18n"
	"github.com/pavelanni/vidya/internal/model"
	"github.com/pavelanni/vidya/internal/store"
	"github.com/pavelanni/vidya/internal/tutor"
)

// ExamGenerator produces exam papers.
type ExamGenerator interface {
	Generate(ctx context.Context, req exam.GenerationRequest) exam.Result
}

// Tutor answers student questions.
type Tutor interface {
	Ask(ctx context.Context, p tutor.Params) (string, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store   *store.Store
	exams   ExamGenerator
	tutor   Tutor
	catalog *appI18n.Catalog
	config  model.AppConfig
}

// New creates a new Handler.
func New(s *store.Store, exams ExamGenerator, t Tutor, catalog *appI18n.Catalog, cfg model.AppConfig) (*Handler, error) {
	switch {
	case s == nil:
		return nil, errors.New("store is required")
	case exams == nil:
		return nil, errors.New("exam generator is required")
	case t == nil:
		return nil, errors.New("tutor is required")
	case catalog == nil:
		return nil, errors.New("i18n catalog is required")
	}
	return &Handler{store: s, exams: exams, tutor: t, catalog: catalog, config: cfg}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	// The group listing is fetched from the onboarding page; it must not
	// rotate the CSRF cookie under the open form.
	r.With(h.requireAuth).Get("/api/schools/{schoolID}/groups", h.handleListGroups)

	r.Group(func(r chi.Router) {
		r.Use(h.csrfMiddleware)

		r.Get("/login", h.handleLoginPage)
		r.Post("/login", h.handleLogin)
		r.Get("/register", h.handleRegisterPage)
		r.Post("/register", h.handleRegister)
		r.Post("/lang", h.handleSetLanguage)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Post("/logout", h.handleLogout)
			r.Get("/onboarding", h.handleOnboardingPage)
			r.Post("/onboarding", h.handleCreateProfile)

			r.Route("/admin/accounts", func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/", h.handleAdminAccountsPage)
				r.Post("/", h.handleCreateAccount)
				r.Post("/{accountID}/toggle", h.handleToggleAccountActive)
			})

			r.Group(func(r chi.Router) {
				r.Use(h.requireProfile)
				r.Get("/", h.handleDashboard)
				r.Post("/profile", h.handleUpdateProfile)

				r.Group(func(r chi.Router) {
					r.Use(h.requireRole(model.RoleStudent))
					r.Get("/tutor", h.handleTutorPage)
					r.Post("/tutor", h.handleAsk)
					r.Post("/tutor/session", h.handleSaveSession)
				})

				r.Group(func(r chi.Router) {
					r.Use(h.requireRole(model.RoleTeacher, model.RoleSchoolAdmin))
					r.Get("/exam", h.handleExamPage)
					r.Post("/exam", h.handleGenerateExam)
				})

				r.Group(func(r chi.Router) {
					r.Use(h.requireRole(model.RoleSchoolAdmin))
					r.Post("/admin/schools", h.handleCreateSchool)
					r.Post("/admin/schools/{schoolID}/groups", h.handleCreateGroup)
					r.Post("/admin/links", h.handleLinkParent)
				})
			})
		})
	})
}

// BasePathMiddleware exposes the configured URL prefix to templates.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func (h *Handler) cookiePath() string {
	if h.config.BasePath != "" {
		return h.config.BasePath + "/"
	}
	return "/"
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	h.render(w, r, status, views.ErrorPage(status, appI18n.T(r.Context(), msgID)))
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	slog.Error(msg, "error", err)
	h.renderError(w, r, http.StatusInternalServerError, "InternalError")
}

// formInt parses an integer form field; empty or malformed values give 0.
func formInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(r.FormValue(key)))
	return n
}

// formID parses an optional ID field.
func formID(r *http.Request, key string) *int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(r.FormValue(key)), 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

func urlID(r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	return id, err == nil && id > 0
}
