package handler

import (
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

func (h *Handler) handleAdminAccountsPage(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.store.ListAccounts()
	if err != nil {
		h.internalError(w, r, "failed to list accounts", err)
		return
	}
	h.render(w, r, http.StatusOK, views.AdminAccountsPage(h.popFlash(w, r), accounts))
}

func (h *Handler) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	back := h.path("/admin/accounts")

	switch {
	case username == "":
		h.setFlash(w, "error", appI18n.T(r.Context(), "UsernameRequired"))
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	case len(password) < minPasswordLen:
		h.setFlash(w, "error", appI18n.T(r.Context(), "PasswordTooShort"))
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.internalError(w, r, "failed to hash password", err)
		return
	}

	_, err = h.store.CreateAccount(model.Account{
		Username:     username,
		PasswordHash: string(hash),
		IsAdmin:      r.FormValue("is_admin") != "",
		Active:       true,
	})
	switch {
	case err == nil:
		h.setFlash(w, "success", appI18n.T(r.Context(), "AccountCreated"))
	case errors.Is(err, store.ErrUsernameTaken):
		h.setFlash(w, "error", appI18n.T(r.Context(), "UsernameTaken"))
	default:
		h.internalError(w, r, "failed to create account", err)
		return
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (h *Handler) handleToggleAccountActive(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "accountID")
	if !ok {
		http.Error(w, "invalid account ID", http.StatusBadRequest)
		return
	}
	if self := model.AccountFromContext(r.Context()); self != nil && self.ID == id {
		h.setFlash(w, "error", appI18n.T(r.Context(), "Forbidden"))
		http.Redirect(w, r, h.path("/admin/accounts"), http.StatusSeeOther)
		return
	}

	err := h.store.ToggleAccountActive(id)
	if errors.Is(err, store.ErrNotFound) {
		h.renderError(w, r, http.StatusNotFound, "NotFound")
		return
	}
	if err != nil {
		h.internalError(w, r, "failed to toggle account", err)
		return
	}
	slog.Info("account toggled", "id", id)
	h.setFlash(w, "success", appI18n.T(r.Context(), "AccountUpdated"))
	http.Redirect(w, r, h.path("/admin/accounts"), http.StatusSeeOther)
}

// redirectWithResult flashes the outcome of a school admin action and goes
// back to the dashboard. Errors wrapping one of userErrs are shown as is.
func (h *Handler) redirectWithResult(w http.ResponseWriter, r *http.Request, err error, successID string, userErrs ...error) {
	if err == nil {
		h.setFlash(w, "success", appI18n.T(r.Context(), successID))
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}
	for _, target := range userErrs {
		if errors.Is(err, target) {
			h.setFlash(w, "error", err.Error())
			http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
			return
		}
	}
	h.internalError(w, r, "school admin action failed", err)
}

func (h *Handler) handleCreateSchool(w http.ResponseWriter, r *http.Request) {
	_, err := h.store.CreateSchool(r.FormValue("name"), r.FormValue("address"), r.FormValue("contact_email"))
	h.redirectWithResult(w, r, err, "SchoolCreated", store.ErrInvalidSchool)
}

func (h *Handler) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	schoolID, ok := urlID(r, "schoolID")
	if !ok {
		h.renderError(w, r, http.StatusNotFound, "NotFound")
		return
	}
	_, err := h.store.CreateGroup(schoolID, r.FormValue("name"), formInt(r, "grade_level"))
	h.redirectWithResult(w, r, err, "GroupCreated", store.ErrInvalidSchool, store.ErrNotFound)
}

func (h *Handler) handleLinkParent(w http.ResponseWriter, r *http.Request) {
	var parentID, studentID int64
	if id := formID(r, "parent_id"); id != nil {
		parentID = *id
	}
	if id := formID(r, "student_id"); id != nil {
		studentID = *id
	}
	err := h.store.LinkParentToStudent(parentID, studentID)
	h.redirectWithResult(w, r, err, "ParentLinked", store.ErrInvalidLink)
}
