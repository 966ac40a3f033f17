package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pavelanni/vidya/internal/handler/views"
	"github.com/pavelanni/vidya/internal/model"
	"github.com/pavelanni/vidya/internal/store"
)

// errProfilePermission is rendered on the onboarding form, hence the sentence case.
//
//lint:ignore ST1005 user-facing message
var errProfilePermission = errors.New("You do not have permission to create this type of profile")

const profileCreateFallback = "Failed to create profile. Please try again."

// Words that mark an error message as an implementation detail.
var technicalTerms = []string{"sql", "sqlite", "database", "constraint", "principal", "driver", "panic"}

// mapProfileCreationError turns a profile creation error into text fit for
// the onboarding form.
func mapProfileCreationError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "Email already registered"):
		return "Email already registered"
	case strings.Contains(msg, "Profile already exists"):
		return "A profile already exists for your account. Please refresh the page."
	case strings.Contains(msg, "Only authenticated users can create user profiles"):
		return "You must be logged in to create a profile. Please log in and try again."
	case strings.Contains(msg, "You do not have permission to create this type of profile"):
		return "You do not have permission to create this type of profile. Please contact an administrator."
	case strings.Contains(msg, "Unauthorized") && strings.Contains(msg, "Can only create your own profile"):
		return "You can only create a profile for yourself."
	case strings.Contains(msg, "Invalid"):
		return "Invalid profile information. Please check your inputs and try again."
	}

	lower := strings.ToLower(msg)
	for _, term := range technicalTerms {
		if strings.Contains(lower, term) {
			return profileCreateFallback
		}
	}
	if len(msg) < 200 {
		return msg
	}
	return profileCreateFallback
}

// onboardingRoles lists the roles an account may pick for itself.
func onboardingRoles(a *model.Account) []model.ProfileRole {
	if a != nil && a.IsAdmin {
		return model.ProfileRoles
	}
	var roles []model.ProfileRole
	for _, r := range model.ProfileRoles {
		if r != model.RoleSchoolAdmin {
			roles = append(roles, r)
		}
	}
	return roles
}

func (h *Handler) onboardingData(r *http.Request, form views.OnboardingForm) (views.OnboardingData, error) {
	schools, err := h.store.ListSchools()
	if err != nil {
		return views.OnboardingData{}, err
	}
	d := views.OnboardingData{
		Form:    form,
		Roles:   onboardingRoles(model.AccountFromContext(r.Context())),
		Schools: schools,
	}
	if form.SchoolID > 0 {
		if d.Groups, err = h.store.ListGroupsBySchool(form.SchoolID); err != nil {
			return d, err
		}
	}
	return d, nil
}

func (h *Handler) hasProfile(account *model.Account) (bool, error) {
	_, err := h.store.GetProfileByPrincipal(account.Principal)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (h *Handler) handleOnboardingPage(w http.ResponseWriter, r *http.Request) {
	account := model.AccountFromContext(r.Context())
	exists, err := h.hasProfile(account)
	if err != nil {
		h.internalError(w, r, "failed to load profile", err)
		return
	}
	if exists {
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}

	d, err := h.onboardingData(r, views.OnboardingForm{Role: model.RoleStudent})
	if err != nil {
		h.internalError(w, r, "failed to load schools", err)
		return
	}
	h.render(w, r, http.StatusOK, views.OnboardingPage(d))
}

func (h *Handler) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	account := model.AccountFromContext(r.Context())
	form := views.OnboardingForm{
		Name:  strings.TrimSpace(r.FormValue("name")),
		Email: strings.TrimSpace(r.FormValue("email")),
		Role:  model.ProfileRole(r.FormValue("role")),
	}
	p := model.Profile{
		Principal: account.Principal,
		Name:      form.Name,
		Email:     form.Email,
		Role:      form.Role,
		SchoolID:  formID(r, "school_id"),
		GroupID:   formID(r, "group_id"),
	}
	if p.SchoolID != nil {
		form.SchoolID = *p.SchoolID
	}
	if p.GroupID != nil {
		form.GroupID = *p.GroupID
	}

	var err error
	if p.Role == model.RoleSchoolAdmin && !account.IsAdmin {
		err = errProfilePermission
	} else {
		_, err = h.store.CreateProfile(p)
	}
	if err == nil {
		slog.Info("profile created", "account", account.ID, "role", p.Role)
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}

	slog.Warn("profile creation failed", "account", account.ID, "error", err)
	d, lerr := h.onboardingData(r, form)
	if lerr != nil {
		h.internalError(w, r, "failed to load schools", lerr)
		return
	}
	d.Error = mapProfileCreationError(err)
	h.render(w, r, http.StatusUnprocessableEntity, views.OnboardingPage(d))
}

// handleListGroups returns a school's groups as JSON.
func (h *Handler) handleListGroups(w http.ResponseWriter, r *http.Request) {
	schoolID, ok := urlID(r, "schoolID")
	if !ok {
		http.Error(w, "invalid school ID", http.StatusBadRequest)
		return
	}
	groups, err := h.store.ListGroupsBySchool(schoolID)
	if err != nil {
		slog.Error("failed to list groups", "school", schoolID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if groups == nil {
		groups = []model.StudentGroup{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(groups); err != nil {
		slog.Error("encode groups", "error", err)
	}
}
