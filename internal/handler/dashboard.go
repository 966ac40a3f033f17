package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/pavelanni/vidya/internal/handler/views"
	appI18n "github.com/pavelanni/vidya/internal/i18n"
	"github.com/pavelanni/vidya/internal/model"
	"github.com/pavelanni/vidya/internal/store"
)

// recentSessions caps the activity list on dashboards.
const recentSessions = 20

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	profile := model.ProfileFromContext(r.Context())
	flash := h.popFlash(w, r)

	switch profile.Role {
	case model.RoleStudent:
		h.studentDashboard(w, r, flash, *profile)
	case model.RoleParent:
		h.parentDashboard(w, r, flash, *profile)
	default:
		h.staffDashboard(w, r, flash, *profile)
	}
}

func (h *Handler) progress(studentID int64) ([]model.TutoringSession, model.WeeklySummary, error) {
	sessions, err := h.store.ListStudentProgress(studentID)
	if err != nil {
		return nil, model.WeeklySummary{}, err
	}
	if len(sessions) > recentSessions {
		sessions = sessions[:recentSessions]
	}
	summary, err := h.store.WeeklyProgressSummary(studentID)
	return sessions, summary, err
}

func (h *Handler) studentDashboard(w http.ResponseWriter, r *http.Request, flash views.Flash, p model.Profile) {
	sessions, summary, err := h.progress(p.ID)
	if err != nil {
		h.internalError(w, r, "failed to load progress", err)
		return
	}
	h.render(w, r, http.StatusOK, views.StudentDashboard(flash, views.StudentDashboardData{
		Profile:  p,
		Sessions: sessions,
		Summary:  summary,
	}))
}

// parentDashboard shows the student chosen with ?student=ID, or the first
// linked student.
func (h *Handler) parentDashboard(w http.ResponseWriter, r *http.Request, flash views.Flash, p model.Profile) {
	students, err := h.store.ListStudentsByParent(p.ID)
	if err != nil {
		h.internalError(w, r, "failed to list students", err)
		return
	}
	d := views.ParentDashboardData{Profile: p, Students: students}

	if q := r.URL.Query().Get("student"); q != "" {
		id, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			h.renderError(w, r, http.StatusBadRequest, "NotFound")
			return
		}
		for i := range students {
			if students[i].ID == id {
				d.Selected = &students[i]
				break
			}
		}
		if d.Selected == nil {
			h.renderError(w, r, http.StatusForbidden, "Forbidden")
			return
		}
	} else if len(students) > 0 {
		d.Selected = &students[0]
	}

	if d.Selected != nil {
		if d.Sessions, d.Summary, err = h.progress(d.Selected.ID); err != nil {
			h.internalError(w, r, "failed to load progress", err)
			return
		}
	}
	h.render(w, r, http.StatusOK, views.ParentDashboard(flash, d))
}

func (h *Handler) staffDashboard(w http.ResponseWriter, r *http.Request, flash views.Flash, p model.Profile) {
	schools, err := h.store.ListSchools()
	if err != nil {
		h.internalError(w, r, "failed to list schools", err)
		return
	}
	d := views.StaffDashboardData{Profile: p, CanManage: p.Role == model.RoleSchoolAdmin}
	for _, sc := range schools {
		groups, err := h.store.ListGroupsBySchool(sc.ID)
		if err != nil {
			h.internalError(w, r, "failed to list groups", err)
			return
		}
		d.Schools = append(d.Schools, views.SchoolView{School: sc, Groups: groups})
	}
	if d.CanManage {
		if d.Parents, err = h.store.ListProfilesByRole(model.RoleParent); err != nil {
			h.internalError(w, r, "failed to list parents", err)
			return
		}
		if d.Students, err = h.store.ListProfilesByRole(model.RoleStudent); err != nil {
			h.internalError(w, r, "failed to list students", err)
			return
		}
	}
	h.render(w, r, http.StatusOK, views.StaffDashboard(flash, d))
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	p := *model.ProfileFromContext(r.Context())
	p.Name = strings.TrimSpace(r.FormValue("name"))
	p.Email = strings.TrimSpace(r.FormValue("email"))

	err := h.store.UpdateProfile(p)
	switch {
	case err == nil:
		h.setFlash(w, "success", appI18n.T(r.Context(), "ProfileSaved"))
	case errors.Is(err, store.ErrEmailRegistered), errors.Is(err, store.ErrInvalidProfile):
		h.setFlash(w, "error", err.Error())
	default:
		h.internalError(w, r, "failed to update profile", err)
		return
	}
	http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
}
