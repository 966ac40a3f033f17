package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pavelanni/vidya/internal/handler/views"
	appI18n "github.com/pavelanni/vidya/internal/i18n"
	"github.com/pavelanni/vidya/internal/llm"
	"github.com/pavelanni/vidya/internal/model"
	"github.com/pavelanni/vidya/internal/store"
	"github.com/pavelanni/vidya/internal/tutor"
)

const maxAttachmentBytes = 1 << 20

var errAttachmentUnsupported = errors.New("unsupported attachment")

func (h *Handler) explanationLanguage(principal string) string {
	lang, err := h.store.GetPreference(principal, store.PrefExplanationLanguage)
	if err != nil {
		slog.Warn("failed to read language preference", "error", err)
	}
	if !tutor.IsLanguage(lang) {
		return tutor.DefaultLanguage
	}
	return lang
}

// defaultGrade is the grade of the student's group, if any.
func (h *Handler) defaultGrade(p *model.Profile) int {
	if p.GroupID == nil {
		return 0
	}
	g, err := h.store.GetGroup(*p.GroupID)
	if err != nil {
		return 0
	}
	return g.GradeLevel
}

func (h *Handler) handleTutorPage(w http.ResponseWriter, r *http.Request) {
	account := model.AccountFromContext(r.Context())
	profile := model.ProfileFromContext(r.Context())
	d := views.TutorData{
		Form: views.TutorForm{
			Grade:    h.defaultGrade(profile),
			Language: h.explanationLanguage(account.Principal),
		},
		Languages: tutor.Languages,
	}
	h.render(w, r, http.StatusOK, views.TutorPage(h.popFlash(w, r), d))
}

// readAttachment returns the uploaded reference text, or a zero Attachment
// when none was sent.
func readAttachment(r *http.Request) (tutor.Attachment, error) {
	file, header, err := r.FormFile("attachment")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return tutor.Attachment{}, nil
	}
	if err != nil {
		return tutor.Attachment{}, fmt.Errorf("read attachment: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAttachmentBytes+1))
	if err != nil {
		return tutor.Attachment{}, fmt.Errorf("read attachment: %w", err)
	}
	if len(data) > maxAttachmentBytes || !utf8.Valid(data) ||
		!strings.HasPrefix(http.DetectContentType(data), "text/") {
		return tutor.Attachment{}, errAttachmentUnsupported
	}
	return tutor.Attachment{Name: header.Filename, Text: string(data)}, nil
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	account := model.AccountFromContext(r.Context())
	form := views.TutorForm{
		Grade:    formInt(r, "grade"),
		Subject:  strings.TrimSpace(r.FormValue("subject")),
		Topic:    strings.TrimSpace(r.FormValue("topic")),
		Question: strings.TrimSpace(r.FormValue("question")),
		Language: r.FormValue("language"),
	}
	d := views.TutorData{Form: form, Languages: tutor.Languages}
	fail := func(status int, msg string) {
		d.Error = msg
		h.render(w, r, status, views.TutorPage(views.Flash{}, d))
	}

	att, err := readAttachment(r)
	if errors.Is(err, errAttachmentUnsupported) {
		fail(http.StatusUnprocessableEntity, appI18n.T(r.Context(), "AttachmentUnsupported"))
		return
	}
	if err != nil {
		slog.Warn("attachment upload failed", "error", err)
		fail(http.StatusBadRequest, appI18n.T(r.Context(), "InvalidForm"))
		return
	}
	d.Form.AttachmentName = att.Name

	p := tutor.Params{
		Grade:      form.Grade,
		Subject:    form.Subject,
		Topic:      form.Topic,
		Question:   form.Question,
		Language:   form.Language,
		Attachment: att,
	}
	if err := p.Validate(); err != nil {
		fail(http.StatusUnprocessableEntity, err.Error())
		return
	}

	if p.Language != "" {
		if err := h.store.SetPreference(account.Principal, store.PrefExplanationLanguage, p.Language); err != nil {
			slog.Warn("failed to save language preference", "error", err)
		}
	}

	answer, err := h.tutor.Ask(r.Context(), p)
	if err != nil {
		var f *llm.Failure
		if errors.As(err, &f) {
			slog.Warn("tutor request failed", "kind", f.Kind, "error", f.Message)
			slog.Debug("tutor raw response", "raw", f.RawResponse)
			fail(http.StatusBadGateway, f.Message)
			return
		}
		slog.Error("tutor request failed", "error", err)
		fail(http.StatusBadGateway, appI18n.T(r.Context(), "InternalError"))
		return
	}
	d.Answer = answer
	h.render(w, r, http.StatusOK, views.TutorPage(views.Flash{}, d))
}

// handleSaveSession records a finished tutor interaction. It is independent
// of the answer request: a failure here only produces an error notice.
func (h *Handler) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	profile := model.ProfileFromContext(r.Context())
	ts := model.TutoringSession{
		StudentID:          profile.ID,
		Subject:            r.FormValue("subject"),
		Topic:              r.FormValue("topic"),
		UnderstandingScore: formInt(r, "understanding_score"),
	}
	if v := strings.TrimSpace(r.FormValue("correctness_score")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			n = -1
		}
		ts.CorrectnessScore = &n
	}
	if ts.Topic == "" {
		ts.Topic = tutor.DefaultTopic
	}

	_, err := h.store.RecordTutoringSession(ts)
	switch {
	case err == nil:
		h.setFlash(w, "success", appI18n.T(r.Context(), "SessionSaved"))
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	case errors.Is(err, store.ErrInvalidSession):
		h.setFlash(w, "error", err.Error())
	default:
		slog.Error("failed to record tutoring session", "student", profile.ID, "error", err)
		h.setFlash(w, "error", appI18n.T(r.Context(), "InternalError"))
	}
	http.Redirect(w, r, h.path("/tutor"), http.StatusSeeOther)
}
