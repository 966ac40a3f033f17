package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pavelanni/vidya/internal/exam"
	"github.com/pavelanni/vidya/internal/handler/views"
)

func defaultExamForm() views.ExamForm {
	return views.ExamForm{
		Board:      string(exam.BoardCBSE),
		Grade:      10,
		Duration:   180,
		TotalMarks: 80,
		Difficulty: exam.DefaultDifficultyTarget,
	}
}

// splitList parses a comma separated form field, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (h *Handler) handleExamPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, views.ExamPage(views.ExamData{Form: defaultExamForm(), Boards: exam.Boards}))
}

func (h *Handler) handleGenerateExam(w http.ResponseWriter, r *http.Request) {
	form := views.ExamForm{
		Board:      r.FormValue("board"),
		Grade:      formInt(r, "grade"),
		Subject:    strings.TrimSpace(r.FormValue("subject")),
		Chapters:   r.FormValue("chapters"),
		Topics:     r.FormValue("topics"),
		Duration:   formInt(r, "duration"),
		TotalMarks: formInt(r, "total_marks"),
		Difficulty: strings.TrimSpace(r.FormValue("difficulty")),
	}
	if form.Difficulty == "" {
		form.Difficulty = exam.DefaultDifficultyTarget
	}
	d := views.ExamData{Form: form, Boards: exam.Boards}

	req := exam.GenerationRequest{
		Board:            exam.Board(form.Board),
		Grade:            form.Grade,
		Subject:          form.Subject,
		Chapters:         splitList(form.Chapters),
		Topics:           splitList(form.Topics),
		DurationMinutes:  form.Duration,
		TotalMarks:       form.TotalMarks,
		DifficultyTarget: form.Difficulty,
		Timestamp:        time.Now(),
	}
	if err := req.Validate(); err != nil {
		d.Error = err.Error()
		h.render(w, r, http.StatusUnprocessableEntity, views.ExamPage(d))
		return
	}

	res := h.exams.Generate(r.Context(), req)
	if !res.Success {
		slog.Warn("exam generation failed", "kind", res.Err.Kind, "error", res.Err.Message)
		slog.Debug("exam raw response", "raw", res.Err.RawResponse)
		d.Failure = &views.FailureView{
			Kind:        string(res.Err.Kind),
			Message:     res.Err.Message,
			RawResponse: res.Err.RawResponse,
		}
		h.render(w, r, http.StatusOK, views.ExamPage(d))
		return
	}

	slog.Info("exam generated", "board", req.Board, "grade", req.Grade, "subject", req.Subject,
		"questions", len(res.Data.ExamPaper.Questions))
	d.Paper = &res.Data.ExamPaper
	h.render(w, r, http.StatusOK, views.ExamPage(d))
}
