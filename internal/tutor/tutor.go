// Package tutor produces free-text explanations for student questions.
package tutor

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/pavelanni/vidya/internal/llm"
	"github.com/pavelanni/vidya/internal/validate"
)

const unexpectedMessage = "Failed to generate tutor response. Please check your network connection and try again."

// Params describes one student question.
type Params struct {
	Grade      int        `json:"grade" validate:"min=1,max=12"`
	Subject    string     `json:"subject" validate:"required,max=100"`
	Topic      string     `json:"topic" validate:"max=200"`
	Question   string     `json:"question" validate:"required,max=4000"`
	Language   string     `json:"explanationLanguage"`
	Attachment Attachment `json:"-"`
}

// Validate checks the request bounds.
func (p Params) Validate() error {
	if p.Language != "" && !IsLanguage(p.Language) {
		return errors.New("explanationLanguage is not supported")
	}
	return validate.Struct(p)
}

// Completer sends one chat completion. *llm.Client implements it.
type Completer interface {
	Complete(ctx context.Context, cfg llm.Config, req llm.Request) (string, error)
}

// Tutor answers student questions.
type Tutor struct {
	src    llm.Source
	client Completer
}

// New returns a Tutor that resolves its endpoint from src on every call.
func New(src llm.Source, client Completer) *Tutor {
	return &Tutor{src: src, client: client}
}

// Ask returns the explanation text. Every error it returns is a *llm.Failure.
func (t *Tutor) Ask(ctx context.Context, p Params) (answer string, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("tutor panicked", "panic", r)
			answer, err = "", llm.NewFailure(llm.KindUnexpectedFailure, unexpectedMessage)
		}
	}()

	cfg, err := llm.Resolve(t.src)
	if err != nil {
		return "", err
	}

	answer, err = t.client.Complete(ctx, cfg, llm.Request{
		System: SystemPrompt,
		User:   BuildUserPrompt(p),
	})
	if err != nil {
		var f *llm.Failure
		if errors.As(err, &f) {
			return "", f
		}
		slog.Error("tutor request failed", "error", err)
		return "", llm.NewFailure(llm.KindUnexpectedFailure, unexpectedMessage)
	}
	return strings.TrimSpace(answer), nil
}
