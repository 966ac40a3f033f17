package exam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pavelanni/vidya/internal/llm"
)

const unexpectedMessage = "Failed to generate exam paper. Please check your network connection and try again."

// Completer sends one chat completion. *llm.Client implements it.
type Completer interface {
	Complete(ctx context.Context, cfg llm.Config, req llm.Request) (string, error)
}

// Generator runs the exam pipeline: configuration, prompts, one LLM call and
// validation of the answer.
type Generator struct {
	src    llm.Source
	client Completer
}

// NewGenerator returns a Generator reading its endpoint settings from src on
// every call, so configuration changes apply without a restart.
func NewGenerator(src llm.Source, client Completer) *Generator {
	return &Generator{src: src, client: client}
}

// Generate produces an exam paper for req, which callers check with
// GenerationRequest.Validate first. It never panics and never returns
// a Result with both Data and Err set.
func (g *Generator) Generate(ctx context.Context, req GenerationRequest) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("exam generation panicked", "panic", r)
			res = failed(llm.NewFailure(llm.KindUnexpectedFailure, unexpectedMessage))
		}
	}()

	cfg, err := llm.Resolve(g.src)
	if err != nil {
		return failed(asFailure(err))
	}

	content, err := g.client.Complete(ctx, cfg, llm.Request{
		System:   SystemPrompt,
		User:     BuildUserPrompt(req),
		JSONMode: true,
	})
	if err != nil {
		return failed(asFailure(err))
	}
	slog.Debug("exam paper received", "board", req.Board, "grade", req.Grade, "raw", content)

	parsed := ParseExamPaper(content)
	if !parsed.Success {
		slog.Info("exam paper rejected", "kind", parsed.Err.Kind, "error", parsed.Err.Message)
		return failed(parsed.Err)
	}
	return Result{Success: true, Data: parsed.Data}
}

// asFailure keeps classified failures and hides everything else behind a
// generic message.
func asFailure(err error) *llm.Failure {
	var f *llm.Failure
	if errors.As(err, &f) {
		return f
	}
	slog.Error("exam generation failed", "error", err)
	if errors.Is(err, context.Canceled) {
		return llm.NewFailure(llm.KindUnexpectedFailure, "Exam generation was cancelled.")
	}
	return llm.NewFailure(llm.KindUnexpectedFailure, unexpectedMessage)
}

// String renders a result for logs and the CLI.
func (r Result) String() string {
	if r.Success {
		return fmt.Sprintf("exam paper with %d questions", len(r.Data.ExamPaper.Questions))
	}
	return r.Err.Error()
}
