package exam

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/pavelanni/vidya/internal/llm"
)

const schemaMismatchMessage = "Response does not match expected exam paper schema. " +
	"Check that all required fields are present and correctly typed."

var fencePattern = regexp.MustCompile("```(?:json)?\\s*\\n?([\\s\\S]*?)\\n?```")

// ParseExamPaper validates raw model output. It accepts a bare JSON document
// or one wrapped in a markdown code fence. On failure the original text is
// attached to the returned Failure.
func ParseExamPaper(raw string) ParseResult {
	body := stripFence(raw)

	doc, err := decodeStrict(body)
	if err != nil {
		return parseFailed(llm.KindParseFailure, "Failed to parse JSON: "+err.Error(), raw)
	}

	schema, err := paperValidator()
	if err != nil {
		// The schema is a constant, so this only happens if it was edited badly.
		slog.Error("exam schema unavailable", "error", err)
		return parseFailed(llm.KindUnexpectedFailure, "Exam paper validation is unavailable.", raw)
	}
	if err := schema.Validate(doc); err != nil {
		slog.Debug("exam paper schema mismatch", "error", err)
		return parseFailed(llm.KindSchemaMismatch, schemaMismatchMessage, raw)
	}

	var resp PaperResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		slog.Debug("exam paper decode", "error", err)
		return parseFailed(llm.KindSchemaMismatch, schemaMismatchMessage, raw)
	}

	for _, q := range resp.ExamPaper.Questions {
		if q.Type == QuestionMCQ && !slices.Contains(q.Options, q.CorrectAnswer) {
			return parseFailed(llm.KindSchemaMismatch,
				fmt.Sprintf("%s Question %s: correctAnswer is not one of its options.", schemaMismatchMessage, q.ID), raw)
		}
	}

	sum := resp.ExamPaper.MarksSum()
	if want := resp.ExamPaper.Metadata.TotalMarks; sum != want {
		return parseFailed(llm.KindMarksMismatch,
			fmt.Sprintf("Marks validation failed: Questions sum to %d but metadata specifies %d", sum, want), raw)
	}

	return ParseResult{Success: true, Data: &resp}
}

// stripFence trims text and, if it opens with a code fence, returns the fenced
// body. Unterminated fences are left alone.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// decodeStrict decodes exactly one JSON value, keeping numbers exact.
func decodeStrict(body string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("unexpected end of JSON input")
		}
		return nil, err
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level JSON value")
	}
	return doc, nil
}

func parseFailed(kind llm.Kind, msg, raw string) ParseResult {
	return ParseResult{Err: &llm.Failure{Kind: kind, Message: msg, RawResponse: raw}}
}
