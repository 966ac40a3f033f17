package exam

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pavelanni/vidya/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRequest() GenerationRequest {
	return GenerationRequest{
		Board:            BoardCBSE,
		Grade:            10,
		Subject:          "Mathematics",
		Chapters:         []string{"Real Numbers", "Polynomials"},
		Topics:           []string{"Euclid's Division Lemma"},
		DurationMinutes:  180,
		TotalMarks:       10,
		DifficultyTarget: "Balanced",
		Timestamp:        time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func samplePaper() PaperResponse {
	return PaperResponse{ExamPaper: Paper{
		Metadata: Metadata{
			Title: "Class 10 Mathematics", Board: "CBSE", Grade: 10, Subject: "Mathematics",
			Duration: 180, TotalMarks: 10, Instructions: "Answer all questions.",
		},
		Questions: []Question{
			{
				ID: "Q1", Type: QuestionMCQ, Difficulty: DifficultyEasy, Marks: 1,
				Chapter: "Real Numbers", Topic: "HCF", QuestionText: "HCF of 6 and 9?",
				Options: []string{"1", "3", "6", "9"}, CorrectAnswer: "3",
			},
			{
				ID: "Q2", Type: QuestionShortAnswer, Difficulty: DifficultyMedium, Marks: 4,
				Chapter: "Polynomials", Topic: "Zeroes", QuestionText: "Find the zeroes of x^2-4.",
			},
			{
				ID: "Q3", Type: QuestionProblemSolving, Difficulty: DifficultyHard, Marks: 5,
				Chapter: "Real Numbers", Topic: "Euclid's Division Lemma", QuestionText: "Prove it.",
				SolutionHint: "Use division with remainder.",
			},
		},
	}}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestBuildUserPrompt(t *testing.T) {
	req := sampleRequest()
	p := BuildUserPrompt(req)

	assert.Equal(t, p, BuildUserPrompt(req), "same input must give identical output")

	later := req
	later.Timestamp = req.Timestamp.Add(time.Hour)
	assert.Equal(t, p, BuildUserPrompt(later), "timestamp is not rendered")

	for _, want := range []string{
		"Board: CBSE", "Grade/Class: 10", "Subject: Mathematics",
		"Chapters: Real Numbers, Polynomials", "Topics: Euclid's Division Lemma",
		"Duration: 180 minutes", "Total Marks: 10", "Difficulty Target: Balanced",
		"Ensure total marks sum exactly to 10",
	} {
		assert.Contains(t, p, want)
	}
}

func TestBuildUserPromptDefaults(t *testing.T) {
	req := sampleRequest()
	req.Board = BoardState
	req.Chapters = nil
	req.Topics = []string{}
	p := BuildUserPrompt(req)

	assert.Contains(t, p, "Board: State Board")
	assert.Contains(t, p, "Chapters: All chapters")
	assert.Contains(t, p, "Topics: All topics")
}

func TestGenerationRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*GenerationRequest)
		wantErr string
	}{
		{"valid", func(*GenerationRequest) {}, ""},
		{"grade zero", func(r *GenerationRequest) { r.Grade = 0 }, "grade"},
		{"grade thirteen", func(r *GenerationRequest) { r.Grade = 13 }, "grade"},
		{"unknown board", func(r *GenerationRequest) { r.Board = "NIOS" }, "board"},
		{"no subject", func(r *GenerationRequest) { r.Subject = "" }, "subject"},
		{"no marks", func(r *GenerationRequest) { r.TotalMarks = 0 }, "totalMarks"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := sampleRequest()
			tt.mutate(&req)
			err := req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseExamPaper_RoundTrip(t *testing.T) {
	want := samplePaper()
	res := ParseExamPaper(mustJSON(t, want))
	require.True(t, res.Success, "unexpected failure: %v", res.Err)
	assert.Nil(t, res.Err)
	assert.Equal(t, want, *res.Data)
}

func TestParseExamPaper_Fences(t *testing.T) {
	body := mustJSON(t, samplePaper())
	tests := []struct {
		name string
		raw  string
	}{
		{"json fence", "```json\n" + body + "\n```"},
		{"bare fence", "```\n" + body + "\n```"},
		{"surrounding whitespace", "\n\n  ```json\n" + body + "\n```  \n"},
		{"no newline", "```json" + body + "```"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ParseExamPaper(tt.raw)
			require.True(t, res.Success, "unexpected failure: %v", res.Err)
			assert.Equal(t, samplePaper(), *res.Data)
		})
	}
}

func TestParseExamPaper_Failures(t *testing.T) {
	valid := samplePaper()

	noOptions := samplePaper()
	noOptions.ExamPaper.Questions[0].Options = nil

	threeOptions := samplePaper()
	threeOptions.ExamPaper.Questions[0].Options = []string{"1", "3", "6"}

	noAnswer := samplePaper()
	noAnswer.ExamPaper.Questions[0].CorrectAnswer = ""

	wrongAnswer := samplePaper()
	wrongAnswer.ExamPaper.Questions[0].CorrectAnswer = "12"

	// Two huge marks wrap around to the stated total if summed unchecked.
	hugeMarks := samplePaper()
	hugeMarks.ExamPaper.Metadata.TotalMarks = 0
	hugeMarks.ExamPaper.Questions[0].Marks = math.MaxInt
	hugeMarks.ExamPaper.Questions[1].Marks = math.MaxInt
	hugeMarks.ExamPaper.Questions[2].Marks = 2

	tooManyMarks := samplePaper()
	tooManyMarks.ExamPaper.Metadata.TotalMarks = 1005
	tooManyMarks.ExamPaper.Questions[2].Marks = 1000

	tests := []struct {
		name     string
		raw      string
		wantKind llm.Kind
		wantMsg  []string
	}{
		{"not json", "Sure! Here is your paper.", llm.KindParseFailure, []string{"Failed to parse JSON:"}},
		{"empty", "", llm.KindParseFailure, []string{"Failed to parse JSON:"}},
		{"truncated", `{"examPaper": {"metadata": `, llm.KindParseFailure, []string{"Failed to parse JSON:"}},
		{"trailing data", mustJSON(t, valid) + " {}", llm.KindParseFailure, []string{"Failed to parse JSON:"}},
		{"wrong envelope", `{"paper": {}}`, llm.KindSchemaMismatch, []string{"schema"}},
		{"grade as string", strings.Replace(mustJSON(t, valid), `"grade":10`, `"grade":"10"`, 1),
			llm.KindSchemaMismatch, []string{"schema"}},
		{"bad difficulty", strings.Replace(mustJSON(t, valid), `"EASY"`, `"TRIVIAL"`, 1),
			llm.KindSchemaMismatch, []string{"schema"}},
		{"mcq without options", mustJSON(t, noOptions), llm.KindSchemaMismatch, []string{"schema"}},
		{"mcq with three options", mustJSON(t, threeOptions), llm.KindSchemaMismatch, []string{"schema"}},
		{"mcq without answer", mustJSON(t, noAnswer), llm.KindSchemaMismatch, []string{"schema"}},
		{"mcq answer not an option", mustJSON(t, wrongAnswer), llm.KindSchemaMismatch, []string{"Q1", "correctAnswer"}},
		{"marks overflow int", mustJSON(t, hugeMarks), llm.KindSchemaMismatch, []string{"schema"}},
		{"marks above ceiling", mustJSON(t, tooManyMarks), llm.KindSchemaMismatch, []string{"schema"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ParseExamPaper(tt.raw)
			require.False(t, res.Success)
			assert.Nil(t, res.Data)
			require.NotNil(t, res.Err)
			assert.Equal(t, tt.wantKind, res.Err.Kind)
			assert.Equal(t, tt.raw, res.Err.RawResponse, "raw text is attached unchanged")
			for _, m := range tt.wantMsg {
				assert.Contains(t, res.Err.Message, m)
			}
		})
	}
}

func TestParseExamPaper_MarksMismatch(t *testing.T) {
	for _, delta := range []int{-1, 1, 7} {
		p := samplePaper()
		p.ExamPaper.Questions[2].Marks += delta
		res := ParseExamPaper(mustJSON(t, p))

		require.False(t, res.Success)
		assert.Equal(t, llm.KindMarksMismatch, res.Err.Kind)
		assert.Equal(t,
			"Marks validation failed: Questions sum to "+strconv.Itoa(10+delta)+" but metadata specifies 10",
			res.Err.Message)
	}
}

func TestParseExamPaper_IgnoresUnknownFields(t *testing.T) {
	raw := strings.Replace(mustJSON(t, samplePaper()), `"examPaper":{`, `"examPaper":{"version":2,`, 1)
	res := ParseExamPaper(raw)
	require.True(t, res.Success, "unexpected failure: %v", res.Err)
}

type countingServer struct {
	calls atomic.Int32
	url   string
}

func newLLMServer(t *testing.T, handler http.HandlerFunc) *countingServer {
	t.Helper()
	cs := &countingServer{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	cs.url = srv.URL
	return cs
}

func replyWith(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}
}

func TestGenerate_ConfigGating(t *testing.T) {
	srv := newLLMServer(t, replyWith(`{}`))
	g := NewGenerator(llm.StaticSource{llm.KeyBaseURL: srv.url, llm.KeyAPIKey: "  "}, llm.New())

	res := g.Generate(context.Background(), sampleRequest())
	require.False(t, res.Success)
	assert.Nil(t, res.Data)
	assert.Equal(t, llm.KindConfigInvalid, res.Err.Kind)
	assert.Equal(t, int32(0), srv.calls.Load(), "no network call without a key")
}

func TestGenerate_Scenarios(t *testing.T) {
	valid := mustJSON(t, samplePaper())
	mismatch := strings.Replace(valid, `"totalMarks":10`, `"totalMarks":12`, 1)
	prose := "\n  This is not JSON.  \n"
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantKind llm.Kind
		wantRaw  string
	}{
		{"success in fence", replyWith("```json\n" + valid + "\n```"), "", ""},
		{"marks mismatch", replyWith(mismatch), llm.KindMarksMismatch, mismatch},
		{"prose", replyWith(prose), llm.KindParseFailure, prose},
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}, llm.KindTransportFailure, ""},
		{"blank content", replyWith("  "), llm.KindEmptyResponse, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newLLMServer(t, tt.handler)
			g := NewGenerator(llm.StaticSource{llm.KeyBaseURL: srv.url, llm.KeyAPIKey: "k"}, llm.New())

			res := g.Generate(context.Background(), sampleRequest())
			assert.Equal(t, int32(1), srv.calls.Load())
			if tt.wantKind == "" {
				require.True(t, res.Success, "unexpected failure: %v", res.Err)
				assert.Nil(t, res.Err)
				assert.Equal(t, 10, res.Data.ExamPaper.MarksSum())
				return
			}
			require.False(t, res.Success)
			assert.Nil(t, res.Data)
			assert.Equal(t, tt.wantKind, res.Err.Kind)
			if tt.wantKind.IsValidation() {
				// The provider's content is kept byte for byte, surrounding whitespace included.
				assert.Equal(t, tt.wantRaw, res.Err.RawResponse)
			}
		})
	}
}

type stubCompleter struct {
	out string
	err error
	do  func()
}

func (s stubCompleter) Complete(context.Context, llm.Config, llm.Request) (string, error) {
	if s.do != nil {
		s.do()
	}
	return s.out, s.err
}

func TestGenerate_UnexpectedFailures(t *testing.T) {
	src := llm.StaticSource{llm.KeyAPIKey: "k"}
	tests := []struct {
		name string
		c    stubCompleter
	}{
		{"network error", stubCompleter{err: assert.AnError}},
		{"panic", stubCompleter{do: func() { panic("boom") }}},
		{"cancelled", stubCompleter{err: context.Canceled}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewGenerator(src, tt.c).Generate(context.Background(), sampleRequest())
			require.False(t, res.Success)
			assert.Equal(t, llm.KindUnexpectedFailure, res.Err.Kind)
			assert.NotContains(t, res.Err.Message, "boom")
			assert.NotContains(t, res.Err.Message, assert.AnError.Error())
		})
	}
}

func TestGenerate_SendsPrompts(t *testing.T) {
	var body map[string]any
	reply := replyWith(mustJSON(t, samplePaper()))
	srv := newLLMServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		reply(w, r)
	})
	g := NewGenerator(llm.StaticSource{llm.KeyBaseURL: srv.url, llm.KeyAPIKey: "k"}, llm.New())
	res := g.Generate(context.Background(), sampleRequest())
	require.True(t, res.Success)

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, SystemPrompt, msgs[0].(map[string]any)["content"])
	assert.Equal(t, BuildUserPrompt(sampleRequest()), msgs[1].(map[string]any)["content"])
	assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])
}
