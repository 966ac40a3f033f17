package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pavelanni/vidya/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUserPrompt(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		want    []string
		notWant []string
	}{
		{
			name:    "english",
			params:  Params{Grade: 7, Subject: "Science", Topic: "Photosynthesis", Question: "Why are leaves green?", Language: "english"},
			want:    []string{"- Grade/Class: 7", "- Subject: Science", "- Topic: Photosynthesis", "Why are leaves green?"},
			notWant: []string{"Respond in:"},
		},
		{
			name:   "default topic",
			params: Params{Grade: 3, Subject: "Maths", Question: "What is 2+2?"},
			want:   []string{"- Topic: General"},
		},
		{
			name:   "hindi",
			params: Params{Grade: 9, Subject: "History", Question: "Who was Ashoka?", Language: "hindi"},
			want:   []string{"Respond in: Hindi"},
		},
		{
			name:   "manipuri",
			params: Params{Grade: 9, Subject: "History", Question: "q", Language: "manipuri"},
			want:   []string{"Respond in: Manipuri"},
		},
		{
			name: "attachment",
			params: Params{Grade: 9, Subject: "Physics", Question: "Explain this", Attachment: Attachment{
				Name: "notes.txt", Text: "  Newton's laws  ",
			}},
			want: []string{"Reference material from \"notes.txt\":\nNewton's laws\n"},
		},
		{
			name:    "blank attachment",
			params:  Params{Grade: 9, Subject: "Physics", Question: "Explain", Attachment: Attachment{Name: "a.txt", Text: " \n "}},
			notWant: []string{"Reference material"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := BuildUserPrompt(tt.params)
			for _, w := range tt.want {
				assert.Contains(t, p, w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, p, w)
			}
			assert.Contains(t, p, "step-by-step explanation")
		})
	}
}

func TestAttachmentTruncation(t *testing.T) {
	text := strings.Repeat("अ", MaxAttachmentRunes+50)
	p := BuildUserPrompt(Params{Grade: 1, Subject: "s", Question: "q", Attachment: Attachment{Text: text}})

	assert.Equal(t, MaxAttachmentRunes, strings.Count(p, "अ"))
	assert.Contains(t, p, "[truncated]")
	assert.Contains(t, p, `"attachment"`)
}

func TestParamsValidate(t *testing.T) {
	ok := Params{Grade: 5, Subject: "Maths", Question: "q"}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.Language = "klingon"
	assert.Error(t, bad.Validate())

	bad = ok
	bad.Grade = 0
	assert.Error(t, bad.Validate())

	bad = ok
	bad.Question = ""
	assert.Error(t, bad.Validate())

	for _, l := range Languages {
		p := ok
		p.Language = l.Value
		assert.NoError(t, p.Validate(), l.Value)
	}
	assert.Len(t, Languages, 23)
}

func TestAsk(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": "\n Chlorophyll. \n"}}},
		})
	}))
	t.Cleanup(srv.Close)

	tu := New(llm.StaticSource{llm.KeyAPIKey: "k", llm.KeyBaseURL: srv.URL}, llm.New())
	out, err := tu.Ask(context.Background(), Params{Grade: 7, Subject: "Science", Question: "Why green?"})
	require.NoError(t, err)
	assert.Equal(t, "Chlorophyll.", out)
	_, hasFormat := body["response_format"]
	assert.False(t, hasFormat)
}

type failingCompleter struct{ err error }

func (f failingCompleter) Complete(context.Context, llm.Config, llm.Request) (string, error) {
	return "", f.err
}

func TestAskFailures(t *testing.T) {
	tests := []struct {
		name     string
		src      llm.Source
		err      error
		wantKind llm.Kind
	}{
		{"no key", llm.StaticSource{}, nil, llm.KindConfigInvalid},
		{"transport", llm.StaticSource{llm.KeyAPIKey: "k"}, &llm.Failure{Kind: llm.KindTransportFailure, StatusCode: 500}, llm.KindTransportFailure},
		{"network", llm.StaticSource{llm.KeyAPIKey: "k"}, errors.New("dial tcp: refused"), llm.KindUnexpectedFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.src, failingCompleter{tt.err}).Ask(context.Background(), Params{Grade: 1, Subject: "s", Question: "q"})
			var f *llm.Failure
			require.True(t, errors.As(err, &f), "got %v", err)
			assert.Equal(t, tt.wantKind, f.Kind)
			assert.NotContains(t, f.Message, "dial tcp")
		})
	}
}
