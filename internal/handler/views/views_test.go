package views

import (
	"bytes"
	"context"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/vidya/internal/exam"
	appI18n "github.com/pavelanni/vidya/internal/i18n"
	"github.com/pavelanni/vidya/internal/model"
)

func testContext(t *testing.T, lang string) context.Context {
	t.Helper()
	catalog, err := appI18n.New("en")
	require.NoError(t, err)
	ctx := appI18n.WithLocalizer(context.Background(), catalog.NewLocalizer(lang), lang)
	ctx = model.ContextWithBasePath(ctx, "/vidya")
	return model.ContextWithCSRFToken(ctx, "tok123")
}

func renderString(t *testing.T, ctx context.Context, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(ctx, &buf))
	return buf.String()
}

func TestLoginPage(t *testing.T) {
	html := renderString(t, testContext(t, "en"), LoginPage("Invalid <credentials>"))

	assert.Contains(t, html, `<html lang="en">`)
	assert.Contains(t, html, `action="/vidya/login"`)
	assert.Contains(t, html, `name="csrf_token" value="tok123"`)
	assert.Contains(t, html, "Invalid &lt;credentials&gt;")
	assert.NotContains(t, html, "<credentials>")
	assert.Contains(t, html, `<option value="en" selected>`)
}

func TestLoginPageHindi(t *testing.T) {
	html := renderString(t, testContext(t, "hi"), LoginPage(""))
	assert.Contains(t, html, "साइन इन करें")
	assert.Contains(t, html, `<option value="hi" selected>`)
	assert.NotContains(t, html, `class="card error"`)
}

func TestLayoutNavigationFollowsRole(t *testing.T) {
	ctx := testContext(t, "en")
	ctx = model.ContextWithAccount(ctx, &model.Account{ID: 1, Username: "asha", Active: true})
	ctx = model.ContextWithProfile(ctx, &model.Profile{ID: 1, Role: model.RoleStudent})

	html := renderString(t, ctx, StudentDashboard(Flash{Kind: "success", Message: "Saved"}, StudentDashboardData{
		Profile: model.Profile{Name: "Asha"},
	}))
	assert.Contains(t, html, `href="/vidya/tutor"`)
	assert.NotContains(t, html, `href="/vidya/exam"`)
	assert.NotContains(t, html, `href="/vidya/admin/accounts"`)
	assert.Contains(t, html, `class="card flash-success"`)
	assert.Contains(t, html, "Welcome, Asha")
	assert.Contains(t, html, "<span>asha</span>")
}

func TestSessionsTableScores(t *testing.T) {
	score := 75
	html := renderString(t, testContext(t, "en"), sessionsTable([]model.TutoringSession{
		{Subject: "Science", Topic: "Light", UnderstandingScore: 4, CorrectnessScore: &score},
		{Subject: "Maths", Topic: "Algebra", UnderstandingScore: 2},
	}))
	assert.Contains(t, html, "<td>4/5</td><td>75%</td>")
	assert.Contains(t, html, "<td>2/5</td><td>Not evaluated</td>")

	empty := renderString(t, testContext(t, "en"), sessionsTable(nil))
	assert.NotContains(t, empty, "<table>")
}

func TestExamPageFailure(t *testing.T) {
	html := renderString(t, testContext(t, "en"), ExamPage(ExamData{
		Form:   ExamForm{Board: "ICSE", Grade: 9},
		Boards: exam.Boards,
		Failure: &FailureView{
			Kind:        "parse_failure",
			Message:     "The model did not return valid JSON.",
			RawResponse: `<b>not json</b>`,
		},
	}))
	assert.Contains(t, html, "The model did not return valid JSON.")
	assert.Contains(t, html, "<pre>&lt;b&gt;not json&lt;/b&gt;</pre>")
	assert.Contains(t, html, `<option value="ICSE" selected>`)
	assert.Contains(t, html, `name="grade" type="number" min="1" max="12" value="9"`)
	assert.Contains(t, html, `name="duration" type="number" min="1" max="600" value=""`)
}

func TestExamPagePaper(t *testing.T) {
	paper := &exam.Paper{
		Metadata: exam.Metadata{Title: "Unit Test", Board: "CBSE", Grade: 7, Subject: "Science", Duration: 30, TotalMarks: 3},
		Questions: []exam.Question{
			{ID: "q1", Type: exam.QuestionMCQ, Difficulty: exam.DifficultyEasy, Marks: 1, QuestionText: "Pick one",
				Options: []string{"A1", "B1", "C1", "D1"}, CorrectAnswer: "A1"},
			{ID: "q2", Type: exam.QuestionShortAnswer, Difficulty: exam.DifficultyHard, Marks: 2, QuestionText: "Explain"},
		},
	}
	html := renderString(t, testContext(t, "en"), ExamPage(ExamData{Paper: paper}))
	assert.Contains(t, html, "<h2>Unit Test</h2>")
	assert.Contains(t, html, "Easy: 1, Medium: 0, Hard: 1")
	assert.Contains(t, html, `<ol type="A"><li>A1</li>`)
	assert.Contains(t, html, "2 marks")
}

func TestAdminAccountsToggleLabels(t *testing.T) {
	html := renderString(t, testContext(t, "en"), AdminAccountsPage(Flash{}, []model.Account{
		{ID: 7, Username: "on", Active: true},
		{ID: 8, Username: "off"},
	}))
	assert.Contains(t, html, `action="/vidya/admin/accounts/7/toggle"`)
	assert.Contains(t, html, `action="/vidya/admin/accounts/8/toggle"`)
	assert.Contains(t, html, ">Disable</button>")
	assert.Contains(t, html, ">Enable</button>")
}

func TestErrorPage(t *testing.T) {
	html := renderString(t, testContext(t, "en"), ErrorPage(403, "Forbidden"))
	assert.Contains(t, html, "<h1>403</h1>")
	assert.Contains(t, html, `href="/vidya/"`)
}
