package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/vidya/internal/exam"
	appI18n "github.com/pavelanni/vidya/internal/i18n"
	"github.com/pavelanni/vidya/internal/llm"
	"github.com/pavelanni/vidya/internal/model"
	"github.com/pavelanni/vidya/internal/store"
	"github.com/pavelanni/vidya/internal/tutor"
)

const testPassword = "correct-horse"

type fakeExams struct {
	calls  int
	last   exam.GenerationRequest
	result exam.Result
}

func (f *fakeExams) Generate(_ context.Context, req exam.GenerationRequest) exam.Result {
	f.calls++
	f.last = req
	return f.result
}

type fakeTutor struct {
	calls  int
	last   tutor.Params
	answer string
	err    error
}

func (f *fakeTutor) Ask(_ context.Context, p tutor.Params) (string, error) {
	f.calls++
	f.last = p
	return f.answer, f.err
}

type testEnv struct {
	t     *testing.T
	store *store.Store
	exams *fakeExams
	tutor *fakeTutor
	srv   *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	catalog, err := appI18n.New("en")
	require.NoError(t, err)

	env := &testEnv{
		t:     t,
		store: s,
		exams: &fakeExams{},
		tutor: &fakeTutor{answer: "Plants turn light into chemical energy."},
	}
	h, err := New(s, env.exams, env.tutor, catalog, model.AppConfig{})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(catalog.Middleware)
	r.Use(h.BasePathMiddleware)
	h.Routes(r)
	env.srv = httptest.NewServer(r)
	t.Cleanup(env.srv.Close)
	return env
}

type response struct {
	status   int
	body     string
	location string
}

type client struct {
	t    *testing.T
	base *url.URL
	http *http.Client
}

func (e *testEnv) newClient() *client {
	jar, err := cookiejar.New(nil)
	require.NoError(e.t, err)
	base, err := url.Parse(e.srv.URL)
	require.NoError(e.t, err)
	return &client{
		t:    e.t,
		base: base,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *client) do(req *http.Request) response {
	c.t.Helper()
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return response{status: resp.StatusCode, body: string(body), location: resp.Header.Get("Location")}
}

func (c *client) get(path string) response {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.base.String()+path, nil)
	require.NoError(c.t, err)
	return c.do(req)
}

func (c *client) cookie(name string) string {
	for _, ck := range c.http.Jar.Cookies(c.base) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

// csrf returns the current token, fetching a page first if needed.
func (c *client) csrf() string {
	c.t.Helper()
	if tok := c.cookie(csrfCookieName); tok != "" {
		return tok
	}
	c.get("/login")
	tok := c.cookie(csrfCookieName)
	require.NotEmpty(c.t, tok)
	return tok
}

func (c *client) post(path string, form url.Values) response {
	c.t.Helper()
	form.Set("csrf_token", c.csrf())
	req, err := http.NewRequest(http.MethodPost, c.base.String()+path, strings.NewReader(form.Encode()))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) postMultipart(path string, fields map[string]string, fileName string, file []byte) response {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields["csrf_token"] = c.csrf()
	for k, v := range fields {
		require.NoError(c.t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("attachment", fileName)
		require.NoError(c.t, err)
		_, err = fw.Write(file)
		require.NoError(c.t, err)
	}
	require.NoError(c.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, c.base.String()+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func (e *testEnv) createAccount(username string, admin bool) model.Account {
	e.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(e.t, err)
	id, err := e.store.CreateAccount(model.Account{
		Username: username, PasswordHash: string(hash), IsAdmin: admin, Active: true,
	})
	require.NoError(e.t, err)
	a, err := e.store.GetAccountByID(id)
	require.NoError(e.t, err)
	return *a
}

// signIn creates an account, optionally with a profile of the given role,
// and returns a logged-in client.
func (e *testEnv) signIn(username string, admin bool, role model.ProfileRole) (*client, model.Profile) {
	e.t.Helper()
	a := e.createAccount(username, admin)
	var p model.Profile
	if role != "" {
		id, err := e.store.CreateProfile(model.Profile{
			Principal: a.Principal, Name: username, Email: username + "@example.com", Role: role,
		})
		require.NoError(e.t, err)
		p, err = e.store.GetProfile(id)
		require.NoError(e.t, err)
	}
	c := e.newClient()
	res := c.post("/login", url.Values{"username": {username}, "password": {testPassword}})
	require.Equal(e.t, http.StatusSeeOther, res.status, res.body)
	return c, p
}

func TestNewRequiresDependencies(t *testing.T) {
	s, err := store.New(":memory:")
	require.NoError(t, err)
	defer s.Close()
	catalog, err := appI18n.New("en")
	require.NoError(t, err)

	_, err = New(nil, &fakeExams{}, &fakeTutor{}, catalog, model.AppConfig{})
	assert.Error(t, err)
	_, err = New(s, nil, &fakeTutor{}, catalog, model.AppConfig{})
	assert.Error(t, err)
	_, err = New(s, &fakeExams{}, nil, catalog, model.AppConfig{})
	assert.Error(t, err)
	_, err = New(s, &fakeExams{}, &fakeTutor{}, nil, model.AppConfig{})
	assert.Error(t, err)
}

func TestLoginRequired(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient()

	for _, path := range []string{"/", "/tutor", "/exam", "/onboarding", "/admin/accounts"} {
		res := c.get(path)
		assert.Equal(t, http.StatusSeeOther, res.status, path)
		assert.Equal(t, "/login", res.location, path)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.createAccount("ravi", false)
	c := env.newClient()

	res := c.post("/login", url.Values{"username": {"ravi"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Contains(t, res.body, "Invalid username or password")

	res = c.post("/login", url.Values{"username": {"ravi"}, "password": {testPassword}})
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.NotEmpty(t, c.cookie(sessionCookieName))

	// No profile yet.
	res = c.get("/")
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/onboarding", res.location)

	res = c.post("/logout", url.Values{})
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/login", c.get("/").location)
}

func TestCSRF(t *testing.T) {
	env := newTestEnv(t)
	env.createAccount("ravi", false)
	c := env.newClient()

	form := url.Values{"username": {"ravi"}, "password": {testPassword}}
	req, err := http.NewRequest(http.MethodPost, c.base.String()+"/login", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusForbidden, c.do(req).status, "no cookie")

	c.csrf()
	form.Set("csrf_token", "forged")
	req, err = http.NewRequest(http.MethodPost, c.base.String()+"/login", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusForbidden, c.do(req).status, "wrong token")
}

func TestRegisterAndOnboarding(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient()

	res := c.post("/register", url.Values{"username": {"asha"}, "password": {testPassword}, "confirm": {"different"}})
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body, "Passwords do not match")

	res = c.post("/register", url.Values{"username": {"asha"}, "password": {testPassword}, "confirm": {testPassword}})
	require.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/onboarding", res.location)

	res = c.get("/onboarding")
	require.Equal(t, http.StatusOK, res.status)
	assert.NotContains(t, res.body, `value="schoolAdmin"`, "regular accounts cannot pick the admin role")

	res = c.post("/onboarding", url.Values{"name": {"Asha"}, "email": {"asha@example.com"}, "role": {"student"}})
	require.Equal(t, http.StatusSeeOther, res.status, res.body)

	res = c.get("/")
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "Welcome, Asha")
	assert.Contains(t, res.body, "0 sessions completed")

	assert.Equal(t, "/", c.get("/onboarding").location)

	// A second profile for the same principal is refused.
	res = c.post("/onboarding", url.Values{"name": {"Asha"}, "email": {"other@example.com"}, "role": {"student"}})
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body, "A profile already exists for your account. Please refresh the page.")

	c2 := env.newClient()
	c2.post("/register", url.Values{"username": {"asha2"}, "password": {testPassword}, "confirm": {testPassword}})
	res = c2.post("/register", url.Values{"username": {"asha2"}, "password": {testPassword}, "confirm": {testPassword}})
	assert.Contains(t, res.body, "Username already taken")
}

func TestOnboardingErrors(t *testing.T) {
	env := newTestEnv(t)
	env.signIn("taken", false, model.RoleParent)
	c, _ := env.signIn("newbie", false, "")

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{
			"duplicate email",
			url.Values{"name": {"New"}, "email": {"TAKEN@example.com"}, "role": {"student"}},
			"Email already registered",
		},
		{
			"school admin needs admin account",
			url.Values{"name": {"New"}, "email": {"new@example.com"}, "role": {"schoolAdmin"}},
			"You do not have permission to create this type of profile. Please contact an administrator.",
		},
		{
			"invalid email",
			url.Values{"name": {"New"}, "email": {"nope"}, "role": {"student"}},
			"Invalid profile information. Please check your inputs and try again.",
		},
		{
			"unknown school",
			url.Values{"name": {"New"}, "email": {"new@example.com"}, "role": {"student"}, "school_id": {"99"}},
			"Invalid profile information. Please check your inputs and try again.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.post("/onboarding", tt.form)
			assert.Equal(t, http.StatusUnprocessableEntity, res.status)
			assert.Contains(t, res.body, tt.want)
		})
	}
}

func TestOnboardingSchoolAdminForAdminAccount(t *testing.T) {
	env := newTestEnv(t)
	c, _ := env.signIn("root", true, "")

	res := c.post("/onboarding", url.Values{"name": {"Principal Rao"}, "email": {"rao@example.com"}, "role": {"schoolAdmin"}})
	require.Equal(t, http.StatusSeeOther, res.status, res.body)

	res = c.get("/")
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "Add school")
}

func TestMapProfileCreationError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{store.ErrEmailRegistered, "Email already registered"},
		{store.ErrProfileExists, "A profile already exists for your account. Please refresh the page."},
		{errors.New("Only authenticated users can create user profiles"), "You must be logged in to create a profile. Please log in and try again."},
		{errProfilePermission, "You do not have permission to create this type of profile. Please contact an administrator."},
		{errors.New("Unauthorized: Can only create your own profile"), "You can only create a profile for yourself."},
		{errors.New("Unauthorized"), "Unauthorized"},
		{store.ErrInvalidProfile, "Invalid profile information. Please check your inputs and try again."},
		{errors.New("School is full"), "School is full"},
		{errors.New("insert profile: sqlite: disk I/O error"), profileCreateFallback},
		{errors.New("Database is locked"), profileCreateFallback},
		{errors.New("bad principal"), profileCreateFallback},
		{errors.New(strings.Repeat("x", 200)), profileCreateFallback},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mapProfileCreationError(tt.err), tt.err.Error())
	}
}

func TestRoleGating(t *testing.T) {
	env := newTestEnv(t)
	student, _ := env.signIn("stu", false, model.RoleStudent)
	teacher, _ := env.signIn("tea", false, model.RoleTeacher)
	parent, _ := env.signIn("par", false, model.RoleParent)
	admin, _ := env.signIn("adm", true, model.RoleSchoolAdmin)

	tests := []struct {
		name   string
		c      *client
		method string
		path   string
		want   int
	}{
		{"student tutor", student, http.MethodGet, "/tutor", http.StatusOK},
		{"student exam", student, http.MethodGet, "/exam", http.StatusForbidden},
		{"teacher exam", teacher, http.MethodGet, "/exam", http.StatusOK},
		{"teacher tutor", teacher, http.MethodGet, "/tutor", http.StatusForbidden},
		{"parent exam", parent, http.MethodGet, "/exam", http.StatusForbidden},
		{"admin exam", admin, http.MethodGet, "/exam", http.StatusOK},
		{"teacher create school", teacher, http.MethodPost, "/admin/schools", http.StatusForbidden},
		{"admin create school", admin, http.MethodPost, "/admin/schools", http.StatusSeeOther},
		{"student accounts", student, http.MethodGet, "/admin/accounts", http.StatusForbidden},
		{"admin accounts", admin, http.MethodGet, "/admin/accounts", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res response
			if tt.method == http.MethodGet {
				res = tt.c.get(tt.path)
			} else {
				res = tt.c.post(tt.path, url.Values{"name": {"Green Valley School"}})
			}
			assert.Equal(t, tt.want, res.status)
		})
	}
}

func TestSchoolAdminActions(t *testing.T) {
	env := newTestEnv(t)
	admin, _ := env.signIn("adm", true, model.RoleSchoolAdmin)
	_, parent := env.signIn("par", false, model.RoleParent)
	_, student := env.signIn("stu", false, model.RoleStudent)

	res := admin.post("/admin/schools", url.Values{"name": {"Green Valley"}, "address": {"Pune"}})
	require.Equal(t, http.StatusSeeOther, res.status)
	schools, err := env.store.ListSchools()
	require.NoError(t, err)
	require.Len(t, schools, 1)

	res = admin.post("/admin/schools/"+itoa(schools[0].ID)+"/groups", url.Values{"name": {"7-A"}, "grade_level": {"7"}})
	require.Equal(t, http.StatusSeeOther, res.status)

	res = admin.get("/")
	assert.Contains(t, res.body, "Group created")
	assert.Contains(t, res.body, "Green Valley")
	assert.Contains(t, res.body, "7-A")

	res = admin.post("/admin/schools/"+itoa(schools[0].ID)+"/groups", url.Values{"name": {"X"}, "grade_level": {"13"}})
	require.Equal(t, http.StatusSeeOther, res.status)
	assert.Contains(t, admin.get("/").body, "grade level must be between 1 and 12")

	res = admin.post("/admin/links", url.Values{"parent_id": {itoa(parent.ID)}, "student_id": {itoa(student.ID)}})
	require.Equal(t, http.StatusSeeOther, res.status)
	ok, err := env.store.IsParentOf(parent.ID, student.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	res = admin.post("/admin/links", url.Values{"parent_id": {itoa(student.ID)}, "student_id": {itoa(parent.ID)}})
	require.Equal(t, http.StatusSeeOther, res.status)
	assert.Contains(t, admin.get("/").body, "Invalid parent link")
}

func TestListGroups(t *testing.T) {
	env := newTestEnv(t)
	c, _ := env.signIn("newbie", false, "")

	schoolID, err := env.store.CreateSchool("Green Valley", "", "")
	require.NoError(t, err)

	res := c.get("/api/schools/" + itoa(schoolID) + "/groups")
	require.Equal(t, http.StatusOK, res.status)
	assert.JSONEq(t, `[]`, res.body)

	_, err = env.store.CreateGroup(schoolID, "8-B", 8)
	require.NoError(t, err)
	res = c.get("/api/schools/" + itoa(schoolID) + "/groups")
	var groups []model.StudentGroup
	require.NoError(t, json.Unmarshal([]byte(res.body), &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, "8-B", groups[0].Name)
	assert.Equal(t, 8, groups[0].GradeLevel)

	assert.Equal(t, http.StatusBadRequest, c.get("/api/schools/abc/groups").status)
}

func TestParentDashboard(t *testing.T) {
	env := newTestEnv(t)
	parentClient, parent := env.signIn("par", false, model.RoleParent)
	_, linked := env.signIn("kid", false, model.RoleStudent)
	_, other := env.signIn("stranger", false, model.RoleStudent)
	require.NoError(t, env.store.LinkParentToStudent(parent.ID, linked.ID))

	_, err := env.store.RecordTutoringSession(model.TutoringSession{
		StudentID: linked.ID, Subject: "Science", Topic: "Light", UnderstandingScore: 4,
	})
	require.NoError(t, err)

	res := parentClient.get("/")
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "Progress of kid")
	assert.Contains(t, res.body, "Light")
	assert.Contains(t, res.body, "Not evaluated")

	res = parentClient.get("/?student=" + itoa(other.ID))
	assert.Equal(t, http.StatusForbidden, res.status)
}

func TestTutorAskAndSave(t *testing.T) {
	env := newTestEnv(t)
	c, student := env.signIn("stu", false, model.RoleStudent)

	fields := map[string]string{
		"grade": "8", "subject": "Science", "topic": "Photosynthesis",
		"question": "Why are leaves green?", "language": "hindi",
	}
	res := c.postMultipart("/tutor", fields, "notes.txt", []byte("Chlorophyll absorbs red and blue light."))
	require.Equal(t, http.StatusOK, res.status, res.body)
	assert.Contains(t, res.body, "Plants turn light into chemical energy.")

	require.Equal(t, 1, env.tutor.calls)
	assert.Equal(t, 8, env.tutor.last.Grade)
	assert.Equal(t, "hindi", env.tutor.last.Language)
	assert.Equal(t, "notes.txt", env.tutor.last.Attachment.Name)
	assert.Contains(t, env.tutor.last.Attachment.Text, "Chlorophyll")

	account, err := env.store.GetAccountByUsername("stu")
	require.NoError(t, err)
	pref, err := env.store.GetPreference(account.Principal, store.PrefExplanationLanguage)
	require.NoError(t, err)
	assert.Equal(t, "hindi", pref)

	res = c.get("/tutor")
	assert.Contains(t, res.body, `value="hindi" selected`)

	res = c.post("/tutor/session", url.Values{
		"subject": {"Science"}, "topic": {"Photosynthesis"}, "understanding_score": {"4"}, "correctness_score": {"90"},
	})
	require.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/", res.location)

	sessions, err := env.store.ListStudentProgress(student.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.NotNil(t, sessions[0].CorrectnessScore)
	assert.Equal(t, 90, *sessions[0].CorrectnessScore)

	res = c.get("/")
	assert.Contains(t, res.body, "Session saved")
	assert.Contains(t, res.body, "1 session completed")
}

func TestTutorRejects(t *testing.T) {
	env := newTestEnv(t)
	c, _ := env.signIn("stu", false, model.RoleStudent)

	valid := func() map[string]string {
		return map[string]string{"grade": "8", "subject": "Science", "question": "Why?"}
	}

	res := c.postMultipart("/tutor", valid(), "photo.png", []byte("\x89PNG\r\n\x1a\n\x00\x00"))
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body, "Only plain text attachments are supported")

	f := valid()
	f["grade"] = "0"
	res = c.postMultipart("/tutor", f, "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body, "grade must be at least 1")
	assert.Equal(t, 0, env.tutor.calls)

	env.tutor.err = llm.NewFailure(llm.KindTransportFailure, "LLM API error: service unavailable")
	res = c.postMultipart("/tutor", valid(), "", nil)
	assert.Equal(t, http.StatusBadGateway, res.status)
	assert.Contains(t, res.body, "LLM API error: service unavailable")

	res = c.post("/tutor/session", url.Values{"subject": {"Science"}, "understanding_score": {"9"}})
	require.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/tutor", res.location)
	assert.Contains(t, c.get("/tutor").body, "understanding score must be between 1 and 5")
}

func testPaper() *exam.PaperResponse {
	return &exam.PaperResponse{ExamPaper: exam.Paper{
		Metadata: exam.Metadata{
			Title: "Class 7 Science Unit Test", Board: "CBSE", Grade: 7, Subject: "Science",
			Duration: 60, TotalMarks: 3, Instructions: "Answer all questions.",
		},
		Questions: []exam.Question{
			{
				ID: "Q1", Type: exam.QuestionMCQ, Difficulty: exam.DifficultyEasy, Marks: 1,
				Chapter: "Light", Topic: "Reflection", QuestionText: "Which surface reflects best?",
				Options: []string{"Mirror", "Wood", "Cloth", "Paper"}, CorrectAnswer: "Mirror",
			},
			{
				ID: "Q2", Type: exam.QuestionShortAnswer, Difficulty: exam.DifficultyHard, Marks: 2,
				Chapter: "Light", Topic: "Refraction", QuestionText: "Explain why a straw looks bent in water.",
			},
		},
	}}
}

func TestExamGeneration(t *testing.T) {
	env := newTestEnv(t)
	c, _ := env.signIn("tea", false, model.RoleTeacher)

	form := func() url.Values {
		return url.Values{
			"board": {"CBSE"}, "grade": {"7"}, "subject": {"Science"},
			"chapters": {"Light, , Motion"}, "topics": {""},
			"duration": {"60"}, "total_marks": {"3"}, "difficulty": {""},
		}
	}

	env.exams.result = exam.Result{Success: true, Data: testPaper()}
	res := c.post("/exam", form())
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "Class 7 Science Unit Test")
	assert.Contains(t, res.body, "Which surface reflects best?")
	assert.Contains(t, res.body, "Easy: 1, Medium: 0, Hard: 1")

	require.Equal(t, 1, env.exams.calls)
	assert.Equal(t, exam.BoardCBSE, env.exams.last.Board)
	assert.Equal(t, []string{"Light", "Motion"}, env.exams.last.Chapters)
	assert.Empty(t, env.exams.last.Topics)
	assert.Equal(t, exam.DefaultDifficultyTarget, env.exams.last.DifficultyTarget)
	assert.False(t, env.exams.last.Timestamp.IsZero())

	f := &llm.Failure{
		Kind:        llm.KindMarksMismatch,
		Message:     "Marks validation failed: Questions sum to 5 but metadata specifies 3",
		RawResponse: "raw model output here",
	}
	env.exams.result = exam.Result{Err: f}
	res = c.post("/exam", form())
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "Exam generation failed")
	assert.Contains(t, res.body, f.Message)
	assert.Contains(t, res.body, "<details>")
	assert.Contains(t, res.body, "raw model output here")

	bad := form()
	bad.Set("grade", "13")
	res = c.post("/exam", bad)
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body, "grade must be at most 12")
	assert.Equal(t, 2, env.exams.calls, "invalid requests never reach the generator")
}

func TestAdminAccounts(t *testing.T) {
	env := newTestEnv(t)
	admin, _ := env.signIn("root", true, "")
	target := env.createAccount("target", false)

	res := admin.post("/admin/accounts", url.Values{"username": {"teacher1"}, "password": {testPassword}})
	require.Equal(t, http.StatusSeeOther, res.status)
	created, err := env.store.GetAccountByUsername("teacher1")
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.False(t, created.IsAdmin)

	res = admin.post("/admin/accounts/"+itoa(target.ID)+"/toggle", url.Values{})
	require.Equal(t, http.StatusSeeOther, res.status)
	got, err := env.store.GetAccountByID(target.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	res = admin.get("/admin/accounts")
	assert.Contains(t, res.body, "Account updated")
	assert.Contains(t, res.body, "target")

	res = admin.post("/admin/accounts/9999/toggle", url.Values{})
	assert.Equal(t, http.StatusNotFound, res.status)
}

func TestLanguageSwitch(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient()

	assert.Contains(t, c.get("/login").body, "Sign in")

	res := c.post("/lang", url.Values{"lang": {"hi"}})
	require.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "hi", c.cookie(appI18n.CookieName))
	assert.Contains(t, c.get("/login").body, "साइन इन करें")

	c.post("/lang", url.Values{"lang": {"xx"}})
	assert.Equal(t, "hi", c.cookie(appI18n.CookieName), "unsupported languages are ignored")
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
