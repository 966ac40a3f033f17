package store

import (
	"errors"
	"testing"
	"time"

	"github.com/pavelanni/vidya/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func intPtr(n int) *int { return &n }
func idPtr(n int64) *int64 { return &n }

func createTestProfile(t *testing.T, s *Store, principal, email string, role model.ProfileRole) int64 {
	t.Helper()
	id, err := s.CreateProfile(model.Profile{
		Principal: principal,
		Name:      "Name " + principal,
		Email:     email,
		Role:      role,
	})
	if err != nil {
		t.Fatalf("createTestProfile(%s): %v", principal, err)
	}
	return id
}

func TestAccounts(t *testing.T) {
	s := newTestStore(t)

	count, err := s.AccountCount()
	if err != nil || count != 0 {
		t.Fatalf("AccountCount = %d, %v; want 0", count, err)
	}

	id, err := s.CreateAccount(model.Account{Username: " asha ", PasswordHash: "x", Active: true})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	a, err := s.GetAccountByUsername("asha")
	if err != nil || a == nil {
		t.Fatalf("GetAccountByUsername: %v, %v", a, err)
	}
	if a.ID != id || a.Principal == "" || !a.Active || a.IsAdmin {
		t.Errorf("unexpected account %+v", a)
	}

	if _, err := s.CreateAccount(model.Account{Username: "asha", PasswordHash: "y"}); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("duplicate username: got %v, want ErrUsernameTaken", err)
	}

	missing, err := s.GetAccountByID(999)
	if err != nil || missing != nil {
		t.Errorf("GetAccountByID(999) = %v, %v; want nil, nil", missing, err)
	}

	token, err := s.CreateAuthSession(id)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	if err := s.ToggleAccountActive(id); err != nil {
		t.Fatalf("ToggleAccountActive: %v", err)
	}
	a, _ = s.GetAccountByID(id)
	if a.Active {
		t.Error("account should be inactive after toggle")
	}
	if sess, _ := s.GetAuthSession(token); sess != nil {
		t.Error("disabling an account should end its sessions")
	}
	if err := s.ToggleAccountActive(999); !errors.Is(err, ErrNotFound) {
		t.Errorf("toggle missing account: got %v", err)
	}
}

func TestAuthSessionExpiry(t *testing.T) {
	s := newTestStore(t)
	id, err := s.CreateAccount(model.Account{Username: "u", PasswordHash: "x", Active: true})
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	s.now = func() time.Time { return now }
	token, err := s.CreateAuthSession(id)
	if err != nil {
		t.Fatal(err)
	}
	sess, err := s.GetAuthSession(token)
	if err != nil || sess == nil || sess.AccountID != id {
		t.Fatalf("GetAuthSession = %v, %v", sess, err)
	}

	// Past the halfway mark the session is extended rather than left to lapse.
	s.now = func() time.Time { return now.Add(20 * time.Hour) }
	sess, err = s.GetAuthSession(token)
	if err != nil || sess == nil {
		t.Fatalf("GetAuthSession after 20h = %v, %v", sess, err)
	}
	if want := now.Add(44 * time.Hour); !sess.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", sess.ExpiresAt, want)
	}

	s.now = func() time.Time { return now.Add(45 * time.Hour) }
	n, err := s.CleanupExpiredSessions()
	if err != nil || n != 1 {
		t.Errorf("CleanupExpiredSessions = %d, %v; want 1", n, err)
	}
	if sess, _ := s.GetAuthSession(token); sess != nil {
		t.Error("expired session still returned")
	}
}

func TestSchoolsAndGroups(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.CreateSchool("  ", "", ""); !errors.Is(err, ErrInvalidSchool) {
		t.Errorf("blank school name: got %v", err)
	}

	dps, err := s.CreateSchool("Delhi Public School", "Mathura Road", "office@dps.example")
	if err != nil {
		t.Fatalf("CreateSchool: %v", err)
	}
	if _, err := s.CreateSchool("Army Public School", "", ""); err != nil {
		t.Fatalf("CreateSchool: %v", err)
	}

	schools, err := s.ListSchools()
	if err != nil || len(schools) != 2 {
		t.Fatalf("ListSchools = %v, %v", schools, err)
	}
	if schools[0].Name != "Army Public School" {
		t.Errorf("schools should be sorted by name, got %q first", schools[0].Name)
	}

	if _, err := s.CreateGroup(dps, "10-B", 10); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if _, err := s.CreateGroup(dps, "7-A", 7); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if _, err := s.CreateGroup(dps, "X", 13); !errors.Is(err, ErrInvalidSchool) {
		t.Errorf("grade 13: got %v", err)
	}
	if _, err := s.CreateGroup(999, "X", 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown school: got %v", err)
	}

	groups, err := s.ListGroupsBySchool(dps)
	if err != nil || len(groups) != 2 {
		t.Fatalf("ListGroupsBySchool = %v, %v", groups, err)
	}
	if groups[0].GradeLevel != 7 {
		t.Errorf("groups should be sorted by grade, got %d first", groups[0].GradeLevel)
	}
}

func TestCreateProfile(t *testing.T) {
	s := newTestStore(t)
	school, _ := s.CreateSchool("KV", "", "")
	other, _ := s.CreateSchool("DAV", "", "")
	group, _ := s.CreateGroup(school, "5-A", 5)

	createTestProfile(t, s, "p1", "Asha@Example.com", model.RoleStudent)

	tests := []struct {
		name    string
		profile model.Profile
		wantErr error
	}{
		{"valid with school and group", model.Profile{Principal: "p2", Name: "Ravi", Email: "ravi@example.com",
			Role: model.RoleStudent, SchoolID: idPtr(school), GroupID: idPtr(group)}, nil},
		{"same principal", model.Profile{Principal: "p1", Name: "X", Email: "x@example.com", Role: model.RoleParent}, ErrProfileExists},
		{"email differs only in case", model.Profile{Principal: "p3", Name: "X", Email: "asha@example.COM", Role: model.RoleParent}, ErrEmailRegistered},
		{"bad email", model.Profile{Principal: "p4", Name: "X", Email: "not-an-email", Role: model.RoleParent}, ErrInvalidProfile},
		{"blank name", model.Profile{Principal: "p5", Name: "  ", Email: "p5@example.com", Role: model.RoleParent}, ErrInvalidProfile},
		{"unknown role", model.Profile{Principal: "p6", Name: "X", Email: "p6@example.com", Role: "principal"}, ErrInvalidProfile},
		{"group without school", model.Profile{Principal: "p7", Name: "X", Email: "p7@example.com", Role: model.RoleStudent, GroupID: idPtr(group)}, ErrInvalidProfile},
		{"group of another school", model.Profile{Principal: "p8", Name: "X", Email: "p8@example.com", Role: model.RoleStudent,
			SchoolID: idPtr(other), GroupID: idPtr(group)}, ErrInvalidProfile},
		{"unknown school", model.Profile{Principal: "p9", Name: "X", Email: "p9@example.com", Role: model.RoleTeacher, SchoolID: idPtr(999)}, ErrInvalidProfile},
		{"no principal", model.Profile{Name: "X", Email: "p10@example.com", Role: model.RoleTeacher}, ErrInvalidProfile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateProfile(tt.profile)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateProfile: got %v, want %v", err, tt.wantErr)
			}
		})
	}

	p, err := s.GetProfileByPrincipal("p2")
	if err != nil {
		t.Fatalf("GetProfileByPrincipal: %v", err)
	}
	if p.SchoolID == nil || *p.SchoolID != school || p.GroupID == nil || *p.GroupID != group {
		t.Errorf("school/group not stored: %+v", p)
	}
	if _, err := s.GetProfileByPrincipal("nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing profile: got %v", err)
	}
}

func TestErrorTextIsDisplayable(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrNotFound, "Not found"},
		{ErrEmailRegistered, "Email already registered"},
		{ErrProfileExists, "Profile already exists for this principal"},
		{ErrInvalidProfile, "Invalid profile"},
		{ErrInvalidLink, "Invalid parent link"},
		{ErrInvalidSession, "Invalid tutoring session"},
		{ErrInvalidSchool, "Invalid school"},
		{ErrUsernameTaken, "Username already taken"},
	}
	for _, tt := range tests {
		if tt.err.Error() != tt.want {
			t.Errorf("error text changed: got %q, want %q", tt.err, tt.want)
		}
	}
}

func TestUpdateProfile(t *testing.T) {
	s := newTestStore(t)
	createTestProfile(t, s, "a", "a@example.com", model.RoleTeacher)
	createTestProfile(t, s, "b", "b@example.com", model.RoleTeacher)

	err := s.UpdateProfile(model.Profile{Principal: "a", Name: "Anita", Email: "anita@example.com", Role: model.RoleStudent})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	p, _ := s.GetProfileByPrincipal("a")
	if p.Name != "Anita" || p.Email != "anita@example.com" {
		t.Errorf("profile not updated: %+v", p)
	}
	if p.Role != model.RoleTeacher {
		t.Errorf("role must not change, got %q", p.Role)
	}

	if err := s.UpdateProfile(model.Profile{Principal: "a", Name: "Anita", Email: "B@example.com"}); !errors.Is(err, ErrEmailRegistered) {
		t.Errorf("taken email: got %v", err)
	}
	if err := s.UpdateProfile(model.Profile{Principal: "a", Name: "Anita", Email: "ANITA@example.com"}); err != nil {
		t.Errorf("own email in another case: %v", err)
	}
	if err := s.UpdateProfile(model.Profile{Principal: "zzz", Name: "Z", Email: "z@example.com"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing principal: got %v", err)
	}
}

func TestParentLinks(t *testing.T) {
	s := newTestStore(t)
	parent := createTestProfile(t, s, "parent", "parent@example.com", model.RoleParent)
	kid1 := createTestProfile(t, s, "kid1", "kid1@example.com", model.RoleStudent)
	kid2 := createTestProfile(t, s, "kid2", "kid2@example.com", model.RoleStudent)
	teacher := createTestProfile(t, s, "teacher", "t@example.com", model.RoleTeacher)

	for _, kid := range []int64{kid1, kid2, kid1} {
		if err := s.LinkParentToStudent(parent, kid); err != nil {
			t.Fatalf("LinkParentToStudent(%d): %v", kid, err)
		}
	}
	kids, err := s.ListStudentsByParent(parent)
	if err != nil || len(kids) != 2 {
		t.Fatalf("ListStudentsByParent = %v, %v; want 2 students", kids, err)
	}

	if ok, _ := s.IsParentOf(parent, kid2); !ok {
		t.Error("IsParentOf(parent, kid2) = false")
	}
	if ok, _ := s.IsParentOf(teacher, kid2); ok {
		t.Error("IsParentOf(teacher, kid2) = true")
	}

	if err := s.LinkParentToStudent(teacher, kid1); !errors.Is(err, ErrInvalidLink) {
		t.Errorf("teacher as parent: got %v", err)
	}
	if err := s.LinkParentToStudent(parent, teacher); !errors.Is(err, ErrInvalidLink) {
		t.Errorf("teacher as student: got %v", err)
	}
	if err := s.LinkParentToStudent(parent, 999); !errors.Is(err, ErrInvalidLink) {
		t.Errorf("missing student: got %v", err)
	}
}

func TestTutoringSessions(t *testing.T) {
	s := newTestStore(t)
	student := createTestProfile(t, s, "kid", "kid@example.com", model.RoleStudent)
	parent := createTestProfile(t, s, "parent", "parent@example.com", model.RoleParent)

	invalid := []model.TutoringSession{
		{StudentID: student, Subject: "", UnderstandingScore: 3},
		{StudentID: student, Subject: "Maths", UnderstandingScore: 0},
		{StudentID: student, Subject: "Maths", UnderstandingScore: 6},
		{StudentID: student, Subject: "Maths", UnderstandingScore: 3, CorrectnessScore: intPtr(101)},
		{StudentID: parent, Subject: "Maths", UnderstandingScore: 3},
		{StudentID: 999, Subject: "Maths", UnderstandingScore: 3},
	}
	for i, ts := range invalid {
		if _, err := s.RecordTutoringSession(ts); !errors.Is(err, ErrInvalidSession) {
			t.Errorf("case %d: got %v, want ErrInvalidSession", i, err)
		}
	}

	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	record := func(ago time.Duration, understanding int, correctness *int) {
		t.Helper()
		_, err := s.RecordTutoringSession(model.TutoringSession{
			StudentID: student, Subject: "Maths", Topic: "Fractions",
			UnderstandingScore: understanding, CorrectnessScore: correctness,
			Timestamp: now.Add(-ago),
		})
		if err != nil {
			t.Fatalf("RecordTutoringSession: %v", err)
		}
	}
	record(10*24*time.Hour, 1, intPtr(0)) // outside the window
	record(3*24*time.Hour, 4, intPtr(80))
	record(2*24*time.Hour, 5, intPtr(91))
	record(time.Hour, 3, nil)

	progress, err := s.ListStudentProgress(student)
	if err != nil || len(progress) != 4 {
		t.Fatalf("ListStudentProgress = %d sessions, %v", len(progress), err)
	}
	if progress[0].CorrectnessScore != nil {
		t.Errorf("newest session should be first and unevaluated, got %+v", progress[0])
	}
	if !progress[0].Timestamp.Equal(now.Add(-time.Hour)) {
		t.Errorf("timestamp round trip: got %v", progress[0].Timestamp)
	}

	sum, err := s.WeeklyProgressSummary(student)
	if err != nil {
		t.Fatalf("WeeklyProgressSummary: %v", err)
	}
	want := model.WeeklySummary{AverageUnderstanding: 4, AverageCorrectness: 85, SessionsCompleted: 3}
	if sum != want {
		t.Errorf("WeeklyProgressSummary = %+v, want %+v", sum, want)
	}

	empty, err := s.WeeklyProgressSummary(parent)
	if err != nil || empty != (model.WeeklySummary{}) {
		t.Errorf("summary without sessions = %+v, %v", empty, err)
	}
}

func TestPreferences(t *testing.T) {
	s := newTestStore(t)

	v, err := s.GetPreference("p", PrefExplanationLanguage)
	if err != nil || v != "" {
		t.Fatalf("missing preference = %q, %v", v, err)
	}
	for _, lang := range []string{"hindi", "tamil"} {
		if err := s.SetPreference("p", PrefExplanationLanguage, lang); err != nil {
			t.Fatalf("SetPreference: %v", err)
		}
	}
	v, _ = s.GetPreference("p", PrefExplanationLanguage)
	if v != "tamil" {
		t.Errorf("preference = %q, want tamil", v)
	}
	if other, _ := s.GetPreference("q", PrefExplanationLanguage); other != "" {
		t.Errorf("preferences leak across principals: %q", other)
	}
}

func TestExportProgress(t *testing.T) {
	s := newTestStore(t)
	school, _ := s.CreateSchool("KV", "", "")
	group, _ := s.CreateGroup(school, "5-A", 5)
	id, err := s.CreateProfile(model.Profile{Principal: "k", Name: "Kiran", Email: "k@example.com",
		Role: model.RoleStudent, SchoolID: idPtr(school), GroupID: idPtr(group)})
	if err != nil {
		t.Fatal(err)
	}
	createTestProfile(t, s, "t", "t@example.com", model.RoleTeacher)
	if _, err := s.RecordTutoringSession(model.TutoringSession{StudentID: id, Subject: "Science", UnderstandingScore: 4}); err != nil {
		t.Fatal(err)
	}

	exp, err := s.ExportProgress()
	if err != nil {
		t.Fatalf("ExportProgress: %v", err)
	}
	if len(exp.Students) != 1 {
		t.Fatalf("expected only students in export, got %d", len(exp.Students))
	}
	st := exp.Students[0]
	if st.Name != "Kiran" || st.School != "KV" || st.Group != "5-A" {
		t.Errorf("unexpected export row %+v", st)
	}
	if len(st.Sessions) != 1 || st.Weekly.SessionsCompleted != 1 || st.Weekly.AverageUnderstanding != 4 {
		t.Errorf("sessions not exported: %+v", st)
	}
}
