// Package views holds the templ components for every page and the data they render.
package views

import (
	"github.com/pavelanni/vidya/internal/exam"
	"github.com/pavelanni/vidya/internal/model"
	"github.com/pavelanni/vidya/internal/tutor"
)

// UILanguages are the languages offered by the language switcher.
var UILanguages = []string{"en", "hi"}

// Flash is a one-shot notice shown at the top of a page.
type Flash struct {
	Kind    string // "success" or "error"
	Message string
}

// AuthData backs the login and registration pages.
type AuthData struct {
	Username string
	Error    string
}

// OnboardingForm holds submitted profile fields.
type OnboardingForm struct {
	Name     string
	Email    string
	Role     model.ProfileRole
	SchoolID int64
	GroupID  int64
}

// OnboardingData backs the profile creation page.
type OnboardingData struct {
	Form    OnboardingForm
	Roles   []model.ProfileRole
	Schools []model.School
	Groups  []model.StudentGroup
	Error   string
}

// StudentDashboardData backs the student home page.
type StudentDashboardData struct {
	Profile  model.Profile
	Sessions []model.TutoringSession
	Summary  model.WeeklySummary
}

// ParentDashboardData backs the parent home page.
type ParentDashboardData struct {
	Profile  model.Profile
	Students []model.Profile
	Selected *model.Profile
	Sessions []model.TutoringSession
	Summary  model.WeeklySummary
}

// SchoolView is a school with its groups.
type SchoolView struct {
	model.School
	Groups []model.StudentGroup
}

// StaffDashboardData backs the teacher and school admin home page.
type StaffDashboardData struct {
	Profile   model.Profile
	Schools   []SchoolView
	Parents   []model.Profile
	Students  []model.Profile
	CanManage bool
}

// TutorForm holds the submitted question.
type TutorForm struct {
	Grade          int
	Subject        string
	Topic          string
	Question       string
	Language       string
	AttachmentName string
}

// TutorData backs the tutor page.
type TutorData struct {
	Form      TutorForm
	Languages []tutor.Language
	Answer    string
	Error     string
}

// ExamForm holds the submitted generation parameters as typed by the user.
type ExamForm struct {
	Board      string
	Grade      int
	Subject    string
	Chapters   string
	Topics     string
	Duration   int
	TotalMarks int
	Difficulty string
}

// ExamData backs the exam generator page. Failure carries the user message
// and the raw model output for the debug panel.
type ExamData struct {
	Form    ExamForm
	Boards  []exam.Board
	Error   string
	Paper   *exam.Paper
	Failure *FailureView
}

// FailureView is a generation failure as shown to the user.
type FailureView struct {
	Kind        string
	Message     string
	RawResponse string
}
