package model

import (
	"context"
	"time"
)

// Account is a local login. Principal is the opaque identity profiles hang off.
type Account struct {
	ID           int64
	Principal    string
	Username     string
	PasswordHash string
	IsAdmin      bool
	Active       bool
	CreatedAt    time.Time
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	AccountID int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ProfileRole is what a person does in the application.
type ProfileRole string

const (
	RoleStudent     ProfileRole = "student"
	RoleParent      ProfileRole = "parent"
	RoleTeacher     ProfileRole = "teacher"
	RoleSchoolAdmin ProfileRole = "schoolAdmin"
)

// ProfileRoles lists the roles in display order.
var ProfileRoles = []ProfileRole{RoleStudent, RoleParent, RoleTeacher, RoleSchoolAdmin}

// Valid reports whether r is a known role.
func (r ProfileRole) Valid() bool {
	switch r {
	case RoleStudent, RoleParent, RoleTeacher, RoleSchoolAdmin:
		return true
	}
	return false
}

// Profile is the application identity of a principal.
type Profile struct {
	ID        int64       `json:"id"`
	Principal string      `json:"principal"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      ProfileRole `json:"role"`
	SchoolID  *int64      `json:"schoolId,omitempty"`
	GroupID   *int64      `json:"groupId,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// School is an institution students and staff belong to.
type School struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Address      string `json:"address"`
	ContactEmail string `json:"contactEmail"`
}

// StudentGroup is a class or section within a school.
type StudentGroup struct {
	ID         int64  `json:"id"`
	SchoolID   int64  `json:"schoolId"`
	Name       string `json:"name"`
	GradeLevel int    `json:"gradeLevel"`
}

// TutoringSession records one tutor interaction. CorrectnessScore is nil
// when the answer was never evaluated.
type TutoringSession struct {
	ID                 int64     `json:"id"`
	StudentID          int64     `json:"studentId"`
	Subject            string    `json:"subject"`
	Topic              string    `json:"topic"`
	UnderstandingScore int       `json:"understandingScore"`
	CorrectnessScore   *int      `json:"correctnessScore,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
}

// WeeklySummary aggregates a student's sessions over the last seven days.
// Averages are truncated integers; zero when there is nothing to average.
type WeeklySummary struct {
	AverageUnderstanding int `json:"averageUnderstanding"`
	AverageCorrectness   int `json:"averageCorrectness"`
	SessionsCompleted    int `json:"sessionsCompleted"`
}

// AppConfig holds runtime web settings set via CLI flags.
type AppConfig struct {
	BasePath      string // URL prefix for sub-path deployments (e.g. "/vidya")
	SecureCookies bool   // Set Secure flag on cookies (disable for local dev)
}

type accountCtxKey struct{}

// ContextWithAccount stores the signed-in account in the request context.
func ContextWithAccount(ctx context.Context, a *Account) context.Context {
	return context.WithValue(ctx, accountCtxKey{}, a)
}

// AccountFromContext retrieves the authenticated account from context, or nil.
func AccountFromContext(ctx context.Context) *Account {
	a, _ := ctx.Value(accountCtxKey{}).(*Account)
	return a
}

type profileCtxKey struct{}

// ContextWithProfile stores the caller's profile in context.
func ContextWithProfile(ctx context.Context, p *Profile) context.Context {
	return context.WithValue(ctx, profileCtxKey{}, p)
}

// ProfileFromContext retrieves the caller's profile, or nil.
func ProfileFromContext(ctx context.Context) *Profile {
	p, _ := ctx.Value(profileCtxKey{}).(*Profile)
	return p
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}
