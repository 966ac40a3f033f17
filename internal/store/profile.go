package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pavelanni/vidya/internal/model"
	"github.com/pavelanni/vidya/internal/validate"
)

const profileColumns = `id, principal, name, email, role, school_id, group_id, created_at`

type profileFields struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email,max=254"`
}

// checkProfile normalizes p and verifies its fields and references.
func (s *Store) checkProfile(p *model.Profile) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	if err := validate.Struct(profileFields{Name: p.Name, Email: p.Email}); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidProfile, err)
	}
	if !p.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidProfile, p.Role)
	}
	if p.GroupID != nil && p.SchoolID == nil {
		return fmt.Errorf("%w: a group needs a school", ErrInvalidProfile)
	}
	if p.SchoolID != nil {
		if _, err := s.GetSchool(*p.SchoolID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: unknown school", ErrInvalidProfile)
			}
			return err
		}
	}
	if p.GroupID != nil {
		g, err := s.GetGroup(*p.GroupID)
		if errors.Is(err, ErrNotFound) || (err == nil && g.SchoolID != *p.SchoolID) {
			return fmt.Errorf("%w: group does not belong to the school", ErrInvalidProfile)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// CreateProfile stores the profile of a principal. A principal has at most
// one profile and emails are unique regardless of case.
func (s *Store) CreateProfile(p model.Profile) (int64, error) {
	if strings.TrimSpace(p.Principal) == "" {
		return 0, fmt.Errorf("%w: missing owner", ErrInvalidProfile)
	}
	if err := s.checkProfile(&p); err != nil {
		return 0, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM profiles WHERE principal = ?`, p.Principal).Scan(&exists); err != nil {
		return 0, err
	}
	if exists > 0 {
		return 0, ErrProfileExists
	}
	if err := tx.QueryRow(`SELECT COUNT(*) FROM profiles WHERE email = ?`, p.Email).Scan(&exists); err != nil {
		return 0, err
	}
	if exists > 0 {
		return 0, ErrEmailRegistered
	}

	res, err := tx.Exec(
		`INSERT INTO profiles (principal, name, email, role, school_id, group_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Principal, p.Name, p.Email, p.Role, nullableID(p.SchoolID), nullableID(p.GroupID), s.now(),
	)
	switch {
	case uniqueViolation(err, "profiles.email"):
		return 0, ErrEmailRegistered
	case uniqueViolation(err, "profiles.principal"):
		return 0, ErrProfileExists
	case err != nil:
		return 0, fmt.Errorf("insert profile: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// UpdateProfile saves the caller's own profile. The role is fixed at creation.
func (s *Store) UpdateProfile(p model.Profile) error {
	current, err := s.GetProfileByPrincipal(p.Principal)
	if err != nil {
		return err
	}
	p.Role = current.Role
	if err := s.checkProfile(&p); err != nil {
		return err
	}

	var taken int
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM profiles WHERE email = ? AND id <> ?`, p.Email, current.ID,
	).Scan(&taken); err != nil {
		return err
	}
	if taken > 0 {
		return ErrEmailRegistered
	}

	_, err = s.db.Exec(
		`UPDATE profiles SET name = ?, email = ?, school_id = ?, group_id = ? WHERE id = ?`,
		p.Name, p.Email, nullableID(p.SchoolID), nullableID(p.GroupID), current.ID,
	)
	if uniqueViolation(err, "profiles.email") {
		return ErrEmailRegistered
	}
	return err
}

func scanProfile(row interface{ Scan(...any) error }) (model.Profile, error) {
	var p model.Profile
	var schoolID, groupID sql.NullInt64
	err := row.Scan(&p.ID, &p.Principal, &p.Name, &p.Email, &p.Role, &schoolID, &groupID, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	if schoolID.Valid {
		p.SchoolID = &schoolID.Int64
	}
	if groupID.Valid {
		p.GroupID = &groupID.Int64
	}
	return p, nil
}

// GetProfile returns a profile by ID.
func (s *Store) GetProfile(id int64) (model.Profile, error) {
	return scanProfile(s.db.QueryRow(`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id))
}

// GetProfileByPrincipal returns the profile owned by principal.
func (s *Store) GetProfileByPrincipal(principal string) (model.Profile, error) {
	return scanProfile(s.db.QueryRow(`SELECT `+profileColumns+` FROM profiles WHERE principal = ?`, principal))
}

func (s *Store) queryProfiles(query string, args ...any) ([]model.Profile, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var profiles []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// ListProfilesByRole returns all profiles with the given role ordered by name.
func (s *Store) ListProfilesByRole(role model.ProfileRole) ([]model.Profile, error) {
	return s.queryProfiles(`SELECT `+profileColumns+` FROM profiles WHERE role = ? ORDER BY name, id`, role)
}

// LinkParentToStudent lets a parent follow a student's progress. Linking
// twice is a no-op.
func (s *Store) LinkParentToStudent(parentID, studentID int64) error {
	parent, err := s.GetProfile(parentID)
	if err != nil {
		return fmt.Errorf("%w: parent: %w", ErrInvalidLink, err)
	}
	if parent.Role != model.RoleParent {
		return fmt.Errorf("%w: profile %d is not a parent", ErrInvalidLink, parentID)
	}
	student, err := s.GetProfile(studentID)
	if err != nil {
		return fmt.Errorf("%w: student: %w", ErrInvalidLink, err)
	}
	if student.Role != model.RoleStudent {
		return fmt.Errorf("%w: profile %d is not a student", ErrInvalidLink, studentID)
	}
	_, err = s.db.Exec(
		`INSERT INTO parent_links (parent_id, student_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		parentID, studentID,
	)
	return err
}

// ListStudentsByParent returns the students linked to a parent.
func (s *Store) ListStudentsByParent(parentID int64) ([]model.Profile, error) {
	return s.queryProfiles(
		`SELECT p.id, p.principal, p.name, p.email, p.role, p.school_id, p.group_id, p.created_at
		 FROM profiles p JOIN parent_links l ON l.student_id = p.id
		 WHERE l.parent_id = ? ORDER BY p.name, p.id`, parentID)
}

// IsParentOf reports whether the student is linked to the parent.
func (s *Store) IsParentOf(parentID, studentID int64) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM parent_links WHERE parent_id = ? AND student_id = ?`, parentID, studentID,
	).Scan(&n)
	return n > 0, err
}
