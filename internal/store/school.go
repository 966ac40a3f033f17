package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/pavelanni/vidya/internal/model"
)

// CreateSchool stores a school and returns its ID.
func (s *Store) CreateSchool(name, address, contactEmail string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("%w: name is required", ErrInvalidSchool)
	}
	res, err := s.db.Exec(
		`INSERT INTO schools (name, address, contact_email) VALUES (?, ?, ?)`,
		name, strings.TrimSpace(address), strings.TrimSpace(contactEmail),
	)
	if err != nil {
		return 0, fmt.Errorf("insert school: %w", err)
	}
	return res.LastInsertId()
}

// ListSchools returns all schools ordered by name.
func (s *Store) ListSchools() ([]model.School, error) {
	rows, err := s.db.Query(`SELECT id, name, address, contact_email FROM schools ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var schools []model.School
	for rows.Next() {
		var sc model.School
		if err := rows.Scan(&sc.ID, &sc.Name, &sc.Address, &sc.ContactEmail); err != nil {
			return nil, err
		}
		schools = append(schools, sc)
	}
	return schools, rows.Err()
}

// GetSchool returns a school by ID.
func (s *Store) GetSchool(id int64) (model.School, error) {
	var sc model.School
	err := s.db.QueryRow(
		`SELECT id, name, address, contact_email FROM schools WHERE id = ?`, id,
	).Scan(&sc.ID, &sc.Name, &sc.Address, &sc.ContactEmail)
	if err == sql.ErrNoRows {
		return sc, ErrNotFound
	}
	return sc, err
}

// CreateGroup adds a student group to a school.
func (s *Store) CreateGroup(schoolID int64, name string, gradeLevel int) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("%w: group name is required", ErrInvalidSchool)
	}
	if gradeLevel < 1 || gradeLevel > 12 {
		return 0, fmt.Errorf("%w: grade level must be between 1 and 12", ErrInvalidSchool)
	}
	if _, err := s.GetSchool(schoolID); err != nil {
		return 0, err
	}
	res, err := s.db.Exec(
		`INSERT INTO student_groups (school_id, name, grade_level) VALUES (?, ?, ?)`,
		schoolID, name, gradeLevel,
	)
	if err != nil {
		return 0, fmt.Errorf("insert group: %w", err)
	}
	return res.LastInsertId()
}

// ListGroupsBySchool returns the groups of a school ordered by grade and name.
func (s *Store) ListGroupsBySchool(schoolID int64) ([]model.StudentGroup, error) {
	rows, err := s.db.Query(
		`SELECT id, school_id, name, grade_level FROM student_groups
		 WHERE school_id = ? ORDER BY grade_level, name`, schoolID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var groups []model.StudentGroup
	for rows.Next() {
		var g model.StudentGroup
		if err := rows.Scan(&g.ID, &g.SchoolID, &g.Name, &g.GradeLevel); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// GetGroup returns a group by ID.
func (s *Store) GetGroup(id int64) (model.StudentGroup, error) {
	var g model.StudentGroup
	err := s.db.QueryRow(
		`SELECT id, school_id, name, grade_level FROM student_groups WHERE id = ?`, id,
	).Scan(&g.ID, &g.SchoolID, &g.Name, &g.GradeLevel)
	if err == sql.ErrNoRows {
		return g, ErrNotFound
	}
	return g, err
}
