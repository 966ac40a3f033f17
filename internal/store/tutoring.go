package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/pavelanni/vidya/internal/model"
)

const summaryWindow = 7 * 24 * time.Hour

// RecordTutoringSession stores one tutor interaction for a student. A nil
// CorrectnessScore is kept as "not evaluated".
func (s *Store) RecordTutoringSession(ts model.TutoringSession) (int64, error) {
	ts.Subject = strings.TrimSpace(ts.Subject)
	ts.Topic = strings.TrimSpace(ts.Topic)
	switch {
	case ts.Subject == "":
		return 0, fmt.Errorf("%w: subject is required", ErrInvalidSession)
	case ts.UnderstandingScore < 1 || ts.UnderstandingScore > 5:
		return 0, fmt.Errorf("%w: understanding score must be between 1 and 5", ErrInvalidSession)
	case ts.CorrectnessScore != nil && (*ts.CorrectnessScore < 0 || *ts.CorrectnessScore > 100):
		return 0, fmt.Errorf("%w: correctness score must be between 0 and 100", ErrInvalidSession)
	}
	student, err := s.GetProfile(ts.StudentID)
	if err != nil {
		return 0, fmt.Errorf("%w: student: %w", ErrInvalidSession, err)
	}
	if student.Role != model.RoleStudent {
		return 0, fmt.Errorf("%w: profile %d is not a student", ErrInvalidSession, ts.StudentID)
	}
	if ts.Timestamp.IsZero() {
		ts.Timestamp = s.now()
	}

	var correctness any
	if ts.CorrectnessScore != nil {
		correctness = *ts.CorrectnessScore
	}
	res, err := s.db.Exec(
		`INSERT INTO tutoring_sessions (student_id, subject, topic, understanding_score, correctness_score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ts.StudentID, ts.Subject, ts.Topic, ts.UnderstandingScore, correctness, ts.Timestamp.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert tutoring session: %w", err)
	}
	return res.LastInsertId()
}

// ListStudentProgress returns a student's sessions, newest first.
func (s *Store) ListStudentProgress(studentID int64) ([]model.TutoringSession, error) {
	rows, err := s.db.Query(
		`SELECT id, student_id, subject, topic, understanding_score, correctness_score, created_at
		 FROM tutoring_sessions WHERE student_id = ? ORDER BY created_at DESC, id DESC`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []model.TutoringSession
	for rows.Next() {
		var ts model.TutoringSession
		var correctness *int
		var millis int64
		if err := rows.Scan(&ts.ID, &ts.StudentID, &ts.Subject, &ts.Topic, &ts.UnderstandingScore, &correctness, &millis); err != nil {
			return nil, err
		}
		ts.CorrectnessScore = correctness
		ts.Timestamp = time.UnixMilli(millis)
		sessions = append(sessions, ts)
	}
	return sessions, rows.Err()
}

// WeeklyProgressSummary aggregates the student's sessions of the last seven
// days. Sessions without a correctness score count towards the total but not
// towards the correctness average.
func (s *Store) WeeklyProgressSummary(studentID int64) (model.WeeklySummary, error) {
	since := s.now().Add(-summaryWindow).UnixMilli()
	var sum model.WeeklySummary
	err := s.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(CAST(AVG(understanding_score) AS INTEGER), 0),
		        COALESCE(CAST(AVG(correctness_score) AS INTEGER), 0)
		 FROM tutoring_sessions WHERE student_id = ? AND created_at >= ?`, studentID, since,
	).Scan(&sum.SessionsCompleted, &sum.AverageUnderstanding, &sum.AverageCorrectness)
	if err != nil {
		return sum, fmt.Errorf("weekly summary for %d: %w", studentID, err)
	}
	return sum, nil
}
